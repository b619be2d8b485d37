// Package restpoller implements the sensor backend for devices that expose
// their current readings as a JSON document over HTTP(S).
package restpoller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/precipmeter/precipd/internal/sensors"
	"github.com/precipmeter/precipd/internal/telegram"
	"github.com/precipmeter/precipd/internal/types"
	"github.com/precipmeter/precipd/internal/units"
	"github.com/precipmeter/precipd/pkg/config"
	"go.uber.org/zap"
)

// pollErrorInterval limits how often a failing poll is logged.
const pollErrorInterval = 300 * time.Second

// field maps one JSON document key to an observation.
type field struct {
	key        string
	obs        string
	unit       string
	group      string
	conversion string
}

// Station polls one HTTP endpoint on a fixed interval.
type Station struct {
	ctx                context.Context
	wg                 *sync.WaitGroup
	config             config.DeviceData
	url                string
	client             *http.Client
	fields             []field
	deriver            *sensors.Deriver
	ReadingDistributor chan types.Reading
	logger             *zap.SugaredLogger

	nextPollError time.Time
}

// NewStation creates an HTTP polling sensor for a configured device.
func NewStation(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, deviceName string, distributor chan types.Reading, deriver *sensors.Deriver, logger *zap.SugaredLogger) (sensors.Sensor, error) {
	deviceConfig, err := sensors.LoadDeviceConfig(configProvider, deviceName)
	if err != nil {
		return nil, err
	}

	s := &Station{
		ctx:                ctx,
		wg:                 wg,
		config:             *deviceConfig,
		url:                deviceConfig.Host,
		deriver:            deriver,
		ReadingDistributor: distributor,
		logger:             logger.Named("rest").With("device", deviceName),
	}

	if s.config.QueryIntervalSecs == 0 {
		s.config.QueryIntervalSecs = 5
	}
	if s.config.TimeoutSecs == 0 {
		s.config.TimeoutSecs = 10
	}
	s.client = &http.Client{Timeout: time.Duration(s.config.TimeoutSecs) * time.Second}

	for _, fc := range s.config.Fields {
		f := field{
			key:        fc.Name,
			obs:        telegram.ApplyPrefix(s.config.Prefix, fc.Name),
			unit:       fc.Unit,
			group:      fc.Group,
			conversion: fc.Conversion,
		}
		if f.group == "" {
			f.group = units.GroupForUnit(f.unit)
		}
		if f.conversion != "" && !units.KnownConversion(f.conversion) {
			return nil, fmt.Errorf("device [%s]: unknown conversion '%s' for field %s", deviceName, f.conversion, fc.Name)
		}
		s.fields = append(s.fields, f)
	}
	if len(s.fields) == 0 {
		return nil, fmt.Errorf("device [%s]: restful device needs a fields section naming the JSON keys", deviceName)
	}

	return s, nil
}

func (s *Station) SensorName() string {
	return s.config.Name
}

// StartSensor starts the polling loop.
func (s *Station) StartSensor() error {
	s.logger.Infof("polling %s every %d seconds", s.url, s.config.QueryIntervalSecs)
	s.wg.Add(1)
	go s.poll()
	return nil
}

func (s *Station) poll() {
	defer s.wg.Done()
	defer s.closeDeriver()

	ticker := time.NewTicker(time.Duration(s.config.QueryIntervalSecs) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("cancellation request received, stopping HTTP poller")
			return
		case <-ticker.C:
			s.pollOnce()
		}
	}
}

// pollOnce fetches the JSON document and distributes the decoded reading.
func (s *Station) pollOnce() {
	now := time.Now()

	doc, err := s.fetch()
	if err != nil {
		s.logPollError(now, "poll failed: %v", err)
		return
	}

	obs := make(map[string]types.Observation, len(s.fields))
	var ww, wawa *int

	for _, f := range s.fields {
		raw, ok := doc[f.key]
		if !ok {
			continue
		}

		switch v := raw.(type) {
		case string:
			obs[f.obs] = types.Str(v)
			continue
		case float64:
			unit := f.unit
			val := v
			if f.conversion != "" {
				val, err = units.Convert(f.conversion, val)
				if err != nil {
					s.logPollError(now, "field %s: %v", f.obs, err)
					continue
				}
				unit = units.DefaultUnit(f.group)
			}

			switch f.group {
			case types.GroupWmoWW:
				code := int(val)
				ww = &code
			case types.GroupWmoWawa:
				code := int(val)
				wawa = &code
			}

			obs[f.obs] = types.Num(val, unit, f.group)
		}
	}

	if len(obs) == 0 {
		return
	}

	s.deriver.Apply(obs, ww, wawa, now)

	r := types.Reading{
		Timestamp:    now,
		DeviceName:   s.config.Name,
		Model:        s.config.Model,
		Observations: obs,
	}

	select {
	case s.ReadingDistributor <- r:
	case <-s.ctx.Done():
	}
}

func (s *Station) fetch() (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("device returned status %d", resp.StatusCode)
	}

	var doc map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("cannot decode device response: %w", err)
	}
	return doc, nil
}

func (s *Station) logPollError(now time.Time, format string, args ...interface{}) {
	if now.Before(s.nextPollError) {
		return
	}
	s.nextPollError = now.Add(pollErrorInterval)
	s.logger.Errorf(format, args...)
}

func (s *Station) closeDeriver() {
	if err := s.deriver.Close(); err != nil {
		s.logger.Errorf("failed to save present weather state: %v", err)
	}
}
