// Package snmppoller implements the sensor backend for SNMP-speaking
// present weather sensors such as the Ott Parsivel2 DSU.
package snmppoller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/precipmeter/precipd/internal/sensors"
	"github.com/precipmeter/precipd/internal/telegram"
	"github.com/precipmeter/precipd/internal/types"
	"github.com/precipmeter/precipd/internal/units"
	"github.com/precipmeter/precipd/pkg/config"
	"go.uber.org/zap"
)

// pollErrorInterval limits how often a failing poll is logged.
const pollErrorInterval = 300 * time.Second

// field is one configured OID with its decoded observation metadata.
type field struct {
	oid        string
	obs        string
	unit       string
	group      string
	conversion string
}

// Station polls one SNMP agent on a fixed interval.
type Station struct {
	ctx                context.Context
	wg                 *sync.WaitGroup
	config             config.DeviceData
	client             *gosnmp.GoSNMP
	fields             []field
	deriver            *sensors.Deriver
	ReadingDistributor chan types.Reading
	logger             *zap.SugaredLogger

	nextPollError time.Time
}

// NewStation creates an SNMP sensor for a configured device.
func NewStation(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, deviceName string, distributor chan types.Reading, deriver *sensors.Deriver, logger *zap.SugaredLogger) (sensors.Sensor, error) {
	deviceConfig, err := sensors.LoadDeviceConfig(configProvider, deviceName)
	if err != nil {
		return nil, err
	}

	s := &Station{
		ctx:                ctx,
		wg:                 wg,
		config:             *deviceConfig,
		deriver:            deriver,
		ReadingDistributor: distributor,
		logger:             logger.Named("snmp").With("device", deviceName),
	}

	if s.config.Port == 0 {
		s.config.Port = 161
	}
	if s.config.QueryIntervalSecs == 0 {
		s.config.QueryIntervalSecs = 5
	}
	if s.config.TimeoutSecs == 0 {
		s.config.TimeoutSecs = 2
	}
	if s.config.Community == "" {
		s.config.Community = "public"
	}

	for _, fc := range s.config.Fields {
		if fc.OID == "" {
			return nil, fmt.Errorf("device [%s]: field %s has no oid", deviceName, fc.Name)
		}
		f := field{
			oid:        fc.OID,
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
		return nil, fmt.Errorf("device [%s]: snmp device needs a fields section", deviceName)
	}

	s.client = &gosnmp.GoSNMP{
		Target:    s.config.Host,
		Port:      uint16(s.config.Port),
		Community: s.config.Community,
		Version:   gosnmp.Version2c,
		Timeout:   time.Duration(s.config.TimeoutSecs) * time.Second,
		Retries:   s.config.Retries,
	}

	return s, nil
}

func (s *Station) SensorName() string {
	return s.config.Name
}

// StartSensor connects to the agent and starts the polling loop.
func (s *Station) StartSensor() error {
	s.logger.Infof("SNMP agent %s:%d, community %s", s.config.Host, s.config.Port, s.config.Community)
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to set up SNMP transport: %w", err)
	}

	s.wg.Add(1)
	go s.poll()
	return nil
}

func (s *Station) poll() {
	defer s.wg.Done()
	defer s.client.Conn.Close()
	defer s.closeDeriver()

	ticker := time.NewTicker(time.Duration(s.config.QueryIntervalSecs) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("cancellation request received, stopping SNMP poller")
			return
		case <-ticker.C:
			s.pollOnce()
		}
	}
}

// pollOnce gets all configured OIDs and distributes the decoded reading.
func (s *Station) pollOnce() {
	now := time.Now()

	oids := make([]string, len(s.fields))
	for i, f := range s.fields {
		oids[i] = f.oid
	}

	result, err := s.client.Get(oids)
	if err != nil {
		s.logPollError(now, "SNMP GET failed: %v", err)
		return
	}

	obs := make(map[string]types.Observation, len(s.fields))
	var ww, wawa *int

	for _, pdu := range result.Variables {
		f, ok := s.fieldForOID(pdu.Name)
		if !ok {
			continue
		}

		switch pdu.Type {
		case gosnmp.OctetString:
			obs[f.obs] = types.Str(string(pdu.Value.([]byte)))
			continue
		case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.Null:
			s.logPollError(now, "agent has no value for %s (%s)", f.obs, f.oid)
			continue
		}

		val := float64(gosnmp.ToBigInt(pdu.Value).Int64())
		unit := f.unit
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

// fieldForOID matches a response PDU to its configured field. Agents return
// the OID with a leading dot.
func (s *Station) fieldForOID(oid string) (field, bool) {
	trimmed := strings.TrimPrefix(oid, ".")
	for _, f := range s.fields {
		if strings.TrimPrefix(f.oid, ".") == trimmed {
			return f, true
		}
	}
	return field{}, false
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
