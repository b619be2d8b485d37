package managers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/precipmeter/precipd/internal/archive"
	"github.com/precipmeter/precipd/internal/telegram"
	"github.com/precipmeter/precipd/internal/types"
	"github.com/precipmeter/precipd/pkg/config"
	"go.uber.org/zap"
)

// Archiver receives readings from the sensors, keeps the current-readings
// cache fresh and aggregates the readings into one archive record per
// archive interval, which it hands to the record distributor.
type Archiver struct {
	ctx                context.Context
	wg                 *sync.WaitGroup
	interval           time.Duration
	logSuccess         bool
	logFailure         bool
	devices            []string
	accumulator        *archive.Accumulator
	cache              *archive.Cache
	ReadingDistributor chan types.Reading
	recordDistributor  chan<- types.ArchiveRecord
	logger             *zap.SugaredLogger
}

// NewArchiver creates the archiver from the loaded configuration. Records go
// out on recordDistributor; sensors send into the returned archiver's
// ReadingDistributor.
func NewArchiver(ctx context.Context, wg *sync.WaitGroup, cfgData *config.ConfigData, cache *archive.Cache, recordDistributor chan<- types.ArchiveRecord, logger *zap.SugaredLogger) (*Archiver, error) {
	interval := time.Duration(cfgData.ArchiveIntervalSecs) * time.Second
	if interval <= 0 {
		return nil, fmt.Errorf("archive interval must be positive, got %d", cfgData.ArchiveIntervalSecs)
	}

	sumFields, devices, err := sumFieldsFromConfig(cfgData)
	if err != nil {
		return nil, err
	}

	return &Archiver{
		ctx:                ctx,
		wg:                 wg,
		interval:           interval,
		logSuccess:         cfgData.LogSuccess,
		logFailure:         cfgData.LogFailure,
		devices:            devices,
		accumulator:        archive.NewAccumulator(interval, sumFields),
		cache:              cache,
		ReadingDistributor: make(chan types.Reading, 20),
		recordDistributor:  recordDistributor,
		logger:             logger.Named("archiver"),
	}, nil
}

// sumFieldsFromConfig collects the observation names that accumulate over
// the archive interval: the per-device rain deltas and, when a precipitation
// source is configured, the `rain` alias.
func sumFieldsFromConfig(cfgData *config.ConfigData) ([]string, []string, error) {
	var sums []string
	var devices []string
	for _, dev := range cfgData.Devices {
		if !dev.Enabled {
			continue
		}
		devices = append(devices, dev.Name)
		if dev.Type == config.ConnSNMP || dev.Type == config.ConnRestful {
			continue
		}
		layout, err := telegram.NewLayout(&dev)
		if err != nil {
			return nil, nil, fmt.Errorf("device [%s]: %w", dev.Name, err)
		}
		if rain := layout.RainDeltaObs(); rain != "" {
			sums = append(sums, rain)
		}
	}
	if cfgData.Precipitation != "" {
		sums = append(sums, "rain")
	}
	return sums, devices, nil
}

// StartArchiver starts the aggregation loop.
func (a *Archiver) StartArchiver() {
	a.wg.Add(1)
	go a.run()
}

func (a *Archiver) run() {
	defer a.wg.Done()

	// Fire on the interval boundaries so every instance agrees on window
	// edges regardless of start time.
	now := time.Now()
	next := archive.StartOfInterval(now, a.interval).Add(a.interval)
	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()

	for {
		select {
		case <-a.ctx.Done():
			a.logger.Info("cancellation request received, stopping archiver")
			return
		case r := <-a.ReadingDistributor:
			a.cache.Update(r)
			a.accumulator.Add(r)
		case end := <-timer.C:
			a.flush(archive.StartOfInterval(end, a.interval))
			now = time.Now()
			next = archive.StartOfInterval(now, a.interval).Add(a.interval)
			timer.Reset(next.Sub(now))
		}
	}
}

// flush emits the archive record for the window ending at end.
func (a *Archiver) flush(end time.Time) {
	counts := a.accumulator.Counts()
	for _, name := range a.devices {
		if n := counts[name]; n > 0 {
			if a.logSuccess {
				a.logger.Infof("%d readings received from [%s] during archive interval", n, name)
			}
		} else if a.logFailure {
			a.logger.Warnf("no readings received from [%s] during archive interval", name)
		}
	}

	rec := a.accumulator.Flush(end)
	if rec == nil {
		return
	}
	a.cache.SetRecord(rec)

	select {
	case a.recordDistributor <- *rec:
	case <-a.ctx.Done():
	}
}
