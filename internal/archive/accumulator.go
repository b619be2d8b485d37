// Package archive accumulates sub-interval sensor readings into one record
// per archive interval.
package archive

import (
	"time"

	"github.com/precipmeter/precipd/internal/types"
	"gonum.org/v1/gonum/stat"
)

type aggKind int

const (
	aggLast aggKind = iota
	aggSum
	aggAvg
	aggMax
)

// Unit groups that are averaged over the archive interval.
var avgGroups = map[string]bool{
	types.GroupTemperature: true,
	types.GroupDB:          true,
	types.GroupDistance:    true,
	types.GroupVolt:        true,
}

// Unit groups where the interval maximum is kept. Weather codes are ordered
// by severity, so the maximum is the significant weather of the interval.
var maxGroups = map[string]bool{
	types.GroupWmoWW:   true,
	types.GroupWmoWawa: true,
}

type aggregate struct {
	kind    aggKind
	obs     types.Observation
	sum     float64
	samples []float64
}

// Accumulator aggregates the readings of one archive interval. It is not
// safe for concurrent use; the archiver owns it.
type Accumulator struct {
	interval time.Duration
	// sumFields are the observation names that accumulate over the
	// interval (the derived rain deltas); everything else aggregates by
	// unit group.
	sumFields map[string]bool

	values map[string]*aggregate
	counts map[string]int
	total  int
}

// NewAccumulator creates an accumulator for a given archive interval.
// sumFields names the observations to sum rather than aggregate by group.
func NewAccumulator(interval time.Duration, sumFields []string) *Accumulator {
	sums := make(map[string]bool, len(sumFields))
	for _, f := range sumFields {
		sums[f] = true
	}
	a := &Accumulator{
		interval:  interval,
		sumFields: sums,
	}
	a.reset()
	return a
}

func (a *Accumulator) reset() {
	a.values = make(map[string]*aggregate)
	a.counts = make(map[string]int)
	a.total = 0
}

// StartOfInterval returns the interval-aligned window start containing ts.
// Windows are aligned to the Unix epoch, so every instance of the daemon
// agrees on the boundaries.
func StartOfInterval(ts time.Time, interval time.Duration) time.Time {
	return ts.Truncate(interval)
}

// Add aggregates one reading into the current window.
func (a *Accumulator) Add(r types.Reading) {
	for name, obs := range r.Observations {
		agg, ok := a.values[name]
		if !ok {
			agg = &aggregate{kind: a.kindFor(name, obs), obs: obs}
			a.values[name] = agg
		}
		agg.obs = obs
		if obs.IsText {
			continue
		}
		switch agg.kind {
		case aggSum:
			agg.sum += obs.Value
		case aggAvg:
			agg.samples = append(agg.samples, obs.Value)
		case aggMax:
			if len(agg.samples) == 0 || obs.Value > agg.samples[0] {
				agg.samples = []float64{obs.Value}
			}
		}
	}
	a.counts[r.DeviceName]++
	a.total++
}

func (a *Accumulator) kindFor(name string, obs types.Observation) aggKind {
	if obs.IsText {
		return aggLast
	}
	if a.sumFields[name] {
		return aggSum
	}
	if avgGroups[obs.Group] {
		return aggAvg
	}
	if maxGroups[obs.Group] {
		return aggMax
	}
	return aggLast
}

// Counts returns the number of readings received per device in the current
// window.
func (a *Accumulator) Counts() map[string]int {
	return a.counts
}

// Flush produces the archive record for the window ending at end and resets
// the accumulator. It returns nil when no reading arrived during the
// window.
func (a *Accumulator) Flush(end time.Time) *types.ArchiveRecord {
	if a.total == 0 {
		a.reset()
		return nil
	}

	rec := &types.ArchiveRecord{
		DateTime:     end,
		Interval:     int(a.interval / time.Minute),
		Observations: make(map[string]types.Observation, len(a.values)),
		Count:        a.total,
	}
	for name, agg := range a.values {
		obs := agg.obs
		switch agg.kind {
		case aggSum:
			obs.Value = agg.sum
		case aggAvg:
			obs.Value = stat.Mean(agg.samples, nil)
		case aggMax:
			if len(agg.samples) > 0 {
				obs.Value = agg.samples[0]
			}
		}
		rec.Observations[name] = obs
	}

	a.reset()
	return rec
}
