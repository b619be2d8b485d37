package sensors

import (
	"time"

	"github.com/precipmeter/precipd/internal/telegram"
	"github.com/precipmeter/precipd/internal/types"
	"github.com/precipmeter/precipd/internal/wmo"
	"go.uber.org/zap"
)

// derivedErrorInterval limits how often present-weather derivation errors
// are logged.
const derivedErrorInterval = 300 * time.Second

// Deriver adds the derived observations to a device's readings: the
// present-weather codes with their duration (when this device is the
// configured weathercodes source), the `visibility` alias, and the
// `rain`/`rainRate` aliases (when this device is the configured
// precipitation source).
type Deriver struct {
	prefix        string
	weathercodes  bool
	visibility    bool
	precipitation bool

	history *wmo.History
	state   *wmo.State
	logger  *zap.SugaredLogger
}

// NewDeriver creates a Deriver for one device. When the device is the
// weathercodes source, the per-device present-weather state is opened in
// stateDir.
func NewDeriver(stateDir, deviceName, prefix string, weathercodes, visibility, precipitation bool, logger *zap.SugaredLogger) (*Deriver, error) {
	d := &Deriver{
		prefix:        prefix,
		weathercodes:  weathercodes,
		visibility:    visibility,
		precipitation: precipitation,
		logger:        logger,
	}

	if weathercodes {
		state, spans, err := wmo.OpenState(stateDir, deviceName, logger)
		if err != nil {
			return nil, err
		}
		d.state = state
		d.history = wmo.NewHistory(spans, state)
	}

	return d, nil
}

// Apply adds the derived observations to a decoded reading.
func (d *Deriver) Apply(obs map[string]types.Observation, ww, wawa *int, ts time.Time) {
	if len(obs) == 0 {
		return
	}

	if d.weathercodes {
		res := d.history.Add(ts.Unix(), ww, wawa)
		if res.WW != nil {
			obs["ww"] = types.Num(float64(*res.WW), "byte", types.GroupWmoWW)
		}
		if res.Wawa != nil {
			obs["wawa"] = types.Num(float64(*res.Wawa), "byte", types.GroupWmoWawa)
		}
		if res.Start != nil && *res.Start != 0 {
			obs["presentweatherStart"] = types.Num(float64(*res.Start), "unix_epoch", types.GroupTime)
		}
		if res.Elapsed != nil {
			obs["presentweatherTime"] = types.Num(float64(*res.Elapsed), "second", types.GroupElapsed)
		}
	}

	if d.visibility {
		if mor, ok := obs[telegram.ApplyPrefix(d.prefix, "MOR")]; ok {
			obs["visibility"] = mor
		}
	}

	if d.precipitation {
		// Usually `rain` and `rainRate` come from the station driver; the
		// precipitation key points them at this device instead.
		if rain, ok := obs[telegram.ApplyPrefix(d.prefix, "rain")]; ok {
			obs["rain"] = rain
		}
		if rate, ok := obs[telegram.ApplyPrefix(d.prefix, "rainRate")]; ok {
			obs["rainRate"] = rate
		}
	}
}

// Close snapshots the present-weather state, if this device carries any.
func (d *Deriver) Close() error {
	if d.state == nil {
		return nil
	}
	return d.state.Close(d.history.Spans())
}
