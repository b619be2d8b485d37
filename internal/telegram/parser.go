package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/precipmeter/precipd/internal/types"
	"github.com/precipmeter/precipd/internal/units"
	"go.uber.org/zap"
)

// rainAccuRollover is the wrap-around value of the device's accumulated rain
// counter, in mm.
const rainAccuRollover = 300.0

// obsErrorInterval limits how often a conversion error for the same
// observation is logged.
const obsErrorInterval = 300 * time.Second

// Result is one decoded telegram.
type Result struct {
	Observations map[string]types.Observation
	// WW and Wawa are the present weather codes found in the telegram,
	// nil if the telegram carries none.
	WW   *int
	Wawa *int
}

// Parser decodes telegrams of one device. It keeps the previous accumulation
// counter value between telegrams to derive the rain delta, so one Parser
// must be used per device connection.
type Parser struct {
	layout       *Layout
	lastRainAccu *float64
	nextObsError map[string]time.Time
	logger       *zap.SugaredLogger
}

// NewParser creates a parser for a device telegram layout.
func NewParser(layout *Layout, logger *zap.SugaredLogger) *Parser {
	return &Parser{
		layout:       layout,
		nextObsError: make(map[string]time.Time),
		logger:       logger,
	}
}

// Parse decodes one telegram. A telegram that does not contain the field
// separator at all is rejected; anything else yields the fields that could
// be decoded, with per-field conversion errors logged rate-limited rather
// than failing the record. A device sending shorter telegrams than
// configured is almost always a configuration mismatch.
func (p *Parser) Parse(raw string, now time.Time) (*Result, error) {
	payload := strings.TrimSuffix(strings.TrimRight(raw, "\r\n"), p.layout.RecordSeparator)
	if !strings.Contains(payload, p.layout.FieldSeparator) {
		return nil, fmt.Errorf("telegram contains no field separator '%s': %q", p.layout.FieldSeparator, raw)
	}

	parts := strings.Split(payload, p.layout.FieldSeparator)
	res := &Result{Observations: make(map[string]types.Observation)}

	for i, f := range p.layout.Fields {
		// If there are not enough fields within the data telegram, stop
		// processing.
		if i >= len(parts) {
			break
		}
		val := strings.TrimSpace(parts[i])

		if f.Unit == UnitSpectrum {
			continue
		}
		if f.Obs == "" && f.Number != p.layout.rainAccuNumber {
			continue
		}

		if f.Unit == UnitString {
			if f.Obs != "" {
				res.Observations[f.Obs] = types.Str(val)
			}
			continue
		}

		switch f.Group {
		case types.GroupWmoWW, types.GroupWmoWawa:
			code, err := strconv.Atoi(val)
			if err != nil {
				p.logObsError(f.Obs, now, err)
				continue
			}
			if f.Obs != "" {
				res.Observations[f.Obs] = types.Num(float64(code), f.Unit, f.Group)
			}
			if f.Group == types.GroupWmoWW {
				res.WW = &code
			} else {
				res.Wawa = &code
			}
			continue
		}

		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			p.logObsError(f.Obs, now, err)
			continue
		}

		unit, group := f.Unit, f.Group
		if isParsivel(p.layout.Model) && f.Number == parsivelEnergyField && f.Conversion == "" {
			// The unit J/(m^2 h) is a power density, not an energy.
			v /= 3600.0
			unit, group = "watt_per_meter_squared", types.GroupRainPower
		} else if f.Conversion != "" {
			v, err = units.Convert(f.Conversion, v)
			if err != nil {
				p.logObsError(f.Obs, now, err)
				continue
			}
		}

		if f.Obs != "" {
			res.Observations[f.Obs] = types.Num(v, unit, group)
		}

		if f.Number == p.layout.rainAccuNumber {
			p.applyRainDelta(res, v)
		}
	}

	return res, nil
}

// applyRainDelta derives the per-telegram rain amount from the device's
// absolute accumulation counter, handling the counter rollover.
func (p *Parser) applyRainDelta(res *Result, accu float64) {
	if p.lastRainAccu != nil {
		rain := accu - *p.lastRainAccu
		if accu < *p.lastRainAccu {
			rain += rainAccuRollover
		}
		res.Observations[ApplyPrefix(p.layout.Prefix, "rain")] = types.Num(rain, "mm", types.GroupRain)
	}
	last := accu
	p.lastRainAccu = &last
}

// logObsError logs a field conversion error, at most once per observation
// per obsErrorInterval.
func (p *Parser) logObsError(obs string, now time.Time, err error) {
	if now.Before(p.nextObsError[obs]) {
		return
	}
	p.nextObsError[obs] = now.Add(obsErrorInterval)
	p.logger.Errorf("%s: %v", obs, err)
}

func isParsivel(model string) bool {
	switch model {
	case ModelParsivel, ModelParsivel1, ModelParsivel2:
		return true
	}
	return false
}
