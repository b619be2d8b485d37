// Package units carries the minimal unit registry the daemon needs: default
// units per unit group, unit-to-group lookup for fields configured with a
// unit but no group, and the named conversions selectable with the
// per-field `conversion` key. The full conversion registry of a weather
// host is deliberately out of scope.
package units

import (
	"fmt"

	"github.com/precipmeter/precipd/internal/types"
)

// defaults maps a unit group to the unit sensors are expected to deliver.
var defaults = map[string]string{
	types.GroupRain:        "mm",
	types.GroupRainRate:    "mm_per_hour",
	types.GroupRainPower:   "watt_per_meter_squared",
	types.GroupDB:          "db",
	types.GroupDistance:    "meter",
	types.GroupTemperature: "degree_C",
	types.GroupVolt:        "volt",
	types.GroupAmp:         "amp",
	types.GroupCount:       "count",
	types.GroupInterval:    "second",
	types.GroupTime:        "unix_epoch",
	types.GroupElapsed:     "second",
	types.GroupWmoWW:       "byte",
	types.GroupWmoWawa:     "byte",
}

// groupForUnit is the reverse lookup used when a configured field names a
// unit but no unit group.
var groupForUnit = map[string]string{
	"mm":                     types.GroupRain,
	"mm_per_hour":            types.GroupRainRate,
	"watt_per_meter_squared": types.GroupRainPower,
	"db":                     types.GroupDB,
	"meter":                  types.GroupDistance,
	"degree_C":               types.GroupTemperature,
	"volt":                   types.GroupVolt,
	"amp":                    types.GroupAmp,
	"count":                  types.GroupCount,
	"second":                 types.GroupElapsed,
	"unix_epoch":             types.GroupTime,
}

// conversions are the named value transforms selectable per field.
var conversions = map[string]func(float64) float64{
	"mm_to_inch":    func(v float64) float64 { return v / 25.4 },
	"inch_to_mm":    func(v float64) float64 { return v * 25.4 },
	"degC_to_degF":  func(v float64) float64 { return v*1.8 + 32.0 },
	"degF_to_degC":  func(v float64) float64 { return (v - 32.0) / 1.8 },
	"meter_to_km":   func(v float64) float64 { return v / 1000.0 },
	"meter_to_mile": func(v float64) float64 { return v / 1609.344 },
	"km_to_meter":   func(v float64) float64 { return v * 1000.0 },
	// The Parsivel kinetic energy field is reported in J/(m^2 h), which is
	// a power density: 1 J/(m^2 h) = 1/3600 W/m^2.
	"joule_per_m2h_to_watt_per_m2": func(v float64) float64 { return v / 3600.0 },
	"div_10":                       func(v float64) float64 { return v / 10.0 },
	"div_100":                      func(v float64) float64 { return v / 100.0 },
	"div_1000":                     func(v float64) float64 { return v / 1000.0 },
}

// DefaultUnit returns the unit sensors are expected to deliver for a group,
// or the empty string for unknown groups.
func DefaultUnit(group string) string {
	return defaults[group]
}

// GroupForUnit finds the unit group a unit belongs to, or the empty string.
func GroupForUnit(unit string) string {
	return groupForUnit[unit]
}

// Convert applies a named conversion to a value. An empty name is the
// identity.
func Convert(name string, v float64) (float64, error) {
	if name == "" {
		return v, nil
	}
	fn, ok := conversions[name]
	if !ok {
		return v, fmt.Errorf("unknown conversion '%s'", name)
	}
	return fn(v), nil
}

// KnownConversion reports whether a conversion name is registered, for
// config validation.
func KnownConversion(name string) bool {
	if name == "" {
		return true
	}
	_, ok := conversions[name]
	return ok
}
