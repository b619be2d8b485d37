// Package types contains the data types shared between sensors, the archiver
// and the storage backends.
package types

import "time"

// Unit groups. Observations are grouped by the physical quantity they
// measure, so the archiver can pick the right aggregation without knowing
// individual field names.
const (
	GroupRain        = "group_rain"
	GroupRainRate    = "group_rainrate"
	GroupRainPower   = "group_rainpower"
	GroupDB          = "group_db"
	GroupDistance    = "group_distance"
	GroupTemperature = "group_temperature"
	GroupVolt        = "group_volt"
	GroupAmp         = "group_amp"
	GroupCount       = "group_count"
	GroupInterval    = "group_interval"
	GroupTime        = "group_time"
	GroupElapsed     = "group_elapsed"
	GroupWmoWW       = "group_wmo_ww"
	GroupWmoWawa     = "group_wmo_wawa"
)

// Observation is a single named sensor value together with its unit metadata.
// Text observations (METAR strings, serial numbers) carry IsText.
type Observation struct {
	Value  float64
	Text   string
	IsText bool
	Unit   string
	Group  string
}

// Num returns a numeric observation.
func Num(v float64, unit, group string) Observation {
	return Observation{Value: v, Unit: unit, Group: group}
}

// Str returns a text observation.
func Str(s string) Observation {
	return Observation{Text: s, IsText: true}
}

// Reading is one decoded telegram (or one SNMP/REST poll) from a device.
type Reading struct {
	Timestamp    time.Time
	DeviceName   string
	Model        string
	Observations map[string]Observation
}

// ArchiveRecord is the aggregate of all readings received during one archive
// interval, across all configured devices. Field names are already prefixed
// per device, so one record maps onto one row of the archive table.
type ArchiveRecord struct {
	DateTime time.Time
	// Interval is the archive interval length in minutes, matching the
	// convention of the archive table's `interval` column.
	Interval     int
	Observations map[string]Observation
	// Count is the number of readings that went into this record.
	Count int
}
