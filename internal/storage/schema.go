package storage

import (
	"fmt"

	"github.com/precipmeter/precipd/internal/telegram"
	"github.com/precipmeter/precipd/pkg/config"
)

// ArchiveTable is the name of the archive table in the SQL backends.
const ArchiveTable = "archive"

// MetricWXUnits is the unit-system tag written to every archive row
// (METRICWX: mm, mm/h, degree C, meter), so weather hosts attaching to the
// archive can interpret the values.
const MetricWXUnits = 17

// Schema derives the archive table columns from the configured devices: the
// recorded fields of every enabled device plus the derived observation
// columns. The dateTime and interval base columns are added by the engines.
func Schema(cfgData *config.ConfigData) ([]telegram.Column, error) {
	var cols []telegram.Column
	seen := make(map[string]bool)

	add := func(c telegram.Column) {
		if c.Name == "" || c.SQLType == "" || seen[c.Name] {
			return
		}
		seen[c.Name] = true
		cols = append(cols, c)
	}

	for _, dev := range cfgData.Devices {
		if !dev.Enabled {
			continue
		}
		switch dev.Type {
		case config.ConnSNMP, config.ConnRestful:
			for _, f := range dev.Fields {
				sqlType := f.SQLDatatype
				if sqlType == "" {
					desc := telegram.FieldDesc{Name: f.Name, Unit: f.Unit, Group: f.Group, Length: 8}
					sqlType = desc.SQLType()
				}
				add(telegram.Column{
					Name:    telegram.ApplyPrefix(dev.Prefix, f.Name),
					SQLType: sqlType,
				})
			}
		default:
			layout, err := telegram.NewLayout(&dev)
			if err != nil {
				return nil, fmt.Errorf("device [%s]: %w", dev.Name, err)
			}
			for _, c := range layout.SchemaColumns() {
				add(c)
			}
		}
	}

	if cfgData.Weathercodes != "" {
		add(telegram.Column{Name: "ww", SQLType: "INTEGER"})
		add(telegram.Column{Name: "wawa", SQLType: "INTEGER"})
		add(telegram.Column{Name: "presentweatherStart", SQLType: "INTEGER"})
		add(telegram.Column{Name: "presentweatherTime", SQLType: "INTEGER"})
	}
	if cfgData.Visibility != "" {
		add(telegram.Column{Name: "visibility", SQLType: "REAL"})
	}
	if cfgData.Precipitation != "" {
		add(telegram.Column{Name: "rain", SQLType: "REAL"})
		add(telegram.Column{Name: "rainRate", SQLType: "REAL"})
	}

	return cols, nil
}
