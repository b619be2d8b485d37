package storage

import (
	"testing"

	"github.com/precipmeter/precipd/pkg/config"
)

func TestSchemaFromConfig(t *testing.T) {
	cfg := &config.ConfigData{
		Weathercodes:  "ott",
		Visibility:    "dsu",
		Precipitation: "ott",
		Devices: []config.DeviceData{
			{Name: "ott", Enabled: true, Type: config.ConnTCP, Model: "ott-parsivel2", Prefix: "ott"},
			{Name: "off", Enabled: false, Type: config.ConnTCP, Model: "ott-parsivel2", Prefix: "off"},
			{
				Name: "dsu", Enabled: true, Type: config.ConnSNMP, Prefix: "dsu",
				Fields: []config.FieldData{
					{Name: "MOR", OID: ".1.3.6.1.4.1.39145.10.0", Unit: "meter"},
					{Name: "state", OID: ".1.3.6.1.4.1.39145.11.0", SQLDatatype: "INTEGER"},
				},
			},
		},
	}

	cols, err := Schema(cfg)
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}

	byName := make(map[string]string, len(cols))
	for _, c := range cols {
		if byName[c.Name] != "" {
			t.Errorf("duplicate column %s", c.Name)
		}
		byName[c.Name] = c.SQLType
	}

	// Telegram device columns, prefixed.
	if byName["ottRainRate"] != "REAL" {
		t.Errorf("ottRainRate: got %q", byName["ottRainRate"])
	}
	if byName["ottRain"] != "REAL" {
		t.Errorf("derived ottRain: got %q", byName["ottRain"])
	}

	// Disabled devices contribute nothing.
	if _, ok := byName["offRainRate"]; ok {
		t.Error("disabled device must not contribute columns")
	}

	// SNMP device columns.
	if byName["dsuMOR"] != "REAL" {
		t.Errorf("dsuMOR: got %q", byName["dsuMOR"])
	}
	if byName["dsuState"] != "INTEGER" {
		t.Errorf("dsuState sql_datatype override: got %q", byName["dsuState"])
	}

	// Derived observation columns.
	for _, name := range []string{"ww", "wawa", "presentweatherStart", "presentweatherTime"} {
		if byName[name] != "INTEGER" {
			t.Errorf("%s: expected INTEGER, got %q", name, byName[name])
		}
	}
	if byName["visibility"] != "REAL" {
		t.Errorf("visibility: got %q", byName["visibility"])
	}
	if byName["rain"] != "REAL" || byName["rainRate"] != "REAL" {
		t.Errorf("precipitation aliases: rain=%q rainRate=%q", byName["rain"], byName["rainRate"])
	}
}
