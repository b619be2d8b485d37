package telegram

import (
	"testing"

	"github.com/precipmeter/precipd/pkg/config"
)

func TestNewLayoutDefaultParsivel(t *testing.T) {
	dev := config.DeviceData{Name: "ott", Model: "ott-parsivel2", Prefix: "ott"}
	layout, err := NewLayout(&dev)
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}

	wantNumbers := []int{13, 1, 2, 3, 7, 8, 34, 12, 10, 11, 18}
	if len(layout.Fields) != len(wantNumbers) {
		t.Fatalf("expected %d fields, got %d", len(wantNumbers), len(layout.Fields))
	}
	for i, nr := range wantNumbers {
		if layout.Fields[i].Number != nr {
			t.Errorf("field %d: expected number %d, got %d", i, nr, layout.Fields[i].Number)
		}
	}

	if layout.FieldSeparator != ";" || layout.RecordSeparator != "\r\n" {
		t.Errorf("unexpected separators: %q / %q", layout.FieldSeparator, layout.RecordSeparator)
	}
	if got := layout.RainDeltaObs(); got != "ottRain" {
		t.Errorf("expected rain delta observation ottRain, got %q", got)
	}
}

func TestNewLayoutTelegramString(t *testing.T) {
	dev := config.DeviceData{
		Name:     "ott",
		Model:    "ott-parsivel2",
		Telegram: "%01;%03;%99;/r/n",
	}
	layout, err := NewLayout(&dev)
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}

	// %99 is not a Parsivel field and is skipped.
	if len(layout.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(layout.Fields))
	}
	if layout.Fields[0].Name != "rainRate" || layout.Fields[1].Name != "wawa" {
		t.Errorf("unexpected field names: %s, %s", layout.Fields[0].Name, layout.Fields[1].Name)
	}

	// No accumulation field in the telegram: no rain delta.
	if got := layout.RainDeltaObs(); got != "" {
		t.Errorf("expected no rain delta observation, got %q", got)
	}
}

func TestNewLayoutTelegramWithoutKnownFields(t *testing.T) {
	dev := config.DeviceData{Name: "ott", Model: "ott-parsivel2", Telegram: "%99;/r/n"}
	if _, err := NewLayout(&dev); err == nil {
		t.Error("expected error for telegram naming no known fields")
	}
}

func TestNewLayoutThiesDefault(t *testing.T) {
	dev := config.DeviceData{Name: "thies", Model: "thies-lnm"}
	layout, err := NewLayout(&dev)
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	if len(layout.Fields) != 22 {
		t.Fatalf("expected 22 fields in the default LNM layout, got %d", len(layout.Fields))
	}
	if layout.Fields[5].Name != "ww" || layout.Fields[6].Name != "wawa" {
		t.Errorf("weather code fields misplaced: %s, %s", layout.Fields[5].Name, layout.Fields[6].Name)
	}
	if got := layout.RainDeltaObs(); got != "rain" {
		t.Errorf("expected rain delta observation, got %q", got)
	}
}

func TestNewLayoutGenericNeedsFields(t *testing.T) {
	dev := config.DeviceData{Name: "gen", Model: "generic"}
	if _, err := NewLayout(&dev); err == nil {
		t.Error("expected error for generic model without fields")
	}
}

func TestNewLayoutUnknownModel(t *testing.T) {
	dev := config.DeviceData{Name: "x", Model: "frisbee-3000"}
	if _, err := NewLayout(&dev); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestSchemaColumns(t *testing.T) {
	dev := config.DeviceData{Name: "ott", Model: "ott-parsivel2", Prefix: "ott"}
	layout, err := NewLayout(&dev)
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}

	cols := layout.SchemaColumns()
	byName := make(map[string]string, len(cols))
	for _, c := range cols {
		byName[c.Name] = c.SQLType
	}

	if got := byName["ottRainRate"]; got != "REAL" {
		t.Errorf("ottRainRate: expected REAL, got %q", got)
	}
	if got := byName["ottWawa"]; got != "INTEGER" {
		t.Errorf("ottWawa: expected INTEGER, got %q", got)
	}
	if got := byName["ottSNR"]; got != "VARCHAR(6)" {
		t.Errorf("ottSNR: expected VARCHAR(6), got %q", got)
	}
	if got := byName["ottRain"]; got != "REAL" {
		t.Errorf("derived ottRain column missing or wrong: %q", got)
	}
}

func TestApplyPrefix(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"ott", "rainRate", "ottRainRate"},
		{"ott", "MOR", "ottMOR"},
		{"", "rainRate", "rainRate"},
		{"ott", "", ""},
	}
	for _, tt := range tests {
		if got := ApplyPrefix(tt.prefix, tt.name); got != tt.want {
			t.Errorf("ApplyPrefix(%q, %q): expected %q, got %q", tt.prefix, tt.name, tt.want, got)
		}
	}
}
