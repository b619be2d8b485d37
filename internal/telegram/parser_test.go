package telegram

import (
	"math"
	"testing"
	"time"

	"github.com/precipmeter/precipd/pkg/config"
	"go.uber.org/zap"
)

func testParser(t *testing.T, dev config.DeviceData) *Parser {
	t.Helper()
	layout, err := NewLayout(&dev)
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	return NewParser(layout, zap.NewNop().Sugar())
}

func TestParseDefaultParsivelTelegram(t *testing.T) {
	p := testParser(t, config.DeviceData{Name: "ott", Model: "ott-parsivel2", Prefix: "ott"})
	now := time.Now()

	// Default telegram: SNR, rainRate, rainAccu, wawa, dBZ, MOR, energy,
	// housingTemp, signal, particle, sensorState.
	res, err := p.Parse("200248;001.250;000.10;51;10.500;09999;0036.00;022;15759;00025;0;\r\n", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if res.Wawa == nil || *res.Wawa != 51 {
		t.Errorf("expected wawa 51, got %v", res.Wawa)
	}
	if res.WW != nil {
		t.Errorf("default telegram carries no ww, got %v", *res.WW)
	}

	snr, ok := res.Observations["ottSNR"]
	if !ok || !snr.IsText || snr.Text != "200248" {
		t.Errorf("expected ottSNR text '200248', got %+v", snr)
	}

	checks := map[string]float64{
		"ottRainRate":    1.25,
		"ottRainAccu":    0.10,
		"ottWawa":        51,
		"ottDBZ":         10.5,
		"ottMOR":         9999,
		"ottHousingTemp": 22,
		"ottSignal":      15759,
		"ottParticle":    25,
		// 36 J/(m^2 h) = 0.01 W/m^2
		"ottEnergy": 0.01,
	}
	for name, want := range checks {
		obs, ok := res.Observations[name]
		if !ok {
			t.Errorf("missing observation %s", name)
			continue
		}
		if math.Abs(obs.Value-want) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", name, want, obs.Value)
		}
	}

	if _, ok := res.Observations["ottRain"]; ok {
		t.Error("first telegram must not produce a rain delta")
	}

	// Second telegram: the accumulation counter advanced by 0.25 mm.
	res, err = p.Parse("200248;003.000;000.35;53;12.000;08000;0072.00;022;15759;00031;0;\r\n", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rain, ok := res.Observations["ottRain"]
	if !ok {
		t.Fatal("expected rain delta on second telegram")
	}
	if math.Abs(rain.Value-0.25) > 1e-9 {
		t.Errorf("expected rain delta 0.25, got %v", rain.Value)
	}
}

func TestParseRainCounterRollover(t *testing.T) {
	p := testParser(t, config.DeviceData{Name: "ott", Model: "ott-parsivel2"})
	now := time.Now()

	if _, err := p.Parse("200248;000.000;299.90;00;-9.999;9999;000.00;022;15759;00000;0;", now); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	res, err := p.Parse("200248;000.000;000.10;00;-9.999;9999;000.00;022;15759;00000;0;", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	rain, ok := res.Observations["rain"]
	if !ok {
		t.Fatal("expected rain delta after rollover")
	}
	// The counter wraps at 300 mm: 0.10 - 299.90 + 300 = 0.20.
	if math.Abs(rain.Value-0.20) > 1e-6 {
		t.Errorf("expected rain delta 0.20 across rollover, got %v", rain.Value)
	}
}

func TestParseShortTelegram(t *testing.T) {
	p := testParser(t, config.DeviceData{Name: "ott", Model: "ott-parsivel2"})

	// Fewer fields than the layout: decode what is there, no error.
	res, err := p.Parse("200248;001.000", time.Now())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Observations) != 2 {
		t.Errorf("expected 2 observations from truncated telegram, got %d", len(res.Observations))
	}
}

func TestParseRejectsForeignData(t *testing.T) {
	p := testParser(t, config.DeviceData{Name: "ott", Model: "ott-parsivel2"})

	if _, err := p.Parse("GET / HTTP/1.1", time.Now()); err == nil {
		t.Error("expected error for data without field separator")
	}
}

func TestParseBadFieldIsSkipped(t *testing.T) {
	p := testParser(t, config.DeviceData{Name: "ott", Model: "ott-parsivel2"})

	// rainRate is unreadable; the rest of the telegram must still decode.
	res, err := p.Parse("200248;??????;000.10;00;-9.999;9999;000.00;022;15759;00000;0;", time.Now())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := res.Observations["rainRate"]; ok {
		t.Error("unreadable rainRate must not be recorded")
	}
	if _, ok := res.Observations["rainAccu"]; !ok {
		t.Error("fields after a bad field must still decode")
	}
}

func TestParseConfiguredConversion(t *testing.T) {
	dev := config.DeviceData{
		Name:  "gen",
		Model: "generic",
		Fields: []config.FieldData{
			{Name: "visibility", Unit: "meter", Conversion: "meter_to_km"},
		},
	}
	p := testParser(t, dev)

	res, err := p.Parse("2500;", time.Now())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	obs, ok := res.Observations["visibility"]
	if !ok {
		t.Fatal("missing visibility observation")
	}
	if math.Abs(obs.Value-2.5) > 1e-9 {
		t.Errorf("expected 2.5 km, got %v", obs.Value)
	}
}
