package archive

import (
	"math"
	"testing"
	"time"

	"github.com/precipmeter/precipd/internal/types"
)

func TestAccumulatorAggregation(t *testing.T) {
	acc := NewAccumulator(5*time.Minute, []string{"ottRain"})
	now := time.Now()

	acc.Add(types.Reading{
		Timestamp:  now,
		DeviceName: "ott",
		Observations: map[string]types.Observation{
			"ottRain":        types.Num(0.1, "mm", types.GroupRain),
			"ottRainAccu":    types.Num(10.1, "mm", types.GroupRain),
			"ottHousingTemp": types.Num(20, "degree_C", types.GroupTemperature),
			"ottWawa":        types.Num(53, "byte", types.GroupWmoWawa),
			"ottSNR":         types.Str("200248"),
		},
	})
	acc.Add(types.Reading{
		Timestamp:  now.Add(5 * time.Second),
		DeviceName: "ott",
		Observations: map[string]types.Observation{
			"ottRain":        types.Num(0.2, "mm", types.GroupRain),
			"ottRainAccu":    types.Num(10.3, "mm", types.GroupRain),
			"ottHousingTemp": types.Num(22, "degree_C", types.GroupTemperature),
			"ottWawa":        types.Num(51, "byte", types.GroupWmoWawa),
			"ottSNR":         types.Str("200248"),
		},
	})

	if got := acc.Counts()["ott"]; got != 2 {
		t.Errorf("expected 2 readings counted for ott, got %d", got)
	}

	end := now.Add(5 * time.Minute)
	rec := acc.Flush(end)
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.Interval != 5 {
		t.Errorf("expected interval 5 minutes, got %d", rec.Interval)
	}
	if rec.Count != 2 {
		t.Errorf("expected count 2, got %d", rec.Count)
	}

	tests := []struct {
		name string
		want float64
	}{
		{"ottRain", 0.3},         // summed
		{"ottRainAccu", 10.3},    // absolute counter: last value
		{"ottHousingTemp", 21.0}, // averaged
		{"ottWawa", 53},          // most significant weather
	}
	for _, tt := range tests {
		obs, ok := rec.Observations[tt.name]
		if !ok {
			t.Errorf("missing observation %s", tt.name)
			continue
		}
		if math.Abs(obs.Value-tt.want) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, obs.Value)
		}
	}

	snr, ok := rec.Observations["ottSNR"]
	if !ok || !snr.IsText || snr.Text != "200248" {
		t.Errorf("expected text observation to survive aggregation, got %+v", snr)
	}

	// Flushing an empty interval yields no record.
	if rec := acc.Flush(end.Add(5 * time.Minute)); rec != nil {
		t.Errorf("expected nil record for empty interval, got %+v", rec)
	}
}

func TestStartOfInterval(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 7, 33, 0, time.UTC)
	got := StartOfInterval(ts, 5*time.Minute)
	want := time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
