package sensors

import (
	"testing"
	"time"

	"github.com/precipmeter/precipd/internal/types"
	"go.uber.org/zap"
)

func iptr(v int) *int { return &v }

func TestDeriverWeathercodes(t *testing.T) {
	logger := zap.NewNop().Sugar()
	d, err := NewDeriver(t.TempDir(), "ott", "ott", true, false, false, logger)
	if err != nil {
		t.Fatalf("NewDeriver: %v", err)
	}
	defer d.Close()

	now := time.Now()
	obs := map[string]types.Observation{
		"ottWawa": types.Num(51, "byte", types.GroupWmoWawa),
	}
	d.Apply(obs, nil, iptr(51), now)

	wawa, ok := obs["wawa"]
	if !ok || wawa.Value != 51 {
		t.Errorf("expected derived wawa 51, got %+v", wawa)
	}
	if _, ok := obs["presentweatherTime"]; !ok {
		t.Error("expected presentweatherTime observation")
	}

	// Second reading: the condition has lasted 300 seconds now.
	obs = map[string]types.Observation{
		"ottWawa": types.Num(51, "byte", types.GroupWmoWawa),
	}
	d.Apply(obs, nil, iptr(51), now.Add(300*time.Second))

	elapsed, ok := obs["presentweatherTime"]
	if !ok || elapsed.Value != 300 {
		t.Errorf("expected presentweatherTime 300, got %+v", elapsed)
	}
	start, ok := obs["presentweatherStart"]
	if !ok || int64(start.Value) != now.Unix() {
		t.Errorf("expected presentweatherStart %d, got %+v", now.Unix(), start)
	}
}

func TestDeriverAliases(t *testing.T) {
	logger := zap.NewNop().Sugar()
	d, err := NewDeriver(t.TempDir(), "ott", "ott", false, true, true, logger)
	if err != nil {
		t.Fatalf("NewDeriver: %v", err)
	}
	defer d.Close()

	obs := map[string]types.Observation{
		"ottMOR":      types.Num(4000, "meter", types.GroupDistance),
		"ottRain":     types.Num(0.25, "mm", types.GroupRain),
		"ottRainRate": types.Num(1.5, "mm_per_hour", types.GroupRainRate),
	}
	d.Apply(obs, nil, nil, time.Now())

	if vis, ok := obs["visibility"]; !ok || vis.Value != 4000 {
		t.Errorf("expected visibility alias 4000, got %+v", vis)
	}
	if rain, ok := obs["rain"]; !ok || rain.Value != 0.25 {
		t.Errorf("expected rain alias 0.25, got %+v", rain)
	}
	if rate, ok := obs["rainRate"]; !ok || rate.Value != 1.5 {
		t.Errorf("expected rainRate alias 1.5, got %+v", rate)
	}
}

func TestDeriverWithoutRolesLeavesObsAlone(t *testing.T) {
	logger := zap.NewNop().Sugar()
	d, err := NewDeriver(t.TempDir(), "ott", "ott", false, false, false, logger)
	if err != nil {
		t.Fatalf("NewDeriver: %v", err)
	}
	defer d.Close()

	obs := map[string]types.Observation{
		"ottMOR": types.Num(4000, "meter", types.GroupDistance),
	}
	d.Apply(obs, nil, iptr(51), time.Now())

	if len(obs) != 1 {
		t.Errorf("expected no derived observations, got %v", obs)
	}
}
