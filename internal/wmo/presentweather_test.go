package wmo

import (
	"encoding/json"
	"reflect"
	"testing"
)

func iptr(v int) *int { return &v }

// fakeStore captures the spans handed over for persistence.
type fakeStore struct {
	spans []Span
}

func (f *fakeStore) InsertSpan(s Span) error {
	f.spans = append(f.spans, s)
	return nil
}

func TestConstantWeatherPassesThrough(t *testing.T) {
	h := NewHistory(nil, nil)
	t0 := int64(1700000000)

	h.Add(t0, nil, iptr(51))
	res := h.Add(t0+300, nil, iptr(51))

	if res.Wawa == nil || *res.Wawa != 51 {
		t.Errorf("expected wawa 51, got %v", res.Wawa)
	}
	if res.Start == nil || *res.Start != t0 {
		t.Errorf("expected start %d, got %v", t0, res.Start)
	}
	if res.Elapsed == nil || *res.Elapsed != 300 {
		t.Errorf("expected elapsed 300, got %v", res.Elapsed)
	}
}

func TestIntensityChangeKeepsElapsed(t *testing.T) {
	h := NewHistory(nil, nil)
	t0 := int64(1700000000)

	// Drizzle getting heavier: codes 51 and 53 are the same kind of weather.
	h.Add(t0, nil, iptr(51))
	h.Add(t0+300, nil, iptr(51))
	res := h.Add(t0+600, nil, iptr(53))

	if res.Wawa == nil || *res.Wawa != 53 {
		t.Errorf("expected wawa 53, got %v", res.Wawa)
	}
	if res.Start == nil || *res.Start != t0 {
		t.Errorf("intensity change must not reset the start, got %v", res.Start)
	}
	if res.Elapsed == nil || *res.Elapsed != 600 {
		t.Errorf("expected elapsed 600, got %v", res.Elapsed)
	}
}

func TestWeatherEndedCode(t *testing.T) {
	h := NewHistory(nil, nil)
	t0 := int64(1700000000)

	// Drizzle for ten minutes, then it stops.
	h.Add(t0, iptr(51), iptr(51))
	h.Add(t0+600, iptr(51), iptr(51))
	res := h.Add(t0+900, iptr(0), iptr(0))

	// ww 51 is drizzle, summarized by "drizzle ended" code 20; wawa 51 by
	// "precipitation ended" code 22.
	if res.WW == nil || *res.WW != 20 {
		t.Errorf("expected ww 20 (drizzle ended), got %v", res.WW)
	}
	if res.Wawa == nil || *res.Wawa != 22 {
		t.Errorf("expected wawa 22 (precipitation ended), got %v", res.Wawa)
	}
	if res.Start == nil || *res.Start != t0+900 {
		t.Errorf("expected start at the end of the weather, got %v", res.Start)
	}
}

func TestWeatherEndedPicksDominantCondition(t *testing.T) {
	h := NewHistory(nil, nil)
	t0 := int64(1700000000)

	// Twenty minutes of rain, five minutes of snow, then nothing.
	h.Add(t0, nil, iptr(61))
	h.Add(t0+1200, nil, iptr(61))
	h.Add(t0+1201, nil, iptr(71))
	h.Add(t0+1500, nil, iptr(71))
	res := h.Add(t0+1800, nil, iptr(0))

	// Rain lasted longer, so "rain ended" (23) wins over "snow ended" (24).
	if res.Wawa == nil || *res.Wawa != 23 {
		t.Errorf("expected wawa 23 (rain ended), got %v", res.Wawa)
	}
}

func TestNoWeatherAfterQuietStartStaysZero(t *testing.T) {
	h := NewHistory(nil, nil)
	t0 := int64(1700000000)

	h.Add(t0, nil, iptr(0))
	h.Add(t0+300, nil, iptr(0))
	res := h.Add(t0+600, nil, iptr(51))

	// Quiet hour, then weather starts: pass the code through unchanged.
	if res.Wawa == nil || *res.Wawa != 51 {
		t.Errorf("expected wawa 51, got %v", res.Wawa)
	}
	if res.Start == nil || *res.Start != t0+600 {
		t.Errorf("expected start when the weather began, got %v", res.Start)
	}
}

func TestHistoryWindowTrim(t *testing.T) {
	h := NewHistory(nil, nil)
	t0 := int64(1700000000)

	h.Add(t0, nil, iptr(61))
	h.Add(t0+300, nil, iptr(61))
	h.Add(t0+600, nil, iptr(0))

	// Two hours later the old rain span is gone: plain "no weather".
	res := h.Add(t0+7800, nil, iptr(0))
	if res.Wawa == nil || *res.Wawa != 0 {
		t.Errorf("expected wawa 0 after the rain aged out, got %v", res.Wawa)
	}
	if len(h.Spans()) != 1 {
		t.Errorf("expected a single remaining span, got %d", len(h.Spans()))
	}
}

func TestCompletedSpansGoToStore(t *testing.T) {
	store := &fakeStore{}
	h := NewHistory(nil, store)
	t0 := int64(1700000000)

	h.Add(t0, nil, iptr(51))
	h.Add(t0+300, nil, iptr(51))
	h.Add(t0+600, nil, iptr(0))

	if len(store.spans) != 1 {
		t.Fatalf("expected 1 completed span in the store, got %d", len(store.spans))
	}
	s := store.spans[0]
	if s.Start != t0 || s.Stop != t0+300 {
		t.Errorf("stored span has wrong bounds: %+v", s)
	}
	if s.Wawa == nil || *s.Wawa != 51 {
		t.Errorf("stored span has wrong wawa: %+v", s)
	}
}

func TestSpanJSONRoundTrip(t *testing.T) {
	spans := []Span{
		{Start: 100, Stop: 200, WW: iptr(61), Wawa: iptr(61)},
		{Start: 200, Stop: 300},
	}

	data, err := json.Marshal(spans)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var restored []Span
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(spans, restored) {
		t.Errorf("round trip mismatch:\n  in:  %+v\n  out: %+v", spans, restored)
	}
}
