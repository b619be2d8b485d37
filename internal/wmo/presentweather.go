// Package wmo derives present-weather observations from the raw SYNOP codes
// a disdrometer reports: how long the current kind of weather has lasted,
// and the "precipitation ended within the last hour" codes 20..29 once a
// weather condition stops.
package wmo

import (
	"encoding/json"
	"fmt"
	"sort"
)

// historyWindow is how long a weather condition stays relevant, in seconds.
const historyWindow = 3600

// ww (SYNOP table 4677) codes summarized by each "weather ended within the
// last hour" code 20..29.
var ww2 = map[int][]int{
	20: {50, 51, 52, 53, 54, 55},
	21: {60, 61, 62, 63, 64, 65},
	22: {70, 71, 72, 73, 74, 75},
	23: {68, 69},
	24: {56, 57, 66, 67},
	25: {80, 81, 82},
	26: {85, 86},
	27: {87, 88, 89, 90},
	28: {41, 42, 43, 44, 45, 46, 47, 48, 49},
	29: {95, 96, 97, 98, 99},
}

// wawa (SYNOP table 4680) codes summarized by each "weather ended" code
// 20..26.
var wawa2 = map[int][]int{
	20: {30, 31, 32, 33, 34, 35},
	21: {40, 41, 42},
	22: {50, 51, 52, 53, 57, 58},
	23: {60, 61, 62, 63, 67, 68, 43, 44},
	24: {70, 71, 72, 73, 74, 75, 76, 45, 46},
	25: {54, 55, 56, 64, 65, 66, 47, 48},
	26: {90, 91, 92, 93, 94, 95, 96},
}

// nilCategory is the tally key for spans without a code.
const nilCategory = -1

// categorize maps a weather code to its summary category: members of a
// 20..29 range map to that range's code, everything else (including the
// 20..29 codes themselves and "no weather" 0) maps to itself. Intensity
// variations of the same precipitation type share a category.
func categorize(table map[int][]int, code *int) int {
	if code == nil {
		return nilCategory
	}
	for cat, members := range table {
		for _, m := range members {
			if m == *code {
				return cat
			}
		}
	}
	return *code
}

// Span is one stretch of constant weather codes.
type Span struct {
	Start int64
	Stop  int64
	WW    *int
	Wawa  *int
}

// The snapshot file stores spans as [start, stop, ww, wawa] arrays.

func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]interface{}{s.Start, s.Stop, s.WW, s.Wawa})
}

func (s *Span) UnmarshalJSON(data []byte) error {
	var arr [4]*json.Number
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if arr[0] == nil || arr[1] == nil {
		return fmt.Errorf("span needs start and stop timestamps")
	}
	var err error
	if s.Start, err = arr[0].Int64(); err != nil {
		return err
	}
	if s.Stop, err = arr[1].Int64(); err != nil {
		return err
	}
	s.WW, s.Wawa = nil, nil
	if arr[2] != nil {
		v, err := arr[2].Int64()
		if err != nil {
			return err
		}
		ww := int(v)
		s.WW = &ww
	}
	if arr[3] != nil {
		v, err := arr[3].Int64()
		if err != nil {
			return err
		}
		wawa := int(v)
		s.Wawa = &wawa
	}
	return nil
}

// Result is the derived present-weather observation set for one reading.
type Result struct {
	WW   *int
	Wawa *int
	// Start and Elapsed describe how long the current kind of weather has
	// lasted. Nil when the history cannot tell.
	Start   *int64
	Elapsed *int64
}

// History tracks the weather-code spans of the last hour.
type History struct {
	spans []Span
	store SpanStore
}

// SpanStore receives completed spans for persistence. May be nil.
type SpanStore interface {
	InsertSpan(s Span) error
}

// NewHistory creates a History, optionally seeded with the spans restored
// from a snapshot and backed by a span store.
func NewHistory(spans []Span, store SpanStore) *History {
	return &History{spans: spans, store: store}
}

// Spans returns the current span list, for snapshotting on shutdown.
func (h *History) Spans() []Span {
	return h.spans
}

// Add records the weather codes of one reading and derives the
// present-weather result.
func (h *History) Add(ts int64, ww, wawa *int) Result {
	// Open a new span if the weather code changed, otherwise extend the
	// current one. A completed span goes to the store.
	changed := len(h.spans) == 0 ||
		!intPtrEqual(wawa, h.spans[len(h.spans)-1].Wawa) ||
		!intPtrEqual(ww, h.spans[len(h.spans)-1].WW)
	if changed {
		if len(h.spans) > 0 && h.store != nil {
			// Persistence failures must not break code derivation.
			_ = h.store.InsertSpan(h.spans[len(h.spans)-1])
		}
		h.spans = append(h.spans, Span{Start: ts, Stop: ts, WW: ww, Wawa: wawa})
	} else {
		h.spans[len(h.spans)-1].Stop = ts
	}

	// Forget spans that ended more than an hour ago.
	for len(h.spans) > 0 && h.spans[0].Stop < ts-historyWindow {
		h.spans = h.spans[1:]
	}

	res := Result{WW: ww, Wawa: wawa}

	// Start timestamp and duration of the current weather condition. We do
	// not care about the intensity of precipitation here: walking backwards,
	// spans stay within the condition as long as their category matches.
	last := h.spans[len(h.spans)-1]
	lastCatWW := categorize(ww2, last.WW)
	lastCatWawa := categorize(wawa2, last.Wawa)
	start := last.Start
	for i := len(h.spans) - 2; i >= 0; i-- {
		s := h.spans[i]
		if s.Wawa != nil && categorize(wawa2, s.Wawa) != lastCatWawa {
			break
		}
		if s.WW != nil && categorize(ww2, s.WW) != lastCatWW {
			break
		}
		start = s.Start
	}
	elapsed := last.Stop - start
	res.Start = &start
	res.Elapsed = &elapsed

	if len(h.spans) < 2 {
		// The weather did not change during the last hour.
		return res
	}
	if len(h.spans) == 2 && codeZero(h.spans[0].WW) && codeZero(h.spans[0].Wawa) {
		// No weather condition at the beginning of the last hour, then one
		// weather condition.
		return res
	}

	// Which weather for how long?
	wawaDur := make(map[int]int64)
	wwDur := make(map[int]int64)
	for _, s := range h.spans {
		d := s.Stop - s.Start
		wawaDur[categorize(wawa2, s.Wawa)] += d
		wwDur[categorize(ww2, s.WW)] += d
	}

	// One kind of weather only: not the same code all the time, but always
	// rain or always snow etc.
	if len(wawaDur) == 1 && wawa != nil {
		return res
	}
	if len(wwDur) == 1 && ww != nil {
		return res
	}

	if !codeZero(ww) || !codeZero(wawa) {
		// Weather going on right now.
		return res
	}

	// The weather ended within the last hour, so the code to report is one
	// of 20..29, chosen by the longest-lasting condition. The time with no
	// weather at all is reduced by the stretch since the weather ended.
	if _, ok := wawaDur[0]; ok {
		wawaDur[0] -= elapsed
	}
	if _, ok := wwDur[0]; ok {
		wwDur[0] -= elapsed
	}
	res.WW = dominantCode(wwDur)
	res.Wawa = dominantCode(wawaDur)
	endedStart := last.Start
	res.Start = &endedStart
	return res
}

// dominantCode picks the category with the longest total duration.
func dominantCode(durations map[int]int64) *int {
	type entry struct {
		code int
		dur  int64
	}
	entries := make([]entry, 0, len(durations))
	for c, d := range durations {
		entries = append(entries, entry{c, d})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].dur != entries[j].dur {
			return entries[i].dur > entries[j].dur
		}
		return entries[i].code < entries[j].code
	})
	if len(entries) == 0 || entries[0].code == nilCategory {
		return nil
	}
	code := entries[0].code
	return &code
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// codeZero reports "no weather": a nil code or code 0.
func codeZero(c *int) bool {
	return c == nil || *c == 0
}
