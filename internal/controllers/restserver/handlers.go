package restserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/precipmeter/precipd/internal/types"
)

// Handlers holds the HTTP handlers of the readings REST server.
type Handlers struct {
	ctrl *Controller
}

func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{ctrl: ctrl}
}

// observationJSON is the wire shape of one observation.
type observationJSON struct {
	Value interface{} `json:"value"`
	Unit  string      `json:"unit,omitempty"`
	Group string      `json:"group,omitempty"`
}

// deviceJSON is the wire shape of one device's latest reading.
type deviceJSON struct {
	Timestamp    int64                      `json:"timestamp"`
	Model        string                     `json:"model,omitempty"`
	Observations map[string]observationJSON `json:"observations"`
}

func obsToJSON(obs map[string]types.Observation) map[string]observationJSON {
	out := make(map[string]observationJSON, len(obs))
	for name, o := range obs {
		j := observationJSON{Unit: o.Unit, Group: o.Group}
		if o.IsText {
			j.Value = o.Text
			j.Unit = ""
			j.Group = ""
		} else {
			j.Value = o.Value
		}
		out[name] = j
	}
	return out
}

// GetCurrent serves the latest reading of every device.
func (h *Handlers) GetCurrent(w http.ResponseWriter, r *http.Request) {
	current := h.ctrl.cache.Current()

	out := make(map[string]deviceJSON, len(current))
	for name, reading := range current {
		out[name] = deviceJSON{
			Timestamp:    reading.Timestamp.Unix(),
			Model:        reading.Model,
			Observations: obsToJSON(reading.Observations),
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// GetWeather serves the current present-weather summary: the derived
// ww/wawa codes with their start and duration, plus the visibility and
// rain aliases if configured.
func (h *Handlers) GetWeather(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]interface{})
	var ts int64

	for _, reading := range h.ctrl.cache.Current() {
		for _, name := range []string{"ww", "wawa", "presentweatherStart", "presentweatherTime", "visibility", "rain", "rainRate"} {
			obs, ok := reading.Observations[name]
			if !ok {
				continue
			}
			out[name] = obs.Value
			if reading.Timestamp.Unix() > ts {
				ts = reading.Timestamp.Unix()
			}
		}
	}

	if len(out) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no derived weather observations configured"})
		return
	}
	out["timestamp"] = ts
	writeJSON(w, http.StatusOK, out)
}

// GetArchive serves the most recently emitted archive record.
func (h *Handlers) GetArchive(w http.ResponseWriter, r *http.Request) {
	rec := h.ctrl.cache.Record()
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no archive record emitted yet"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dateTime":     rec.DateTime.Unix(),
		"interval":     rec.Interval,
		"count":        rec.Count,
		"observations": obsToJSON(rec.Observations),
	})
}

// GetHealth reports whether readings are still arriving.
func (h *Handlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	age, ok := h.ctrl.cache.Age(time.Now())
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no readings received yet"})
		return
	}
	if age > h.ctrl.staleAfter {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":      "stale",
			"age_seconds": int(age.Seconds()),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"age_seconds": int(age.Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
