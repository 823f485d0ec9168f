package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// componentReport is the JSON shape of a single check result.
type componentReport struct {
	Status     string  `json:"status"`
	Message    string  `json:"message,omitempty"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// report is the JSON shape of the composite health response.
type report struct {
	Status     string                     `json:"status"`
	Components map[string]componentReport `json:"components,omitempty"`
	CheckedAt  time.Time                  `json:"checked_at"`
}

// LivenessHandler reports process liveness. It always succeeds while the
// process can serve requests.
func LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeReport(w, http.StatusOK, report{
			Status:    StatusHealthy.String(),
			CheckedAt: time.Now().UTC(),
		})
	})
}

// ReadinessHandler runs the aggregator's checks and reports 200 when every
// component is healthy, 503 otherwise.
func ReadinessHandler(agg *Aggregator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := agg.CheckAll(r.Context())
		overall := agg.OverallStatus(results)

		components := make(map[string]componentReport, len(results))
		for name, res := range results {
			cr := componentReport{
				Status:     res.Status.String(),
				Message:    res.Message,
				DurationMS: float64(res.Duration.Microseconds()) / 1000,
			}
			if res.Error != nil {
				cr.Error = res.Error.Error()
			}
			components[name] = cr
		}

		status := http.StatusOK
		if overall != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		writeReport(w, status, report{
			Status:     overall.String(),
			Components: components,
			CheckedAt:  time.Now().UTC(),
		})
	})
}

// RegisterHandlers mounts the liveness and readiness endpoints on mux.
func RegisterHandlers(mux interface {
	Handle(pattern string, handler http.Handler)
}, agg *Aggregator) {
	mux.Handle("/healthz", LivenessHandler())
	mux.Handle("/readyz", ReadinessHandler(agg))
}

func writeReport(w http.ResponseWriter, status int, body report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
