package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clinsys/authgate/bootstrap"
	"github.com/clinsys/authgate/directory"
)

func TestAggregator(t *testing.T) {
	agg := NewAggregator()
	agg.Register(NewCheckerFunc("ok", func(context.Context) Result {
		return Healthy("fine")
	}))

	results := agg.CheckAll(context.Background())
	if got := agg.OverallStatus(results); got != StatusHealthy {
		t.Errorf("OverallStatus() = %v, want healthy", got)
	}

	agg.Register(NewCheckerFunc("bad", func(context.Context) Result {
		return Unhealthy("down", errors.New("connection refused"))
	}))

	results = agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("CheckAll() returned %d results, want 2", len(results))
	}
	if got := agg.OverallStatus(results); got != StatusUnhealthy {
		t.Errorf("OverallStatus() = %v, want unhealthy", got)
	}
	if results["bad"].Error == nil {
		t.Error("unhealthy result lost its error")
	}
}

func TestAggregator_ReregisterReplaces(t *testing.T) {
	agg := NewAggregator()
	agg.Register(NewCheckerFunc("c", func(context.Context) Result { return Unhealthy("v1", nil) }))
	agg.Register(NewCheckerFunc("c", func(context.Context) Result { return Healthy("v2") }))

	results := agg.CheckAll(context.Background())
	if len(results) != 1 {
		t.Fatalf("CheckAll() returned %d results, want 1", len(results))
	}
	if results["c"].Message != "v2" {
		t.Errorf("Message = %q, want v2", results["c"].Message)
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadinessHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Register(NewCheckerFunc("ok", func(context.Context) Result { return Healthy("fine") }))

	rec := httptest.NewRecorder()
	ReadinessHandler(agg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status     string                     `json:"status"`
		Components map[string]json.RawMessage `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %q, want healthy", body.Status)
	}
	if _, ok := body.Components["ok"]; !ok {
		t.Error("response is missing the ok component")
	}

	agg.Register(NewCheckerFunc("down", func(context.Context) Result {
		return Unhealthy("no connection", errors.New("dial failed"))
	}))

	rec = httptest.NewRecorder()
	ReadinessHandler(agg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestTokenStoreChecker(t *testing.T) {
	store := bootstrap.NewMemoryTokenStore()
	checker := NewTokenStoreChecker(store)

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", result.Status)
	}
}

func TestDirectoryChecker(t *testing.T) {
	checker := NewDirectoryChecker(directory.NewMemory())

	// A miss on the probe uid still proves the provider answered.
	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy, got error %v", result.Status, result.Error)
	}
}
