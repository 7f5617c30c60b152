package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/v1/drugs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues("GET", "/v1/drugs/{id}", "418"))

	for _, id := range []string{"1", "2", "3"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/drugs/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	after := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues("GET", "/v1/drugs/{id}", "418"))
	if after-before != 3 {
		t.Errorf("Expected 3 requests counted under the route pattern, got %v", after-before)
	}
	if got := testutil.ToFloat64(HTTPRequestInFlight); got != 0 {
		t.Errorf("Expected no in-flight requests, got %v", got)
	}
}

func TestMetricsMiddlewareWithoutRouter(t *testing.T) {
	handler := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	before := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues("GET", "unmatched", "200"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", nil))
	after := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues("GET", "unmatched", "200"))

	if after-before != 1 {
		t.Errorf("Expected request under the unmatched label, got delta %v", after-before)
	}
}

func TestRecordEvaluation(t *testing.T) {
	tests := []struct {
		hasConflict bool
		outcome     string
	}{
		{true, "conflict"},
		{false, "clear"},
	}

	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			counter := ConflictEvaluations.WithLabelValues("test", tt.outcome)
			before := testutil.ToFloat64(counter)
			RecordEvaluation("test", tt.hasConflict)
			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("Expected counter to increase by 1, got %v", got)
			}
		})
	}
}
