package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/matchups/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(mux)

	for _, target := range []string{"/v1/matchups/evt-1", "/v1/matchups/evt-2"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %s returned %d", target, rec.Code)
		}
	}

	// Both requests collapse onto the wildcard pattern, not one label value
	// per event id.
	got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v1/matchups/{id}", "200"))
	if got < 2 {
		t.Fatalf("expected both requests under the pattern label, got %v", got)
	}
}

func TestRouteLabelFallsBackToPath(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/unrouted", nil)
	if got := routeLabel(r); got != "/unrouted" {
		t.Fatalf("expected raw path for unmatched request, got %q", got)
	}
}
