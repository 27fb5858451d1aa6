package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(m *HTTP) *mux.Router {
	router := mux.NewRouter()
	router.Use(m.Middleware)
	router.HandleFunc("/api/v1/loans/{loanId}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["loanId"] == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	return router
}

func TestHTTP_Middleware(t *testing.T) {
	m := NewHTTP(prometheus.NewRegistry())
	router := newTestRouter(m)

	for _, id := range []string{"a1", "b2", "missing"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/loans/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/v1/loans/{loanId}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/v1/loans/{loanId}", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestHTTP_Handler(t *testing.T) {
	m := NewHTTP(prometheus.NewRegistry())
	router := newTestRouter(m)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/loans/a1", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lending_ledger_http_requests_total{method="GET",route="/api/v1/loans/{loanId}",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "lending_ledger_http_request_duration_seconds_bucket")
}
