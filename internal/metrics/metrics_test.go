package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCatalogRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCatalogRequest("list", OutcomeOK)
	m.ObserveCatalogRequest("list", OutcomeOK)
	m.ObserveCatalogRequest("delete", OutcomeRejected)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CatalogRequests.WithLabelValues("list", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogRequests.WithLabelValues("delete", OutcomeRejected)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCatalogRequest("list", OutcomeOK)
	m.ObserveREST(http.MethodGet, http.StatusOK, time.Millisecond)
}

func TestHandlerExposesCatalogSize(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	RegisterCatalogSize(reg, func() float64 { return 3 })
	m.ObserveREST(http.MethodGet, http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "cafe_catalog_coffees 3"), body)
	assert.True(t, strings.Contains(body, `cafe_rest_request_duration_seconds_count{code="200",method="GET"} 1`), body)
}
