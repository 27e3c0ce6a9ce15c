package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cafe"

// Catalog client outcomes
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeRejected    = "rejected"
	OutcomeDecodeError = "decode_error"
)

// Metrics holds the collectors of the cafe service. A nil *Metrics records
// nothing.
type Metrics struct {
	CatalogRequests *prometheus.CounterVec
	RESTDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CatalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_client_requests_total",
			Help:      "Requests sent to the catalog resource by operation and outcome.",
		}, []string{"operation", "outcome"}),
		RESTDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rest_request_duration_seconds",
			Help:      "Latency of catalog resource requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
	reg.MustRegister(m.CatalogRequests, m.RESTDuration)
	return m
}

// ObserveCatalogRequest counts one catalog client call.
func (m *Metrics) ObserveCatalogRequest(operation, outcome string) {
	if m == nil {
		return
	}
	m.CatalogRequests.WithLabelValues(operation, outcome).Inc()
}

// ObserveREST records one request served by the catalog resource.
func (m *Metrics) ObserveREST(method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RESTDuration.WithLabelValues(method, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

// RegisterCatalogSize exposes the number of coffees as a gauge read on scrape.
func RegisterCatalogSize(reg prometheus.Registerer, size func() float64) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "catalog_coffees",
		Help:      "Number of coffees in the catalog.",
	}, size))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
