// Package metrics exposes Prometheus collectors for the annotation service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MutationsTotal counts committed marker and shape mutations, labelled
	// by operation (add_marker, delete_marker, add_shapes, delete_shape).
	MutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geopro_mutations_total",
		Help: "Committed annotation mutations by operation",
	}, []string{"op"})
	// StorageWritesTotal counts successful record writes, labelled by record.
	StorageWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geopro_storage_writes_total",
		Help: "Durable record writes by record",
	}, []string{"record"})
	// StorageErrorsTotal counts failed record reads and writes, labelled by
	// record and operation.
	StorageErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geopro_storage_errors_total",
		Help: "Failed durable record operations",
	}, []string{"record", "op"})
	// AggregationsTotal counts region summaries computed.
	AggregationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geopro_region_aggregations_total",
		Help: "Region aggregations computed",
	})
	// GeocodeLookupsTotal counts place lookups by result: hit, miss, fail,
	// or negative for a recently failed position answered from cache.
	GeocodeLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geopro_geocode_lookups_total",
		Help: "Reverse geocode lookups by result (hit, miss, fail, negative)",
	}, []string{"result"})
	// RequestDurationMs observes HTTP request latency in milliseconds,
	// labelled by method and status code.
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geopro_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"method", "status"})
)

func init() {
	prometheus.MustRegister(MutationsTotal)
	prometheus.MustRegister(StorageWritesTotal)
	prometheus.MustRegister(StorageErrorsTotal)
	prometheus.MustRegister(AggregationsTotal)
	prometheus.MustRegister(GeocodeLookupsTotal)
	prometheus.MustRegister(RequestDurationMs)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
