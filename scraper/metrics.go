package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scanner.
type Metrics struct {
	Registry                *prometheus.Registry
	RequestsTotal           *prometheus.CounterVec
	RequestDuration         prometheus.Histogram
	ProductsDiscoveredTotal prometheus.Counter
	PagesCrawledTotal       prometheus.Counter
	RetriesTotal            prometheus.Counter
	ErrorsTotal             *prometheus.CounterVec
	VariantStopsTotal       *prometheus.CounterVec
	CacheLookupsTotal       *prometheus.CounterVec
	ScansTotal              *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_requests_total",
			Help: "Storefront HTTP attempts by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inventory_request_duration_seconds",
			Help:    "HTTP latency for storefront requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_products_discovered_total",
			Help: "Unique products added to scan results.",
		},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_pages_crawled_total",
			Help: "Result pages that yielded at least one product.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_retries_total",
			Help: "Total number of fetch retries.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_errors_total",
			Help: "Fetch errors by type.",
		},
		[]string{"error_type"},
	)
	variantStops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_variant_stops_total",
			Help: "Query variants stopped, by reason.",
		},
		[]string{"reason"},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_cache_lookups_total",
			Help: "Snapshot cache lookups by result.",
		},
		[]string{"result"},
	)
	scans := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_scans_total",
			Help: "Completed scans by status.",
		},
		[]string{"status"},
	)

	registry.MustRegister(requests, requestDuration, products, pages, retries, errorsTotal, variantStops, cacheLookups, scans)

	return &Metrics{
		Registry:                registry,
		RequestsTotal:           requests,
		RequestDuration:         requestDuration,
		ProductsDiscoveredTotal: products,
		PagesCrawledTotal:       pages,
		RetriesTotal:            retries,
		ErrorsTotal:             errorsTotal,
		VariantStopsTotal:       variantStops,
		CacheLookupsTotal:       cacheLookups,
		ScansTotal:              scans,
	}
}

// IncRequest increments the requests counter for an outcome label.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddProducts increments the discovered products counter.
func (m *Metrics) AddProducts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ProductsDiscoveredTotal.Add(float64(n))
}

// IncPages increments the pages crawled counter.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesCrawledTotal.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncVariantStop records why a variant stopped.
func (m *Metrics) IncVariantStop(reason string) {
	if m == nil {
		return
	}
	m.VariantStopsTotal.WithLabelValues(reason).Inc()
}

// IncCacheLookup records a cache hit or miss.
func (m *Metrics) IncCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// IncScan records a finished scan.
func (m *Metrics) IncScan(status string) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(status).Inc()
}
