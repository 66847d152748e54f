package httpapi

import "github.com/prometheus/client_golang/prometheus"

// metrics bundles the counters/histograms exposed at /metrics.
type metrics struct {
	searchTotal     *prometheus.CounterVec
	searchLatency   *prometheus.HistogramVec
	searchCacheHits *prometheus.CounterVec
	nodeCount       prometheus.GaugeFunc
}

func newMetrics(reg prometheus.Registerer, nodeCountFn func() float64) *metrics {
	m := &metrics{
		searchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "subdex",
			Name:      "search_requests_total",
			Help:      "Number of /search and /search/approx requests, by kind.",
		}, []string{"kind"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "subdex",
			Name:      "search_latency_seconds",
			Help:      "Search request latency in seconds, by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		searchCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "subdex",
			Name:      "search_cache_results_total",
			Help:      "Debug-search response cache hit/miss counts.",
		}, []string{"result"}),
	}
	m.nodeCount = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "subdex",
		Name:      "resident_node_count",
		Help:      "Currently resident (non-evicted) tree node count.",
	}, nodeCountFn)

	reg.MustRegister(m.searchTotal, m.searchLatency, m.searchCacheHits, m.nodeCount)
	return m
}
