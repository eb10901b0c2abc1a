package bitcoin

import "github.com/prometheus/client_golang/prometheus"

type cacheMetrics struct {
	fetches   *prometheus.CounterVec
	hits      *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

func newCacheMetrics(reg prometheus.Registerer) *cacheMetrics {
	m := &cacheMetrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "expense_tracker",
			Name:      "price_fetch_total",
			Help:      "Bitcoin price fetches by endpoint, currency and result",
		}, []string{"endpoint", "currency", "result"}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "expense_tracker",
			Name:      "price_cache_hits_total",
			Help:      "Bitcoin price cache hits",
		}, []string{"kind"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "expense_tracker",
			Name:      "price_fallback_total",
			Help:      "Lookups answered from the fallback price table",
		}, []string{"currency"}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.hits, m.fallbacks)
	}
	return m
}

func (m *cacheMetrics) fetch(endpoint, currency string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.fetches.WithLabelValues(endpoint, currency, result).Inc()
}
