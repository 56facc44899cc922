package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements domain.MetricsRecorder.
type PrometheusRecorder struct {
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	tokenFetches     *prometheus.CounterVec
	tokenCacheHits   prometheus.Counter
}

// NewPrometheusRecorder registers the paramem collectors on reg.
// Pass prometheus.DefaultRegisterer to expose them on promhttp.Handler().
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		providerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paramem_provider_requests_total",
				Help: "Provider business requests by endpoint, method and outcome.",
			},
			[]string{"endpoint", "method", "outcome"},
		),
		providerLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paramem_provider_request_duration_seconds",
				Help:    "Latency of provider business requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "method"},
		),
		tokenFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paramem_token_fetches_total",
				Help: "Calls to the provider token endpoint by outcome.",
			},
			[]string{"outcome"},
		),
		tokenCacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "paramem_token_cache_hits_total",
				Help: "Token requests served from the cache store.",
			},
		),
	}
}

func (r *PrometheusRecorder) ObserveProviderRequest(endpoint, method, outcome string, duration time.Duration) {
	r.providerRequests.WithLabelValues(endpoint, method, outcome).Inc()
	r.providerLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) IncTokenFetch(outcome string) {
	r.tokenFetches.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRecorder) IncTokenCacheHit() {
	r.tokenCacheHits.Inc()
}
