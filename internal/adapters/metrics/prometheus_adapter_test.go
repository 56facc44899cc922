package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"gitlab.com/timkado/api/paramem-service/internal/domain"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewPrometheusRecorder(reg)
	var _ domain.MetricsRecorder = r

	r.ObserveProviderRequest("Transfer/Start", "POST", domain.OutcomeSuccess, 120*time.Millisecond)
	r.ObserveProviderRequest("Transfer/Start", "POST", domain.OutcomeProvider, 80*time.Millisecond)
	r.IncTokenFetch(domain.OutcomeSuccess)
	r.IncTokenCacheHit()
	r.IncTokenCacheHit()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.providerRequests.WithLabelValues("Transfer/Start", "POST", domain.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.providerRequests.WithLabelValues("Transfer/Start", "POST", domain.OutcomeProvider)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tokenFetches.WithLabelValues(domain.OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.tokenCacheHits))
	assert.Equal(t, 1, testutil.CollectAndCount(r.providerLatency))
}
