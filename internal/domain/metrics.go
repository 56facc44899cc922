package domain

import "time"

// Outcome labels used by MetricsRecorder.
const (
	OutcomeSuccess   = "success"
	OutcomeProvider  = "provider_error"
	OutcomeTransport = "transport_error"
)

// MetricsRecorder records provider traffic.
type MetricsRecorder interface {
	ObserveProviderRequest(endpoint, method, outcome string, duration time.Duration)
	IncTokenFetch(outcome string)
	IncTokenCacheHit()
}
