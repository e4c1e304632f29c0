package retryconn

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// NewCircuitBreaker creates a circuit breaker suitable for a Retryer.
// This is a helper for common use cases: it trips once at least 3 recent
// attempts were made with a failure ratio of 60% or more.
func NewCircuitBreaker(name string, maxRequests uint32, interval, timeout time.Duration) *gobreaker.CircuitBreaker[struct{}] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}
	return gobreaker.NewCircuitBreaker[struct{}](settings)
}
