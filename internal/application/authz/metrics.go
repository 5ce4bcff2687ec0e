package authz

import "vulntrack/internal/domain/authz"

// Cache lookup outcomes reported to Metrics.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics receives authorization telemetry.
type Metrics interface {
	ObserveDecision(level authz.Level, allowed bool)
	ObserveCache(result string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveDecision(authz.Level, bool) {}
func (nopMetrics) ObserveCache(string)               {}
