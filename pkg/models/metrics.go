package models

// PerformanceMetrics are cumulative request outcome counters.
type PerformanceMetrics struct {
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	AverageLatencyMs   float64 `json:"average_latency_ms"`
	CacheHits          int64   `json:"cache_hits"`
	CacheMisses        int64   `json:"cache_misses"`
	RateLimitHits      int64   `json:"rate_limit_hits"`
}

// Snapshot is a point-in-time view of the coordinator's shared state.
type Snapshot struct {
	Metrics           PerformanceMetrics `json:"metrics"`
	RemainingRequests int                `json:"remaining_requests"`
	CacheSize         int                `json:"cache_size"`
}
