package models

import "time"

// LeaderboardEntry is one student's final balance across all periods.
type LeaderboardEntry struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Balance   int    `json:"balance"`
}

// Leaderboard is the cached balance report for every known student.
type Leaderboard struct {
	Entries     []LeaderboardEntry `json:"entries"`
	Degraded    bool               `json:"degraded"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// MetricsSnapshot aggregates counters for the admin metrics endpoint.
type MetricsSnapshot struct {
	UploadsProcessed         uint64    `json:"uploads_processed"`
	RowsSkipped              uint64    `json:"rows_skipped"`
	BalanceComputations      uint64    `json:"balance_computations"`
	DegradedFallbacks        uint64    `json:"degraded_fallbacks"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
