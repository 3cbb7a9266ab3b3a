package models

import "time"

// SystemMetrics is a lightweight snapshot of service instrumentation.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	FilesSucceeded           uint64    `json:"files_succeeded"`
	FilesFailed              uint64    `json:"files_failed"`
	FilesInFlight            int64     `json:"files_in_flight"`
	QueuePending             int       `json:"queue_pending"`
	QueueInFlight            int       `json:"queue_in_flight"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
