package models

import "time"

// PortalStats backs the landing page summary.
type PortalStats struct {
	TotalResources    int        `json:"total_resources"`
	UniqueCourses     int        `json:"unique_courses"`
	UniqueDepartments int        `json:"unique_departments"`
	Recent            []Resource `json:"recent"`
	GeneratedAt       time.Time  `json:"generated_at"`
}

// DepartmentCount is the number of approved files in one department.
type DepartmentCount struct {
	Department string `db:"department" json:"department"`
	Files      int    `db:"files" json:"files"`
}

// SystemMetrics is a point-in-time view of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	LLMRequests              uint64    `json:"llm_requests"`
	LLMFailures              uint64    `json:"llm_failures"`
	FlashcardFallbacks       uint64    `json:"flashcard_fallbacks"`
	DownloadsRecorded        uint64    `json:"downloads_recorded"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
