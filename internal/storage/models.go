package storage

import "time"

// Run is one crawl from a single seed
type Run struct {
	RunID             string
	SeedURL           string
	StartedAt         time.Time
	FinishedAt        *time.Time
	PagesFetched      int
	TerminationReason string
}

// Page is a fetched page body and where it was found
type Page struct {
	RunID     string
	Seq       int64
	URL       string
	Depth     int
	Body      []byte
	FetchedAt time.Time
}

// KeywordCount is the number of whole-token occurrences of Word on a page
type KeywordCount struct {
	Word  string
	Count int
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	RunID             string         `json:"run_id"`
	StartTime         time.Time      `json:"start_time"`
	EndTime           time.Time      `json:"end_time"`
	PagesFetched      int            `json:"pages_fetched"`
	PagesFailed       int            `json:"pages_failed"`
	PagesSaved        int            `json:"pages_saved"`
	LinksExtracted    int            `json:"links_extracted"`
	LinksMalformed    int            `json:"links_malformed"`
	LinksAdmitted     int            `json:"links_admitted"`
	LinksRejected     map[string]int `json:"links_rejected"`
	QueueFull         int            `json:"queue_full"`
	AdmittedPerDepth  map[int]int    `json:"admitted_per_depth"`
	TotalFetchTimeMs  int64          `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64          `json:"avg_fetch_time_ms"`
	TerminationReason string         `json:"termination_reason"`
}
