package crawler

// Event names carried in the "event" field of every crawl log entry.
const (
	EventCrawlStarted   = "crawl_started"
	EventFetchAttempt   = "fetch_attempt"
	EventFetchSucceeded = "fetch_succeeded"
	EventFetchFailed    = "fetch_failed"
	EventPageSaved      = "page_saved"
	EventPageSaveFailed = "page_save_failed"
	EventKeywordCounts  = "keyword_counts"
	EventKeywordsFailed = "keyword_save_failed"
	EventLinkExtracted  = "link_extracted"
	EventLinkMalformed  = "link_malformed"
	EventLinkRejected   = "link_rejected"
	EventLinkAdmitted   = "link_admitted"
	EventQueueFull      = "queue_full"
	EventPageProcessed  = "page_processed"
	EventWorkerStopped  = "worker_stopped"
	EventCrawlFinished  = "crawl_finished"
)
