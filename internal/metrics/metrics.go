package metrics

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/bfs-crawler/internal/storage"
)

// Tracker holds and manages crawl metrics
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a new metrics tracker
func NewTracker(runID string) *Tracker {
	return &Tracker{
		data: storage.Metrics{
			RunID:            runID,
			StartTime:        time.Now(),
			LinksRejected:    make(map[string]int),
			AdmittedPerDepth: make(map[int]int),
		},
	}
}

// IncrementPagesFetched increments the successful fetch counter
func (t *Tracker) IncrementPagesFetched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched++
}

// IncrementPagesFailed increments the failed fetch counter
func (t *Tracker) IncrementPagesFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFailed++
}

// IncrementPagesSaved increments the persisted page counter
func (t *Tracker) IncrementPagesSaved() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesSaved++
}

// IncrementLinksExtracted increments the raw link counter
func (t *Tracker) IncrementLinksExtracted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksExtracted++
}

// IncrementLinksMalformed increments the malformed anchor counter
func (t *Tracker) IncrementLinksMalformed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksMalformed++
}

// IncrementLinksAdmitted counts a URL admitted to the frontier at depth
func (t *Tracker) IncrementLinksAdmitted(depth int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksAdmitted++
	t.data.AdmittedPerDepth[depth]++
}

// IncrementLinksRejected counts a rejected link under reason
func (t *Tracker) IncrementLinksRejected(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksRejected[reason]++
}

// IncrementQueueFull counts an admitted URL dropped by a full frontier
func (t *Tracker) IncrementQueueFull() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.QueueFull++
}

// RecordFetchTime records a page fetch duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
}

// Finish stamps the end time and termination reason
func (t *Tracker) Finish(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() storage.Metrics {
	snapshot := t.data
	snapshot.LinksRejected = maps.Clone(t.data.LinksRejected)
	snapshot.AdmittedPerDepth = maps.Clone(t.data.AdmittedPerDepth)
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs

	// Calculate average fetch time
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	return snapshot
}

// WriteToFile exports metrics to a JSON file. The end time and reason are
// set here when Finish has not been called.
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	if t.data.EndTime.IsZero() {
		t.data.EndTime = time.Now()
	}
	if t.data.TerminationReason == "" {
		t.data.TerminationReason = reason
	}
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	jsonData, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for periodic progress lines
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	rejected := 0
	for _, n := range t.data.LinksRejected {
		rejected += n
	}

	return fmt.Sprintf("Pages: %d fetched, %d failed, %d saved | Links: %d extracted, %d admitted, %d rejected | Queue full: %d",
		t.data.PagesFetched,
		t.data.PagesFailed,
		t.data.PagesSaved,
		t.data.LinksExtracted,
		t.data.LinksAdmitted,
		rejected,
		t.data.QueueFull,
	)
}
