package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alvmarrod/bfs-crawler/internal/storage"
)

// worker pulls items until the queue reports shutdown.
func (c *Crawler) worker(ctx context.Context, id int) {
	log := c.log.WithField("worker", id)
	log.Debugf("Worker %d started", id)

	for {
		// Pop blocks (Idle) and counts the item in flight on success
		item, ok := c.queue.Pop()
		if !ok {
			log.WithField("event", EventWorkerStopped).Debugf("Worker %d: queue stopped, exiting", id)
			return
		}

		c.process(ctx, log, item)
	}
}

// process fetches one item and expands its links. The item stays in
// flight until every child has been admitted or rejected.
func (c *Crawler) process(ctx context.Context, log logrus.FieldLogger, item FrontierItem) {
	defer c.queue.Done()

	if ctx.Err() != nil {
		return
	}

	entry := log.WithFields(logrus.Fields{"url": item.URL, "depth": item.Depth})
	entry.WithField("event", EventFetchAttempt).Infof("Fetching URL: %s (depth=%d)", item.URL, item.Depth)

	start := time.Now()
	body, err := c.fetcher.Fetch(ctx, item.URL)
	c.tracker.RecordFetchTime(time.Since(start))
	if err != nil {
		c.tracker.IncrementPagesFailed()
		entry.WithError(fmt.Errorf("%w: %v", ErrTransport, err)).
			WithField("event", EventFetchFailed).
			Warnf("Failed to fetch URL: %s", item.URL)
		return
	}

	seq := c.pageSeq.Add(1)
	c.tracker.IncrementPagesFetched()
	entry = entry.WithField("page", seq)
	entry.WithField("event", EventFetchSucceeded).Infof("Processing page_%d for URL: %s", seq, item.URL)

	// Pages already fetched are recorded even when the crawl is cancelled
	saveCtx := context.WithoutCancel(ctx)
	c.savePage(saveCtx, entry, item, seq, body)
	c.countKeywords(saveCtx, entry, item, seq, body)
	c.expand(entry, item, body)

	entry.WithField("event", EventPageProcessed).Infof("Successfully processed URL: %s", item.URL)
}

func (c *Crawler) savePage(ctx context.Context, entry logrus.FieldLogger, item FrontierItem, seq int64, body []byte) {
	if c.sink == nil {
		return
	}

	page := storage.Page{
		RunID:     c.runID,
		Seq:       seq,
		URL:       item.URL,
		Depth:     item.Depth,
		Body:      body,
		FetchedAt: time.Now(),
	}
	if err := c.sink.SavePage(ctx, page); err != nil {
		entry.WithError(err).WithField("event", EventPageSaveFailed).Errorf("Failed to save page_%d", seq)
		return
	}

	c.tracker.IncrementPagesSaved()
	entry.WithField("event", EventPageSaved).Debugf("Saved page_%d", seq)
}

func (c *Crawler) countKeywords(ctx context.Context, entry logrus.FieldLogger, item FrontierItem, seq int64, body []byte) {
	if c.analyzer == nil {
		return
	}

	report := c.analyzer.Analyze(body, seq, item.URL)
	fields := logrus.Fields{"event": EventKeywordCounts}
	counts := make([]storage.KeywordCount, 0, len(report.Counts))
	for _, kc := range report.Counts {
		fields["kw_"+kc.Word] = kc.Count
		counts = append(counts, storage.KeywordCount{Word: kc.Word, Count: kc.Count})
	}
	entry.WithFields(fields).Infof("Word counts for page_%d", seq)

	if c.keywordSink == nil {
		return
	}
	if err := c.keywordSink.SaveKeywordCounts(ctx, c.runID, seq, counts); err != nil {
		entry.WithError(err).WithField("event", EventKeywordsFailed).Errorf("Failed to save word counts for page_%d", seq)
	}
}

// expand resolves, admits and enqueues every link found in body as a child
// one level deeper than item.
func (c *Crawler) expand(entry logrus.FieldLogger, item FrontierItem, body []byte) {
	depth := item.Depth + 1

	for raw, err := range c.extractor.Links(body) {
		if err != nil {
			c.tracker.IncrementLinksMalformed()
			entry.WithError(err).WithField("event", EventLinkMalformed).Warn("Skipping malformed anchor")
			continue
		}

		c.tracker.IncrementLinksExtracted()
		entry.WithFields(logrus.Fields{"event": EventLinkExtracted, "link": raw}).Debugf("Extracted link: %s", raw)

		resolved, err := c.resolver.Resolve(raw, item.URL)
		if err != nil {
			c.reject(entry, raw, err)
			continue
		}

		if err := c.admission.Admit(resolved, depth); err != nil {
			c.reject(entry, resolved, err)
			continue
		}
		c.tracker.IncrementLinksAdmitted(depth)

		child := FrontierItem{URL: resolved, Depth: depth}
		if err := c.queue.Push(child); err != nil {
			if errors.Is(err, ErrQueueStopped) {
				// Cancelled mid-expansion; nothing more will be fetched
				return
			}
			c.tracker.IncrementQueueFull()
			entry.WithError(err).WithFields(logrus.Fields{"event": EventQueueFull, "link": resolved}).
				Warnf("Queue full, cannot enqueue URL: %s", resolved)
			continue
		}

		entry.WithFields(logrus.Fields{"event": EventLinkAdmitted, "link": resolved}).Debugf("Enqueued %s (depth=%d)", resolved, depth)
	}
}

func (c *Crawler) reject(entry logrus.FieldLogger, link string, err error) {
	reason := rejectionReason(err)
	c.tracker.IncrementLinksRejected(reason)

	level := logrus.DebugLevel
	if errors.Is(err, ErrMalformedLink) || errors.Is(err, ErrURLTooLong) {
		level = logrus.WarnLevel
	}
	entry.WithError(err).WithFields(logrus.Fields{"event": EventLinkRejected, "link": link, "reason": reason}).
		Logf(level, "Rejected link %s (%s)", link, reason)
}
