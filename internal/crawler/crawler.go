package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/alvmarrod/bfs-crawler/internal/config"
	"github.com/alvmarrod/bfs-crawler/internal/keywords"
	"github.com/alvmarrod/bfs-crawler/internal/metrics"
	"github.com/alvmarrod/bfs-crawler/internal/storage"
)

// Termination reasons reported in metrics and the runs table.
const (
	ReasonQueueEmpty = "queue_empty"
	ReasonCancelled  = "cancelled"
)

// ErrAlreadyRan is returned when Run is called a second time.
var ErrAlreadyRan = errors.New("crawler already ran")

//go:generate mockgen -destination=../mocks/mock_crawler.go -package=mocks github.com/alvmarrod/bfs-crawler/internal/crawler Fetcher,PageSink,KeywordSink

// Fetcher downloads a page body. It must follow redirects itself.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// PageSink persists fetched pages.
type PageSink interface {
	SavePage(ctx context.Context, page storage.Page) error
}

// KeywordSink persists the keyword report of a page.
type KeywordSink interface {
	SaveKeywordCounts(ctx context.Context, runID string, seq int64, counts []storage.KeywordCount) error
}

// KeywordAnalyzer counts the configured words in a page body.
type KeywordAnalyzer interface {
	Analyze(body []byte, page int64, url string) keywords.Report
}

// Crawler orchestrates a breadth-first crawl from a single seed
type Crawler struct {
	cfg         *config.Config
	runID       string
	fetcher     Fetcher
	sink        PageSink
	keywordSink KeywordSink
	analyzer    KeywordAnalyzer
	extractor   LinkExtractor
	resolver    Resolver
	admission   *Admission
	queue       *Queue
	tracker     *metrics.Tracker
	log         logrus.FieldLogger
	pageSeq     atomic.Int64
	started     atomic.Bool
}

// Option customizes a Crawler
type Option func(*Crawler)

// WithRunID sets the run identifier stamped on pages and metrics
func WithRunID(id string) Option {
	return func(c *Crawler) { c.runID = id }
}

// WithPageSink sets where fetched pages are saved
func WithPageSink(sink PageSink) Option {
	return func(c *Crawler) { c.sink = sink }
}

// WithKeywordSink sets where keyword reports are saved
func WithKeywordSink(sink KeywordSink) Option {
	return func(c *Crawler) { c.keywordSink = sink }
}

// WithKeywordAnalyzer replaces the default keyword counter
func WithKeywordAnalyzer(a KeywordAnalyzer) Option {
	return func(c *Crawler) { c.analyzer = a }
}

// WithLinkExtractor replaces the extractor picked from the config
func WithLinkExtractor(e LinkExtractor) Option {
	return func(c *Crawler) { c.extractor = e }
}

// WithResolver replaces the string normalizer
func WithResolver(r Resolver) Option {
	return func(c *Crawler) { c.resolver = r }
}

// WithLogger sets the event logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Crawler) { c.log = l }
}

// WithTracker sets the metrics tracker
func WithTracker(t *metrics.Tracker) Option {
	return func(c *Crawler) { c.tracker = t }
}

// NewCrawler creates a crawler for cfg. The config is expected to be
// validated already (config.LoadConfig does that).
func NewCrawler(cfg *config.Config, fetcher Fetcher, opts ...Option) *Crawler {
	c := &Crawler{
		cfg:       cfg,
		runID:     uuid.NewString(),
		fetcher:   fetcher,
		analyzer:  keywords.NewCounter(cfg.Keywords),
		extractor: NewLinkExtractor(cfg.LinkExtractor),
		resolver:  NewNormalizer(cfg.SeedURL, cfg.MaxURLLength),
		admission: NewAdmission(cfg.MaxDepth, cfg.PerDepthCap),
		queue:     NewQueue(cfg.QueueCapacity),
		log:       logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.tracker == nil {
		c.tracker = metrics.NewTracker(c.runID)
	}
	c.log = c.log.WithField("run", c.runID)

	return c
}

// RunID returns the identifier of this crawl
func (c *Crawler) RunID() string {
	return c.runID
}

// Visited returns the number of URLs admitted so far, seed included
func (c *Crawler) Visited() int {
	return c.admission.Visited()
}

// Pages returns the number of pages fetched successfully so far
func (c *Crawler) Pages() int64 {
	return c.pageSeq.Load()
}

// Frontier returns the number of queued items and of items being fetched
// or expanded
func (c *Crawler) Frontier() (queued, inFlight int) {
	return c.queue.Size(), c.queue.InFlight()
}

// Run seeds the frontier, runs the workers until the frontier is exhausted
// with nothing in flight (or ctx is cancelled), and returns the final
// metrics. Cancellation is not an error: workers drain and the snapshot's
// termination reason says "cancelled".
func (c *Crawler) Run(ctx context.Context) (storage.Metrics, error) {
	if !c.started.CompareAndSwap(false, true) {
		return storage.Metrics{}, ErrAlreadyRan
	}

	seed := FrontierItem{URL: lowerHost(c.cfg.SeedURL), Depth: 0}
	if err := c.admission.Admit(seed.URL, seed.Depth); err != nil {
		return storage.Metrics{}, fmt.Errorf("failed to admit seed: %w", err)
	}
	c.tracker.IncrementLinksAdmitted(seed.Depth)
	if err := c.queue.Push(seed); err != nil {
		return storage.Metrics{}, fmt.Errorf("failed to enqueue seed: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"event":   EventCrawlStarted,
		"seed":    seed.URL,
		"workers": c.cfg.ConcurrentWorkers,
	}).Infof("Starting crawl with base URL: %s", seed.URL)

	stopOnCancel := context.AfterFunc(ctx, c.queue.Stop)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.cfg.ConcurrentWorkers; i++ {
		id := i + 1
		g.Go(func() error {
			c.worker(gctx, id)
			return nil
		})
	}
	err := g.Wait()

	reason := ReasonQueueEmpty
	if !stopOnCancel() {
		reason = ReasonCancelled
	}
	c.tracker.Finish(reason)

	snapshot := c.tracker.GetSnapshot()
	c.log.WithFields(logrus.Fields{
		"event":    EventCrawlFinished,
		"reason":   reason,
		"pages":    snapshot.PagesFetched,
		"failed":   snapshot.PagesFailed,
		"visited":  c.admission.Visited(),
		"admitted": snapshot.LinksAdmitted,
	}).Infof("Crawl finished (%s): %d pages fetched, %d URLs visited", reason, snapshot.PagesFetched, c.admission.Visited())

	return snapshot, err
}
