package crawler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvmarrod/bfs-crawler/internal/config"
	"github.com/alvmarrod/bfs-crawler/internal/mocks"
	"github.com/alvmarrod/bfs-crawler/internal/storage"
)

const shopSeed = "http://shop.test/catalogue/index.html"

func testConfig(seed string) *config.Config {
	return &config.Config{
		SeedURL:           seed,
		MaxDepth:          2,
		ConcurrentWorkers: 1,
		PerDepthCap:       10,
		QueueCapacity:     100,
		MaxURLLength:      1000,
		FetchPauseMs:      -1,
		RequestTimeoutMs:  1000,
		Keywords:          []string{"data", "algorithm"},
		LinkExtractor:     config.ExtractorScan,
	}
}

func testLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

func eventsNamed(hook *test.Hook, event string) []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Data["event"] == event {
			out = append(out, e)
		}
	}
	return out
}

// siteFetcher serves fixed bodies and fails for unknown URLs
type siteFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *siteFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("status 404 for %s", url)
	}
	return []byte(body), nil
}

func (f *siteFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type memorySink struct {
	mu       sync.Mutex
	pages    []storage.Page
	keywords map[int64][]storage.KeywordCount
	err      error
}

func (s *memorySink) SavePage(_ context.Context, page storage.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.pages = append(s.pages, page)
	return nil
}

func (s *memorySink) SaveKeywordCounts(_ context.Context, _ string, seq int64, counts []storage.KeywordCount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keywords == nil {
		s.keywords = make(map[int64][]storage.KeywordCount)
	}
	s.keywords[seq] = counts
	return nil
}

func shopSite() *siteFetcher {
	return &siteFetcher{pages: map[string]string{
		shopSeed: `<html><body>
			<a href="a.html">A</a>
			<a href="b.html">B</a>
			<a href="../about.html">About</a>
			<a href="http://other.test/x.html">Elsewhere</a>
			<a href="a.html#top">A again</a>
			<a href="mailto:owner@shop.test">Mail</a>
		</body></html>`,
		"http://shop.test/catalogue/a.html": `<p>data, more DATA and an algorithm</p><a href="c.html">C</a>`,
		"http://shop.test/about.html":       `<a href="catalogue/index.html">Home</a>`,
	}}
}

func TestCrawler_Run(t *testing.T) {
	t.Parallel()

	site := shopSite()
	sink := &memorySink{}
	logger, hook := testLogger()

	c := NewCrawler(testConfig(shopSeed), site,
		WithRunID("run-1"),
		WithPageSink(sink),
		WithKeywordSink(sink),
		WithLogger(logger),
	)

	m, err := c.Run(context.Background())
	require.NoError(t, err)

	// One worker makes the fetch order the BFS order
	assert.Equal(t, []string{
		shopSeed,
		"http://shop.test/catalogue/a.html",
		"http://shop.test/catalogue/b.html",
		"http://shop.test/about.html",
	}, site.Calls())

	assert.Equal(t, "run-1", m.RunID)
	assert.Equal(t, ReasonQueueEmpty, m.TerminationReason)
	assert.Equal(t, 3, m.PagesFetched)
	assert.Equal(t, 1, m.PagesFailed)
	assert.Equal(t, 3, m.PagesSaved)
	assert.Equal(t, 8, m.LinksExtracted)
	assert.Equal(t, 4, m.LinksAdmitted)
	assert.Equal(t, map[int]int{0: 1, 1: 3}, m.AdmittedPerDepth)
	assert.Equal(t, map[string]int{
		"off_domain":         1,
		"already_visited":    1,
		"unsupported_scheme": 1,
		"depth_exceeded":     2,
	}, m.LinksRejected)
	assert.Zero(t, m.QueueFull)
	assert.False(t, m.EndTime.IsZero())

	assert.Equal(t, 4, c.Visited())
	assert.Equal(t, int64(3), c.Pages())

	require.Len(t, sink.pages, 3)
	for i, p := range sink.pages {
		assert.Equal(t, int64(i+1), p.Seq)
		assert.Equal(t, "run-1", p.RunID)
		assert.NotEmpty(t, p.Body)
	}
	assert.Equal(t, shopSeed, sink.pages[0].URL)
	assert.Equal(t, 0, sink.pages[0].Depth)
	assert.Equal(t, "http://shop.test/about.html", sink.pages[2].URL)
	assert.Equal(t, 1, sink.pages[2].Depth)

	assert.Equal(t, []storage.KeywordCount{{Word: "data", Count: 2}, {Word: "algorithm", Count: 1}}, sink.keywords[2])

	failed := eventsNamed(hook, EventFetchFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "http://shop.test/catalogue/b.html", failed[0].Data["url"])
	assert.Equal(t, logrus.WarnLevel, failed[0].Level)
	assert.ErrorIs(t, failed[0].Data[logrus.ErrorKey].(error), ErrTransport)

	keywordEvents := eventsNamed(hook, EventKeywordCounts)
	require.Len(t, keywordEvents, 3)
	assert.Equal(t, 2, keywordEvents[1].Data["kw_data"])

	finished := eventsNamed(hook, EventCrawlFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, ReasonQueueEmpty, finished[0].Data["reason"])
	assert.Equal(t, "run-1", finished[0].Data["run"])

	assert.Len(t, eventsNamed(hook, EventLinkRejected), 5)
	assert.Len(t, eventsNamed(hook, EventLinkAdmitted), 3)
}

func TestCrawler_HostCaseDoesNotDuplicate(t *testing.T) {
	t.Parallel()

	site := &siteFetcher{pages: map[string]string{
		shopSeed: `<a href="HTTP://SHOP.TEST/catalogue/a.html">upper</a>
			<a href="a.html">lower</a>
			<a href="http://Shop.Test/catalogue/index.html">home</a>`,
		"http://shop.test/catalogue/a.html": `<p>a</p>`,
	}}
	logger, _ := testLogger()

	c := NewCrawler(testConfig("HTTP://Shop.Test/catalogue/index.html"), site, WithLogger(logger))
	m, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{shopSeed, "http://shop.test/catalogue/a.html"}, site.Calls())
	assert.Equal(t, 2, m.LinksRejected["already_visited"])
	assert.Equal(t, 2, c.Visited())
}

func TestCrawler_Extractors(t *testing.T) {
	t.Parallel()

	for _, name := range []string{config.ExtractorHTML, config.ExtractorQuery} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(shopSeed)
			cfg.LinkExtractor = name
			logger, _ := testLogger()

			c := NewCrawler(cfg, shopSite(), WithLogger(logger))
			m, err := c.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 3, m.PagesFetched)
			assert.Equal(t, 4, c.Visited())
		})
	}
}

// openSite returns an empty page for every URL and records each fetch.
type openSite struct {
	mu    sync.Mutex
	seed  string
	body  string
	calls []string
}

func (s *openSite) Fetch(_ context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()

	if url == s.seed {
		return []byte(s.body), nil
	}
	return []byte("<html></html>"), nil
}

func linksPage(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<a href="l%d.html">%d</a>`, i, i)
	}
	return b.String()
}

func TestCrawler_PerDepthQuota(t *testing.T) {
	t.Parallel()

	site := &openSite{seed: shopSeed, body: linksPage(15)}
	logger, _ := testLogger()

	c := NewCrawler(testConfig(shopSeed), site, WithLogger(logger))
	m, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, m.AdmittedPerDepth[1])
	assert.Equal(t, 5, m.LinksRejected["quota_exceeded"])
	assert.Equal(t, 11, m.PagesFetched)
	assert.Equal(t, 11, c.Visited())
}

func TestCrawler_QueueFullDropsButKeepsVisited(t *testing.T) {
	t.Parallel()

	cfg := testConfig(shopSeed)
	cfg.QueueCapacity = 3
	cfg.PerDepthCap = 100

	site := &openSite{seed: shopSeed, body: linksPage(6)}
	logger, hook := testLogger()

	c := NewCrawler(cfg, site, WithLogger(logger))
	m, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, m.QueueFull)
	assert.Equal(t, 4, m.PagesFetched)
	assert.Equal(t, 7, c.Visited())
	assert.Len(t, eventsNamed(hook, EventQueueFull), 3)
}

func TestCrawler_MalformedAnchorSkipped(t *testing.T) {
	t.Parallel()

	site := &openSite{seed: shopSeed, body: `<a href="ok.html">ok</a><a href="">empty</a><a href="dangling`}
	logger, hook := testLogger()

	c := NewCrawler(testConfig(shopSeed), site, WithLogger(logger))
	m, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, m.LinksMalformed)
	assert.Equal(t, 1, m.LinksRejected["malformed_link"])
	assert.Equal(t, 2, m.PagesFetched)

	malformed := eventsNamed(hook, EventLinkMalformed)
	require.Len(t, malformed, 1)
	assert.Equal(t, logrus.WarnLevel, malformed[0].Level)
}

// treeSite serves a synthetic tree: every page links to fanout children in
// the same directory and back to the root page.
type treeSite struct {
	mu     sync.Mutex
	fanout int
	calls  map[string]int
}

func (s *treeSite) Fetch(ctx context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	s.calls[url]++
	s.mu.Unlock()

	// Uneven latency so workers idle while others are still expanding
	select {
	case <-time.After(time.Duration(rand.IntN(1500)) * time.Microsecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	name := strings.TrimSuffix(path.Base(url), ".html")
	var b strings.Builder
	for i := 1; i <= s.fanout; i++ {
		fmt.Fprintf(&b, `<a href="%s%d.html">child</a>`, name, i)
	}
	b.WriteString(`<a href="/p/n.html">home</a>`)
	return []byte(b.String()), nil
}

func TestCrawler_NoPrematureTermination(t *testing.T) {
	t.Parallel()

	const seed = "http://tree.test/p/n.html"
	// 1 + 3 + 9 + 27 + 81
	const expected = 121

	for round := 0; round < 5; round++ {
		t.Run(fmt.Sprintf("round %d", round), func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(seed)
			cfg.MaxDepth = 5
			cfg.ConcurrentWorkers = 16
			cfg.PerDepthCap = 1000
			cfg.QueueCapacity = 1000

			site := &treeSite{fanout: 3, calls: make(map[string]int)}
			logger, _ := testLogger()
			logger.SetLevel(logrus.WarnLevel)

			c := NewCrawler(cfg, site, WithLogger(logger))
			m, err := c.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, ReasonQueueEmpty, m.TerminationReason)
			assert.Equal(t, expected, m.PagesFetched)
			assert.Equal(t, expected, c.Visited())
			assert.Len(t, site.calls, expected)
			for url, n := range site.calls {
				assert.Equal(t, 1, n, "%s fetched more than once", url)
			}
			assert.Equal(t, map[int]int{0: 1, 1: 3, 2: 9, 3: 27, 4: 81}, m.AdmittedPerDepth)
		})
	}
}

// blockingSite returns the seed immediately and blocks every other fetch
// until the context is cancelled.
type blockingSite struct {
	seed    string
	body    string
	started chan string
	mu      sync.Mutex
	calls   int
}

func (s *blockingSite) Fetch(ctx context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if url == s.seed {
		return []byte(s.body), nil
	}
	select {
	case s.started <- url:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCrawler_Cancellation(t *testing.T) {
	t.Parallel()

	site := &blockingSite{seed: shopSeed, body: linksPage(5), started: make(chan string, 1)}
	sink := &memorySink{}
	logger, hook := testLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-site.started
		cancel()
	}()

	c := NewCrawler(testConfig(shopSeed), site, WithLogger(logger), WithPageSink(sink))

	done := make(chan struct{})
	var m storage.Metrics
	var err error
	go func() {
		m, err = c.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, m.TerminationReason)
	assert.Equal(t, 1, m.PagesFetched)
	assert.Equal(t, 1, m.PagesFailed)
	assert.Equal(t, 2, site.calls)
	assert.Len(t, sink.pages, 1)

	finished := eventsNamed(hook, EventCrawlFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, ReasonCancelled, finished[0].Data["reason"])
}

func TestCrawler_SinkFailuresDoNotStopCrawl(t *testing.T) {
	t.Parallel()

	sink := &memorySink{err: errors.New("disk full")}
	logger, hook := testLogger()

	c := NewCrawler(testConfig(shopSeed), shopSite(), WithLogger(logger), WithPageSink(sink))
	m, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, m.PagesFetched)
	assert.Zero(t, m.PagesSaved)

	failures := eventsNamed(hook, EventPageSaveFailed)
	assert.Len(t, failures, 3)
	for _, e := range failures {
		assert.Equal(t, logrus.ErrorLevel, e.Level)
	}
}

func TestCrawler_RunOnce(t *testing.T) {
	t.Parallel()

	logger, _ := testLogger()
	c := NewCrawler(testConfig(shopSeed), shopSite(), WithLogger(logger))

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	_, err = c.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRan)
}

func TestCrawler_SeedRejected(t *testing.T) {
	t.Parallel()

	cfg := testConfig(shopSeed)
	cfg.MaxDepth = 0
	logger, _ := testLogger()

	_, err := NewCrawler(cfg, shopSite(), WithLogger(logger)).Run(context.Background())
	assert.ErrorIs(t, err, ErrDepthExceeded)
}

func TestCrawler_WithMocks(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	pages := mocks.NewMockPageSink(ctrl)
	counts := mocks.NewMockKeywordSink(ctrl)

	cfg := testConfig(shopSeed)
	cfg.MaxDepth = 1
	body := []byte(`<p>Data meets algorithm</p><a href="next.html">next</a>`)

	fetcher.EXPECT().Fetch(gomock.Any(), shopSeed).Return(body, nil).Times(1)
	pages.EXPECT().SavePage(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p storage.Page) error {
			assert.Equal(t, "run-mock", p.RunID)
			assert.Equal(t, int64(1), p.Seq)
			assert.Equal(t, shopSeed, p.URL)
			assert.Equal(t, body, p.Body)
			return nil
		}).Times(1)
	counts.EXPECT().SaveKeywordCounts(gomock.Any(), "run-mock", int64(1), []storage.KeywordCount{
		{Word: "data", Count: 1},
		{Word: "algorithm", Count: 1},
	}).Return(nil).Times(1)

	logger, _ := testLogger()
	c := NewCrawler(cfg, fetcher,
		WithRunID("run-mock"),
		WithPageSink(pages),
		WithKeywordSink(counts),
		WithLogger(logger),
	)

	m, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.PagesFetched)
	assert.Equal(t, 1, m.LinksRejected["depth_exceeded"])
}
