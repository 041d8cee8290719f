package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/alvmarrod/bfs-crawler/internal/config"
	"github.com/alvmarrod/bfs-crawler/internal/crawler"
	"github.com/alvmarrod/bfs-crawler/internal/metrics"
	"github.com/alvmarrod/bfs-crawler/internal/storage"
	"github.com/alvmarrod/bfs-crawler/internal/transport"
	"github.com/alvmarrod/bfs-crawler/internal/version"
)

type runOptions struct {
	configPath string
	verbose    bool
}

// sinks are the outputs opened before crawling starts
type sinks struct {
	logFile *os.File
	store   *storage.Storage
	pages   crawler.PageSink
}

func (s *sinks) Close() {
	if s.store != nil {
		s.store.Close()
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
}

// openSinks opens the log file, the database and the optional pages
// directory. Any failure is fatal before a single page is fetched.
func openSinks(cfg *config.Config) (*sinks, error) {
	s := &sinks{}

	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: log file %s: %v", storage.ErrSinkOpen, cfg.LogPath, err)
	}
	s.logFile = f

	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.store = store
	s.pages = store

	if cfg.PagesDir != "" {
		files, err := storage.NewFileSink(cfg.PagesDir)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.pages = storage.MultiSink{store, files}
	}

	return s, nil
}

func configureLogging(out io.Writer, verbose bool) {
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logrus.SetLevel(logrus.InfoLevel)
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func run(ctx context.Context, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, source, err := config.Resolve(opts.configPath, wd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out, err := openSinks(cfg)
	if err != nil {
		return err
	}
	defer out.Close()

	configureLogging(io.MultiWriter(os.Stdout, out.logFile), opts.verbose)

	logrus.Infof("bfs-crawler v%s starting...", version.Version)
	if source == "" {
		source = "built-in defaults"
	}
	logrus.Infof("Configuration loaded from %s: seed=%s, depth=%d, workers=%d, per_depth=%d, queue=%d",
		source, cfg.SeedURL, cfg.MaxDepth, cfg.ConcurrentWorkers, cfg.PerDepthCap, cfg.QueueCapacity)

	runID := uuid.NewString()
	if err := out.store.BeginRun(ctx, runID, cfg.SeedURL); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrSinkOpen, err)
	}

	tracker := metrics.NewTracker(runID)
	fetcher := transport.New(transport.Options{
		UserAgent:      cfg.UserAgent,
		RequestTimeout: cfg.RequestTimeout(),
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Parallelism:    cfg.ConcurrentWorkers,
		Delay:          cfg.FetchPause(),
	})

	c := crawler.NewCrawler(cfg, fetcher,
		crawler.WithRunID(runID),
		crawler.WithPageSink(out.pages),
		crawler.WithKeywordSink(out.store),
		crawler.WithTracker(tracker),
		crawler.WithLogger(logrus.StandardLogger()),
	)

	// First signal cancels the crawl; a second one kills the process
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	progressDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				queued, inFlight := c.Frontier()
				logrus.Infof("%s | Frontier: %d queued, %d in flight", tracker.LogProgress(), queued, inFlight)
			case <-progressDone:
				return
			}
		}
	}()

	result, err := c.Run(ctx)
	close(progressDone)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	logrus.Info("Final stats: " + tracker.LogProgress())

	if err := out.store.FinishRun(context.WithoutCancel(ctx), runID, result.PagesFetched, result.TerminationReason); err != nil {
		logrus.Errorf("Failed to record run outcome: %v", err)
	}

	if err := tracker.WriteToFile(cfg.MetricsPath, result.TerminationReason); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	logrus.Info("Crawl complete. Goodbye!")
	return nil
}
