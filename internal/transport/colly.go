// Package transport fetches page bodies over HTTP with a colly collector.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// ErrEmptyBody is returned when a successful response carries no body.
var ErrEmptyBody = errors.New("empty response body")

// Options configures the collector behind a Transport
type Options struct {
	UserAgent      string
	RequestTimeout time.Duration
	MaxBodyBytes   int
	// Parallelism caps concurrent requests; each slot sleeps Delay after
	// every response before taking the next request.
	Parallelism int
	Delay       time.Duration
}

// Transport fetches pages with colly. Redirects are followed by colly's
// HTTP client; non-2xx responses are errors. No retries. Requests are bound
// to the context passed to Fetch.
type Transport struct {
	collector *colly.Collector
}

// New creates a transport. Each Fetch runs on a clone of the configured
// collector, so it is safe for concurrent use by every worker.
func New(opts Options) *Transport {
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(), // dedup happens in admission
		colly.MaxDepth(0),
		colly.MaxBodySize(opts.MaxBodyBytes),
		colly.IgnoreRobotsTxt(),
	)

	if opts.RequestTimeout > 0 {
		c.SetRequestTimeout(opts.RequestTimeout)
	}

	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: opts.Parallelism,
		Delay:       opts.Delay,
	})

	return &Transport{collector: c}
}

// Fetch downloads pageURL and returns its body
func (t *Transport) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := t.collector.Clone()
	c.Context = ctx

	var body []byte
	var status int
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	if err := c.Visit(pageURL); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", pageURL, ctxErr)
		}
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", pageURL, status)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, ErrEmptyBody)
	}

	return body, nil
}
