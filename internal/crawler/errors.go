package crawler

import "errors"

// Per-item errors. None of them stops the crawl; the worker logs them and
// moves on with the next link or item.
var (
	// ErrTransport wraps any failure reported by the Fetcher.
	ErrTransport = errors.New("transport error")

	// ErrMalformedLink marks an href that is empty or never closes its quote.
	ErrMalformedLink = errors.New("malformed link")

	// ErrOffDomain marks an absolute link outside the seed's scheme://host.
	ErrOffDomain = errors.New("link is off domain")

	// ErrUnsupportedScheme marks mailto:, javascript: and similar links.
	ErrUnsupportedScheme = errors.New("unsupported link scheme")

	// ErrURLTooLong marks a resolved URL at or above the configured length.
	ErrURLTooLong = errors.New("url exceeds maximum length")

	// ErrQueueFull is returned by Push when the frontier is at capacity.
	ErrQueueFull = errors.New("frontier queue full")

	// ErrQueueStopped is returned by Push once the crawl has shut down.
	ErrQueueStopped = errors.New("frontier queue stopped")

	// ErrDepthExceeded rejects a candidate at or beyond max depth.
	ErrDepthExceeded = errors.New("depth exceeded")

	// ErrAlreadyVisited rejects a candidate already admitted once.
	ErrAlreadyVisited = errors.New("already visited")

	// ErrQuotaExceeded rejects a candidate whose depth is at its cap.
	ErrQuotaExceeded = errors.New("depth quota exceeded")
)

// rejectionReason maps admission and normalization errors to the short
// labels used in logs and metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrDepthExceeded):
		return "depth_exceeded"
	case errors.Is(err, ErrAlreadyVisited):
		return "already_visited"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrOffDomain):
		return "off_domain"
	case errors.Is(err, ErrUnsupportedScheme):
		return "unsupported_scheme"
	case errors.Is(err, ErrURLTooLong):
		return "url_too_long"
	case errors.Is(err, ErrMalformedLink):
		return "malformed_link"
	default:
		return "unknown"
	}
}
