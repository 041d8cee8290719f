package crawler

import (
	"strings"
)

// Resolver turns a raw href found on the page at current into the canonical
// absolute URL used as the dedup key, or rejects it.
type Resolver interface {
	Resolve(raw, current string) (string, error)
}

// Normalizer resolves links with plain string operations, scoped to the
// seed's scheme://host. Only a single leading "../" is resolved. Scheme and
// host are lower-cased; paths keep their case.
type Normalizer struct {
	base         string // scheme://host/
	scheme       string
	maxURLLength int
}

// NewNormalizer scopes resolution to the scheme and host of seedURL.
// Resolved URLs of maxURLLength bytes or more are rejected.
func NewNormalizer(seedURL string, maxURLLength int) *Normalizer {
	scheme := "http"
	if i := strings.Index(seedURL, "://"); i > 0 {
		scheme = strings.ToLower(seedURL[:i])
	}
	return &Normalizer{
		base:         strings.ToLower(BaseDomain(seedURL)),
		scheme:       scheme,
		maxURLLength: maxURLLength,
	}
}

// Base returns the scheme://host/ prefix every accepted URL starts with
func (n *Normalizer) Base() string {
	return n.base
}

// Resolve implements Resolver.
func (n *Normalizer) Resolve(raw, current string) (string, error) {
	link := strings.TrimSpace(raw)
	if i := strings.IndexByte(link, '#'); i >= 0 {
		link = link[:i]
	}
	if link == "" {
		return "", ErrMalformedLink
	}

	// Protocol-relative links inherit the seed scheme
	if strings.HasPrefix(link, "//") {
		link = n.scheme + ":" + link
	}

	var resolved string
	switch {
	case hasHTTPScheme(link):
		link = lowerHost(link)
		if link == strings.TrimSuffix(n.base, "/") {
			link = n.base
		}
		if !strings.HasPrefix(link, n.base) {
			return "", ErrOffDomain
		}
		resolved = link

	case hasOtherScheme(link):
		return "", ErrUnsupportedScheme

	case strings.HasPrefix(link, "/"):
		resolved = n.base + link[1:]

	case strings.HasPrefix(link, "?"):
		resolved = withoutQuery(current) + link

	case strings.HasPrefix(link, "../"):
		resolved = parentDir(current) + "/" + link[len("../"):]

	default:
		resolved = directory(current) + "/" + strings.TrimPrefix(link, "./")
	}

	if len(resolved) >= n.maxURLLength {
		return "", ErrURLTooLong
	}
	return resolved, nil
}

// BaseDomain truncates rawURL at its third '/' and guarantees a trailing
// slash: https://host/a/b.html -> https://host/
func BaseDomain(rawURL string) string {
	return hostRoot(rawURL) + "/"
}

// hostRoot returns scheme://host without a trailing slash.
func hostRoot(rawURL string) string {
	slashes := 0
	for i := 0; i < len(rawURL); i++ {
		if rawURL[i] == '/' {
			slashes++
			if slashes == 3 {
				return rawURL[:i]
			}
		}
	}
	return strings.TrimSuffix(rawURL, "/")
}

// lowerHost lower-cases the scheme://host prefix and keeps the path as is.
func lowerHost(rawURL string) string {
	root := hostRoot(rawURL)
	return strings.ToLower(root) + rawURL[len(root):]
}

func withoutQuery(pageURL string) string {
	if i := strings.IndexAny(pageURL, "?#"); i >= 0 {
		return pageURL[:i]
	}
	return pageURL
}

// directory drops the last path segment: http://h/a/b.html -> http://h/a.
// It never climbs above scheme://host.
func directory(pageURL string) string {
	pageURL = withoutQuery(pageURL)
	root := hostRoot(pageURL)
	i := strings.LastIndexByte(pageURL, '/')
	if i < len(root) {
		return root
	}
	return pageURL[:i]
}

// parentDir strips one more segment from the page directory.
func parentDir(pageURL string) string {
	root := hostRoot(pageURL)
	dir := directory(pageURL)
	i := strings.LastIndexByte(dir, '/')
	if i < len(root) {
		return root
	}
	return dir[:i]
}

func hasHTTPScheme(link string) bool {
	return hasPrefixFold(link, "http://") || hasPrefixFold(link, "https://")
}

// hasOtherScheme reports a "name:" prefix before any character that cannot
// appear in a scheme (mailto:, javascript:, tel:, data:, ftp:...).
func hasOtherScheme(link string) bool {
	for i := 0; i < len(link); i++ {
		c := link[i]
		if c == ':' {
			return i > 0
		}
		alpha := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
		if alpha || i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-') {
			continue
		}
		return false
	}
	return false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
