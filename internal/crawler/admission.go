package crawler

import (
	"sync"
)

// Admission decides which discovered URLs enter the frontier. It owns the
// visited set and the per-depth quota table; both change only inside Admit.
type Admission struct {
	maxDepth    int
	perDepthCap int
	mu          sync.Mutex
	visited     map[string]struct{}
	perDepth    map[int]int
}

// NewAdmission creates an admission controller.
// Candidates must have depth < maxDepth, and at most perDepthCap URLs are
// admitted at any single depth.
func NewAdmission(maxDepth, perDepthCap int) *Admission {
	return &Admission{
		maxDepth:    maxDepth,
		perDepthCap: perDepthCap,
		visited:     make(map[string]struct{}),
		perDepth:    make(map[int]int),
	}
}

// Admit checks, in order, the depth ceiling, the visited set and the quota
// for depth. On success the URL is marked visited and the quota incremented
// in the same critical section, so two workers racing on one URL cannot both
// win. A rejection leaves no trace.
func (a *Admission) Admit(url string, depth int) error {
	if depth < 0 || depth >= a.maxDepth {
		return ErrDepthExceeded
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, seen := a.visited[url]; seen {
		return ErrAlreadyVisited
	}
	if a.perDepth[depth] >= a.perDepthCap {
		return ErrQuotaExceeded
	}

	a.visited[url] = struct{}{}
	a.perDepth[depth]++
	return nil
}

// Visited returns the number of admitted URLs
func (a *Admission) Visited() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.visited)
}

// Count returns the number of URLs admitted at depth
func (a *Admission) Count(depth int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.perDepth[depth]
}
