package crawler

import (
	"sync"
)

// FrontierItem is a URL waiting to be fetched and the number of link hops
// that led to it from the seed.
type FrontierItem struct {
	URL   string
	Depth int
}

// Queue is the shared BFS frontier. It also coordinates termination: the
// ring buffer, the in-flight counter and the stopped flag live under one
// mutex so that "empty and nothing in flight" is observed in a single
// critical section.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []FrontierItem
	head     int
	count    int
	inFlight int
	stopped  bool
}

// NewQueue creates a frontier holding at most capacity items
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue{
		buf: make([]FrontierItem, capacity),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item to the tail.
// Returns ErrQueueFull at capacity (the item is dropped) and ErrQueueStopped
// after shutdown.
func (q *Queue) Push(item FrontierItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrQueueStopped
	}
	if q.count == len(q.buf) {
		return ErrQueueFull
	}

	q.buf[(q.head+q.count)%len(q.buf)] = item
	q.count++

	// Wake one waiting worker
	q.cond.Signal()
	return nil
}

// Pop removes and returns the head item, blocking while the queue is empty
// and other workers still have items in flight.
// A successful Pop counts the item as in flight; the caller must call Done
// once the item is fully expanded.
// Returns (empty, false) once the crawl is stopped. The worker that finds the
// queue empty with nothing in flight stops the crawl itself.
func (q *Queue) Pop() (FrontierItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.stopped {
			return FrontierItem{}, false
		}

		if q.count > 0 {
			item := q.buf[q.head]
			q.buf[q.head] = FrontierItem{}
			q.head = (q.head + 1) % len(q.buf)
			q.count--
			q.inFlight++
			return item, true
		}

		if q.inFlight == 0 {
			q.stopLocked()
			return FrontierItem{}, false
		}

		q.cond.Wait()
	}
}

// Done marks one popped item as fully expanded. If that leaves the queue
// empty with nothing in flight, the crawl is complete and every blocked
// worker is woken.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.inFlight > 0 {
		q.inFlight--
	}
	if q.inFlight == 0 && q.count == 0 {
		q.stopLocked()
	}
}

// Stop shuts the queue down and drops pending items. Workers blocked in Pop
// return false; items already in flight finish but nothing new is fetched.
// Safe to call multiple times.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count > 0 {
		q.buf[q.head] = FrontierItem{}
		q.head = (q.head + 1) % len(q.buf)
		q.count--
	}
	q.stopLocked()
}

func (q *Queue) stopLocked() {
	if q.stopped {
		return
	}
	q.stopped = true
	q.cond.Broadcast()
}

// Size returns the current number of items in the queue
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// InFlight returns the number of popped items not yet marked Done
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}

// Stopped reports whether the crawl has shut down
func (q *Queue) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}
