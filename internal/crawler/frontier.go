package crawler

import (
	"context"
	"sync"
)

// Frontier owns the visited set and the queue of URLs waiting to be fetched.
// It is created per crawl run and never shared between runs.
//
// Design decision: One mutex guards the visited set, the queue and the
// in-flight counter together. Claim performs check-membership, insert and
// enqueue as one critical section, so two workers can never enqueue the
// same URL, and the drain check (queue empty and nothing in flight) can
// never observe a state where a URL is claimed but not yet queued.
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	// queue holds claimed URLs that have not been popped yet.
	queue []string

	// visited contains every URL ever claimed (queued, in flight or done).
	visited map[string]struct{}

	// inFlight counts URLs that were popped but not yet marked Done.
	inFlight int

	// closed is set by Close; Pop returns immediately once closed.
	closed bool
}

// FrontierStats is a point-in-time snapshot of the frontier.
type FrontierStats struct {
	// Queued is the number of URLs waiting to be popped.
	Queued int

	// InFlight is the number of popped URLs not yet marked Done.
	InFlight int

	// Visited is the number of distinct URLs ever claimed.
	Visited int
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	f := &Frontier{
		queue:   make([]string, 0),
		visited: make(map[string]struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Claim atomically checks whether pageURL has been seen and, if not, marks it
// visited and enqueues it. It returns true when the URL was enqueued and
// false when it was already known (the caller simply discards it).
//
// Callers must pass normalized URLs; the frontier compares strings exactly.
func (f *Frontier) Claim(pageURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if _, ok := f.visited[pageURL]; ok {
		return false
	}
	f.visited[pageURL] = struct{}{}
	f.queue = append(f.queue, pageURL)
	f.cond.Signal()
	return true
}

// Pop removes the next URL from the queue and marks it in flight.
// It blocks while the queue is empty but other URLs are still in flight,
// because those may yet produce new work. It returns false when the frontier
// is drained, closed, or ctx is cancelled.
//
// Every successful Pop must be paired with exactly one call to Done.
func (f *Frontier) Pop(ctx context.Context) (string, bool) {
	// context.AfterFunc runs Close in its own goroutine, which wakes waiters.
	stop := context.AfterFunc(ctx, f.Close)
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) == 0 && f.inFlight > 0 && !f.closed && ctx.Err() == nil {
		f.cond.Wait()
	}
	if f.closed || ctx.Err() != nil || len(f.queue) == 0 {
		return "", false
	}

	pageURL := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	f.inFlight++
	return pageURL, true
}

// Done marks one popped URL as completed. Any links it produced must have
// been claimed before Done is called. When the last in-flight URL completes
// with an empty queue, all waiting Pop calls return false.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight == 0 {
		panic("crawler: Frontier.Done called without matching Pop")
	}
	f.inFlight--
	if f.drained() {
		f.cond.Broadcast()
	}
}

// Drained reports whether no URL is queued and none is in flight.
// Once a frontier is drained it stays drained, since only in-flight
// URLs can claim new ones.
func (f *Frontier) Drained() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drained()
}

func (f *Frontier) drained() bool {
	return len(f.queue) == 0 && f.inFlight == 0
}

// Close stops the frontier: pending and future Pop calls return false and
// Claim no longer accepts URLs. Close is safe to call more than once.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// Stats returns a snapshot of the frontier counters.
func (f *Frontier) Stats() FrontierStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FrontierStats{
		Queued:   len(f.queue),
		InFlight: f.inFlight,
		Visited:  len(f.visited),
	}
}
