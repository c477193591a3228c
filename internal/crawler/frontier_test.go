package crawler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFrontierClaim(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	if !f.Claim("http://example.test/") {
		t.Fatal("first Claim() = false, want true")
	}
	if f.Claim("http://example.test/") {
		t.Error("second Claim() = true, want false")
	}
	if !f.Claim("http://example.test/other") {
		t.Error("Claim() of a new URL = false, want true")
	}

	stats := f.Stats()
	if stats.Queued != 2 || stats.Visited != 2 || stats.InFlight != 0 {
		t.Errorf("Stats() = %+v, want 2 queued, 2 visited", stats)
	}
}

func TestFrontierFIFO(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	for i := range 5 {
		f.Claim(fmt.Sprintf("http://example.test/%d", i))
	}
	for i := range 5 {
		got, ok := f.Pop(context.Background())
		if !ok {
			t.Fatalf("Pop() #%d returned ok=false", i)
		}
		if want := fmt.Sprintf("http://example.test/%d", i); got != want {
			t.Errorf("Pop() #%d = %q, want %q", i, got, want)
		}
	}
	if f.Stats().InFlight != 5 {
		t.Errorf("InFlight = %d, want 5", f.Stats().InFlight)
	}
}

func TestFrontierDrain(t *testing.T) {
	t.Parallel()

	t.Run("empty frontier is drained", func(t *testing.T) {
		t.Parallel()
		f := NewFrontier()
		if !f.Drained() {
			t.Error("Drained() = false for new frontier")
		}
		if _, ok := f.Pop(context.Background()); ok {
			t.Error("Pop() on drained frontier returned ok=true")
		}
	})

	t.Run("in-flight work keeps frontier open", func(t *testing.T) {
		t.Parallel()
		f := NewFrontier()
		f.Claim("http://example.test/")
		if _, ok := f.Pop(context.Background()); !ok {
			t.Fatal("Pop() returned ok=false")
		}
		if f.Drained() {
			t.Error("Drained() = true with one URL in flight")
		}

		// A waiter must block until the in-flight page completes, then
		// receive the link that page produced.
		result := make(chan string, 1)
		go func() {
			u, ok := f.Pop(context.Background())
			if !ok {
				u = "<none>"
			}
			result <- u
		}()

		select {
		case u := <-result:
			t.Fatalf("Pop() returned %q before work arrived", u)
		case <-time.After(50 * time.Millisecond):
		}

		f.Claim("http://example.test/next")
		f.Done()

		select {
		case u := <-result:
			if u != "http://example.test/next" {
				t.Errorf("Pop() = %q, want next", u)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("waiter was not woken by Claim")
		}
	})

	t.Run("done wakes all waiters", func(t *testing.T) {
		t.Parallel()
		f := NewFrontier()
		f.Claim("http://example.test/")
		if _, ok := f.Pop(context.Background()); !ok {
			t.Fatal("Pop() returned ok=false")
		}

		const waiters = 8
		var wg sync.WaitGroup
		var woken atomic.Int32
		for range waiters {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := f.Pop(context.Background()); !ok {
					woken.Add(1)
				}
			}()
		}

		time.Sleep(20 * time.Millisecond)
		f.Done()

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("waiters were not woken on drain")
		}
		if woken.Load() != waiters {
			t.Errorf("woken = %d, want %d", woken.Load(), waiters)
		}
		if !f.Drained() {
			t.Error("Drained() = false after last Done")
		}
	})
}

func TestFrontierCancel(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	f.Claim("http://example.test/")
	if _, ok := f.Pop(context.Background()); !ok {
		t.Fatal("Pop() returned ok=false")
	}

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan bool, 1)
	go func() {
		_, ok := f.Pop(ctx)
		result <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case ok := <-result:
		if ok {
			t.Error("Pop() after cancel returned ok=true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Pop() did not return after cancel")
	}

	if f.Claim("http://example.test/late") {
		t.Error("Claim() on closed frontier returned true")
	}
}

func TestFrontierDoneWithoutPop(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("Done() without Pop did not panic")
		}
	}()
	NewFrontier().Done()
}

// TestFrontierConcurrentClaim checks that a URL is enqueued at most once
// no matter how many workers claim it at the same time.
func TestFrontierConcurrentClaim(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	const workers = 32
	const urls = 200

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range urls {
				if f.Claim(fmt.Sprintf("http://example.test/%d", i)) {
					wins.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if wins.Load() != urls {
		t.Errorf("successful claims = %d, want %d", wins.Load(), urls)
	}
	if s := f.Stats(); s.Queued != urls || s.Visited != urls {
		t.Errorf("Stats() = %+v, want %d queued and visited", s, urls)
	}
}

// TestFrontierWorkerPool runs a pool over a generated tree of URLs and
// checks that every URL is popped exactly once and all workers exit.
func TestFrontierWorkerPool(t *testing.T) {
	t.Parallel()

	const fanout = 3
	const maxDepth = 5

	f := NewFrontier()
	f.Claim("0")

	var mu sync.Mutex
	popped := make(map[string]int)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				u, ok := f.Pop(context.Background())
				if !ok {
					return
				}
				mu.Lock()
				popped[u]++
				mu.Unlock()

				if len(u) < maxDepth {
					for i := range fanout {
						f.Claim(fmt.Sprintf("%s%d", u, i))
					}
					// Siblings point back to the parent, like nav links.
					f.Claim(u)
				}
				f.Done()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("worker pool did not terminate")
	}

	// 1 + 3 + 9 + 27 + 81 nodes of length 1..5.
	want := 0
	for d, n := 0, 1; d < maxDepth; d, n = d+1, n*fanout {
		want += n
	}
	if len(popped) != want {
		t.Errorf("popped %d distinct URLs, want %d", len(popped), want)
	}
	for u, n := range popped {
		if n != 1 {
			t.Errorf("%q popped %d times", u, n)
		}
	}
	if !f.Drained() {
		t.Error("frontier not drained after workers exited")
	}
}
