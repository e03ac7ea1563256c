package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeFeed struct {
	mu      sync.Mutex
	starts  int
	stops   int
	edges   chan Raw
	failing bool
}

func (f *fakeFeed) start() (<-chan Raw, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, nil, errors.New("no display")
	}
	f.starts++
	edges := make(chan Raw, 16)
	f.edges = edges
	var once sync.Once
	return edges, func() {
		once.Do(func() {
			f.mu.Lock()
			f.stops++
			f.mu.Unlock()
			close(edges)
		})
	}, nil
}

func (f *fakeFeed) send(r Raw) {
	f.mu.Lock()
	edges := f.edges
	f.mu.Unlock()
	edges <- r
}

func (f *fakeFeed) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubSharesOneFeed(t *testing.T) {
	feed := &fakeFeed{}
	hub := NewHub(feed.start, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	received := make([]chan Raw, 2)
	for i := range received {
		received[i] = make(chan Raw, 4)
		wg.Add(1)
		go func(out chan Raw) {
			defer wg.Done()
			_ = hub.Stream(ctx, func(r Raw) error {
				out <- r
				return nil
			})
		}(received[i])
	}
	waitFor(t, func() bool { return hub.Subscribers() == 2 })

	feed.send(Raw{Kind: KindMove, X: 7})
	for i, ch := range received {
		select {
		case r := <-ch:
			if r.X != 7 {
				t.Fatalf("subscriber %d got %+v", i, r)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d missed the edge", i)
		}
	}

	cancel()
	wg.Wait()
	starts, stops := feed.counts()
	if starts != 1 || stops != 1 {
		t.Fatalf("expected one start and one stop, got %d/%d", starts, stops)
	}
}

func TestHubRestartsFeedForLaterSubscribers(t *testing.T) {
	feed := &fakeFeed{}
	hub := NewHub(feed.start, zerolog.Nop())

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- hub.Stream(ctx, func(Raw) error { return nil }) }()
		waitFor(t, func() bool { return hub.Subscribers() == 1 })
		cancel()
		<-done
	}
	if starts, stops := feed.counts(); starts != 2 || stops != 2 {
		t.Fatalf("expected the feed to restart, got %d/%d", starts, stops)
	}
}

func TestHubReportsUnavailableFeed(t *testing.T) {
	hub := NewHub((&fakeFeed{failing: true}).start, zerolog.Nop())
	err := hub.Stream(context.Background(), func(Raw) error { return nil })
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
}

func TestHubStopsOnEmitError(t *testing.T) {
	feed := &fakeFeed{}
	hub := NewHub(feed.start, zerolog.Nop())
	halt := errors.New("enough")

	done := make(chan error, 1)
	go func() {
		done <- hub.Stream(context.Background(), func(Raw) error { return halt })
	}()
	waitFor(t, func() bool { return hub.Subscribers() == 1 })
	feed.send(Raw{Kind: KindKeyDown})

	select {
	case err := <-done:
		if !errors.Is(err, halt) {
			t.Fatalf("expected emit error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("stream did not stop")
	}
	waitFor(t, func() bool { return hub.Subscribers() == 0 })
}
