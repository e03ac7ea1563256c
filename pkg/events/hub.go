package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Feed starts an underlying listener and returns its edge channel together
// with a function that stops it. Stopping must eventually close edges and
// must not block on the edges consumer. Only one feed runs at a time.
type Feed func() (edges <-chan Raw, stop func(), err error)

const subscriberBuffer = 1024

// Hub shares a single Feed between concurrent Stream calls. The feed starts
// with the first subscriber and stops when the last one leaves.
type Hub struct {
	feed   Feed
	logger zerolog.Logger

	mu     sync.Mutex
	subs   map[int]chan Raw
	nextID int
	stop   func()
	gen    int
}

// NewHub returns a Source fanning out feed.
func NewHub(feed Feed, logger zerolog.Logger) *Hub {
	return &Hub{feed: feed, logger: logger, subs: map[int]chan Raw{}}
}

// Stream implements Source.
func (h *Hub) Stream(ctx context.Context, emit func(Raw) error) error {
	id, ch, err := h.subscribe()
	if err != nil {
		return err
	}
	defer h.unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			if err := emit(raw); err != nil {
				return err
			}
		}
	}
}

// Subscribers reports how many streams are attached.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe() (int, chan Raw, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.subs) == 0 {
		edges, stop, err := h.feed()
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
		}
		h.stop = stop
		h.gen++
		go h.pump(h.gen, edges)
	}
	h.nextID++
	ch := make(chan Raw, subscriberBuffer)
	h.subs[h.nextID] = ch
	return h.nextID, ch, nil
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[id]; !ok {
		return
	}
	delete(h.subs, id)
	if len(h.subs) == 0 && h.stop != nil {
		h.stop()
		h.stop = nil
	}
}

// pump copies feed edges to every subscriber. A subscriber that falls a full
// buffer behind loses edges rather than stalling the others.
func (h *Hub) pump(gen int, edges <-chan Raw) {
	for raw := range edges {
		h.mu.Lock()
		if gen != h.gen {
			h.mu.Unlock()
			continue
		}
		for id, ch := range h.subs {
			select {
			case ch <- raw:
			default:
				h.logger.Warn().Int("subscriber", id).Str("kind", raw.Kind.String()).Msg("input subscriber lagging; edge dropped")
			}
		}
		h.mu.Unlock()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if gen != h.gen {
		return
	}
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	h.stop = nil
}
