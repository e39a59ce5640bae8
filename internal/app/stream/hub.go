// Package stream provides the ordered broadcast of player states to observers.
package stream

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/localbox/internal/app/playback"
)

// DefaultBufferSize is the per-subscriber buffer used when none is configured.
const DefaultBufferSize = 64

// Envelope is a published state with its sequence number.
type Envelope struct {
	SequenceNo uint64
	State      playback.AudioPlayerState
}

// Subscription is a read-only handle on the state stream.
type Subscription struct {
	ID string
	C  <-chan Envelope
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id string
	ch chan Envelope
}

// Hub fans published states out to subscribers. Each subscriber receives the
// states in publication order; a new subscriber first receives the latest state.
// A subscriber whose buffer is full is dropped and its channel closed.
type Hub struct {
	mu            sync.Mutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	latest        *Envelope
	bufferSize    int
	closed        bool
}

// NewHub creates a new hub.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		subscriptions: make(map[string]*subscription),
		bufferSize:    bufferSize,
	}
}

// Subscribe adds a new subscription. The latest state, if any, is already
// queued on the returned channel.
func (h *Hub) Subscribe() Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan Envelope, h.bufferSize)
	if h.closed {
		close(ch)
		return Subscription{ID: id, C: ch}
	}

	if h.latest != nil {
		ch <- *h.latest
	}
	h.subscriptions[id] = &subscription{id: id, ch: ch}
	return Subscription{ID: id, C: ch}
}

// Unsubscribe removes a subscription and closes its channel.
func (h *Hub) Unsubscribe(subscriptionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscriptions[subscriptionID]; ok {
		close(sub.ch)
		delete(h.subscriptions, subscriptionID)
	}
}

// Publish stamps state with the next sequence number and delivers it to every
// subscriber without blocking.
func (h *Hub) Publish(state playback.AudioPlayerState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.sequenceNo++
	env := Envelope{SequenceNo: h.sequenceNo, State: state}
	h.latest = &env

	for id, sub := range h.subscriptions {
		select {
		case sub.ch <- env:
		default:
			zlog.Warn().Str("subscription", id).Uint64("sequence_no", env.SequenceNo).
				Msg("stream: subscriber too slow, dropping")
			close(sub.ch)
			delete(h.subscriptions, id)
		}
	}
}

// Latest returns the last published state.
func (h *Hub) Latest() (Envelope, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.latest == nil {
		return Envelope{}, false
	}
	return *h.latest, true
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscriptions)
}

// Close closes every subscription. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subscriptions {
		close(sub.ch)
		delete(h.subscriptions, id)
	}
}
