package events

import (
	"sync"

	"vaultbtc/core/types"
)

// Event represents a structured state change emitted by an engine.
type Event interface {
	EventType() string
}

// Detailed is implemented by events that render themselves as an attribute
// record for logs and queries.
type Detailed interface {
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (RPC streams, the
// keeper, metrics).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events.
// Engines accept it when a caller has no observers to notify.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Hub fans events out to registered subscriber channels. Subscribers that
// fall behind drop events rather than block a mutation in progress.
type Hub struct {
	mu   sync.RWMutex
	subs []chan Event
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers a buffered channel receiving every subsequent event.
func (h *Hub) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs = append(h.subs, ch)
	h.mu.Unlock()
	return ch
}

// Emit implements the Emitter interface.
func (h *Hub) Emit(evt Event) {
	if h == nil || evt == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
