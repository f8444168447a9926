package events

import (
	"log/slog"
	"sync"
)

// Handler receives published events.
type Handler interface {
	HandleEvent(ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ev Event) error

// HandleEvent calls f(ev).
func (f HandlerFunc) HandleEvent(ev Event) error { return f(ev) }

// Emitter publishes events.
type Emitter interface {
	Emit(ev Event)
}

// Discard is an Emitter that drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// Bus dispatches events synchronously to registered handlers, in
// registration order. A failing handler is logged and does not stop delivery
// to the others.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *slog.Logger
}

// NewBus creates an empty Bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger.With("component", "event_bus")}
}

// Subscribe adds a handler.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
	b.logger.Debug("registered event handler", "handler_count", len(b.handlers))
}

// Emit delivers ev to every handler.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("no handlers for event", "kind", ev.Kind())
		return
	}

	for i, h := range handlers {
		if err := h.HandleEvent(ev); err != nil {
			b.logger.Error("event handler failed",
				"error", err,
				"handler_index", i,
				"kind", ev.Kind())
		}
	}
}

// Recorder is a Handler that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// HandleEvent stores ev.
func (r *Recorder) HandleEvent(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Emit stores ev, so a Recorder can stand in for a Bus.
func (r *Recorder) Emit(ev Event) { _ = r.HandleEvent(ev) }

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event of kind k, or nil.
func (r *Recorder) Last(k Kind) Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind() == k {
			return r.events[i]
		}
	}
	return nil
}

// Count returns how many events of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind() == k {
			n++
		}
	}
	return n
}
