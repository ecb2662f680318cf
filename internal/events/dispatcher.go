package events

import (
	"context"
	"log/slog"
	"sync"
)

// Handler reacts to a committed kernel event. Handlers run synchronously on
// the publishing goroutine, after the commit, so a handler observing an event
// can trust the state it describes is durable.
type Handler interface {
	HandleEvent(ctx context.Context, evt Event)
}

// Dispatcher fans committed events out to in-process subscribers in
// subscription order. It is not a queue: publishing returns when every
// handler has run, which keeps automation firings single-pass and auditable.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Subscribe registers a handler. Intended for wiring time; subscribing after
// publishing has started is safe but the handler only sees later events.
func (d *Dispatcher) Subscribe(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Publish delivers evt to every subscriber.
func (d *Dispatcher) Publish(ctx context.Context, evt Event) {
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	d.logger.DebugContext(ctx, "dispatching event",
		"event_id", evt.ID.String(),
		"type", string(evt.Type),
		"trade_id", evt.TradeID.String(),
	)
	for _, h := range handlers {
		h.HandleEvent(ctx, evt)
	}
}
