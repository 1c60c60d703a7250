// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var (
	ErrBusClosed   = errors.New("event bus is shutting down")
	ErrChannelFull = errors.New("event channel full")
)

type registration struct {
	id      string
	handler Handler
}

// Bus is an in-memory event bus. Publish queues events for a single
// dispatcher goroutine, so handlers see events of one publisher in order.
// Handlers of one type run in subscription order.
type Bus struct {
	logger *zap.Logger

	mu     sync.RWMutex
	routes map[EventType][]registration

	// closeMu orders every accepted send before close(stop), so the final
	// drain sees all of them.
	closeMu sync.RWMutex
	closed  bool
	queue   chan Event
	stop    chan struct{}
	done    chan struct{}

	published *atomic.Uint64
	dropped   *atomic.Uint64
	failed    *atomic.Uint64
}

// NewBus creates a bus with the given queue size and starts dispatching.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	b := &Bus{
		logger:    logger.Named("event_bus"),
		routes:    make(map[EventType][]registration),
		queue:     make(chan Event, bufferSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		published: atomic.NewUint64(0),
		dropped:   atomic.NewUint64(0),
		failed:    atomic.NewUint64(0),
	}
	go b.run()
	return b
}

// Subscribe adds handler for eventType and returns a handle to remove it.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	reg := registration{id: uuid.NewString(), handler: handler}

	b.mu.Lock()
	b.routes[eventType] = append(b.routes[eventType], reg)
	b.mu.Unlock()

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", reg.id))
	return &subscription{id: reg.id, eventBus: b, typ: eventType}
}

func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish queues an event without blocking. A full queue drops the event.
func (b *Bus) Publish(event Event) error {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.queue <- event:
		b.published.Inc()
		return nil
	default:
		b.dropped.Inc()
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", string(event.Type())),
			zap.Int("capacity", cap(b.queue)))
		return ErrChannelFull
	}
}

// PublishSync runs every handler for the event on the calling goroutine
// and joins their errors.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	regs := slices.Clone(b.routes[event.Type()])
	b.mu.RUnlock()

	var errs []error
	for _, reg := range regs {
		err := reg.handler.Handle(ctx, event)
		if err == nil {
			continue
		}
		b.failed.Inc()
		b.logger.Error("Event handler failed",
			zap.String("event_type", string(event.Type())),
			zap.String("subscription_id", reg.id),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("handler %s: %w", reg.id, err))
	}
	return errors.Join(errs...)
}

func (b *Bus) run() {
	defer close(b.done)

	ctx := context.Background()
	for {
		select {
		case event := <-b.queue:
			_ = b.PublishSync(ctx, event)
		case <-b.stop:
			// drain what was accepted before Shutdown
			for len(b.queue) > 0 {
				_ = b.PublishSync(ctx, <-b.queue)
			}
			return
		}
	}
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	regs := slices.DeleteFunc(b.routes[eventType], func(r registration) bool { return r.id == id })
	if len(regs) == 0 {
		delete(b.routes, eventType)
	} else {
		b.routes[eventType] = regs
	}
	b.mu.Unlock()

	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
}

// Shutdown rejects new events, delivers the queued ones and waits for the
// dispatcher or ctx, whichever comes first. Calling it again is a no-op.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.closeMu.Lock()
	if !b.closed {
		b.closed = true
		close(b.stop)
		b.logger.Info("Shutting down event bus", zap.Int("pending", len(b.queue)))
	}
	b.closeMu.Unlock()

	select {
	case <-b.done:
		b.logger.Info("Event bus stopped",
			zap.Uint64("published", b.published.Load()),
			zap.Uint64("dropped", b.dropped.Load()),
			zap.Uint64("handler_errors", b.failed.Load()))
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus did not drain in time", zap.Int("pending", len(b.queue)))
		return ctx.Err()
	}
}

// Stats is a snapshot of bus counters.
type Stats struct {
	Pending        int
	Published      uint64
	Dropped        uint64
	HandlerErrors  uint64
	HandlersByType map[EventType]int
}

func (b *Bus) Stats() Stats {
	b.mu.RLock()
	counts := make(map[EventType]int, len(b.routes))
	for eventType, regs := range b.routes {
		counts[eventType] = len(regs)
	}
	b.mu.RUnlock()

	return Stats{
		Pending:        len(b.queue),
		Published:      b.published.Load(),
		Dropped:        b.dropped.Load(),
		HandlerErrors:  b.failed.Load(),
		HandlersByType: counts,
	}
}
