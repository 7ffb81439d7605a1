// Package dispatcher fans run outcomes out to registered sinks. Sinks can be
// synchronous or run behind a bounded buffer on their own goroutine.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/airshower/varbeam/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event kinds published by the coordinator.
const (
	KindCompleted = "event.completed"
	KindRejected  = "event.rejected"
	KindFailed    = "event.failed"
	KindTables    = "tables.ready"
)

// Event is one published outcome.
type Event struct {
	Kind      string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to the handlers registered for their kind. Several
// handlers may share a kind; they run in registration order.
type Dispatcher struct {
	logger logging.Logger

	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	buffers  map[string][]chan Event
	closed   bool
	wg       sync.WaitGroup

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger logging.Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string][]HandlerFunc),
		buffers:  make(map[string][]chan Event),
		logger:   logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for kind, bufs := range d.buffers {
				var n int
				for _, buf := range bufs {
					n += len(buf)
				}
				o.ObserveInt64(d.queueSize, int64(n),
					metric.WithAttributes(attribute.String("kind", kind)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for kind with optional configuration.
func (d *Dispatcher) Register(kind string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(kind, handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(kind, cfg.bufferSize, cfg.blocking, handler)
	}

	d.mu.Lock()
	d.handlers[kind] = append(d.handlers[kind], handler)
	d.mu.Unlock()
}

// Dispatch routes an event to every handler registered for its kind and
// returns the last handler's result. Handler errors are joined.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	// held for the whole fan-out so Close cannot close a buffer mid-send
	d.mu.RLock()
	defer d.mu.RUnlock()
	hs, ok := d.handlers[e.Kind]

	if d.closed {
		return nil, fmt.Errorf("dispatcher closed")
	}
	if !ok {
		return nil, fmt.Errorf("unknown event kind: %s", e.Kind)
	}

	var (
		result any
		errs   []error
	)
	for _, h := range hs {
		r, err := h(e)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		result = r
	}
	if len(errs) > 0 {
		return result, joinErrors(errs)
	}
	return result, nil
}

// HasHandler returns true if a handler is registered for the kind.
func (d *Dispatcher) HasHandler(kind string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[kind]
	return ok
}

// Close stops accepting events and waits until every buffered handler has
// drained its queue.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, bufs := range d.buffers {
		for _, buf := range bufs {
			close(buf)
		}
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) withBuffer(kind string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[kind] = append(d.buffers[kind], buffer)
	d.mu.Unlock()

	kindAttr := attribute.String("kind", kind)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for e := range buffer {
			if _, err := h(e); err != nil {
				d.logger.Error("buffered handler failed", "kind", kind, "error", err)
			}
			d.processed.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			buffer <- e
			return "queued", nil
		}
	}

	return func(e Event) (any, error) {
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
			return nil, fmt.Errorf("queue full: %s", kind)
		}
	}
}

func (d *Dispatcher) withLogging(kind string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "kind", kind)

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "kind", kind, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "kind", kind, "duration", time.Since(start))
		}

		return result, err
	}
}
