// Package run holds the identity and progress of the current run.
package run

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Context holds the run id and the event currently in flight.
type Context struct {
	mu      sync.RWMutex
	id      string
	started time.Time
	index   int
	config  string
}

// NewContext creates a Context with a fresh run id.
func NewContext() *Context {
	return &Context{
		id:      uuid.NewString(),
		started: time.Now(),
		index:   -1,
		config:  "No event started",
	}
}

// ID returns the run id.
func (c *Context) ID() string {
	return c.id
}

// Started returns when the run began.
func (c *Context) Started() time.Time {
	return c.started
}

// SetEvent records the event now being processed.
func (c *Context) SetEvent(index int, config string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = index
	c.config = config
}

// Event returns the index and description of the current event. The index is
// -1 before the first event.
func (c *Context) Event() (int, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index, c.config
}

// LogAttrs is a logging.ContextProvider that tags every record with the run
// id and current event.
func (c *Context) LogAttrs() []slog.Attr {
	index, config := c.Event()
	attrs := []slog.Attr{slog.String("run", c.id)}
	if index >= 0 {
		attrs = append(attrs, slog.Int("event", index), slog.String("beam", config))
	}
	return attrs
}
