// Package coordinator drives events one at a time through configuration
// switching, table preparation, generation and momentum correction.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/airshower/varbeam/internal/afterburner"
	"github.com/airshower/varbeam/internal/dispatcher"
	"github.com/airshower/varbeam/internal/engine"
	"github.com/airshower/varbeam/internal/logging"
	"github.com/airshower/varbeam/internal/run"
	"github.com/airshower/varbeam/internal/tabulation"
	"github.com/airshower/varbeam/internal/validation"
	"github.com/airshower/varbeam/pkg/core"
)

// ErrTooManyFailures ends a run whose failed events exceed the threshold.
var ErrTooManyFailures = errors.New("coordinator: too many failed events")

// SwitchError reports an event that did not complete. State is where the
// pipeline stopped: StateRejected for validation failures, StateConfiguring
// for table failures and StateDelegated for engine failures.
type SwitchError struct {
	Index   int
	Request Request
	State   State
	Err     error
}

func (e *SwitchError) Error() string {
	return fmt.Sprintf("event %d (%s) stopped in %s: %v", e.Index, e.Request, e.State, e.Err)
}

func (e *SwitchError) Unwrap() error { return e.Err }

// Rejected reports whether the request failed validation.
func (e *SwitchError) Rejected() bool { return e.State == StateRejected }

// Outcome is the result of one completed event.
type Outcome struct {
	Index      int
	Request    Request
	Config     core.BeamConfiguration
	Event      *core.Event
	Correction core.CorrectionResult
	// Malformed is set when the afterburner refused the event; Event is then
	// the uncorrected record.
	Malformed error
	Duration  time.Duration
}

// Publisher receives outcomes; *dispatcher.Dispatcher implements it.
type Publisher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Options configures a Coordinator.
type Options struct {
	StoreMode    tabulation.StoreMode
	SamplePoints int
	Logger       logging.Logger
	Publisher    Publisher
	Run          *run.Context
}

// Coordinator owns the per-event state machine. It is not safe for concurrent
// use; a run is a strict sequence of events.
type Coordinator struct {
	validator *validation.Validator
	cache     *tabulation.Cache
	engine    engine.CollisionEngine
	opts      Options
	log       logging.Logger
	metrics   *metrics

	spec   tabulation.Spec
	active *tabulation.Entry
	state  State
	index  int
	inits  int
}

// New creates a coordinator. The tabulation spec is derived once from the
// validator's catalog and range.
func New(v *validation.Validator, cache *tabulation.Cache, eng engine.CollisionEngine, opts Options) (*Coordinator, error) {
	if v == nil || cache == nil || eng == nil {
		return nil, fmt.Errorf("coordinator: validator, cache and engine are required")
	}
	if opts.SamplePoints == 0 {
		opts.SamplePoints = 11
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	spec := v.TabulationSpec(opts.SamplePoints)
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &Coordinator{
		validator: v,
		cache:     cache,
		engine:    eng,
		opts:      opts,
		log:       log,
		metrics:   m,
		spec:      spec,
	}, nil
}

// State returns the state of the most recent event.
func (c *Coordinator) State() State { return c.state }

// Spec returns the tabulation spec the run needs.
func (c *Coordinator) Spec() tabulation.Spec { return c.spec }

// Initializations returns how often the engine's initialization ran.
func (c *Coordinator) Initializations() int { return c.inits }

// RunEvent takes the next request from sel through the pipeline. It returns
// ErrExhausted unwrapped when sel has nothing left, and a *SwitchError for an
// event that did not complete.
func (c *Coordinator) RunEvent(ctx context.Context, sel Selector) (*Outcome, error) {
	c.state = StateIdle
	req, err := sel.Next()
	if err != nil {
		return nil, err
	}

	index := c.index
	c.index++
	start := time.Now()
	if c.opts.Run != nil {
		c.opts.Run.SetEvent(index, req.String())
	}

	fail := func(state State, err error) (*Outcome, error) {
		c.state = state
		serr := &SwitchError{Index: index, Request: req, State: state, Err: err}
		kind := dispatcher.KindFailed
		if state == StateRejected {
			kind = dispatcher.KindRejected
			c.metrics.rejected.Add(ctx, 1)
		} else {
			c.metrics.failed.Add(ctx, 1)
		}
		c.publish(kind, serr)
		return nil, serr
	}

	c.state = StateConfiguring
	cfg, err := c.configure(req)
	if err != nil {
		c.log.Debug("Request rejected", "request", req.String(), "error", err)
		return fail(StateRejected, err)
	}

	if err := c.ensureTables(ctx); err != nil {
		c.log.Error("Table preparation failed", "fingerprint", c.spec.Fingerprint(), "error", err)
		return fail(StateConfiguring, err)
	}
	c.state = StateTableReady

	c.state = StateDelegated
	ev, err := c.engine.Generate(ctx, cfg)
	if err != nil {
		c.log.Warn("Event generation failed", "config", cfg.String(), "error", err)
		return fail(StateDelegated, err)
	}

	out := &Outcome{Index: index, Request: req, Config: cfg, Event: ev}
	res, err := afterburner.Correct(ev, cfg.Target, cfg.LabMomentum)
	if err != nil {
		out.Malformed = err
		c.metrics.malformed.Add(ctx, 1)
		c.log.Warn("Momentum correction skipped", "config", cfg.String(), "error", err)
	}
	out.Correction = res
	out.Duration = time.Since(start)

	c.state = StateCompleted
	c.metrics.completed.Add(ctx, 1)
	switch {
	case !res.HasRemnant:
	case res.IsElastic:
		c.metrics.elastic.Add(ctx, 1)
	default:
		c.metrics.inelastic.Add(ctx, 1)
	}
	c.publish(dispatcher.KindCompleted, out)
	return out, nil
}

func (c *Coordinator) configure(req Request) (core.BeamConfiguration, error) {
	switch req.Frame {
	case core.FrameCenterOfMass:
		return c.validator.Validate(req.Projectile, req.Target, req.Energy)
	case core.FrameAsymmetric:
		return c.validator.ValidateLab(req.Projectile, req.Target, req.Energy)
	default:
		return core.BeamConfiguration{}, fmt.Errorf("coordinator: unknown frame %s", req.Frame)
	}
}

// ensureTables makes sure the engine runs on the tables for c.spec. The cache
// is consulted for every event; the engine is initialized only on a miss and
// fed a new entry only when the fingerprint changes.
func (c *Coordinator) ensureTables(ctx context.Context) error {
	fp := c.spec.Fingerprint()

	entry, ok, err := c.cache.Lookup(ctx, fp)
	switch {
	case errors.Is(err, tabulation.ErrCorrupt):
		// already logged by the cache; fall through to regeneration
		ok = false
	case err != nil:
		return fmt.Errorf("looking up tables: %w", err)
	}

	if !ok {
		entry, err = c.initialize(ctx)
		if err != nil {
			return err
		}
	}

	if c.active != nil && c.active.Fingerprint == entry.Fingerprint {
		return nil
	}
	if err := c.engine.UseTables(entry); err != nil {
		return fmt.Errorf("installing tables: %w", err)
	}
	c.active = entry
	c.publish(dispatcher.KindTables, entry.Fingerprint)
	c.log.Info("Tables ready", "fingerprint", entry.Fingerprint, "bytes", entry.Size())
	return nil
}

func (c *Coordinator) initialize(ctx context.Context) (*tabulation.Entry, error) {
	start := time.Now()
	c.log.Info("Initializing engine tables", "fingerprint", c.spec.Fingerprint(), "spec", c.spec.String())

	entry, err := c.engine.Initialize(ctx, c.spec)
	if err != nil {
		return nil, err
	}
	c.inits++
	c.metrics.initializations.Add(ctx, 1)
	c.log.Info("Engine tables computed", "fingerprint", entry.Fingerprint, "duration", time.Since(start))

	// a failed store leaves the tables usable for this run
	if err := c.cache.Store(ctx, entry, c.opts.StoreMode); err != nil {
		if errors.Is(err, tabulation.ErrConflict) {
			c.log.Warn("Table entry exists, not stored", "fingerprint", entry.Fingerprint, "mode", c.opts.StoreMode.String())
		} else {
			c.log.Error("Failed to store table entry", "fingerprint", entry.Fingerprint, "error", err)
		}
	}
	return entry, nil
}

func (c *Coordinator) publish(kind string, payload any) {
	if c.opts.Publisher == nil {
		return
	}
	if _, err := c.opts.Publisher.Dispatch(dispatcher.Event{Kind: kind, Payload: payload, Timestamp: time.Now()}); err != nil {
		c.log.Debug("Publishing outcome failed", "kind", kind, "error", err)
	}
}
