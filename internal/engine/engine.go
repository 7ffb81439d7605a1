// Package engine defines the contract of the collision generator the harness
// drives. The generator itself is external; package synthetic provides a
// deterministic stand-in for tests and dry runs.
package engine

import (
	"context"
	"fmt"

	"github.com/airshower/varbeam/internal/tabulation"
	"github.com/airshower/varbeam/pkg/core"
)

// CollisionEngine produces final states for validated beam configurations.
//
// Initialize is the expensive step: it computes the tables for every
// configuration described by spec. It is only called on a cache miss.
// UseTables installs a previously computed (possibly cached) entry; the entry
// is shared and must not be modified. Generate produces one lab-frame event
// (target at rest, beam along +z) and may only be called after UseTables.
type CollisionEngine interface {
	Initialize(ctx context.Context, spec tabulation.Spec) (*tabulation.Entry, error)
	UseTables(entry *tabulation.Entry) error
	Generate(ctx context.Context, cfg core.BeamConfiguration) (*core.Event, error)
}

// InitError wraps a failure of the initialization step.
type InitError struct {
	Fingerprint string
	Err         error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("engine: initialization for %s failed: %v", e.Fingerprint, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// GenerationError wraps a failure to generate one event. It is not fatal to a run.
type GenerationError struct {
	Config core.BeamConfiguration
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("engine: generation failed for %s: %v", e.Config, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
