package validation

import (
	"errors"
	"fmt"
)

// ErrRejected matches every validation failure.
var ErrRejected = errors.New("validation: configuration rejected")

// Role names which side of the collision a species was requested for.
type Role string

const (
	RoleProjectile Role = "projectile"
	RoleTarget     Role = "target"
)

// UnsupportedSpeciesError reports an id missing from the catalog.
type UnsupportedSpeciesError struct {
	Role Role
	ID   int
}

func (e *UnsupportedSpeciesError) Error() string {
	return fmt.Sprintf("validation: unsupported %s id %d", e.Role, e.ID)
}

func (e *UnsupportedSpeciesError) Is(target error) bool { return target == ErrRejected }

// Bound names the violated side of the energy range.
type Bound string

const (
	BoundMin Bound = "min"
	BoundMax Bound = "max"
)

// EnergyOutOfRangeError reports an eCM outside the tabulated range.
type EnergyOutOfRangeError struct {
	Energy float64
	Bound  Bound
	Limit  float64
}

func (e *EnergyOutOfRangeError) Error() string {
	rel := "below"
	if e.Bound == BoundMax {
		rel = "above"
	}
	return fmt.Sprintf("validation: eCM %g GeV %s %s bound %g GeV", e.Energy, rel, e.Bound, e.Limit)
}

func (e *EnergyOutOfRangeError) Is(target error) bool { return target == ErrRejected }
