// Package validation gates every requested beam configuration against the
// species catalog and the energy range of the active tables.
package validation

import (
	"fmt"
	"math"

	"github.com/airshower/varbeam/internal/kinematics"
	"github.com/airshower/varbeam/internal/species"
	"github.com/airshower/varbeam/internal/tabulation"
	"github.com/airshower/varbeam/pkg/core"
)

// Range is an inclusive nucleon-nucleon eCM interval in GeV.
type Range struct {
	MinCM float64
	MaxCM float64
}

// Contains reports whether eCM lies in [MinCM, MaxCM].
func (r Range) Contains(eCM float64) bool {
	return eCM >= r.MinCM && eCM <= r.MaxCM
}

func (r Range) valid() bool {
	return r.MinCM > 0 && r.MaxCM >= r.MinCM && !math.IsInf(r.MaxCM, 0) && !math.IsNaN(r.MinCM) && !math.IsNaN(r.MaxCM)
}

// DeriveRange computes the eCM span covered by lab momenta [pMin, pMax] over the
// whole catalog: the lower edge uses the lightest projectile and target, the
// upper edge the heaviest. Adding a species to the catalog widens the range.
func DeriveRange(catalog *species.Catalog, pMin, pMax float64) (Range, error) {
	if pMin <= 0 || pMax < pMin {
		return Range{}, fmt.Errorf("validation: invalid lab momentum range [%g, %g]", pMin, pMax)
	}
	lightA, heavyA := catalog.MassRange()
	lightB, heavyB := targetMassRange(catalog)

	return Range{
		MinCM: kinematics.FixedTargetCM(lightA, lightB, pMin),
		MaxCM: kinematics.FixedTargetCM(heavyA, heavyB, pMax),
	}, nil
}

func targetMassRange(catalog *species.Catalog) (lightest, heaviest float64) {
	lightest = math.Inf(1)
	for _, t := range catalog.Targets() {
		m := t.KinematicMass()
		lightest = math.Min(lightest, m)
		heaviest = math.Max(heaviest, m)
	}
	return lightest, heaviest
}

// Validator is immutable once built; it is safe for concurrent use.
type Validator struct {
	catalog *species.Catalog
	rng     Range
}

// New creates a validator for catalog and range.
func New(catalog *species.Catalog, rng Range) (*Validator, error) {
	if catalog == nil {
		return nil, fmt.Errorf("validation: nil catalog")
	}
	if !rng.valid() {
		return nil, fmt.Errorf("validation: invalid energy range [%g, %g]", rng.MinCM, rng.MaxCM)
	}
	return &Validator{catalog: catalog, rng: rng}, nil
}

// Catalog returns the species catalog.
func (v *Validator) Catalog() *species.Catalog { return v.catalog }

// Range returns the accepted eCM range.
func (v *Validator) Range() Range { return v.rng }

// TabulationSpec describes the tables this validator's configurations need.
func (v *Validator) TabulationSpec(samplePoints int) tabulation.Spec {
	return tabulation.Spec{
		Projectiles:  v.catalog.ProjectileIDs(),
		Targets:      v.catalog.TargetIDs(),
		MinCM:        v.rng.MinCM,
		MaxCM:        v.rng.MaxCM,
		SamplePoints: samplePoints,
	}.Canonical()
}

func (v *Validator) lookup(projectileID, targetID int) (core.ParticleSpecies, core.ParticleSpecies, error) {
	proj, ok := v.catalog.Projectile(projectileID)
	if !ok {
		return core.ParticleSpecies{}, core.ParticleSpecies{}, &UnsupportedSpeciesError{Role: RoleProjectile, ID: projectileID}
	}
	targ, ok := v.catalog.Target(targetID)
	if !ok {
		return core.ParticleSpecies{}, core.ParticleSpecies{}, &UnsupportedSpeciesError{Role: RoleTarget, ID: targetID}
	}
	return proj, targ, nil
}

func (v *Validator) checkRange(eCM float64) error {
	switch {
	case math.IsNaN(eCM) || eCM < v.rng.MinCM:
		return &EnergyOutOfRangeError{Energy: eCM, Bound: BoundMin, Limit: v.rng.MinCM}
	case eCM > v.rng.MaxCM:
		return &EnergyOutOfRangeError{Energy: eCM, Bound: BoundMax, Limit: v.rng.MaxCM}
	}
	return nil
}

// Validate checks a center-of-mass frame request. The projectile is checked
// before the target, then the energy against the inclusive range.
func (v *Validator) Validate(projectileID, targetID int, eCM float64) (core.BeamConfiguration, error) {
	proj, targ, err := v.lookup(projectileID, targetID)
	if err != nil {
		return core.BeamConfiguration{}, err
	}
	if err := v.checkRange(eCM); err != nil {
		return core.BeamConfiguration{}, err
	}

	pLab, err := kinematics.CMToLab(proj, targ, eCM)
	if err != nil {
		return core.BeamConfiguration{}, fmt.Errorf("validation: %w", err)
	}
	return build(proj, targ, core.FrameCenterOfMass, eCM, pLab), nil
}

// ValidateLab checks a fixed-target request given as projectile lab momentum.
// The derived eCM is range-checked like Validate.
func (v *Validator) ValidateLab(projectileID, targetID int, pLab float64) (core.BeamConfiguration, error) {
	proj, targ, err := v.lookup(projectileID, targetID)
	if err != nil {
		return core.BeamConfiguration{}, err
	}
	eCM, err := kinematics.LabToCM(proj, targ, pLab)
	if err != nil {
		return core.BeamConfiguration{}, fmt.Errorf("validation: %w", err)
	}
	if err := v.checkRange(eCM); err != nil {
		return core.BeamConfiguration{}, err
	}
	return build(proj, targ, core.FrameAsymmetric, eCM, pLab), nil
}

func build(proj, targ core.ParticleSpecies, frame core.FrameMode, eCM, pLab float64) core.BeamConfiguration {
	mA := proj.KinematicMass()
	return core.BeamConfiguration{
		Projectile:  proj,
		Target:      targ,
		Frame:       frame,
		Energy:      eCM,
		EnergyA:     math.Sqrt(pLab*pLab + mA*mA),
		EnergyB:     targ.KinematicMass(),
		LabMomentum: pLab,
	}
}
