// Package kinematics provides the relativistic helpers used to turn beam
// requests into invariant energies. All functions are pure.
package kinematics

import (
	"fmt"
	"math"

	"github.com/airshower/varbeam/pkg/core"
)

// m2Tolerance is the relative rounding tolerance on E² when deciding whether a
// negative invariant mass squared is a genuine domain error.
const m2Tolerance = 1e-12

// DomainError reports a non-physical (spacelike) result.
type DomainError struct {
	Op string
	M2 float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("kinematics: %s: negative invariant mass squared %g", e.Op, e.M2)
}

// InvariantMass returns sqrt(E² - |p|²). Small negative values within the
// rounding tolerance are clamped to zero.
func InvariantMass(p core.Vec4) (float64, error) {
	m2 := core.M2(p)
	if m2 >= 0 {
		return math.Sqrt(m2), nil
	}
	if -m2 <= m2Tolerance*p.E()*p.E() {
		return 0, nil
	}
	return 0, &DomainError{Op: "invariant mass", M2: m2}
}

// CenterOfMassEnergy returns the invariant mass of p1+p2.
func CenterOfMassEnergy(p1, p2 core.Vec4) (float64, error) {
	m, err := InvariantMass(core.AddVec4(p1, p2))
	if err != nil {
		return 0, &DomainError{Op: "center-of-mass energy", M2: core.M2(core.AddVec4(p1, p2))}
	}
	return m, nil
}

// BeamVector returns (0, 0, p, sqrt(p² + m²)) for a beam of the given mass
// moving along +z.
func BeamVector(mass, momentum float64) core.Vec4 {
	return core.NewVec4(0, 0, momentum, math.Sqrt(momentum*momentum+mass*mass))
}

// TargetVector returns a target of the given mass at rest.
func TargetVector(mass float64) core.Vec4 {
	return core.NewVec4(0, 0, 0, mass)
}

// LabToCM returns the nucleon-nucleon eCM for a projectile with lab momentum
// labMomentum hitting a stationary target. It uses s = mA² + mB² + 2·EA·mB,
// which avoids the E² - p² cancellation at ultra-relativistic momenta.
func LabToCM(projectile, target core.ParticleSpecies, labMomentum float64) (float64, error) {
	if labMomentum < 0 {
		return 0, fmt.Errorf("kinematics: negative lab momentum %g", labMomentum)
	}
	return FixedTargetCM(projectile.KinematicMass(), target.KinematicMass(), labMomentum), nil
}

// FixedTargetCM returns eCM for a beam of mass mA and momentum p on a
// stationary mass mB.
func FixedTargetCM(mA, mB, p float64) float64 {
	eA := math.Sqrt(p*p + mA*mA)
	return math.Sqrt(mA*mA + mB*mB + 2*eA*mB)
}

// CMToLab inverts LabToCM: it returns the projectile lab momentum giving the
// requested eCM on a stationary target.
func CMToLab(projectile, target core.ParticleSpecies, eCM float64) (float64, error) {
	mA := projectile.KinematicMass()
	mB := target.KinematicMass()
	if mB <= 0 {
		return 0, fmt.Errorf("kinematics: massless target %d", target.ID)
	}
	if eCM < mA+mB {
		return 0, fmt.Errorf("kinematics: eCM %g below threshold %g", eCM, mA+mB)
	}
	eA := (eCM*eCM - mA*mA - mB*mB) / (2 * mB)
	return math.Sqrt(math.Max(eA*eA-mA*mA, 0)), nil
}

// MomentumFraction returns |p| / pBeam.
func MomentumFraction(p core.Vec4, pBeam float64) float64 {
	if pBeam == 0 {
		return 0
	}
	return core.AbsP(p) / pBeam
}
