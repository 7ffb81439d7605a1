// pkg/core/beam.go
package core

import "fmt"

// FrameMode selects how the collision energy is specified.
type FrameMode int

const (
	// FrameCenterOfMass means Energy is the nucleon-nucleon eCM.
	FrameCenterOfMass FrameMode = iota
	// FrameAsymmetric means EnergyA/EnergyB are the beam and target energies in
	// the lab frame (target at rest).
	FrameAsymmetric
)

func (f FrameMode) String() string {
	switch f {
	case FrameCenterOfMass:
		return "cm"
	case FrameAsymmetric:
		return "asymmetric"
	default:
		return fmt.Sprintf("FrameMode(%d)", int(f))
	}
}

// BeamConfiguration is the validated kinematics of one event. It is built by
// the validator and passed by value, never mutated afterwards.
type BeamConfiguration struct {
	Projectile ParticleSpecies
	Target     ParticleSpecies
	Frame      FrameMode

	// Energy is eCM in FrameCenterOfMass. For FrameAsymmetric it also holds the
	// derived eCM so both frames can be range-checked uniformly.
	Energy float64
	// EnergyA, EnergyB are the lab energies of projectile and target.
	EnergyA float64
	EnergyB float64

	// LabMomentum is the projectile momentum in the target rest frame.
	LabMomentum float64
}

func (c BeamConfiguration) String() string {
	return fmt.Sprintf("%d+%d frame=%s eCM=%.6g pLab=%.6g",
		c.Projectile.ID, c.Target.ID, c.Frame, c.Energy, c.LabMomentum)
}
