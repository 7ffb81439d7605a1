// pkg/core/species.go
package core

// ProtonMass is the proton rest mass in GeV. Nuclear beams and targets use it as
// the per-nucleon mass for all kinematics.
const ProtonMass = 0.93827

// NucleusCodeThreshold separates nuclear PDG codes (10LZZZAAAI) from hadron codes.
const NucleusCodeThreshold = 1000000000

// ParticleSpecies is an immutable entry of the species table.
type ParticleSpecies struct {
	ID           int
	Name         string
	Mass         float64
	IsNucleus    bool
	AtomicNumber int // mass number A, 0 for non-nuclei
	ChargeNumber int // Z, 0 for non-nuclei
}

// KinematicMass is the mass used to build beam four-vectors: the per-nucleon
// mass for nuclei, the rest mass otherwise.
func (s ParticleSpecies) KinematicMass() float64 {
	if s.IsNucleus {
		return ProtonMass
	}
	return s.Mass
}

// IsNucleusID reports whether id is a nuclear PDG code.
func IsNucleusID(id int) bool {
	return abs(id) > NucleusCodeThreshold
}

// NucleusA extracts the mass number A from a nuclear PDG code.
func NucleusA(id int) int {
	return (abs(id) / 10) % 1000
}

// NucleusZ extracts the charge number Z from a nuclear PDG code.
func NucleusZ(id int) int {
	return (abs(id) / 10000) % 1000
}

// NucleusID builds the PDG code of a ground-state nucleus.
func NucleusID(z, a int) int {
	return NucleusCodeThreshold + z*10000 + a*10
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
