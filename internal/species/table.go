// Package species holds the static particle table and the catalog of beam and
// target species a run is allowed to use.
package species

import (
	"fmt"
	"math"

	"github.com/airshower/varbeam/pkg/core"
)

// amu is the atomic mass unit in GeV, used for nuclear rest masses.
const amu = 0.9314941

// hadrons maps PDG codes to (name, mass in GeV).
var hadrons = map[int]struct {
	name string
	mass float64
}{
	2212:  {"p", core.ProtonMass},
	-2212: {"pbar", core.ProtonMass},
	2112:  {"n", 0.93957},
	-2112: {"nbar", 0.93957},
	111:   {"pi0", 0.13498},
	211:   {"pi+", 0.13957},
	-211:  {"pi-", 0.13957},
	311:   {"K0", 0.49761},
	321:   {"K+", 0.49368},
	-321:  {"K-", 0.49368},
	130:   {"K0L", 0.49761},
	310:   {"K0S", 0.49761},
	3122:  {"Lambda0", 1.11568},
	3212:  {"Sigma0", 1.19264},
	3222:  {"Sigma+", 1.18937},
	3112:  {"Sigma-", 1.19745},
	3322:  {"Xi0", 1.31486},
	3334:  {"Omega-", 1.67245},
	411:   {"D+", 1.86966},
	421:   {"D0", 1.86484},
	511:   {"B0", 5.27965},
	521:   {"B+", 5.27934},
	22:    {"gamma", 0},
}

// elements gives the symbol for small Z, used only for naming nuclei.
var elements = map[int]string{
	1: "H", 2: "He", 3: "Li", 4: "Be", 5: "B", 6: "C", 7: "N", 8: "O",
	9: "F", 10: "Ne", 11: "Na", 12: "Mg", 13: "Al", 14: "Si", 15: "P",
	16: "S", 17: "Cl", 18: "Ar", 19: "K", 20: "Ca", 26: "Fe",
}

// Lookup resolves a PDG code to its species record. Nuclear codes are decoded
// from the id, so any well-formed nucleus is known.
func Lookup(id int) (core.ParticleSpecies, bool) {
	if h, ok := hadrons[id]; ok {
		return core.ParticleSpecies{ID: id, Name: h.name, Mass: h.mass}, true
	}
	if !core.IsNucleusID(id) || id < 0 {
		return core.ParticleSpecies{}, false
	}
	a := core.NucleusA(id)
	z := core.NucleusZ(id)
	if a == 0 || z > a {
		return core.ParticleSpecies{}, false
	}
	sym, ok := elements[z]
	if !ok {
		sym = fmt.Sprintf("Z%d", z)
	}
	return core.ParticleSpecies{
		ID:           id,
		Name:         fmt.Sprintf("%d%s", a, sym),
		Mass:         math.Round(float64(a)*amu*1e5) / 1e5,
		IsNucleus:    true,
		AtomicNumber: a,
		ChargeNumber: z,
	}, true
}

// MustLookup is Lookup for ids known to be valid, such as compiled-in defaults.
func MustLookup(id int) core.ParticleSpecies {
	s, ok := Lookup(id)
	if !ok {
		panic(fmt.Sprintf("species: unknown PDG code %d", id))
	}
	return s
}
