// pkg/core/vec.go
package core

import (
	"math"

	"go-hep.org/x/hep/fmom"
)

// Vec4 is a (px, py, pz, E) four-momentum in GeV.
type Vec4 = fmom.PxPyPzE

// NewVec4 builds a four-momentum from its components.
func NewVec4(px, py, pz, e float64) Vec4 {
	return fmom.NewPxPyPzE(px, py, pz, e)
}

// AddVec4 returns a+b.
func AddVec4(a, b Vec4) Vec4 {
	fmom.IAdd(&a, &b)
	return a
}

// SubVec4 returns a-b.
func SubVec4(a, b Vec4) Vec4 {
	fmom.IAdd(&a, fmom.Scale(-1, &b))
	return a
}

// AbsP returns the three-momentum magnitude |p|. Unlike fmom's P it ignores
// the sign of E.
func AbsP(p Vec4) float64 {
	return math.Sqrt(p.P2())
}

// M2 returns the invariant mass squared E² - |p|². It can be negative for
// malformed or numerically degenerate vectors.
func M2(p Vec4) float64 {
	return p.M2()
}
