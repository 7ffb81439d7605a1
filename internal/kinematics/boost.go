package kinematics

import (
	"math"

	"github.com/airshower/varbeam/pkg/core"
	"gonum.org/v1/gonum/spatial/r3"
)

// frame is a Lorentz frame given by velocity beta and gamma. gamma is kept
// explicitly (E/m) because 1/sqrt(1-beta²) loses all precision for the
// ultra-relativistic beams of cosmic-ray energies.
type frame struct {
	beta  r3.Vec
	gamma float64
}

func frameOf(p core.Vec4) (frame, error) {
	m2 := core.M2(p)
	if m2 <= 0 || p.E() <= 0 {
		return frame{}, &DomainError{Op: "boost frame", M2: m2}
	}
	return frame{
		beta:  r3.Scale(1/p.E(), r3.Vec{X: p.Px(), Y: p.Py(), Z: p.Pz()}),
		gamma: p.E() / math.Sqrt(m2),
	}, nil
}

func (f frame) inverse() frame {
	return frame{beta: r3.Scale(-1, f.beta), gamma: f.gamma}
}

// boost applies the frame's boost to p.
func (f frame) boost(p core.Vec4) core.Vec4 {
	v := r3.Vec{X: p.Px(), Y: p.Py(), Z: p.Pz()}
	bp := r3.Dot(f.beta, v)
	k := f.gamma * (f.gamma*bp/(1+f.gamma) + p.E())
	out := r3.Add(v, r3.Scale(k, f.beta))
	return core.NewVec4(out.X, out.Y, out.Z, f.gamma*(p.E()+bp))
}

// FrameChange maps four-momenta from the rest frame of one system into the
// frame where that system has a different four-momentum of equal mass.
type FrameChange struct {
	toRest   frame
	fromRest frame
}

// NewFrameChange returns the boost taking from onto to: first into the rest
// frame of from, then out along to. Both must be timelike; the map is exact
// for from only when M(from) == M(to).
func NewFrameChange(from, to core.Vec4) (FrameChange, error) {
	f, err := frameOf(from)
	if err != nil {
		return FrameChange{}, err
	}
	t, err := frameOf(to)
	if err != nil {
		return FrameChange{}, err
	}
	return FrameChange{toRest: f.inverse(), fromRest: t}, nil
}

// Apply transforms p. Invariant masses are preserved.
func (c FrameChange) Apply(p core.Vec4) core.Vec4 {
	return c.fromRest.boost(c.toRest.boost(p))
}

// BoostToRest returns p seen from the rest frame of system.
func BoostToRest(p, system core.Vec4) (core.Vec4, error) {
	f, err := frameOf(system)
	if err != nil {
		return core.Vec4{}, err
	}
	return f.inverse().boost(p), nil
}
