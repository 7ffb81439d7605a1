package kinematics

import (
	"math"
	"testing"

	"github.com/airshower/varbeam/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func massOf(t *testing.T, p core.Vec4) float64 {
	t.Helper()
	m, err := InvariantMass(p)
	require.NoError(t, err)
	return m
}

func TestBoostToRest_SystemAtRest(t *testing.T) {
	sys := core.NewVec4(3, -4, 12, 20)

	rest, err := BoostToRest(sys, sys)
	require.NoError(t, err)
	assert.InDelta(t, 0, rest.Px(), 1e-12)
	assert.InDelta(t, 0, rest.Py(), 1e-12)
	assert.InDelta(t, 0, rest.Pz(), 1e-12)
	assert.InDelta(t, massOf(t, sys), rest.E(), 1e-12)
}

func TestFrameChange_MapsSourceOntoTarget(t *testing.T) {
	from := core.NewVec4(30, 10, 90, 100)
	m := massOf(t, from)
	pBeam := 100.0
	to := core.NewVec4(0, 0, pBeam, math.Sqrt(pBeam*pBeam+m*m))

	fc, err := NewFrameChange(from, to)
	require.NoError(t, err)

	got := fc.Apply(from)
	assert.InDelta(t, 0, got.Px(), 1e-9)
	assert.InDelta(t, 0, got.Py(), 1e-9)
	assert.InDelta(t, pBeam, got.Pz(), 1e-9)
	assert.InDelta(t, to.E(), got.E(), 1e-9)
}

func TestFrameChange_PreservesMassAndSum(t *testing.T) {
	parts := []core.Vec4{
		core.NewVec4(1, 2, 30, math.Sqrt(1+4+900+0.14*0.14)),
		core.NewVec4(-0.5, 0.3, 45, math.Sqrt(0.25+0.09+2025+0.94*0.94)),
		core.NewVec4(0.2, -1.1, 12, math.Sqrt(0.04+1.21+144+0.49*0.49)),
	}
	var sum core.Vec4
	for _, p := range parts {
		sum = core.AddVec4(sum, p)
	}
	m := massOf(t, sum)
	to := core.NewVec4(0, 0, 200, math.Sqrt(200*200+m*m))

	fc, err := NewFrameChange(sum, to)
	require.NoError(t, err)

	var out core.Vec4
	for _, p := range parts {
		q := fc.Apply(p)
		assert.InEpsilon(t, massOf(t, p), massOf(t, q), 1e-9)
		out = core.AddVec4(out, q)
	}
	assert.InDelta(t, to.Pz(), out.Pz(), 1e-9)
	assert.InDelta(t, 0, out.Px(), 1e-9)
	assert.InDelta(t, m, massOf(t, out), 1e-9)
}

func TestFrameChange_UltraRelativistic(t *testing.T) {
	// gamma = 1e6. E² - p² of the beam vector keeps only about gamma²·eps of
	// relative precision, so the source system sits at rest with an exact mass.
	m, pBeam := 1e6, 1e12
	from := core.NewVec4(0, 0, 0, m)
	to := core.NewVec4(0, 0, pBeam, math.Sqrt(pBeam*pBeam+m*m))

	fc, err := NewFrameChange(from, to)
	require.NoError(t, err)
	got := fc.Apply(from)
	assert.False(t, math.IsNaN(got.Pz()) || math.IsInf(got.Pz(), 0))
	assert.False(t, math.IsNaN(got.E()) || math.IsInf(got.E(), 0))

	tol := 10 * (pBeam / m) * (pBeam / m) * 0x1p-52
	assert.InEpsilon(t, pBeam, got.Pz(), tol)
	assert.InEpsilon(t, to.E(), got.E(), tol)
	assert.Equal(t, 0.0, got.Px())
}

func TestFrameChange_ExactBeamMass(t *testing.T) {
	// 14000² + 48999999² == 49000001² holds exactly in float64
	from := core.NewVec4(0, 0, 0, 14000)
	to := core.NewVec4(0, 0, 48999999, 49000001)
	require.Equal(t, 14000.0*14000.0, core.M2(to))

	fc, err := NewFrameChange(from, to)
	require.NoError(t, err)
	got := fc.Apply(from)
	assert.InEpsilon(t, to.Pz(), got.Pz(), 1e-12)
	assert.InEpsilon(t, to.E(), got.E(), 1e-12)

	back, err := NewFrameChange(to, from)
	require.NoError(t, err)
	rest := back.Apply(got)
	assert.InEpsilon(t, 14000.0, rest.E(), 1e-6)
	assert.InDelta(t, 0, rest.Pz(), 1e-9*to.E())
}

func TestFrameChange_RejectsLightlike(t *testing.T) {
	_, err := NewFrameChange(core.NewVec4(0, 0, 5, 5), core.NewVec4(0, 0, 1, 2))
	var de *DomainError
	assert.ErrorAs(t, err, &de)

	_, err = BoostToRest(core.NewVec4(1, 0, 0, 1), core.NewVec4(3, 0, 0, 1))
	assert.ErrorAs(t, err, &de)
}
