package kinematics

import (
	"errors"
	"math"
	"testing"

	"github.com/airshower/varbeam/internal/species"
	"github.com/airshower/varbeam/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenterOfMassEnergy_Symmetric(t *testing.T) {
	p1 := core.NewVec4(0, 0, 3, 5)
	p2 := core.NewVec4(0, 0, -3, 5)

	e, err := CenterOfMassEnergy(p1, p2)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, e, 1e-12)
}

func TestCenterOfMassEnergy_Spacelike(t *testing.T) {
	p1 := core.NewVec4(10, 0, 0, 1)
	p2 := core.NewVec4(0, 0, 0, 1)

	_, err := CenterOfMassEnergy(p1, p2)
	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Less(t, de.M2, 0.0)
}

func TestInvariantMass_ClampsRounding(t *testing.T) {
	// massless vector with a rounding error far below tolerance
	p := core.NewVec4(0, 0, 1e6, 1e6*(1-1e-15))
	m, err := InvariantMass(p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m)
}

func TestLabToCM_MatchesClosedForm(t *testing.T) {
	proton := species.MustLookup(2212)
	nitrogen := species.MustLookup(1000070140)

	for _, p := range []float64{1e2, 1e4, 1e8, 1e12} {
		got, err := LabToCM(proton, nitrogen, p)
		require.NoError(t, err)

		m := core.ProtonMass
		eA := math.Sqrt(p*p + m*m)
		want := math.Sqrt(2*m*m + 2*eA*m)
		assert.InEpsilon(t, want, got, 1e-12, "p=%g", p)
	}
}

func TestLabToCM_NegativeMomentum(t *testing.T) {
	_, err := LabToCM(species.MustLookup(2212), species.MustLookup(2212), -1)
	assert.Error(t, err)
}

func TestCMToLab_RoundTrip(t *testing.T) {
	pion := species.MustLookup(211)
	oxygen := species.MustLookup(1000080160)

	for _, pLab := range []float64{5, 1e3, 1e7} {
		eCM, err := LabToCM(pion, oxygen, pLab)
		require.NoError(t, err)

		back, err := CMToLab(pion, oxygen, eCM)
		require.NoError(t, err)
		assert.InEpsilon(t, pLab, back, 1e-9)
	}
}

func TestCMToLab_BelowThreshold(t *testing.T) {
	_, err := CMToLab(species.MustLookup(2212), species.MustLookup(2212), 1.0)
	assert.ErrorContains(t, err, "below threshold")
}

func TestMomentumFraction(t *testing.T) {
	assert.InDelta(t, 0.5, MomentumFraction(core.NewVec4(0, 3, 4, 10), 10), 1e-12)
	assert.Equal(t, 0.0, MomentumFraction(core.NewVec4(1, 1, 1, 2), 0))
}
