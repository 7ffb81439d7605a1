// Package afterburner repairs the momentum bookkeeping of events generated
// with an approximate nuclear-remnant model. The remnant pseudo-particle is
// taken out of the final state and the remaining hadronic system is boosted
// so that its three-momentum points along the beam with the beam momentum.
package afterburner

import (
	"fmt"
	"math"

	"github.com/airshower/varbeam/internal/kinematics"
	"github.com/airshower/varbeam/pkg/core"
)

// MalformedEventError marks an event that cannot be corrected. The event is
// left exactly as generated.
type MalformedEventError struct {
	Reason string
	M2     float64
}

func (e *MalformedEventError) Error() string {
	if e.M2 != 0 {
		return fmt.Sprintf("afterburner: malformed event: %s (m2=%g)", e.Reason, e.M2)
	}
	return "afterburner: malformed event: " + e.Reason
}

// Correct classifies ev against target and, for inelastic events, boosts the
// hadronic final state back onto the beam axis with momentum pBeam (lab frame,
// target at rest). The remnant record is kept but marked non-final.
func Correct(ev *core.Event, target core.ParticleSpecies, pBeam float64) (core.CorrectionResult, error) {
	var res core.CorrectionResult
	if ev == nil {
		return res, &MalformedEventError{Reason: "nil event"}
	}
	if pBeam <= 0 || math.IsNaN(pBeam) {
		return res, &MalformedEventError{Reason: fmt.Sprintf("beam momentum %g", pBeam)}
	}

	total := ev.FinalMomentum()
	res.PreCorrectionMomentumFraction = kinematics.MomentumFraction(total, pBeam)
	res.PostCorrectionMomentumFraction = res.PreCorrectionMomentumFraction

	// A nuclear projectile survives elastic scattering as a final nucleus of
	// its own, so only nuclei descending from the target record count.
	targetRec := targetRecord(ev)
	remnant := -1
	for i := range ev.Particles {
		p := &ev.Particles[i]
		if !p.IsFinal() || !core.IsNucleusID(p.ID) {
			continue
		}
		if targetRec >= 0 && !descendsFrom(ev, i, targetRec) {
			continue
		}
		if remnant >= 0 {
			return res, &MalformedEventError{Reason: fmt.Sprintf("multiple remnant candidates at %d and %d", remnant, i)}
		}
		remnant = i
	}
	if remnant < 0 {
		return res, nil
	}

	rem := &ev.Particles[remnant]
	res.HasRemnant = true
	res.RemnantAtomicNumber = core.NucleusA(rem.ID)
	res.RemnantMomentumFraction = kinematics.MomentumFraction(rem.P, pBeam)

	if target.IsNucleus && res.RemnantAtomicNumber == target.AtomicNumber {
		res.IsElastic = true
		return res, nil
	}

	hadronic := core.SubVec4(total, rem.P)
	m2 := core.M2(hadronic)
	res.HadronicMomentumFraction = kinematics.MomentumFraction(hadronic, pBeam)
	if m2 <= 0 {
		return res, &MalformedEventError{Reason: "hadronic system is not timelike", M2: m2}
	}
	res.HadronicMass = math.Sqrt(m2)

	want := core.NewVec4(0, 0, pBeam, math.Sqrt(pBeam*pBeam+m2))
	fc, err := kinematics.NewFrameChange(hadronic, want)
	if err != nil {
		return res, &MalformedEventError{Reason: err.Error(), M2: m2}
	}

	rem.MarkNonFinal()
	for i := range ev.Particles {
		if p := &ev.Particles[i]; p.IsFinal() {
			p.P = fc.Apply(p.P)
		}
	}

	res.PostCorrectionMomentumFraction = kinematics.MomentumFraction(ev.FinalMomentum(), pBeam)
	return res, nil
}

// targetRecord returns the index of the last incoming record, or -1 when the
// event carries no incoming records.
func targetRecord(ev *core.Event) int {
	idx := -1
	for i := range ev.Particles {
		if ev.Particles[i].Mother < 0 {
			idx = i
		}
	}
	return idx
}

// descendsFrom follows the mother chain of particle i up to an incoming record.
func descendsFrom(ev *core.Event, i, ancestor int) bool {
	j := ev.Particles[i].Mother
	for steps := 0; j >= 0 && j < len(ev.Particles) && steps < len(ev.Particles); steps++ {
		if j == ancestor {
			return true
		}
		j = ev.Particles[j].Mother
	}
	return false
}
