// pkg/core/correction.go
package core

// CorrectionResult is the afterburner's per-event report.
type CorrectionResult struct {
	HasRemnant          bool
	IsElastic           bool
	RemnantAtomicNumber int

	// |p_total| / pBeam before and after the correction.
	PreCorrectionMomentumFraction  float64
	PostCorrectionMomentumFraction float64

	// Monitoring quantities of the inelastic branch.
	RemnantMomentumFraction  float64
	HadronicMomentumFraction float64
	HadronicMass             float64
}

// Corrected reports whether a boost was applied.
func (r CorrectionResult) Corrected() bool {
	return r.HasRemnant && !r.IsElastic
}
