package stats

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/airshower/varbeam/internal/coordinator"
	"go-hep.org/x/hep/hbook"
)

// Histograms fills the monitoring distributions of the afterburner. Binnings
// follow the classic remnant-correction checks: fractions of the beam
// momentum carried by the full final state, the remnant, the hadronic system
// before and after correction, and the hadronic invariant mass.
type Histograms struct {
	mu sync.Mutex

	RemnantA     *hbook.H1D
	TotalFrac    *hbook.H1D
	RemnantFrac  *hbook.H1D
	HadronicFrac *hbook.H1D
	Corrected    *hbook.H1D
	HadronicMass *hbook.H1D

	path string
}

var _ Sink = (*Histograms)(nil)

// NewHistograms books the histograms. maxA bounds the remnant axis and
// maxMass the hadronic mass axis. A non-empty path is written on Close.
func NewHistograms(maxA int, maxMass float64, path string) *Histograms {
	if maxA < 1 {
		maxA = 50
	}
	if !(maxMass > 0) {
		maxMass = 1000
	}
	book := func(name string, n int, lo, hi float64) *hbook.H1D {
		h := hbook.NewH1D(n, lo, hi)
		h.Annotation()["name"] = name
		return h
	}
	return &Histograms{
		RemnantA:     book("remnant atomic number A", maxA+1, -0.5, float64(maxA)+0.5),
		TotalFrac:    book("momentum fraction full final state, inelastic", 100, 0.8, 1.2),
		RemnantFrac:  book("momentum fraction target remnant", 100, 0, 1),
		HadronicFrac: book("momentum fraction hadronic system", 100, 0.8, 1.2),
		Corrected:    book("momentum fraction after correction", 100, 0.99, 1.01),
		HadronicMass: book("invariant mass hadronic system", 100, 0, maxMass),
		path:         path,
	}
}

// Completed fills one event.
func (h *Histograms) Completed(out *coordinator.Outcome) error {
	res := out.Correction
	h.mu.Lock()
	defer h.mu.Unlock()

	if !res.HasRemnant {
		return nil
	}
	h.RemnantA.Fill(float64(res.RemnantAtomicNumber), 1)
	if !res.Corrected() {
		return nil
	}
	// inelastic events only, before any correction is attempted
	h.TotalFrac.Fill(res.PreCorrectionMomentumFraction, 1)
	if out.Malformed != nil {
		return nil
	}
	h.RemnantFrac.Fill(res.RemnantMomentumFraction, 1)
	h.HadronicFrac.Fill(res.HadronicMomentumFraction, 1)
	h.Corrected.Fill(res.PostCorrectionMomentumFraction, 1)
	h.HadronicMass.Fill(res.HadronicMass, 1)
	return nil
}

// Skipped ignores events without a final state.
func (h *Histograms) Skipped(*coordinator.SwitchError) error { return nil }

func (h *Histograms) all() []*hbook.H1D {
	return []*hbook.H1D{h.RemnantA, h.TotalFrac, h.RemnantFrac, h.HadronicFrac, h.Corrected, h.HadronicMass}
}

// WriteYODA writes every histogram in YODA text format.
func (h *Histograms) WriteYODA(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, hist := range h.all() {
		hist.Annotation()["path"] = fmt.Sprintf("/varbeam/h%d", i)
		raw, err := hist.MarshalYODA()
		if err != nil {
			return fmt.Errorf("encoding %q: %w", hist.Name(), err)
		}
		if _, err := w.Write(raw); err != nil {
			return err
		}
	}
	return nil
}

// Summary returns entries and mean of each histogram, keyed by name.
func (h *Histograms) Summary() map[string][2]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string][2]float64)
	for _, hist := range h.all() {
		mean := math.NaN()
		if hist.Entries() > 0 {
			mean = hist.XMean()
		}
		out[hist.Name()] = [2]float64{float64(hist.Entries()), mean}
	}
	return out
}

// Close writes the histogram file if one was configured.
func (h *Histograms) Close() error {
	if h.path == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := h.WriteYODA(&buf); err != nil {
		return err
	}
	return os.WriteFile(h.path, buf.Bytes(), 0o644)
}
