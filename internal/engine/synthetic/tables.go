package synthetic

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/airshower/varbeam/internal/kinematics"
	"github.com/airshower/varbeam/internal/species"
	"github.com/airshower/varbeam/internal/tabulation"
	"gonum.org/v1/gonum/stat"
)

// Regularisation of the multiparton-interaction cross section,
// pT0(eCM) = pT0Ref * (eCM/ecmRef)^ecmPow.
const (
	ecmRef        = 7000.0
	pT0Ref        = 2.28
	ecmPow        = 0.215
	sasdPT0Ref    = 1.85
	sasdEcmPow    = 0.19
	mpiTableMagic = uint32(0x4d504931) // "MPI1"
)

// mpiTable samples pT0 on the energy grid: magic, count, then (eCM, pT0) pairs,
// all little-endian.
func mpiTable(grid []float64, ref, pow float64) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, mpiTableMagic)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(grid)))
	for _, e := range grid {
		_ = binary.Write(&buf, binary.LittleEndian, e)
		_ = binary.Write(&buf, binary.LittleEndian, ref*math.Pow(e/ecmRef, pow))
	}
	return buf.Bytes()
}

// readMPITable decodes a table written by mpiTable.
func readMPITable(data []byte) ([][2]float64, error) {
	r := bytes.NewReader(data)
	var magic, n uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil || magic != mpiTableMagic {
		return nil, fmt.Errorf("synthetic: bad MPI table header")
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if int(n)*16 != r.Len() {
		return nil, fmt.Errorf("synthetic: MPI table size mismatch")
	}
	out := make([][2]float64, n)
	for i := range out {
		if err := binary.Read(r, binary.LittleEndian, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SigmaFit is a power-law fit log10(sigma/mb) = Alpha + Beta*log10(pLab/GeV)
// for one projectile-target pair.
type SigmaFit struct {
	Projectile int     `json:"projectile"`
	Target     int     `json:"target"`
	Alpha      float64 `json:"alpha"`
	Beta       float64 `json:"beta"`
	PLabMin    float64 `json:"pLabMin"`
	PLabMax    float64 `json:"pLabMax"`
}

// Sigma evaluates the fit in mb.
func (f SigmaFit) Sigma(pLab float64) float64 {
	return math.Pow(10, f.Alpha+f.Beta*math.Log10(pLab))
}

type sigFitTable struct {
	Fits []SigmaFit `json:"fits"`
}

// sigmaInel is a Donnachie-Landshoff style parametrisation of the inelastic
// nucleon-nucleon cross section in mb, scaled by A^(2/3) for nuclear targets
// and by 2/3 for meson projectiles.
func sigmaInel(projectile, target int, eCM float64) float64 {
	s := eCM * eCM
	sigma := 0.8 * (21.7*math.Pow(s, 0.0808) + 56.08*math.Pow(s, -0.4525))
	if abs(projectile) < 1000 {
		sigma *= 2.0 / 3.0
	}
	if t, ok := species.Lookup(target); ok && t.IsNucleus {
		sigma *= math.Pow(float64(t.AtomicNumber), 2.0/3.0)
	}
	return sigma
}

// fitCrossSections fits sigmaInel over the grid for every pair in spec.
func fitCrossSections(spec tabulation.Spec) ([]byte, error) {
	grid := spec.Grid()
	var table sigFitTable
	for _, pid := range spec.Projectiles {
		proj, ok := species.Lookup(pid)
		if !ok {
			return nil, fmt.Errorf("synthetic: unknown projectile %d", pid)
		}
		for _, tid := range spec.Targets {
			targ, ok := species.Lookup(tid)
			if !ok {
				return nil, fmt.Errorf("synthetic: unknown target %d", tid)
			}

			var xs, ys []float64
			for _, eCM := range grid {
				pLab, err := kinematics.CMToLab(proj, targ, eCM)
				if err != nil || pLab <= 0 {
					continue
				}
				xs = append(xs, math.Log10(pLab))
				ys = append(ys, math.Log10(sigmaInel(pid, tid, eCM)))
			}
			if len(xs) < 2 {
				return nil, fmt.Errorf("synthetic: too few grid points above threshold for %d+%d", pid, tid)
			}

			alpha, beta := stat.LinearRegression(xs, ys, nil, false)
			table.Fits = append(table.Fits, SigmaFit{
				Projectile: pid,
				Target:     tid,
				Alpha:      alpha,
				Beta:       beta,
				PLabMin:    math.Pow(10, xs[0]),
				PLabMax:    math.Pow(10, xs[len(xs)-1]),
			})
		}
	}
	return json.Marshal(table)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
