// Package tabulation persists the expensive engine initialization tables and
// reloads them by fingerprint.
package tabulation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

const fingerprintVersion = "varbeam-tabulation/v1"

// Spec is everything that determines the content of a table set: the species
// catalog, the center-of-mass energy span and the number of grid points.
type Spec struct {
	Projectiles  []int   `json:"projectiles"`
	Targets      []int   `json:"targets"`
	MinCM        float64 `json:"minCM"`
	MaxCM        float64 `json:"maxCM"`
	SamplePoints int     `json:"samplePoints"`
}

// Canonical returns a copy with sorted, de-duplicated id lists.
func (s Spec) Canonical() Spec {
	return Spec{
		Projectiles:  sortedUnique(s.Projectiles),
		Targets:      sortedUnique(s.Targets),
		MinCM:        s.MinCM,
		MaxCM:        s.MaxCM,
		SamplePoints: s.SamplePoints,
	}
}

// Validate reports specs no engine could tabulate.
func (s Spec) Validate() error {
	switch {
	case len(s.Projectiles) == 0:
		return fmt.Errorf("tabulation: no projectiles")
	case len(s.Targets) == 0:
		return fmt.Errorf("tabulation: no targets")
	case math.IsNaN(s.MinCM) || math.IsNaN(s.MaxCM) || math.IsInf(s.MinCM, 0) || math.IsInf(s.MaxCM, 0):
		return fmt.Errorf("tabulation: energy bounds must be finite")
	case s.MinCM <= 0 || s.MaxCM < s.MinCM:
		return fmt.Errorf("tabulation: invalid energy range [%g, %g]", s.MinCM, s.MaxCM)
	case s.SamplePoints < 2:
		return fmt.Errorf("tabulation: need at least 2 sample points, got %d", s.SamplePoints)
	}
	return nil
}

// Fingerprint is the hex SHA-256 of the canonical encoding. Catalog order does
// not matter; any change of species, bounds or sample count changes it.
func (s Spec) Fingerprint() string {
	c := s.Canonical()
	var b strings.Builder
	b.WriteString(fingerprintVersion)
	b.WriteString("\nprojectiles=")
	writeInts(&b, c.Projectiles)
	b.WriteString("\ntargets=")
	writeInts(&b, c.Targets)
	b.WriteString("\nminCM=")
	b.WriteString(strconv.FormatFloat(c.MinCM, 'g', -1, 64))
	b.WriteString("\nmaxCM=")
	b.WriteString(strconv.FormatFloat(c.MaxCM, 'g', -1, 64))
	b.WriteString("\nsamples=")
	b.WriteString(strconv.Itoa(c.SamplePoints))
	b.WriteByte('\n')

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Grid returns SamplePoints energies spaced logarithmically over [MinCM, MaxCM].
func (s Spec) Grid() []float64 {
	if s.SamplePoints < 2 || s.MinCM <= 0 {
		return nil
	}
	lo, hi := math.Log10(s.MinCM), math.Log10(s.MaxCM)
	step := (hi - lo) / float64(s.SamplePoints-1)
	grid := make([]float64, s.SamplePoints)
	for i := range grid {
		grid[i] = math.Pow(10, lo+float64(i)*step)
	}
	grid[0], grid[len(grid)-1] = s.MinCM, s.MaxCM
	return grid
}

func (s Spec) String() string {
	return fmt.Sprintf("%d projectiles x %d targets, eCM [%g, %g] GeV, %d points",
		len(s.Projectiles), len(s.Targets), s.MinCM, s.MaxCM, s.SamplePoints)
}

func writeInts(b *strings.Builder, ids []int) {
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
}

func sortedUnique(ids []int) []int {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
