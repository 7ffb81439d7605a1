// Package synthetic is a deterministic stand-in for the collision generator.
// It reproduces the features the harness depends on: expensive tables keyed by
// the catalog, lab-frame events with a nuclear remnant, and the imperfect
// momentum bookkeeping of the remnant model that the afterburner repairs.
package synthetic

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/airshower/varbeam/internal/engine"
	"github.com/airshower/varbeam/internal/kinematics"
	"github.com/airshower/varbeam/internal/tabulation"
	"github.com/airshower/varbeam/pkg/core"
)

const (
	pionMass        = 0.13957
	maxViolation    = 0.08 // largest relative loss of longitudinal momentum
	fermiMomentum   = 0.25
	defaultElastic  = 0.1
	statusBeam      = -12
	statusHadron    = 91
	statusRemnant   = 1
	statusScattered = 1
)

// RemnantFunc chooses the remnant mass number of event index for target. It
// lets tests force elastic or inelastic events.
type RemnantFunc func(index int, target core.ParticleSpecies, rng *rand.Rand) int

// Options configures the engine.
type Options struct {
	Seed            uint64
	ElasticFraction float64 // probability of an elastic event on nuclear targets
	Remnant         RemnantFunc
}

// Engine implements engine.CollisionEngine.
type Engine struct {
	opts Options

	mu     sync.Mutex
	rng    *rand.Rand
	tables *tabulation.Entry
	fits   map[[2]int]SigmaFit
	events int
}

var _ engine.CollisionEngine = (*Engine)(nil)

// New creates an engine. Two engines with the same options produce identical
// event sequences.
func New(opts Options) *Engine {
	if opts.ElasticFraction <= 0 {
		opts.ElasticFraction = defaultElastic
	}
	return &Engine{
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}
}

// Initialize computes the MPI, SaSD MPI and cross-section fit tables for spec.
func (e *Engine) Initialize(ctx context.Context, spec tabulation.Spec) (*tabulation.Entry, error) {
	spec = spec.Canonical()
	fail := func(err error) (*tabulation.Entry, error) {
		return nil, &engine.InitError{Fingerprint: spec.Fingerprint(), Err: err}
	}
	if err := spec.Validate(); err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	grid := spec.Grid()
	sigFit, err := fitCrossSections(spec)
	if err != nil {
		return fail(err)
	}
	return tabulation.NewEntry(spec,
		mpiTable(grid, pT0Ref, ecmPow),
		mpiTable(grid, sasdPT0Ref, sasdEcmPow),
		sigFit,
	), nil
}

// UseTables installs entry after checking that its sections are readable.
func (e *Engine) UseTables(entry *tabulation.Entry) error {
	if entry == nil {
		return fmt.Errorf("synthetic: nil table entry")
	}
	if _, err := readMPITable(entry.MPITable); err != nil {
		return err
	}
	if _, err := readMPITable(entry.SasdMPITable); err != nil {
		return err
	}
	var table sigFitTable
	if err := json.Unmarshal(entry.SigFitTable, &table); err != nil {
		return fmt.Errorf("synthetic: unreadable cross-section fit table: %w", err)
	}

	fits := make(map[[2]int]SigmaFit, len(table.Fits))
	for _, f := range table.Fits {
		fits[[2]int{f.Projectile, f.Target}] = f
	}

	e.mu.Lock()
	e.tables = entry
	e.fits = fits
	e.mu.Unlock()
	return nil
}

// CrossSection returns the fitted inelastic cross section in mb.
func (e *Engine) CrossSection(projectile, target int, pLab float64) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.fits[[2]int{projectile, target}]
	if !ok {
		return 0, false
	}
	return f.Sigma(pLab), true
}

// Generate produces one lab-frame event for cfg.
func (e *Engine) Generate(ctx context.Context, cfg core.BeamConfiguration) (*core.Event, error) {
	fail := func(format string, args ...any) (*core.Event, error) {
		return nil, &engine.GenerationError{Config: cfg, Err: fmt.Errorf(format, args...)}
	}
	if err := ctx.Err(); err != nil {
		return nil, &engine.GenerationError{Config: cfg, Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tables == nil {
		return fail("no tables installed")
	}
	if _, ok := e.fits[[2]int{cfg.Projectile.ID, cfg.Target.ID}]; !ok {
		return fail("pair %d+%d not tabulated", cfg.Projectile.ID, cfg.Target.ID)
	}
	if spec := e.tables.Spec; cfg.Energy < spec.MinCM || cfg.Energy > spec.MaxCM {
		return fail("eCM %g outside tabulated range [%g, %g]", cfg.Energy, spec.MinCM, spec.MaxCM)
	}

	index := e.events
	e.events++
	return e.generate(index, cfg)
}

func (e *Engine) generate(index int, cfg core.BeamConfiguration) (*core.Event, error) {
	pBeam := cfg.LabMomentum
	mA := cfg.Projectile.KinematicMass()
	mN := core.ProtonMass
	beam := kinematics.BeamVector(mA, pBeam)

	ev := &core.Event{Particles: []core.ParticleRecord{
		{ID: cfg.Projectile.ID, Status: statusBeam, P: beam, Mother: -1},
		{ID: cfg.Target.ID, Status: statusBeam, P: kinematics.TargetVector(cfg.Target.Mass), Mother: -1},
	}}

	if !cfg.Target.IsNucleus {
		// free nucleon target: exact conservation, no remnant
		if err := e.fragment(ev, core.AddVec4(beam, kinematics.TargetVector(mN))); err != nil {
			return nil, &engine.GenerationError{Config: cfg, Err: err}
		}
		return ev, nil
	}

	targetA := cfg.Target.AtomicNumber
	remA := e.remnantA(index, cfg.Target)
	if remA < 1 || remA > targetA {
		return nil, &engine.GenerationError{Config: cfg, Err: fmt.Errorf("remnant mass number %d outside [1, %d]", remA, targetA)}
	}

	if remA == targetA {
		// elastic: the beam particle scatters with a small transverse kick
		qx, qy := e.gauss(0.3), e.gauss(0.3)
		pz := math.Sqrt(math.Max(pBeam*pBeam-qx*qx-qy*qy, 0))
		ev.Particles = append(ev.Particles,
			core.ParticleRecord{ID: cfg.Projectile.ID, Status: statusScattered, P: onShell(qx, qy, pz, mA), Mother: 0},
			core.ParticleRecord{ID: cfg.Target.ID, Status: statusRemnant, P: onShell(-qx, -qy, pBeam-pz, cfg.Target.Mass), Mother: 1},
		)
		return ev, nil
	}

	struck := targetA - remA
	violation := e.rng.Float64() * maxViolation
	hadE := beam.E() + float64(struck)*mN
	pz := pBeam * (1 - violation)
	qT := 0.1 * math.Sqrt(violation) * pBeam * e.rng.Float64()
	phi := 2 * math.Pi * e.rng.Float64()
	hadronic := core.NewVec4(qT*math.Cos(phi), qT*math.Sin(phi), pz, hadE)

	if err := e.fragment(ev, hadronic); err != nil {
		return nil, &engine.GenerationError{Config: cfg, Err: err}
	}

	z := int(math.Round(float64(remA) * float64(cfg.Target.ChargeNumber) / float64(targetA)))
	ev.Particles = append(ev.Particles, core.ParticleRecord{
		ID:     core.NucleusID(z, remA),
		Status: statusRemnant,
		P:      onShell(e.gauss(fermiMomentum), e.gauss(fermiMomentum), e.gauss(fermiMomentum), float64(remA)*mN),
		Mother: 1,
	})
	return ev, nil
}

func (e *Engine) remnantA(index int, target core.ParticleSpecies) int {
	if e.opts.Remnant != nil {
		return e.opts.Remnant(index, target, e.rng)
	}
	if e.rng.Float64() < e.opts.ElasticFraction {
		return target.AtomicNumber
	}
	// knock out between one and a quarter of the nucleons
	maxStruck := max(1, target.AtomicNumber/4)
	return target.AtomicNumber - 1 - e.rng.IntN(maxStruck)
}

// fragment splits system into pions. Pairs are produced back to back in the
// rest frame and boosted out, so the pions sum to system exactly.
func (e *Engine) fragment(ev *core.Event, system core.Vec4) error {
	m2 := core.M2(system)
	if m2 <= 0 {
		return fmt.Errorf("spacelike hadronic system (m2=%g)", m2)
	}
	m := math.Sqrt(m2)
	pairs := 1 + e.rng.IntN(6)
	for pairs > 1 && m/float64(2*pairs) <= pionMass {
		pairs--
	}
	if m/2 <= pionMass {
		return fmt.Errorf("hadronic mass %g below two-pion threshold", m)
	}

	fc, err := kinematics.NewFrameChange(core.NewVec4(0, 0, 0, m), system)
	if err != nil {
		return err
	}

	eEach := m / float64(2*pairs)
	pEach := math.Sqrt(eEach*eEach - pionMass*pionMass)
	for i := 0; i < pairs; i++ {
		cosT := 2*e.rng.Float64() - 1
		sinT := math.Sqrt(1 - cosT*cosT)
		phi := 2 * math.Pi * e.rng.Float64()
		dx, dy, dz := pEach*sinT*math.Cos(phi), pEach*sinT*math.Sin(phi), pEach*cosT
		ev.Particles = append(ev.Particles,
			core.ParticleRecord{ID: 211, Status: statusHadron, P: fc.Apply(core.NewVec4(dx, dy, dz, eEach)), Mother: 0},
			core.ParticleRecord{ID: -211, Status: statusHadron, P: fc.Apply(core.NewVec4(-dx, -dy, -dz, eEach)), Mother: 0},
		)
	}
	return nil
}

func (e *Engine) gauss(sigma float64) float64 {
	return sigma * e.rng.NormFloat64()
}

func onShell(px, py, pz, m float64) core.Vec4 {
	return core.NewVec4(px, py, pz, math.Sqrt(px*px+py*py+pz*pz+m*m))
}
