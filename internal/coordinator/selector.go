package coordinator

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/airshower/varbeam/internal/queue"
	"github.com/airshower/varbeam/pkg/core"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrExhausted is returned by a selector with no requests left.
var ErrExhausted = errors.New("coordinator: selector exhausted")

// Request is one (projectile, target, energy) triple. Energy is eCM in
// FrameCenterOfMass and the projectile lab momentum in FrameAsymmetric.
type Request struct {
	Projectile int
	Target     int
	Energy     float64
	Frame      core.FrameMode
}

func (r Request) String() string {
	return fmt.Sprintf("%d+%d %s=%.6g", r.Projectile, r.Target, energyLabel(r.Frame), r.Energy)
}

func energyLabel(f core.FrameMode) string {
	if f == core.FrameAsymmetric {
		return "pLab"
	}
	return "eCM"
}

// Selector supplies the next request of a run.
type Selector interface {
	Next() (Request, error)
}

// energySampler draws energies uniformly in [min, max]; min == max is fixed.
type energySampler struct {
	fixed   bool
	value   float64
	uniform distuv.Uniform
}

func newEnergySampler(minE, maxE float64, src rand.Source) (energySampler, error) {
	if !(minE > 0) || maxE < minE {
		return energySampler{}, fmt.Errorf("coordinator: invalid energy interval [%g, %g]", minE, maxE)
	}
	if minE == maxE {
		return energySampler{fixed: true, value: minE}, nil
	}
	return energySampler{uniform: distuv.Uniform{Min: minE, Max: maxE, Src: src}}, nil
}

func (s energySampler) next() float64 {
	if s.fixed {
		return s.value
	}
	return s.uniform.Rand()
}

// RoundRobin cycles over every projectile-target pair, targets fastest:
// event i uses projectiles[(i/len(targets))%len(projectiles)] on
// targets[i%len(targets)].
type RoundRobin struct {
	projectiles []int
	targets     []int
	frame       core.FrameMode
	energy      energySampler
	i           int
}

// NewRoundRobin creates a round-robin selector with energies uniform in
// [minE, maxE].
func NewRoundRobin(projectiles, targets []int, frame core.FrameMode, minE, maxE float64, seed uint64) (*RoundRobin, error) {
	if len(projectiles) == 0 || len(targets) == 0 {
		return nil, fmt.Errorf("coordinator: round-robin needs projectiles and targets")
	}
	energy, err := newEnergySampler(minE, maxE, rand.NewPCG(seed, seed+1))
	if err != nil {
		return nil, err
	}
	return &RoundRobin{
		projectiles: append([]int(nil), projectiles...),
		targets:     append([]int(nil), targets...),
		frame:       frame,
		energy:      energy,
	}, nil
}

// Next never returns ErrExhausted.
func (r *RoundRobin) Next() (Request, error) {
	nt := len(r.targets)
	req := Request{
		Projectile: r.projectiles[(r.i/nt)%len(r.projectiles)],
		Target:     r.targets[r.i%nt],
		Energy:     r.energy.next(),
		Frame:      r.frame,
	}
	r.i++
	return req, nil
}

// RandomUniform picks projectile and target uniformly and the energy
// uniformly in [minE, maxE].
type RandomUniform struct {
	projectiles []int
	targets     []int
	frame       core.FrameMode
	rng         *rand.Rand
	energy      energySampler
}

// NewRandomUniform creates a random selector.
func NewRandomUniform(projectiles, targets []int, frame core.FrameMode, minE, maxE float64, seed uint64) (*RandomUniform, error) {
	if len(projectiles) == 0 || len(targets) == 0 {
		return nil, fmt.Errorf("coordinator: random selector needs projectiles and targets")
	}
	energy, err := newEnergySampler(minE, maxE, rand.NewPCG(seed, seed+1))
	if err != nil {
		return nil, err
	}
	return &RandomUniform{
		projectiles: append([]int(nil), projectiles...),
		targets:     append([]int(nil), targets...),
		frame:       frame,
		rng:         rand.New(rand.NewPCG(seed^0x5bd1e995, seed)),
		energy:      energy,
	}, nil
}

// Next never returns ErrExhausted.
func (r *RandomUniform) Next() (Request, error) {
	return Request{
		Projectile: r.projectiles[r.rng.IntN(len(r.projectiles))],
		Target:     r.targets[r.rng.IntN(len(r.targets))],
		Energy:     r.energy.next(),
		Frame:      r.frame,
	}, nil
}

// FixedList replays a prepared list of requests once.
type FixedList struct {
	q *queue.Queue[Request]
}

// NewFixedList creates a selector over reqs.
func NewFixedList(reqs ...Request) *FixedList {
	return &FixedList{q: queue.New(reqs...)}
}

// Next returns ErrExhausted once the list is consumed.
func (f *FixedList) Next() (Request, error) {
	req, ok := f.q.Pop()
	if !ok {
		return Request{}, ErrExhausted
	}
	return req, nil
}

// Remaining returns the number of requests not yet handed out.
func (f *FixedList) Remaining() int {
	return f.q.Len()
}

// ParseRequest parses "projectile:target:energy".
func ParseRequest(s string, frame core.FrameMode) (Request, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return Request{}, fmt.Errorf("coordinator: request %q: want projectile:target:energy", s)
	}
	proj, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Request{}, fmt.Errorf("coordinator: request %q: projectile: %w", s, err)
	}
	targ, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Request{}, fmt.Errorf("coordinator: request %q: target: %w", s, err)
	}
	energy, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return Request{}, fmt.Errorf("coordinator: request %q: energy: %w", s, err)
	}
	return Request{Projectile: proj, Target: targ, Energy: energy, Frame: frame}, nil
}

// ParseRequests parses a list of "projectile:target:energy" entries.
func ParseRequests(items []string, frame core.FrameMode) ([]Request, error) {
	reqs := make([]Request, 0, len(items))
	for _, item := range items {
		r, err := ParseRequest(item, frame)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}
