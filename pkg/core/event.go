// pkg/core/event.go
package core

// ParticleRecord is one entry of a generated event record.
type ParticleRecord struct {
	ID     int
	Status int // > 0 final, < 0 decayed/removed
	P      Vec4
	Mother int // index into Event.Particles, -1 for incoming
}

// IsFinal reports whether the particle is part of the final state.
func (p *ParticleRecord) IsFinal() bool {
	return p.Status > 0
}

// MarkNonFinal flips a final particle to a non-final status, keeping the record.
func (p *ParticleRecord) MarkNonFinal() {
	if p.Status > 0 {
		p.Status = -p.Status
	}
}

// Event is an ordered particle record produced by the collision engine.
type Event struct {
	Particles []ParticleRecord
}

// FinalMomentum sums the four-momenta of all final-state particles.
func (e *Event) FinalMomentum() Vec4 {
	var sum Vec4
	for i := range e.Particles {
		if e.Particles[i].IsFinal() {
			sum = AddVec4(sum, e.Particles[i].P)
		}
	}
	return sum
}

// Clone returns a deep copy of the event record.
func (e *Event) Clone() *Event {
	out := &Event{Particles: make([]ParticleRecord, len(e.Particles))}
	copy(out.Particles, e.Particles)
	return out
}
