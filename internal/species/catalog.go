package species

import (
	"fmt"
	"slices"

	"github.com/airshower/varbeam/pkg/core"
)

// DefaultProjectiles are the beam species with precomputed cross-section tables.
var DefaultProjectiles = []int{
	2212, -2212, 2112, -2112, 111, 211, -211, 311, 321, -321, 130, 310,
	3122, 3212, 3222, 3112, 3322,
}

// DefaultTargets are the air and hydrogen targets.
var DefaultTargets = []int{2212, 1000060120, 1000070140, 1000080160, 1000180400}

// Catalog is the immutable set of allowed projectiles and targets. It is built
// once at startup and injected wherever species are checked.
type Catalog struct {
	projectiles []core.ParticleSpecies
	targets     []core.ParticleSpecies
	byProj      map[int]core.ParticleSpecies
	byTarg      map[int]core.ParticleSpecies
}

// NewCatalog resolves the given ids against the species table. Duplicates are
// dropped, unknown ids are an error.
func NewCatalog(projectileIDs, targetIDs []int) (*Catalog, error) {
	if len(projectileIDs) == 0 {
		return nil, fmt.Errorf("catalog: no projectiles configured")
	}
	if len(targetIDs) == 0 {
		return nil, fmt.Errorf("catalog: no targets configured")
	}

	c := &Catalog{
		byProj: make(map[int]core.ParticleSpecies, len(projectileIDs)),
		byTarg: make(map[int]core.ParticleSpecies, len(targetIDs)),
	}
	for _, id := range projectileIDs {
		if _, dup := c.byProj[id]; dup {
			continue
		}
		s, ok := Lookup(id)
		if !ok {
			return nil, fmt.Errorf("catalog: unknown projectile id %d", id)
		}
		c.byProj[id] = s
		c.projectiles = append(c.projectiles, s)
	}
	for _, id := range targetIDs {
		if _, dup := c.byTarg[id]; dup {
			continue
		}
		s, ok := Lookup(id)
		if !ok {
			return nil, fmt.Errorf("catalog: unknown target id %d", id)
		}
		c.byTarg[id] = s
		c.targets = append(c.targets, s)
	}
	return c, nil
}

// Default returns the catalog of the standard air-shower setup.
func Default() *Catalog {
	c, err := NewCatalog(DefaultProjectiles, DefaultTargets)
	if err != nil {
		panic(err)
	}
	return c
}

// Projectile returns the projectile species for id.
func (c *Catalog) Projectile(id int) (core.ParticleSpecies, bool) {
	s, ok := c.byProj[id]
	return s, ok
}

// Target returns the target species for id.
func (c *Catalog) Target(id int) (core.ParticleSpecies, bool) {
	s, ok := c.byTarg[id]
	return s, ok
}

// Projectiles returns a copy of the projectile list in configured order.
func (c *Catalog) Projectiles() []core.ParticleSpecies {
	return slices.Clone(c.projectiles)
}

// Targets returns a copy of the target list in configured order.
func (c *Catalog) Targets() []core.ParticleSpecies {
	return slices.Clone(c.targets)
}

// ProjectileIDs returns the projectile ids in configured order.
func (c *Catalog) ProjectileIDs() []int {
	ids := make([]int, len(c.projectiles))
	for i, s := range c.projectiles {
		ids[i] = s.ID
	}
	return ids
}

// TargetIDs returns the target ids in configured order.
func (c *Catalog) TargetIDs() []int {
	ids := make([]int, len(c.targets))
	for i, s := range c.targets {
		ids[i] = s.ID
	}
	return ids
}

// MassRange returns the lightest and heaviest projectile kinematic masses.
func (c *Catalog) MassRange() (lightest, heaviest float64) {
	for i, s := range c.projectiles {
		m := s.KinematicMass()
		if i == 0 || m < lightest {
			lightest = m
		}
		if i == 0 || m > heaviest {
			heaviest = m
		}
	}
	return lightest, heaviest
}
