// Package collision builds the local collision operators of the lattice gas
// encodings. Collision mixes the velocity configurations of a grid point that
// share mass and momentum, called equivalence classes.
package collision

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"qlbmcirq/internal/config"
)

// Discretization is a DdQq velocity set.
type Discretization struct {
	Dims       int
	Velocities int
}

var (
	D1Q2 = Discretization{Dims: 1, Velocities: 2}
	D2Q4 = Discretization{Dims: 2, Velocities: 4}
)

// ParseDiscretization accepts the "DdQq" form used in specifications.
func ParseDiscretization(s string) (Discretization, error) {
	dims, velocities, err := config.ParseDiscretization(s)
	if err != nil {
		return Discretization{}, err
	}
	d := Discretization{Dims: dims, Velocities: velocities}
	if d != D1Q2 && d != D2Q4 {
		return Discretization{}, fmt.Errorf("discretization %s is not supported, supported discretizations are [D1Q2 D2Q4]", d)
	}
	return d, nil
}

func (d Discretization) String() string {
	return fmt.Sprintf("D%dQ%d", d.Dims, d.Velocities)
}

// Vectors returns the velocity of each channel. D2Q4 channels are ordered
// +x, +y, -x, -y so that channel c and c+2 are opposite.
func (d Discretization) Vectors() [][]int {
	switch d {
	case D1Q2:
		return [][]int{{1}, {-1}}
	case D2Q4:
		return [][]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	}
	return nil
}

// EquivalenceClass is a set of at least two velocity configurations with the
// same mass and momentum. Configuration bit c is channel c.
type EquivalenceClass struct {
	Discretization Discretization
	Configurations []uint
	Mass           int
	Momentum       []int
}

func moments(d Discretization, cfg uint) (int, []int) {
	mass := 0
	momentum := make([]int, d.Dims)
	for c, v := range d.Vectors() {
		if cfg>>c&1 == 0 {
			continue
		}
		mass++
		for i := range v {
			momentum[i] += v[i]
		}
	}
	return mass, momentum
}

// NewEquivalenceClass validates that cfgs share mass and momentum.
func NewEquivalenceClass(d Discretization, cfgs []uint) (*EquivalenceClass, error) {
	if len(cfgs) < 2 {
		return nil, fmt.Errorf("equivalence class needs at least two configurations, got %d", len(cfgs))
	}
	if d.Vectors() == nil {
		return nil, fmt.Errorf("discretization %s is not supported", d)
	}
	e := &EquivalenceClass{Discretization: d, Configurations: slices.Sorted(slices.Values(cfgs))}
	e.Mass, e.Momentum = moments(d, e.Configurations[0])
	for _, cfg := range e.Configurations {
		if cfg >= 1<<d.Velocities {
			return nil, fmt.Errorf("configuration %b has more than %d channels", cfg, d.Velocities)
		}
		m, p := moments(d, cfg)
		if m != e.Mass {
			return nil, fmt.Errorf("configurations %s have different masses", e)
		}
		if !slices.Equal(p, e.Momentum) {
			return nil, fmt.Errorf("configurations %s have different momenta", e)
		}
	}
	return e, nil
}

func (e *EquivalenceClass) Size() int { return len(e.Configurations) }

// Bitstrings renders each configuration with channel 0 first.
func (e *EquivalenceClass) Bitstrings() []string {
	out := make([]string, len(e.Configurations))
	for i, cfg := range e.Configurations {
		var b strings.Builder
		for c := range e.Discretization.Velocities {
			b.WriteByte('0' + byte(cfg>>c&1))
		}
		out[i] = b.String()
	}
	return out
}

func (e *EquivalenceClass) String() string {
	return "{" + strings.Join(e.Bitstrings(), " ") + "}"
}

// EquivalenceClasses enumerates every class of d, ordered by mass and then
// momentum.
func EquivalenceClasses(d Discretization) ([]*EquivalenceClass, error) {
	if d.Vectors() == nil {
		return nil, fmt.Errorf("discretization %s is not supported", d)
	}
	groups := map[string][]uint{}
	var keys []string
	for cfg := range uint(1) << d.Velocities {
		m, p := moments(d, cfg)
		k := fmt.Sprint(m, p)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], cfg)
	}
	var out []*EquivalenceClass
	for _, k := range keys {
		if len(groups[k]) < 2 {
			continue
		}
		e, err := NewEquivalenceClass(d, groups[k])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *EquivalenceClass) int {
		if c := cmp.Compare(a.Mass, b.Mass); c != 0 {
			return c
		}
		return slices.Compare(a.Momentum, b.Momentum)
	})
	return out, nil
}
