package config

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
)

// Axes lists the supported axis names in dimension order.
var Axes = []string{"x", "y", "z"}

// Spec is the root simulation specification.
type Spec struct {
	Lattice  LatticeSpec     `json:"lattice"`
	Geometry []GeometryEntry `json:"geometry,omitempty"`
	Run      *RunConfig      `json:"run,omitempty"`
}

// LatticeSpec describes the grid and its velocity discretization. Velocities
// is either a per-axis object ({"x": 4, "y": 4}) or a DdQq string ("D2Q4")
// for the space-time encoding.
type LatticeSpec struct {
	Dim            map[string]int `json:"dim"`
	Velocities     map[string]int `json:"-"`
	Discretization string         `json:"-"`
}

var discretizationRegex = regexp.MustCompile(`^D(\d)Q(\d+)$`)

type latticeWire struct {
	Dim        map[string]int  `json:"dim"`
	Velocities json.RawMessage `json:"velocities"`
}

// UnmarshalJSON accepts both velocity forms.
func (l *LatticeSpec) UnmarshalJSON(data []byte) error {
	var w latticeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	l.Dim = w.Dim
	l.Velocities = nil
	l.Discretization = ""
	if len(w.Velocities) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(w.Velocities, &s); err == nil {
		l.Discretization = s
		return nil
	}
	if err := json.Unmarshal(w.Velocities, &l.Velocities); err != nil {
		return fmt.Errorf("velocities must be an axis object or a DdQq string: %w", err)
	}
	return nil
}

// MarshalJSON writes whichever velocity form is set.
func (l LatticeSpec) MarshalJSON() ([]byte, error) {
	var vel interface{} = l.Velocities
	if l.Discretization != "" {
		vel = l.Discretization
	}
	return json.Marshal(struct {
		Dim        map[string]int `json:"dim"`
		Velocities interface{}    `json:"velocities"`
	}{l.Dim, vel})
}

// NumDims returns the number of axes named in dim.
func (l LatticeSpec) NumDims() int {
	return len(l.Dim)
}

// ParseDiscretization splits a "DdQq" string into its dimension and
// velocity counts.
func ParseDiscretization(s string) (dims, velocities int, err error) {
	m := discretizationRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid velocity specification %q, expected format like \"D2Q4\"", s)
	}
	dims, _ = strconv.Atoi(m[1])
	velocities, _ = strconv.Atoi(m[2])
	return dims, velocities, nil
}

// GeometryEntry is one obstacle as written in the specification. Cuboids use
// per-axis [lo, hi] ranges; circles use center and radius.
type GeometryEntry struct {
	Shape    string            `json:"shape"`
	X        []int             `json:"x,omitempty"`
	Y        []int             `json:"y,omitempty"`
	Z        []int             `json:"z,omitempty"`
	Center   []int             `json:"center,omitempty"`
	Radius   int               `json:"radius,omitempty"`
	Boundary string            `json:"boundary"`
	Faces    map[string]string `json:"faces,omitempty"`
}

// Range returns the bounds given for axis dim (0=x, 1=y, 2=z), or nil.
func (g GeometryEntry) Range(dim int) []int {
	switch dim {
	case 0:
		return g.X
	case 1:
		return g.Y
	case 2:
		return g.Z
	}
	return nil
}

// SetRange sets the bounds for axis dim.
func (g *GeometryEntry) SetRange(dim int, r []int) {
	switch dim {
	case 0:
		g.X = slices.Clone(r)
	case 1:
		g.Y = slices.Clone(r)
	case 2:
		g.Z = slices.Clone(r)
	}
}
