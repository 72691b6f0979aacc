package geometry

import "fmt"

// Kind is a boundary condition.
type Kind int

const (
	// Specular reverses the velocity component normal to the wall.
	Specular Kind = iota
	// Bounceback reverses the full velocity vector.
	Bounceback
)

func (k Kind) String() string {
	switch k {
	case Specular:
		return "specular"
	case Bounceback:
		return "bounceback"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a boundary name from the specification to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "specular":
		return Specular, nil
	case "bounceback":
		return Bounceback, nil
	}
	return 0, fmt.Errorf("boundary conditions %q are not supported, supported boundary conditions are [specular bounceback]", s)
}

// AxisName returns "x", "y" or "z".
func AxisName(dim int) string {
	return string(rune('x' + dim))
}

// BoundName returns "lower" or "upper".
func BoundName(upper bool) string {
	if upper {
		return "upper"
	}
	return "lower"
}

// FaceName returns the face key used in the specification, e.g. "x_lower".
func FaceName(dim int, upper bool) string {
	return AxisName(dim) + "_" + BoundName(upper)
}
