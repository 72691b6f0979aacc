package geometry

import (
	"fmt"
	"strings"
)

// GeometryError reports an obstacle that failed validation. Index and Other
// are 1-based positions in the geometry list; Other is 0 when the constraint
// does not involve a second obstacle.
type GeometryError struct {
	Index      int
	Other      int
	Bounds     [][2]int
	Constraint string
}

func (e *GeometryError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "obstacle %d", e.Index)
	if len(e.Bounds) > 0 {
		sb.WriteString(" ")
		sb.WriteString(formatBounds(e.Bounds))
	}
	if e.Other > 0 {
		fmt.Fprintf(&sb, " conflicts with obstacle %d", e.Other)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Constraint)
	return sb.String()
}

func formatBounds(bounds [][2]int) string {
	parts := make([]string, len(bounds))
	for d, b := range bounds {
		parts[d] = fmt.Sprintf("%s:[%d,%d]", AxisName(d), b[0], b[1])
	}
	return "{" + strings.Join(parts, " ") + "}"
}
