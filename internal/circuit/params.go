package circuit

import (
	"fmt"
	"math"
	"strconv"
)

// formatParam formats an angle, using pi notation when the value is an odd
// multiple of pi over a power of two (the angles QFT arithmetic produces).
// Anything else is printed with the shortest exact representation.
func formatParam(val float64) string {
	if val == 0 {
		return "0"
	}
	sign := ""
	if val < 0 {
		sign = "-"
	}
	abs := math.Abs(val)
	thirds := []struct {
		value   float64
		display string
	}{
		{math.Pi / 3, "pi/3"},
		{math.Pi / 6, "pi/6"},
		{2 * math.Pi / 3, "2*pi/3"},
	}
	for _, pf := range thirds {
		if math.Abs(abs-pf.value) < 1e-10 {
			return sign + pf.display
		}
	}
	for k := 0; k <= 16; k++ {
		denom := float64(int(1) << k)
		coeff := abs / math.Pi * denom
		rounded := math.Round(coeff)
		if rounded == 0 || math.Abs(coeff-rounded) > 1e-9 || rounded > 64 {
			continue
		}
		num := ""
		if rounded != 1 {
			num = fmt.Sprintf("%d*", int(rounded))
		}
		if k == 0 {
			return sign + num + "pi"
		}
		return fmt.Sprintf("%s%spi/%d", sign, num, int(denom))
	}
	return strconv.FormatFloat(val, 'g', -1, 64)
}
