// Package primitives builds the register-level arithmetic used by the
// streaming and reflection operators: Fourier-basis adders and comparators.
// Every circuit here acts on its own qubits 0..n-1 with qubit 0 the least
// significant bit, and is placed onto a lattice with circuit.Compose.
package primitives

import (
	"fmt"
	"math"

	"qlbmcirq/internal/circuit"
)

// QFT returns the n-qubit quantum Fourier transform, including the final
// qubit reversal.
func QFT(n int) *circuit.Circuit {
	c := circuit.New(fmt.Sprintf("qft_%d", n), n)
	for j := n - 1; j >= 0; j-- {
		c.H(j)
		for k := j - 1; k >= 0; k-- {
			c.CP(math.Pi*math.Pow(2, float64(k-j)), j, k)
		}
	}
	for i := range n / 2 {
		c.Swap(i, n-1-i)
	}
	return c
}

// InverseQFT returns the adjoint of QFT(n).
func InverseQFT(n int) *circuit.Circuit {
	inv, _ := QFT(n).Inverse()
	inv.Name = fmt.Sprintf("iqft_%d", n)
	return inv
}

func sign(positive bool) float64 {
	if positive {
		return 1
	}
	return -1
}

// PhaseShift returns the Fourier-basis phase pattern that, conjugated by the
// QFT, increments (positive) or decrements the register by one.
func PhaseShift(n int, positive bool) *circuit.Circuit {
	c := circuit.New(fmt.Sprintf("phase_shift_%d", n), n)
	for q := range n {
		c.P(sign(positive)*math.Pi/math.Pow(2, float64(n-1-q)), q)
	}
	return c
}

// SpeedSensitivePhaseShift generalizes PhaseShift to a shift by speed.
func SpeedSensitivePhaseShift(n, speed int, positive bool) *circuit.Circuit {
	c := circuit.New(fmt.Sprintf("ssps_%d_%d", n, speed), n)
	angles := make([]float64, n)
	for q := range n {
		if speed>>q&1 == 0 {
			continue
		}
		for i := range n - q {
			angles[i] += sign(positive) * math.Pi / math.Pow(2, float64(n-q-i-1))
		}
	}
	for q, a := range angles {
		c.P(a, q)
	}
	return c
}

// SpeedSensitiveAdder adds (or subtracts) speed modulo 2^n.
func SpeedSensitiveAdder(n, speed int, positive bool) *circuit.Circuit {
	c := circuit.New(fmt.Sprintf("adder_%d_%d", n, speed), n)
	all := seq(n)
	c.MustCompose(QFT(n), all)
	c.MustCompose(SpeedSensitivePhaseShift(n, speed, positive), all)
	c.MustCompose(InverseQFT(n), all)
	return c
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// ComparatorMode selects the relation a Comparator tests.
type ComparatorMode int

const (
	LT ComparatorMode = iota
	LE
	GT
	GE
)

func (m ComparatorMode) String() string {
	switch m {
	case LT:
		return "lt"
	case LE:
		return "le"
	case GT:
		return "gt"
	case GE:
		return "ge"
	}
	return fmt.Sprintf("ComparatorMode(%d)", int(m))
}

// Comparator returns a circuit on n qubits that flips the last qubit when
// the value held in the first n-1 qubits satisfies the relation with k. The
// value register is left unchanged, and the circuit is its own inverse.
func Comparator(n, k int, mode ComparatorMode) (*circuit.Circuit, error) {
	if n < 2 {
		return nil, fmt.Errorf("comparator needs at least 2 qubits, got %d", n)
	}
	limit := 1<<(n-1) - 1
	if k < 0 || k > limit {
		return nil, fmt.Errorf("comparator bound %d outside [0, %d]", k, limit)
	}
	c := comparator(n, k, mode)
	c.Name = fmt.Sprintf("cmp_%s_%d", mode, k)
	return c, c.Err()
}

func comparator(n, k int, mode ComparatorMode) *circuit.Circuit {
	limit := 1<<(n-1) - 1
	switch mode {
	case LT:
		c := circuit.New("cmp", n)
		c.MustCompose(SpeedSensitiveAdder(n, k, false), seq(n))
		c.MustCompose(SpeedSensitiveAdder(n-1, k, true), seq(n-1))
		return c
	case LE:
		if k == limit {
			return comparator(n, 0, GE)
		}
		return comparator(n, k+1, LT)
	case GT:
		if k == limit {
			return circuit.New("cmp", n)
		}
		return comparator(n, k+1, GE)
	}
	c := comparator(n, k, LT)
	c.X(n - 1)
	return c
}
