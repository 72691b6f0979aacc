package circuit

import (
	"fmt"
	"math"
	"math/cmplx"
)

type Complex = complex128

// MaxSimQubits bounds the dense simulator's memory use.
const MaxSimQubits = 24

// StateVector is a dense simulator used to check generated arithmetic.
type StateVector struct {
	Amplitudes []Complex
	NumQubits  int
}

// NewStateVector returns |0...0> on numQubits qubits.
func NewStateVector(numQubits int) *StateVector {
	return NewBasisState(numQubits, 0)
}

// NewBasisState returns the computational basis state |index>, with qubit 0
// as the least significant bit.
func NewBasisState(numQubits, index int) *StateVector {
	amps := make([]Complex, 1<<numQubits)
	amps[index] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

func (s *StateVector) Clone() *StateVector {
	amps := make([]Complex, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

type matrix2 [2][2]Complex

func gateMatrix(base string, params []float64, dagger bool) (matrix2, bool) {
	theta := 0.0
	if len(params) > 0 {
		theta = params[0]
	}
	r := complex(1/math.Sqrt2, 0)
	switch base {
	case "X":
		return matrix2{{0, 1}, {1, 0}}, true
	case "Y":
		return matrix2{{0, -1i}, {1i, 0}}, true
	case "Z":
		return matrix2{{1, 0}, {0, -1}}, true
	case "H":
		return matrix2{{r, r}, {r, -r}}, true
	case "S":
		if dagger {
			return matrix2{{1, 0}, {0, -1i}}, true
		}
		return matrix2{{1, 0}, {0, 1i}}, true
	case "T":
		phase := math.Pi / 4
		if dagger {
			phase = -phase
		}
		return matrix2{{1, 0}, {0, cmplx.Exp(complex(0, phase))}}, true
	case "P":
		return matrix2{{1, 0}, {0, cmplx.Exp(complex(0, theta))}}, true
	case "RY":
		c, sn := complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
		return matrix2{{c, -sn}, {sn, c}}, true
	case "RZ":
		return matrix2{{cmplx.Exp(complex(0, -theta/2)), 0}, {0, cmplx.Exp(complex(0, theta/2))}}, true
	}
	return matrix2{}, false
}

// baseGate strips the controlled prefix off a gate type.
func baseGate(gateType string) string {
	switch gateType {
	case "CX", "MCX":
		return "X"
	case "CP", "MCP":
		return "P"
	case "MCRY":
		return "RY"
	case "MCH":
		return "H"
	case "MCSWAP":
		return "SWAP"
	}
	return gateType
}

// ApplyGate applies a single gate to the state.
func (s *StateVector) ApplyGate(g Gate) error {
	var mask int
	for _, ctrl := range g.AllControls() {
		mask |= 1 << ctrl
	}
	base := baseGate(g.Type)
	switch base {
	case "BARRIER", "MEASURE":
		return nil
	case "RESET":
		s.applyReset(g.Target)
		return nil
	case "SWAP":
		s.applySwap(g.Target, g.Partner, mask)
		return nil
	}
	m, ok := gateMatrix(base, g.Params, g.IsDagger)
	if !ok {
		return fmt.Errorf("simulator: unsupported gate %s", g.Type)
	}
	s.apply1(g.Target, mask, m)
	return nil
}

func (s *StateVector) apply1(q, mask int, m matrix2) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit != 0 || i&mask != mask {
			continue
		}
		j := i | bit
		a0, a1 := s.Amplitudes[i], s.Amplitudes[j]
		s.Amplitudes[i] = m[0][0]*a0 + m[0][1]*a1
		s.Amplitudes[j] = m[1][0]*a0 + m[1][1]*a1
	}
}

func (s *StateVector) applySwap(q1, q2, mask int) {
	bit1 := 1 << q1
	bit2 := 1 << q2
	for i := range s.Amplitudes {
		if i&bit1 != 0 && i&bit2 == 0 && i&mask == mask {
			j := (i &^ bit1) | bit2
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applyReset(q int) {
	bit := 1 << q

	prob0 := 0.0
	for i, a := range s.Amplitudes {
		if i&bit == 0 {
			prob0 += real(a * cmplx.Conj(a))
		}
	}

	norm := 1.0
	if prob0 > 0 {
		norm = math.Sqrt(prob0)
	}

	for i := range s.Amplitudes {
		if i&bit == 0 {
			s.Amplitudes[i] /= complex(norm, 0)
		} else {
			s.Amplitudes[i] = 0
		}
	}
}

// Run applies every gate of c in program order.
func (s *StateVector) Run(c *Circuit) error {
	if c.err != nil {
		return c.err
	}
	if c.NumQubits != s.NumQubits {
		return fmt.Errorf("simulator: circuit %s has %d qubits, state has %d", c.Name, c.NumQubits, s.NumQubits)
	}
	for _, g := range c.Gates {
		if err := s.ApplyGate(g); err != nil {
			return err
		}
	}
	return nil
}

// Simulate runs c on the basis state |input>.
func Simulate(c *Circuit, input int) (*StateVector, error) {
	if c.NumQubits > MaxSimQubits {
		return nil, fmt.Errorf("simulator: %d qubits exceeds limit of %d", c.NumQubits, MaxSimQubits)
	}
	s := NewBasisState(c.NumQubits, input)
	return s, s.Run(c)
}

// Probability returns |amplitude|^2 of basis state index.
func (s *StateVector) Probability(index int) float64 {
	a := s.Amplitudes[index]
	return real(a * cmplx.Conj(a))
}

// MostLikely returns the basis state with the highest probability.
func (s *StateVector) MostLikely() (int, float64) {
	best, bestP := 0, -1.0
	for i := range s.Amplitudes {
		if p := s.Probability(i); p > bestP {
			best, bestP = i, p
		}
	}
	return best, bestP
}

type QubitProbability struct {
	Prob0 float64
	Prob1 float64
}

// QubitProbabilities returns the marginal distribution of each qubit.
func (s *StateVector) QubitProbabilities() []QubitProbability {
	probs := make([]QubitProbability, s.NumQubits)
	for i := range s.Amplitudes {
		prob := s.Probability(i)
		for q := 0; q < s.NumQubits; q++ {
			if i&(1<<q) != 0 {
				probs[q].Prob1 += prob
			} else {
				probs[q].Prob0 += prob
			}
		}
	}
	return probs
}

// Fidelity returns |<s|other>|^2.
func (s *StateVector) Fidelity(other *StateVector) float64 {
	var inner Complex
	for i, a := range s.Amplitudes {
		inner += cmplx.Conj(a) * other.Amplitudes[i]
	}
	return real(inner * cmplx.Conj(inner))
}
