package circuit

import (
	"math"
	"testing"
)

func TestBellStateProbabilities(t *testing.T) {
	c := New("bell", 2)
	c.H(0).CX(0, 1)

	s, err := Simulate(c, 0)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if p := s.Probability(0); math.Abs(p-0.5) > 1e-12 {
		t.Errorf("P(00) = %g, want 0.5", p)
	}
	if p := s.Probability(3); math.Abs(p-0.5) > 1e-12 {
		t.Errorf("P(11) = %g, want 0.5", p)
	}
	for q, qp := range s.QubitProbabilities() {
		if math.Abs(qp.Prob1-0.5) > 1e-12 {
			t.Errorf("qubit %d: P(1) = %g, want 0.5", q, qp.Prob1)
		}
	}
}

func TestMultiControlledGates(t *testing.T) {
	tests := []struct {
		name  string
		build func(c *Circuit)
		input int
		want  int
	}{
		{"mcx fires", func(c *Circuit) { c.MCX([]int{0, 1, 2}, 3) }, 0b0111, 0b1111},
		{"mcx blocked", func(c *Circuit) { c.MCX([]int{0, 1, 2}, 3) }, 0b0101, 0b0101},
		{"mcswap fires", func(c *Circuit) { c.MCSwap([]int{0, 1}, 2, 3) }, 0b0111, 0b1011},
		{"mcswap blocked", func(c *Circuit) { c.MCSwap([]int{0, 1}, 2, 3) }, 0b0110, 0b0110},
		{"swap", func(c *Circuit) { c.Swap(0, 3) }, 0b0001, 0b1000},
	}

	for _, tt := range tests {
		c := New(tt.name, 4)
		tt.build(c)
		s, err := Simulate(c, tt.input)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		got, p := s.MostLikely()
		if got != tt.want || math.Abs(p-1) > 1e-12 {
			t.Errorf("%s: got |%04b> with p=%g, want |%04b>", tt.name, got, p, tt.want)
		}
	}
}

func TestMCPAppliesPhaseOnlyWhenAllSet(t *testing.T) {
	c := New("mcp", 3)
	c.H(2)
	c.MCP(math.Pi, []int{0, 1}, 2)
	c.H(2)

	// with both controls set, H P(pi) H acts as X on qubit 2
	s, err := Simulate(c, 0b011)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := s.MostLikely(); got != 0b111 {
		t.Errorf("controls set: got |%03b>, want |111>", got)
	}

	s, err = Simulate(c, 0b001)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := s.MostLikely(); got != 0b001 {
		t.Errorf("control unset: got |%03b>, want |001>", got)
	}
}

func TestSimulateRejectsUnknownGate(t *testing.T) {
	c := New("unknown", 1)
	c.Gates = append(c.Gates, single("FOO", 0))
	if _, err := Simulate(c, 0); err == nil {
		t.Fatal("expected error for unsupported gate")
	}
}
