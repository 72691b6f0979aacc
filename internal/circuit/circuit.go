package circuit

import (
	"fmt"
	"slices"
)

// Gate represents a quantum gate placed on the circuit.
type Gate struct {
	Type     string
	Target   int
	Control  int       // -1 if not a controlled gate
	Controls []int     // Multiple control qubits (MCX, MCP, MCRY, MCH, MCSWAP)
	Partner  int       // Second qubit of SWAP-family gates, -1 otherwise
	Step     int       // position in circuit timeline
	Params   []float64 // Parameters for parameterized gates
	IsDagger bool      // True if gate is dagger (adjoint)
	Cbit     int       // Classical bit written by MEASURE, -1 otherwise
}

// Circuit holds an ordered gate list over a fixed qubit register.
//
// Gates are appended in program order. Each gate is placed at the earliest
// step at which all of the qubits it touches are free, so MaxSteps is the
// circuit depth.
type Circuit struct {
	Name      string
	NumQubits int
	NumCbits  int
	Gates     []Gate
	MaxSteps  int

	frontier []int
	err      error
}

// New returns an empty circuit on numQubits qubits.
func New(name string, numQubits int) *Circuit {
	return &Circuit{
		Name:      name,
		NumQubits: numQubits,
		frontier:  make([]int, numQubits),
	}
}

// Err returns the first error recorded by a builder call, if any.
func (c *Circuit) Err() error {
	return c.err
}

// Copy returns a deep copy of the circuit.
func (c *Circuit) Copy() *Circuit {
	out := New(c.Name, c.NumQubits)
	out.NumCbits = c.NumCbits
	for _, g := range c.Gates {
		out.append(g.clone())
	}
	out.err = c.err
	return out
}

func (g Gate) clone() Gate {
	g.Controls = slices.Clone(g.Controls)
	g.Params = slices.Clone(g.Params)
	return g
}

// Qubits returns every qubit the gate acts on, controls first.
func (g Gate) Qubits() []int {
	if g.Type == "BARRIER" {
		return nil
	}
	qs := make([]int, 0, len(g.Controls)+3)
	if g.Control >= 0 {
		qs = append(qs, g.Control)
	}
	qs = append(qs, g.Controls...)
	qs = append(qs, g.Target)
	if g.Partner >= 0 {
		qs = append(qs, g.Partner)
	}
	return qs
}

// AllControls returns the single control and the multi-control list together.
func (g Gate) AllControls() []int {
	if g.Control < 0 {
		return slices.Clone(g.Controls)
	}
	return append([]int{g.Control}, g.Controls...)
}

// References reports whether the gate references the given qubit.
func (g Gate) References(qubit int) bool {
	return slices.Contains(g.Qubits(), qubit)
}

func (c *Circuit) fail(format string, args ...interface{}) {
	if c.err == nil {
		c.err = fmt.Errorf("%s: "+format, append([]interface{}{c.Name}, args...)...)
	}
}

func (c *Circuit) append(g Gate) {
	if g.Type == "BARRIER" {
		step := 0
		for _, f := range c.frontier {
			step = max(step, f)
		}
		g.Step = step
		for q := range c.frontier {
			c.frontier[q] = step + 1
		}
		c.Gates = append(c.Gates, g)
		c.MaxSteps = max(c.MaxSteps, step+1)
		return
	}

	qubits := g.Qubits()
	seen := make(map[int]bool, len(qubits))
	for _, q := range qubits {
		if q < 0 || q >= c.NumQubits {
			c.fail("gate %s references qubit %d outside register of %d", g.Type, q, c.NumQubits)
			return
		}
		if seen[q] {
			c.fail("gate %s references qubit %d twice", g.Type, q)
			return
		}
		seen[q] = true
	}

	step := 0
	for _, q := range qubits {
		step = max(step, c.frontier[q])
	}
	g.Step = step
	for _, q := range qubits {
		c.frontier[q] = step + 1
	}
	c.Gates = append(c.Gates, g)
	c.MaxSteps = max(c.MaxSteps, step+1)
	if g.Type == "MEASURE" && g.Cbit >= c.NumCbits {
		c.NumCbits = g.Cbit + 1
	}
}

func single(gateType string, target int, params ...float64) Gate {
	return Gate{
		Type:    gateType,
		Target:  target,
		Control: -1,
		Partner: -1,
		Params:  params,
		Cbit:    -1,
	}
}

// X appends a Pauli-X on each of the given qubits.
func (c *Circuit) X(qubits ...int) *Circuit {
	for _, q := range qubits {
		c.append(single("X", q))
	}
	return c
}

// H appends a Hadamard on each of the given qubits.
func (c *Circuit) H(qubits ...int) *Circuit {
	for _, q := range qubits {
		c.append(single("H", q))
	}
	return c
}

// Z appends a Pauli-Z on each of the given qubits.
func (c *Circuit) Z(qubits ...int) *Circuit {
	for _, q := range qubits {
		c.append(single("Z", q))
	}
	return c
}

// P appends a phase gate diag(1, e^{i theta}).
func (c *Circuit) P(theta float64, q int) *Circuit {
	c.append(single("P", q, theta))
	return c
}

// RY appends a Y rotation.
func (c *Circuit) RY(theta float64, q int) *Circuit {
	c.append(single("RY", q, theta))
	return c
}

// RZ appends a Z rotation.
func (c *Circuit) RZ(theta float64, q int) *Circuit {
	c.append(single("RZ", q, theta))
	return c
}

// CX appends a controlled-X.
func (c *Circuit) CX(control, target int) *Circuit {
	g := single("CX", target)
	g.Control = control
	c.append(g)
	return c
}

// CP appends a controlled phase.
func (c *Circuit) CP(theta float64, control, target int) *Circuit {
	g := single("CP", target, theta)
	g.Control = control
	c.append(g)
	return c
}

// MCX appends an X on target controlled on every qubit in controls.
// Zero controls yields a plain X and a single control yields a CX.
func (c *Circuit) MCX(controls []int, target int) *Circuit {
	switch len(controls) {
	case 0:
		return c.X(target)
	case 1:
		return c.CX(controls[0], target)
	}
	g := single("MCX", target)
	g.Controls = slices.Clone(controls)
	c.append(g)
	return c
}

// MCP appends a multi-controlled phase.
func (c *Circuit) MCP(theta float64, controls []int, target int) *Circuit {
	switch len(controls) {
	case 0:
		return c.P(theta, target)
	case 1:
		return c.CP(theta, controls[0], target)
	}
	g := single("MCP", target, theta)
	g.Controls = slices.Clone(controls)
	c.append(g)
	return c
}

// MCRY appends a multi-controlled Y rotation.
func (c *Circuit) MCRY(theta float64, controls []int, target int) *Circuit {
	if len(controls) == 0 {
		return c.RY(theta, target)
	}
	g := single("MCRY", target, theta)
	g.Controls = slices.Clone(controls)
	c.append(g)
	return c
}

// MCH appends a multi-controlled Hadamard.
func (c *Circuit) MCH(controls []int, target int) *Circuit {
	if len(controls) == 0 {
		return c.H(target)
	}
	g := single("MCH", target)
	g.Controls = slices.Clone(controls)
	c.append(g)
	return c
}

// Swap exchanges two qubits.
func (c *Circuit) Swap(a, b int) *Circuit {
	g := single("SWAP", a)
	g.Partner = b
	c.append(g)
	return c
}

// MCSwap exchanges two qubits when every control is set.
func (c *Circuit) MCSwap(controls []int, a, b int) *Circuit {
	if len(controls) == 0 {
		return c.Swap(a, b)
	}
	g := single("MCSWAP", a)
	g.Partner = b
	g.Controls = slices.Clone(controls)
	c.append(g)
	return c
}

// Measure writes qubit q into classical bit cbit.
func (c *Circuit) Measure(q, cbit int) *Circuit {
	g := single("MEASURE", q)
	g.Cbit = cbit
	c.append(g)
	return c
}

// Reset returns qubit q to |0>.
func (c *Circuit) Reset(q int) *Circuit {
	c.append(single("RESET", q))
	return c
}

// Barrier appends a barrier spanning all qubits.
func (c *Circuit) Barrier() *Circuit {
	g := single("BARRIER", -1)
	c.append(g)
	return c
}

// Compose appends sub onto c, mapping qubit i of sub to qubits[i].
func (c *Circuit) Compose(sub *Circuit, qubits []int) error {
	if sub.err != nil {
		return fmt.Errorf("compose %s: %w", sub.Name, sub.err)
	}
	if len(qubits) != sub.NumQubits {
		return fmt.Errorf("compose %s into %s: qubit map has %d entries, sub-circuit has %d qubits",
			sub.Name, c.Name, len(qubits), sub.NumQubits)
	}
	for _, q := range qubits {
		if q < 0 || q >= c.NumQubits {
			return fmt.Errorf("compose %s into %s: qubit %d outside register of %d", sub.Name, c.Name, q, c.NumQubits)
		}
	}
	mapQ := func(q int) int {
		if q < 0 {
			return q
		}
		return qubits[q]
	}
	for _, g := range sub.Gates {
		g = g.clone()
		if g.Type != "BARRIER" {
			g.Target = mapQ(g.Target)
		}
		g.Control = mapQ(g.Control)
		g.Partner = mapQ(g.Partner)
		for i, ctrl := range g.Controls {
			g.Controls[i] = qubits[ctrl]
		}
		c.append(g)
	}
	return c.err
}

// MustCompose is Compose for sub-circuits whose qubit map is derived from the
// same register layout and cannot mismatch. Any error is recorded on c.
func (c *Circuit) MustCompose(sub *Circuit, qubits []int) *Circuit {
	if err := c.Compose(sub, qubits); err != nil && c.err == nil {
		c.err = err
	}
	return c
}

// Inverse returns the adjoint circuit: gates reversed, angles negated.
func (c *Circuit) Inverse() (*Circuit, error) {
	out := New(c.Name+"_dg", c.NumQubits)
	for i := len(c.Gates) - 1; i >= 0; i-- {
		g := c.Gates[i].clone()
		switch g.Type {
		case "MEASURE", "RESET":
			return nil, fmt.Errorf("inverse of %s: %s is not reversible", c.Name, g.Type)
		case "P", "CP", "MCP", "RY", "MCRY", "RZ":
			for j := range g.Params {
				g.Params[j] = -g.Params[j]
			}
		case "S", "T":
			g.IsDagger = !g.IsDagger
		}
		out.append(g)
	}
	return out, out.err
}

// GetGateAt returns the gate at the given step and qubit, or nil.
func (c *Circuit) GetGateAt(step, qubit int) *Gate {
	for i := range c.Gates {
		g := &c.Gates[i]
		if g.Step == step && g.References(qubit) {
			return g
		}
	}
	return nil
}

// CountOps returns the number of gates of each type.
func (c *Circuit) CountOps() map[string]int {
	counts := make(map[string]int)
	for _, g := range c.Gates {
		counts[g.Type]++
	}
	return counts
}

// Size is the number of gates excluding barriers.
func (c *Circuit) Size() int {
	n := 0
	for _, g := range c.Gates {
		if g.Type != "BARRIER" {
			n++
		}
	}
	return n
}
