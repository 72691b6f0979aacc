package circuit

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Pre-compiled regexps for QASM parsing.
var (
	gateLineRegex = regexp.MustCompile(`^(\w+)(?:\s*\(([^()]*)\))?\s+(q\[\d+\](?:\s*,\s*q\[\d+\])*)\s*;?$`)
	// angleRegex matches the pi multiples formatParam writes, e.g. -3*pi/4.
	angleRegex = regexp.MustCompile(`^(-?)(\d*\.?\d*)\*?pi(?:/(\d+\.?\d*))?$`)
	operandRegex  = regexp.MustCompile(`q\[(\d+)\]`)
	measureRegex  = regexp.MustCompile(`^measure\s+q\[(\d+)\]\s*->\s*(\w+)\[(\d+)\];?$`)
	qregRegex     = regexp.MustCompile(`qreg\s+(\w+)\[(\d+)\]`)
	cregRegex     = regexp.MustCompile(`creg\s+(\w+)\[(\d+)\]`)
	barrierRegex  = regexp.MustCompile(`^barrier\s+`)
)

// qasmName maps gate types to their QASM mnemonic. Multi-controlled gates
// with a single control use the qelib1 two-qubit form.
func qasmName(g Gate) string {
	nc := len(g.AllControls())
	switch g.Type {
	case "CP":
		return "cu1"
	case "MCX":
		if nc == 2 {
			return "ccx"
		}
		return "mcx"
	case "MCP":
		return "mcphase"
	case "MCRY":
		if nc == 1 {
			return "cry"
		}
		return "mcry"
	case "MCH":
		if nc == 1 {
			return "ch"
		}
		return "mch"
	case "MCSWAP":
		if nc == 1 {
			return "cswap"
		}
		return "mcswap"
	case "S", "T":
		if g.IsDagger {
			return strings.ToLower(g.Type) + "dg"
		}
	}
	return strings.ToLower(g.Type)
}

// ToQASM generates QASM 2.0 output from the circuit.
func (c *Circuit) ToQASM() string {
	numQubits := max(c.NumQubits, 1)
	numCbits := max(c.NumCbits, 1)

	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", numQubits)
	fmt.Fprintf(&sb, "creg c[%d];\n\n", numCbits)

	// Program order is kept; steps only describe layering.
	for _, gate := range c.Gates {
		switch gate.Type {
		case "BARRIER":
			qubits := make([]string, numQubits)
			for q := range numQubits {
				qubits[q] = fmt.Sprintf("q[%d]", q)
			}
			fmt.Fprintf(&sb, "barrier %s;\n", strings.Join(qubits, ", "))
		case "MEASURE":
			fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", gate.Target, gate.Cbit)
		case "RESET":
			fmt.Fprintf(&sb, "reset q[%d];\n", gate.Target)
		default:
			sb.WriteString(qasmName(gate))
			if len(gate.Params) > 0 {
				ps := make([]string, len(gate.Params))
				for i, p := range gate.Params {
					ps[i] = formatParam(p)
				}
				fmt.Fprintf(&sb, "(%s)", strings.Join(ps, ", "))
			}
			operands := make([]string, 0, len(gate.Qubits()))
			for _, q := range gate.Qubits() {
				operands = append(operands, fmt.Sprintf("q[%d]", q))
			}
			fmt.Fprintf(&sb, " %s;\n", strings.Join(operands, ", "))
		}
	}

	return sb.String()
}

// ParseQASM parses QASM text and rebuilds the circuit from it.
// Lines that are not gate statements the circuit can represent are rejected.
func (c *Circuit) ParseQASM(qasm string) error {
	c.Gates = nil
	c.MaxSteps = 0
	c.err = nil

	for lineNo, line := range strings.Split(qasm, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "OPENQASM") || strings.HasPrefix(line, "include") {
			continue
		}
		if strings.HasPrefix(line, "qreg") {
			if matches := qregRegex.FindStringSubmatch(line); len(matches) > 2 {
				n, _ := strconv.Atoi(matches[2])
				c.NumQubits = n
				c.frontier = make([]int, n)
			}
			continue
		}
		if strings.HasPrefix(line, "creg") {
			if matches := cregRegex.FindStringSubmatch(line); len(matches) > 2 {
				n, _ := strconv.Atoi(matches[2])
				c.NumCbits = n
			}
			continue
		}
		if barrierRegex.MatchString(line) {
			c.Barrier()
			continue
		}

		// Measurement: "measure q[0] -> c[0];"
		if matches := measureRegex.FindStringSubmatch(line); matches != nil {
			source, _ := strconv.Atoi(matches[1])
			cbit, _ := strconv.Atoi(matches[3])
			c.Measure(source, cbit)
			continue
		}
		if strings.HasPrefix(line, "reset") {
			ops := operandRegex.FindAllStringSubmatch(line, -1)
			if len(ops) != 1 {
				return fmt.Errorf("line %d: malformed reset %q", lineNo+1, line)
			}
			q, _ := strconv.Atoi(ops[0][1])
			c.Reset(q)
			continue
		}

		matches := gateLineRegex.FindStringSubmatch(line)
		if matches == nil {
			return fmt.Errorf("line %d: unrecognized statement %q", lineNo+1, line)
		}
		params, err := parseAngles(matches[2])
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		var qubits []int
		for _, op := range operandRegex.FindAllStringSubmatch(matches[3], -1) {
			q, _ := strconv.Atoi(op[1])
			qubits = append(qubits, q)
		}
		if err := c.appendParsed(strings.ToLower(matches[1]), params, qubits); err != nil {
			return fmt.Errorf("line %d: %w", lineNo+1, err)
		}
	}

	return c.err
}

// parseAngles splits a gate's parameter list. An empty list has no angles.
func parseAngles(list string) ([]float64, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var angles []float64
	for _, field := range strings.Split(list, ",") {
		a, err := parseAngle(field)
		if err != nil {
			return nil, err
		}
		angles = append(angles, a)
	}
	return angles, nil
}

// parseAngle reads a number or a rational multiple of pi. Whitespace inside
// the expression is ignored.
func parseAngle(s string) (float64, error) {
	expr := strings.ToLower(strings.Join(strings.Fields(s), ""))
	if v, err := strconv.ParseFloat(expr, 64); err == nil {
		return v, nil
	}
	m := angleRegex.FindStringSubmatch(expr)
	if m == nil {
		return 0, fmt.Errorf("bad parameter %q", s)
	}
	v := math.Pi
	if m[2] != "" {
		coeff, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, fmt.Errorf("bad coefficient in parameter %q", s)
		}
		v *= coeff
	}
	if m[3] != "" {
		denom, err := strconv.ParseFloat(m[3], 64)
		if err != nil || denom == 0 {
			return 0, fmt.Errorf("bad divisor in parameter %q", s)
		}
		v /= denom
	}
	if m[1] == "-" {
		v = -v
	}
	return v, nil
}

func (c *Circuit) appendParsed(name string, params []float64, qubits []int) error {
	need := func(nq, np int) error {
		if nq >= 0 && len(qubits) != nq {
			return fmt.Errorf("%s takes %d qubits, got %d", name, nq, len(qubits))
		}
		if len(params) != np {
			return fmt.Errorf("%s takes %d parameters, got %d", name, np, len(params))
		}
		return nil
	}
	last := len(qubits) - 1

	switch name {
	case "x", "y", "z", "h", "s", "t", "sdg", "tdg":
		if err := need(1, 0); err != nil {
			return err
		}
		g := single(strings.ToUpper(strings.TrimSuffix(name, "dg")), qubits[0])
		g.IsDagger = strings.HasSuffix(name, "dg")
		c.append(g)
	case "p", "u1":
		if err := need(1, 1); err != nil {
			return err
		}
		c.P(params[0], qubits[0])
	case "ry", "rz":
		if err := need(1, 1); err != nil {
			return err
		}
		c.append(single(strings.ToUpper(name), qubits[0], params[0]))
	case "cx":
		if err := need(2, 0); err != nil {
			return err
		}
		c.CX(qubits[0], qubits[1])
	case "cu1", "cp":
		if err := need(2, 1); err != nil {
			return err
		}
		c.CP(params[0], qubits[0], qubits[1])
	case "ccx", "mcx":
		if err := need(-1, 0); err != nil {
			return err
		}
		c.MCX(qubits[:last], qubits[last])
	case "mcphase":
		if err := need(-1, 1); err != nil {
			return err
		}
		c.MCP(params[0], qubits[:last], qubits[last])
	case "cry", "mcry":
		if err := need(-1, 1); err != nil {
			return err
		}
		c.MCRY(params[0], qubits[:last], qubits[last])
	case "ch", "mch":
		if err := need(-1, 0); err != nil {
			return err
		}
		c.MCH(qubits[:last], qubits[last])
	case "swap":
		if err := need(2, 0); err != nil {
			return err
		}
		c.Swap(qubits[0], qubits[1])
	case "cswap", "mcswap":
		if err := need(-1, 0); err != nil {
			return err
		}
		if len(qubits) < 3 {
			return fmt.Errorf("%s takes at least 3 qubits, got %d", name, len(qubits))
		}
		c.MCSwap(qubits[:len(qubits)-2], qubits[len(qubits)-2], qubits[last])
	default:
		return fmt.Errorf("unsupported gate %q", name)
	}
	return nil
}
