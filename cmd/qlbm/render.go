package main

import (
	"fmt"
	"strings"

	"qlbmcirq/internal/circuit"
)

// padCenter centres a string within the given width.
func padCenter(s string, width int) string {
	if len([]rune(s)) >= width {
		return string([]rune(s)[:width])
	}
	total := width - len([]rune(s))
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// gateDisplayName returns a short display name for a gate type. Controls are
// drawn on the wires, so multi-controlled gates show their base gate.
func gateDisplayName(g *circuit.Gate) string {
	switch g.Type {
	case "MEASURE":
		return "M"
	case "RESET":
		return "|0>"
	case "MCRY":
		return "RY"
	case "MCH":
		return "H"
	case "MCP", "CP":
		return "P"
	}
	if g.IsDagger {
		return g.Type + "†"
	}
	return g.Type
}

// targetSymbol returns the wire symbol for the target of a controlled gate,
// or "" when the target is drawn as a box.
func targetSymbol(gateType string) string {
	switch gateType {
	case "CX", "MCX":
		return "⊕"
	case "SWAP", "MCSWAP":
		return "×"
	}
	return ""
}

type cellInfo struct {
	gate        *circuit.Gate
	isControl   bool
	isTarget    bool
	vertAbove   bool
	vertBelow   bool
	passThrough bool
	isBarrier   bool
}

// cellInfoAt returns rendering information for the cell at (step, qubit).
func cellInfoAt(c *circuit.Circuit, step, qubit int) cellInfo {
	var info cellInfo
	for i := range c.Gates {
		g := &c.Gates[i]
		if g.Step != step {
			continue
		}
		if g.Type == "BARRIER" {
			info.isBarrier = true
			continue
		}
		qs := g.Qubits()
		lo, hi := qs[0], qs[0]
		for _, q := range qs {
			lo, hi = min(lo, q), max(hi, q)
		}
		if qubit < lo || qubit > hi {
			continue
		}
		if len(qs) > 1 {
			info.vertAbove = info.vertAbove || qubit > lo
			info.vertBelow = info.vertBelow || qubit < hi
		}
		if !g.References(qubit) {
			info.passThrough = true
			continue
		}
		info.gate = g
		for _, ctrl := range g.AllControls() {
			if ctrl == qubit {
				info.isControl = true
			}
		}
		info.isTarget = !info.isControl && len(qs) > 1
	}
	return info
}

type cellHighlight int

const (
	hlNone cellHighlight = iota
	hlCursor
)

// renderCell returns 3 lines (top, mid, bot) for a single cell.
// Each line is exactly cellW visual characters wide.
func renderCell(info cellInfo, hl cellHighlight) (top, mid, bot string) {
	emptyRow := strings.Repeat(" ", cellW)
	halfW := cellW / 2
	vertRow := strings.Repeat(" ", halfW) + "│" + strings.Repeat(" ", cellW-halfW-1)

	if hl == hlCursor {
		bdr := cursorBoxStyle
		innerW := cellW - 2
		dashL := (innerW - 1) / 2
		dashR := innerW - dashL - 1
		top = bdr.Render("╔" + strings.Repeat("═", innerW) + "╗")
		bot = bdr.Render("╚" + strings.Repeat("═", innerW) + "╝")

		switch {
		case info.gate != nil && info.isControl:
			mid = bdr.Render("║") + strings.Repeat("─", dashL) + gateStyle.Render("●") + strings.Repeat("─", dashR) + bdr.Render("║")
		case info.gate != nil && info.isTarget && targetSymbol(info.gate.Type) != "":
			mid = bdr.Render("║") + strings.Repeat("─", dashL) + gateStyle.Render(targetSymbol(info.gate.Type)) + strings.Repeat("─", dashR) + bdr.Render("║")
		case info.gate != nil:
			name := padCenter(gateDisplayName(info.gate), gateNameW)
			mid = bdr.Render("║") + "─┤" + gateStyle.Render(name) + "├─" + bdr.Render("║")
		case info.passThrough:
			mid = bdr.Render("║") + strings.Repeat("─", dashL) + "┼" + strings.Repeat("─", dashR) + bdr.Render("║")
		case info.isBarrier:
			mid = bdr.Render("║") + strings.Repeat("─", dashL) + "│" + strings.Repeat("─", dashR) + bdr.Render("║")
		default:
			mid = bdr.Render("║") + strings.Repeat("─", innerW) + bdr.Render("║")
		}
		return
	}

	dashL := (cellW - 1) / 2
	dashR := cellW - dashL - 1
	top, bot = emptyRow, emptyRow
	if info.vertAbove {
		top = vertRow
	}
	if info.vertBelow {
		bot = vertRow
	}

	switch {
	case info.gate != nil && info.isControl:
		mid = strings.Repeat("─", dashL) + gateStyle.Render("●") + strings.Repeat("─", dashR)
	case info.gate != nil && info.isTarget && targetSymbol(info.gate.Type) != "":
		mid = strings.Repeat("─", dashL) + gateStyle.Render(targetSymbol(info.gate.Type)) + strings.Repeat("─", dashR)
	case info.gate != nil:
		margin := (cellW - gateBoxW) / 2
		rightMargin := cellW - margin - gateBoxW
		name := padCenter(gateDisplayName(info.gate), gateNameW)
		if !info.vertAbove {
			top = strings.Repeat(" ", margin) + gateStyle.Render("┌"+strings.Repeat("─", gateNameW)+"┐") + strings.Repeat(" ", rightMargin)
		}
		mid = strings.Repeat("─", margin) + gateStyle.Render("┤"+name+"├") + strings.Repeat("─", rightMargin)
		if !info.vertBelow {
			bot = strings.Repeat(" ", margin) + gateStyle.Render("└"+strings.Repeat("─", gateNameW)+"┘") + strings.Repeat(" ", rightMargin)
		}
	case info.passThrough:
		mid = strings.Repeat("─", dashL) + "┼" + strings.Repeat("─", dashR)
	case info.isBarrier:
		top, bot = vertRow, vertRow
		mid = strings.Repeat("─", dashL) + "│" + strings.Repeat("─", dashR)
	default:
		mid = strings.Repeat("─", cellW)
	}
	return
}

// wireLabels returns the wire names of c: labels when they cover every
// qubit, q[i] otherwise.
func wireLabels(c *circuit.Circuit, labels []string) []string {
	if len(labels) == c.NumQubits {
		return labels
	}
	out := make([]string, c.NumQubits)
	for q := range out {
		out[q] = fmt.Sprintf("q[%d]", q)
	}
	return out
}

// renderCircuit draws the steps of c that fit in width, starting so that
// cursorStep is visible. Wires are named by labels.
func renderCircuit(c *circuit.Circuit, labels []string, width, cursorQubit, cursorStep int, showCursor bool) string {
	var sb strings.Builder

	labels = wireLabels(c, labels)
	labelW := labelVisualW
	for _, l := range labels {
		labelW = max(labelW, len([]rune(l))+2)
	}

	availWidth := width - labelW - 4
	maxSteps := max(availWidth/cellW, 1)
	startStep := 0
	if cursorStep >= maxSteps {
		startStep = cursorStep - maxSteps + 1
	}
	endStep := min(startStep+maxSteps, max(c.MaxSteps, 1))

	if startStep > 0 {
		fmt.Fprintf(&sb, "  ◀ showing steps %d–%d\n", startStep, endStep-1)
	}

	header := strings.Repeat(" ", labelW)
	for step := startStep; step < endStep; step++ {
		header += dimStyle.Render(padCenter(fmt.Sprintf("%d", step), cellW))
	}
	sb.WriteString(header + "\n")

	for qubit := range c.NumQubits {
		topLine := strings.Repeat(" ", labelW)
		midLine := qubitLabelStyle.Render(fmt.Sprintf("%-*s", labelW-2, labels[qubit])) + "──"
		botLine := strings.Repeat(" ", labelW)

		for step := startStep; step < endStep; step++ {
			hl := hlNone
			if showCursor && step == cursorStep && qubit == cursorQubit {
				hl = hlCursor
			}
			top, mid, bot := renderCell(cellInfoAt(c, step, qubit), hl)
			topLine += top
			midLine += mid
			botLine += bot
		}

		sb.WriteString(topLine + "\n")
		sb.WriteString(midLine + "\n")
		sb.WriteString(botLine + "\n")
	}
	return sb.String()
}
