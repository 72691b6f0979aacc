package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/store"
)

// focus represents which panel has keyboard input.
type focus int

const (
	focusList focus = iota
	focusCircuit
	focusQASM
)

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Tab   key.Binding
	Save  key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Tab, k.Save, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "step back")),
	Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "step forward")),
	Tab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch panel")),
	Save:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("^S", "save qasm")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// viewer browses compiled fragments: a list on the left, the selected
// circuit in the middle and its QASM on the right.
type viewer struct {
	title     string
	labels    []string
	fragments []store.Fragment
	circuits  []*circuit.Circuit

	selected    int
	cursorQubit int
	cursorStep  int
	width       int
	height      int
	focus       focus
	statusMsg   string

	qasm viewport.Model
	help help.Model
}

// newViewer opens fragments for browsing. labels name the wires of every
// fragment spanning the whole lattice.
func newViewer(title string, labels []string, fragments []store.Fragment) (viewer, error) {
	v := viewer{
		title:     title,
		labels:    labels,
		fragments: fragments,
		qasm:      viewport.New(40, 20),
		help:      help.New(),
	}
	for _, f := range fragments {
		c, err := f.Circuit()
		if err != nil {
			return viewer{}, err
		}
		v.circuits = append(v.circuits, c)
	}
	v.selectFragment(0)
	return v, nil
}

func (v *viewer) selectFragment(i int) {
	if len(v.fragments) == 0 {
		return
	}
	v.selected = i
	v.cursorQubit, v.cursorStep = 0, 0
	v.qasm.SetContent(v.fragments[i].QASM)
	v.qasm.GotoTop()
}

func (v viewer) current() *circuit.Circuit {
	if len(v.circuits) == 0 {
		return circuit.New("empty", 0)
	}
	return v.circuits[v.selected]
}

func (v viewer) Init() tea.Cmd {
	return nil
}

func (v viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.qasm.Width = max(msg.Width/3-6, 20)
		v.qasm.Height = max(msg.Height-12, 4)
		v.help.Width = msg.Width

	case tea.KeyMsg:
		v.statusMsg = ""
		switch {
		case key.Matches(msg, keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, keys.Tab):
			v.focus = (v.focus + 1) % 3
			return v, nil
		case key.Matches(msg, keys.Save):
			v.save()
			return v, nil
		}

		switch v.focus {
		case focusList:
			switch {
			case key.Matches(msg, keys.Up):
				if v.selected > 0 {
					v.selectFragment(v.selected - 1)
				}
			case key.Matches(msg, keys.Down):
				if v.selected < len(v.fragments)-1 {
					v.selectFragment(v.selected + 1)
				}
			}
		case focusCircuit:
			c := v.current()
			switch {
			case key.Matches(msg, keys.Up):
				if v.cursorQubit > 0 {
					v.cursorQubit--
				}
			case key.Matches(msg, keys.Down):
				if v.cursorQubit < c.NumQubits-1 {
					v.cursorQubit++
				}
			case key.Matches(msg, keys.Left):
				if v.cursorStep > 0 {
					v.cursorStep--
				}
			case key.Matches(msg, keys.Right):
				if v.cursorStep < c.MaxSteps-1 {
					v.cursorStep++
				}
			}
		case focusQASM:
			var cmd tea.Cmd
			v.qasm, cmd = v.qasm.Update(msg)
			return v, cmd
		}
	}
	return v, nil
}

func (v *viewer) save() {
	if len(v.fragments) == 0 {
		return
	}
	f := v.fragments[v.selected]
	name := f.Key + ".qasm"
	if err := os.WriteFile(name, []byte(f.QASM), 0o644); err != nil {
		v.statusMsg = fmt.Sprintf("Save error: %v", err)
		return
	}
	v.statusMsg = "Saved " + name
}

// View renders the UI.
func (v viewer) View() string {
	if v.width == 0 {
		return "Loading..."
	}

	qasmWidth := v.width / 3
	circuitWidth := max(v.width-qasmWidth-listW-8, cellW+labelVisualW+4)
	controlsHeight := 4
	panelHeight := max(v.height-controlsHeight-2, 6)

	row := lipgloss.JoinHorizontal(lipgloss.Top,
		v.renderList(panelHeight),
		v.renderCircuitPanel(circuitWidth, panelHeight),
		v.renderQASMPanel(qasmWidth, panelHeight),
	)
	return lipgloss.JoinVertical(lipgloss.Left, row, v.renderControlsPanel(v.width-4, controlsHeight-2))
}

func (v viewer) panelTitle(name string, f focus) string {
	if v.focus == f {
		name += " [ACTIVE]"
	}
	return titleStyle.Render(name)
}

func (v viewer) renderList(height int) string {
	var sb strings.Builder
	sb.WriteString(v.panelTitle("Fragments", focusList))
	sb.WriteString("\n\n")

	// Keep the selection in view.
	rows := max(height-4, 1)
	start := max(v.selected-rows+1, 0)
	for i := start; i < len(v.fragments) && i < start+rows; i++ {
		name := truncate(v.fragments[i].Key, listW-4)
		if i == v.selected {
			sb.WriteString(selectedStyle.Render("▸ " + name))
		} else {
			sb.WriteString(normalStyle.Render("  " + name))
		}
		sb.WriteString("\n")
	}
	if len(v.fragments) == 0 {
		sb.WriteString(dimStyle.Render("no fragments"))
	}
	return listStyle.Width(listW).Height(height).Render(sb.String())
}

func (v viewer) renderCircuitPanel(width, height int) string {
	var sb strings.Builder
	sb.WriteString(v.panelTitle(v.title, focusCircuit))
	sb.WriteString("\n\n")

	if len(v.fragments) > 0 {
		f := v.fragments[v.selected]
		fmt.Fprintf(&sb, "%s %s  %s\n\n",
			activeStyle.Render(f.Kind), dimStyle.Render(truncate(f.ObstacleID, 8)),
			dimStyle.Render(fmt.Sprintf("gates=%d depth=%d multi=%d", f.Stats.Gates, f.Stats.Depth, f.Stats.MultiQubit)))
	}
	sb.WriteString(renderCircuit(v.current(), v.labels, width, v.cursorQubit, v.cursorStep, v.focus == focusCircuit))

	fmt.Fprintf(&sb, "\n  Position: Step %d, Qubit %s", v.cursorStep, v.cursorLabel())
	if v.statusMsg != "" {
		fmt.Fprintf(&sb, "  │  %s", activeStyle.Render(v.statusMsg))
	}
	return circuitStyle.Width(width).Height(height).Render(sb.String())
}

func (v viewer) cursorLabel() string {
	labels := wireLabels(v.current(), v.labels)
	if v.cursorQubit < len(labels) {
		return labels[v.cursorQubit]
	}
	return fmt.Sprint(v.cursorQubit)
}

func (v viewer) renderQASMPanel(width, height int) string {
	var sb strings.Builder
	sb.WriteString(v.panelTitle("QASM", focusQASM))
	sb.WriteString("\n\n")
	sb.WriteString(v.qasm.View())
	return qasmStyle.Width(width).Height(height).Render(sb.String())
}

func (v viewer) renderControlsPanel(width, height int) string {
	return controlsStyle.Width(width).Height(height).Render(v.help.View(keys))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
