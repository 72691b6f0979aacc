package circuit

import (
	"fmt"
	"slices"
)

// DAGNode represents a gate in the circuit as a node in a DAG.
// Dependencies represent ordering constraints - a gate cannot execute before
// the gates that affect the same qubits earlier in program order.
type DAGNode struct {
	ID           string // Unique identifier for this node
	Index        int    // Position in the source circuit's gate list
	Gate         Gate
	Dependencies []string // IDs of nodes that must execute before this one
}

// CircuitDAG represents a quantum circuit as a Directed Acyclic Graph.
type CircuitDAG struct {
	Nodes     map[string]*DAGNode // All nodes by ID
	NumQubits int                 // Number of qubits in the circuit
	order     []string            // Node IDs in insertion order
}

// NewCircuitDAG creates a new empty CircuitDAG.
func NewCircuitDAG(numQubits int) *CircuitDAG {
	return &CircuitDAG{
		Nodes:     make(map[string]*DAGNode),
		NumQubits: numQubits,
	}
}

// generateNodeID creates a unique ID for a node based on its properties.
func generateNodeID(gateType string, index int) string {
	return fmt.Sprintf("%s_%d", gateType, index)
}

// AddNode adds a new gate node to the DAG.
func (dag *CircuitDAG) AddNode(node *DAGNode) {
	if node.ID == "" {
		node.ID = generateNodeID(node.Gate.Type, node.Index)
	}
	dag.Nodes[node.ID] = node
	dag.order = append(dag.order, node.ID)
}

// FromCircuit creates a DAG from a Circuit struct.
func FromCircuit(circuit *Circuit) *CircuitDAG {
	dag := NewCircuitDAG(circuit.NumQubits)

	// Track the last gate on each qubit to establish dependencies
	lastGateOnQubit := make(map[int]string)

	for i, gate := range circuit.Gates {
		node := &DAGNode{
			Index:        i,
			Gate:         gate,
			Dependencies: []string{},
		}

		qubitsUsed := gate.Qubits()
		if gate.Type == "BARRIER" {
			qubitsUsed = make([]int, circuit.NumQubits)
			for q := range qubitsUsed {
				qubitsUsed[q] = q
			}
		}

		// Add dependencies on previous gates using the same qubits
		for _, qubit := range qubitsUsed {
			if lastID, ok := lastGateOnQubit[qubit]; ok && !slices.Contains(node.Dependencies, lastID) {
				node.Dependencies = append(node.Dependencies, lastID)
			}
		}

		dag.AddNode(node)

		for _, qubit := range qubitsUsed {
			lastGateOnQubit[qubit] = node.ID
		}
	}

	return dag
}

// TopologicalSort returns nodes in topological order (respecting dependencies).
// Ties are broken by position in the source circuit so the result is stable.
func (dag *CircuitDAG) TopologicalSort() []*DAGNode {
	visited := make(map[string]bool)
	result := make([]*DAGNode, 0, len(dag.Nodes))

	var visit func(nodeID string)
	visit = func(nodeID string) {
		if visited[nodeID] {
			return
		}
		visited[nodeID] = true

		node := dag.Nodes[nodeID]
		for _, depID := range node.Dependencies {
			visit(depID)
		}
		result = append(result, node)
	}

	for _, id := range dag.order {
		visit(id)
	}

	return result
}

// Layers groups nodes by their longest dependency chain from the inputs.
// Barriers occupy a layer of their own.
func (dag *CircuitDAG) Layers() [][]*DAGNode {
	level := make(map[string]int, len(dag.Nodes))
	var layers [][]*DAGNode
	for _, node := range dag.TopologicalSort() {
		l := 0
		for _, dep := range node.Dependencies {
			l = max(l, level[dep]+1)
		}
		level[node.ID] = l
		for len(layers) <= l {
			layers = append(layers, nil)
		}
		layers[l] = append(layers[l], node)
	}
	return layers
}

// Depth returns the number of layers, ignoring barriers.
func (dag *CircuitDAG) Depth() int {
	depth := 0
	for _, layer := range dag.Layers() {
		if slices.ContainsFunc(layer, func(n *DAGNode) bool { return n.Gate.Type != "BARRIER" }) {
			depth++
		}
	}
	return depth
}

// GetNodesOnQubit returns all nodes that reference a specific qubit, in program order.
func (dag *CircuitDAG) GetNodesOnQubit(qubit int) []*DAGNode {
	var result []*DAGNode
	for _, id := range dag.order {
		if node := dag.Nodes[id]; node.Gate.References(qubit) {
			result = append(result, node)
		}
	}
	return result
}

// MultiQubitCount returns the number of gates acting on more than one qubit.
func (dag *CircuitDAG) MultiQubitCount() int {
	n := 0
	for _, node := range dag.Nodes {
		if len(node.Gate.Qubits()) > 1 {
			n++
		}
	}
	return n
}

// Stats summarizes a circuit for reporting.
type Stats struct {
	Qubits     int            `json:"qubits"`
	Gates      int            `json:"gates"`
	Depth      int            `json:"depth"`
	MultiQubit int            `json:"multi_qubit"`
	Ops        map[string]int `json:"ops"`
}

// ComputeStats derives Stats from the circuit's DAG.
func ComputeStats(c *Circuit) Stats {
	dag := FromCircuit(c)
	return Stats{
		Qubits:     c.NumQubits,
		Gates:      c.Size(),
		Depth:      dag.Depth(),
		MultiQubit: dag.MultiQubitCount(),
		Ops:        c.CountOps(),
	}
}
