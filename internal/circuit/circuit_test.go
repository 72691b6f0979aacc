package circuit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderNormalizesControls(t *testing.T) {
	c := New("norm", 4)
	c.MCX(nil, 0)
	c.MCX([]int{1}, 0)
	c.MCP(math.Pi, nil, 2)
	c.MCP(math.Pi, []int{3}, 2)
	c.MCSwap(nil, 0, 1)

	types := make([]string, len(c.Gates))
	for i, g := range c.Gates {
		types[i] = g.Type
	}
	assert.Equal(t, []string{"X", "CX", "P", "CP", "SWAP"}, types)
}

func TestBuilderRecordsFirstError(t *testing.T) {
	c := New("oob", 2)
	c.X(5)
	c.MCX([]int{0, 0}, 1)
	require.Error(t, c.Err())
	assert.Contains(t, c.Err().Error(), "qubit 5")
	assert.Empty(t, c.Gates)
}

func TestLayering(t *testing.T) {
	c := New("layers", 3)
	c.H(0, 1, 2)
	c.CX(0, 1)
	c.X(2)
	c.Barrier()
	c.X(0)

	steps := []int{0, 0, 0, 1, 1, 2, 3}
	for i, g := range c.Gates {
		if g.Step != steps[i] {
			t.Errorf("gate %d (%s): step %d, want %d", i, g.Type, g.Step, steps[i])
		}
	}
	if c.MaxSteps != 4 {
		t.Errorf("MaxSteps = %d, want 4", c.MaxSteps)
	}
}

func TestComposeMapsQubits(t *testing.T) {
	sub := New("sub", 3)
	sub.MCX([]int{0, 1}, 2)
	sub.MCSwap([]int{2}, 0, 1)

	c := New("outer", 6)
	require.NoError(t, c.Compose(sub, []int{5, 3, 1}))
	require.Len(t, c.Gates, 2)
	assert.Equal(t, []int{5, 3}, c.Gates[0].Controls)
	assert.Equal(t, 1, c.Gates[0].Target)
	assert.Equal(t, []int{1, 5, 3}, c.Gates[1].Qubits())

	err := c.Compose(sub, []int{0, 1})
	assert.Error(t, err)
	err = c.Compose(sub, []int{0, 1, 9})
	assert.Error(t, err)
}

func TestInverseIsIdentityOnSimulator(t *testing.T) {
	c := New("forward", 3)
	c.H(0, 1)
	c.MCP(math.Pi/4, []int{0, 1}, 2)
	c.RY(0.3, 2)
	c.MCRY(1.1, []int{0}, 1)
	c.CX(2, 0)
	c.MCSwap([]int{2}, 0, 1)

	inv, err := c.Inverse()
	require.NoError(t, err)

	for input := range 8 {
		s, err := Simulate(c, input)
		require.NoError(t, err)
		require.NoError(t, s.Run(inv))
		assert.InDelta(t, 1.0, s.Probability(input), 1e-9, "input %d", input)
	}
}

func TestInverseRejectsMeasurement(t *testing.T) {
	c := New("m", 1)
	c.H(0).Measure(0, 0)
	_, err := c.Inverse()
	assert.Error(t, err)
}

func TestStatsFromDAG(t *testing.T) {
	c := New("stats", 3)
	c.H(0)
	c.H(1)
	c.MCX([]int{0, 1}, 2)
	c.Barrier()
	c.X(2)

	st := ComputeStats(c)
	assert.Equal(t, 4, st.Gates)
	assert.Equal(t, 3, st.Depth)
	assert.Equal(t, 1, st.MultiQubit)
	assert.Equal(t, 2, st.Ops["H"])

	dag := FromCircuit(c)
	order := dag.TopologicalSort()
	require.Len(t, order, 5)
	assert.Equal(t, "MCX", order[2].Gate.Type)
	assert.Len(t, dag.GetNodesOnQubit(2), 2)
}
