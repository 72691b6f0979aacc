package collision

import (
	"fmt"
	"math"
	"math/bits"

	"gonum.org/v1/gonum/mat"

	"qlbmcirq/internal/circuit"
)

// Permutation maps the configurations of a D2Q4 class onto basis states that
// differ only in channel 0, with channels 1 to 3 set.
func Permutation(e *EquivalenceClass, inverse bool) (*circuit.Circuit, error) {
	if e.Discretization != D2Q4 {
		return nil, fmt.Errorf("permutation is not supported for discretization %s", e.Discretization)
	}
	c := circuit.New("eqc_permutation", 4)
	if !inverse {
		c.CX(1, 2).CX(0, 1).CX(0, 3)
	} else {
		c.Name += "_dg"
		c.CX(0, 3).CX(0, 1).CX(1, 2)
	}
	return c, c.Err()
}

// RedistributionMatrix returns the n-point discrete Fourier transform
// embedded in the identity on ceil(log2 n) qubits, as real and imaginary
// parts.
func RedistributionMatrix(n int) (re, im *mat.Dense) {
	size := 1 << bits.Len(uint(n-1))
	re = mat.NewDense(size, size, nil)
	im = mat.NewDense(size, size, nil)
	for i := range size {
		if i >= n {
			re.Set(i, i, 1)
			continue
		}
		for j := range n {
			theta := 2 * math.Pi * float64(i*j) / float64(n)
			re.Set(i, j, math.Cos(theta)/math.Sqrt(float64(n)))
			im.Set(i, j, math.Sin(theta)/math.Sqrt(float64(n)))
		}
	}
	return re, im
}

// IsUnitary reports whether re + i*im is unitary within tol.
func IsUnitary(re, im mat.Matrix, tol float64) bool {
	r, c := re.Dims()
	if r != c {
		return false
	}
	// U^dagger U = (ReT Re + ImT Im) + i (ReT Im - ImT Re)
	var a, b, sym, anti mat.Dense
	a.Mul(re.T(), re)
	b.Mul(im.T(), im)
	sym.Add(&a, &b)
	a.Mul(re.T(), im)
	b.Mul(im.T(), re)
	anti.Sub(&a, &b)

	id := mat.NewDiagDense(r, nil)
	for i := range r {
		id.SetDiag(i, 1)
	}
	return mat.EqualApprox(&sym, id, tol) && mat.EqualApprox(&anti, mat.NewDense(r, r, nil), tol)
}

// Redistribution mixes the permuted configurations of e with an
// e.Size()-point Fourier transform, controlled on the remaining channels.
// Only two-configuration classes, whose transform is a Hadamard, have a
// gate decomposition here.
func Redistribution(e *EquivalenceClass) (*circuit.Circuit, error) {
	nv := e.Discretization.Velocities
	n := e.Size()
	re, im := RedistributionMatrix(n)
	if !IsUnitary(re, im, 1e-12) {
		return nil, fmt.Errorf("redistribution of %s is not unitary", e)
	}
	nq := bits.Len(uint(n - 1))
	if nq != 1 {
		return nil, fmt.Errorf("redistribution over %d configurations needs a %d-qubit transform, only single-qubit transforms are supported", n, nq)
	}
	c := circuit.New(fmt.Sprintf("redistribution_%d", n), nv)
	controls := make([]int, 0, nv-1)
	for q := nv - 1; q >= 1; q-- {
		controls = append(controls, q)
	}
	c.MCH(controls, 0)
	return c, c.Err()
}

// EQC applies permutation, redistribution and inverse permutation for every
// equivalence class of d.
func EQC(d Discretization) (*circuit.Circuit, error) {
	eqcs, err := EquivalenceClasses(d)
	if err != nil {
		return nil, err
	}
	c := circuit.New("eqc_collision_"+d.String(), d.Velocities)
	all := make([]int, d.Velocities)
	for i := range all {
		all[i] = i
	}
	for _, e := range eqcs {
		perm, err := Permutation(e, false)
		if err != nil {
			return nil, err
		}
		redist, err := Redistribution(e)
		if err != nil {
			return nil, err
		}
		inv, err := Permutation(e, true)
		if err != nil {
			return nil, err
		}
		c.MustCompose(perm, all).MustCompose(redist, all).MustCompose(inv, all)
	}
	return c, c.Err()
}

// simplePrepare flags the head-on D2Q4 pairs on channels 1 to 3.
func simplePrepare(c *circuit.Circuit) {
	c.CX(0, 2).X(0).CX(1, 3).CX(0, 1)
	c.X(0, 1, 2, 3)
}

func simpleUnprepare(c *circuit.Circuit) {
	c.X(0, 1, 2, 3)
	c.CX(0, 1).CX(1, 3).X(0).CX(0, 2)
}

// Simple is the D2Q4 collision of one grid point: head-on pairs are rotated
// into an equal superposition of both pair orientations by RY(pi/2).
func Simple() *circuit.Circuit {
	c := circuit.New("collision_d2q4", 4)
	simplePrepare(c)
	c.MCRY(math.Pi/2, []int{1, 2, 3}, 0)
	simpleUnprepare(c)
	return c
}
