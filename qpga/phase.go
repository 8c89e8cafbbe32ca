package qpga

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/qpga/linalg"
)

// qubitBit returns the computational-basis bit of qubit k in index j.
// Qubit 0 is the most significant bit.
func qubitBit(j, k, n int) int {
	return (j >> (n - 1 - k)) & 1
}

// PhaseAngles returns the diagonal angles of PhaseDiagonal(u, v):
// entry j is the sum over qubits k of u[k] when qubit k is 0 in j and
// v[k] when it is 1.
func PhaseAngles(u, v []float64) ([]float64, error) {
	n := len(u)
	if len(v) != n {
		return nil, errors.Wrapf(ErrDimension, "phase vectors differ in length: %d vs %d", len(u), len(v))
	}
	d := 1 << n
	angles := make([]float64, d)
	for j := 0; j < d; j++ {
		var a float64
		for k := 0; k < n; k++ {
			if qubitBit(j, k, n) == 0 {
				a += u[k]
			} else {
				a += v[k]
			}
		}
		angles[j] = a
	}
	return angles, nil
}

// PhaseDiagonal builds the 2^n × 2^n diagonal unitary
// diag(e^{iu_0}, e^{iv_0}) ⊗ ... ⊗ diag(e^{iu_{n-1}}, e^{iv_{n-1}}).
func PhaseDiagonal(u, v []float64) (*mat.CDense, error) {
	if len(u) != len(v) {
		return nil, errors.Wrapf(ErrDimension, "phase vectors differ in length: %d vs %d", len(u), len(v))
	}
	ops := make([]*mat.CDense, len(u))
	for k := range u {
		ops[k] = mat.NewCDense(2, 2, []complex128{
			cis(u[k]), 0,
			0, cis(v[k]),
		})
	}
	return linalg.Kron(ops...), nil
}

func cis(a float64) complex128 {
	return complex(math.Cos(a), math.Sin(a))
}

// applyPhase returns x with column j multiplied by e^{i·angles[j]}.
// Same result as x·diag(e^{i·angles}) without the dense product.
func applyPhase(x *mat.CDense, angles []float64) *mat.CDense {
	rows, cols := x.Dims()
	out := mat.NewCDense(rows, cols, nil)
	phases := make([]complex128, cols)
	for j, a := range angles {
		phases[j] = cis(a)
	}
	for b := 0; b < rows; b++ {
		for j := 0; j < cols; j++ {
			out.Set(b, j, x.At(b, j)*phases[j])
		}
	}
	return out
}

// phaseBackward differentiates y = x·diag(e^{iΦ}). y is the cached
// stage output and grad the gradient with respect to y. It returns the
// gradient with respect to x and dL/dΦ_j summed over the batch.
func phaseBackward(grad, y *mat.CDense, angles []float64) (*mat.CDense, []float64) {
	rows, cols := grad.Dims()
	gx := mat.NewCDense(rows, cols, nil)
	dPhi := make([]float64, cols)
	for j := 0; j < cols; j++ {
		back := cis(-angles[j])
		for b := 0; b < rows; b++ {
			g := grad.At(b, j)
			yv := y.At(b, j)
			// dL/dΦ = Re(conj(g)·i·y) = -Im(conj(g)·y)
			dPhi[j] -= imag(cmplx.Conj(g) * yv)
			gx.Set(b, j, g*back)
		}
	}
	return gx, dPhi
}

// scatterPhaseGrad folds dL/dΦ_j back onto the per-qubit phase vectors:
// first[k] collects the indices where qubit k is 0, second[k] where it is 1.
func scatterPhaseGrad(dPhi []float64, n int) (first, second []float64) {
	first = make([]float64, n)
	second = make([]float64, n)
	for j, g := range dPhi {
		for k := 0; k < n; k++ {
			if qubitBit(j, k, n) == 0 {
				first[k] += g
			} else {
				second[k] += g
			}
		}
	}
	return first, second
}
