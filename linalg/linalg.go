// Package linalg holds the small pieces of complex linear algebra the
// photonic gate array is assembled from:
//   - Tensor: a dense float64 tensor used for the real paired encoding
//   - RealToComplex / ComplexToReal: the real <-> complex bridge
//   - Kron / KronPower / ApplyKron: Kronecker (tensor) products
//   - Identity, BeamSplitter, CPhase, CPhaseModified: fixed gates
//
// Complex matrices are gonum CDense values; products go through
// cblas128 so the pure-Go BLAS (or any registered implementation) does
// the heavy lifting.
package linalg

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned (wrapped) whenever an operand has the wrong shape.
var ErrShape = errors.New("shape mismatch")

// Mul returns a·b.
func Mul(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		panic(mat.ErrShape)
	}
	c := mat.NewCDense(ar, bc, nil)
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, a.RawCMatrix(), b.RawCMatrix(), 0, c.RawCMatrix())
	return c
}

// MulConjTrans returns a·bᴴ.
func MulConjTrans(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != bc {
		panic(mat.ErrShape)
	}
	c := mat.NewCDense(ar, br, nil)
	cblas128.Gemm(blas.NoTrans, blas.ConjTrans, 1, a.RawCMatrix(), b.RawCMatrix(), 0, c.RawCMatrix())
	return c
}

// MulChain multiplies the matrices left to right.
func MulChain(ms ...*mat.CDense) *mat.CDense {
	if len(ms) == 0 {
		return nil
	}
	out := Clone(ms[0])
	for _, m := range ms[1:] {
		out = Mul(out, m)
	}
	return out
}

// Clone returns a deep copy of m.
func Clone(m *mat.CDense) *mat.CDense {
	r, c := m.Dims()
	out := mat.NewCDense(r, c, nil)
	out.Copy(m)
	return out
}

// Eye returns the n×n identity.
func Eye(n int) *mat.CDense {
	out := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}
	return out
}

// Rows copies the rows of m into a fresh row-major slice.
func Rows(m *mat.CDense) []complex128 {
	r, c := m.Dims()
	raw := m.RawCMatrix()
	out := make([]complex128, r*c)
	for i := 0; i < r; i++ {
		copy(out[i*c:(i+1)*c], raw.Data[i*raw.Stride:i*raw.Stride+c])
	}
	return out
}
