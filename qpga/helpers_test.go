package qpga

import (
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/qpga/linalg"
)

const tol = 1e-9

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

// randomStates returns batch normalized random states of width dim.
func randomStates(rng *rand.Rand, batch, dim int) *mat.CDense {
	data := make([]complex128, batch*dim)
	for b := 0; b < batch; b++ {
		row := data[b*dim : (b+1)*dim]
		for j := range row {
			row[j] = complex(rng.NormFloat64(), rng.NormFloat64())
		}
		cmplxs.Scale(complex(1/cmplxs.Norm(row, 2), 0), row)
	}
	return mat.NewCDense(batch, dim, data)
}

func rowNorm(x *mat.CDense, b int) float64 {
	_, cols := x.Dims()
	raw := x.RawCMatrix()
	return cmplxs.Norm(raw.Data[b*raw.Stride:b*raw.Stride+cols], 2)
}

func requireCEqual(t *testing.T, want, got *mat.CDense, eps float64) {
	t.Helper()
	if !mat.CEqualApprox(want, got, eps) {
		t.Fatalf("matrices differ beyond %g\nwant: %v\ngot:  %v", eps, want.RawCMatrix().Data, got.RawCMatrix().Data)
	}
}

func isUnitary(m *mat.CDense, eps float64) bool {
	r, _ := m.Dims()
	return mat.CEqualApprox(linalg.MulConjTrans(m, m), linalg.Eye(r), eps)
}
