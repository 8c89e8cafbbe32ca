package qpga

import (
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"
)

func pairRows(stateTrue, statePred StateBatch) (*mat.CDense, *mat.CDense, error) {
	t, err := stateTrue.ToComplex()
	if err != nil {
		return nil, nil, errors.Wrap(err, "true state")
	}
	p, err := statePred.ToComplex()
	if err != nil {
		return nil, nil, errors.Wrap(err, "predicted state")
	}
	tr, tc := t.Dims()
	pr, pc := p.Dims()
	if tr != pr || tc != pc {
		return nil, nil, errors.Wrapf(ErrDimension, "true state is %dx%d, predicted is %dx%d", tr, tc, pr, pc)
	}
	return t, p, nil
}

// overlaps returns ⟨true_b|pred_b⟩ for every row b.
func overlaps(t, p *mat.CDense) []complex128 {
	rows, cols := t.Dims()
	tr, pr := t.RawCMatrix(), p.RawCMatrix()
	out := make([]complex128, rows)
	for b := 0; b < rows; b++ {
		out[b] = cmplxs.Dot(tr.Data[b*tr.Stride:b*tr.Stride+cols], pr.Data[b*pr.Stride:b*pr.Stride+cols])
	}
	return out
}

// Antifidelity returns 1 − |⟨true|pred⟩|² for every row. Either batch may
// be in either encoding. The result is 0 when the states agree up to a
// global phase and 1 when they are orthogonal.
func Antifidelity(stateTrue, statePred StateBatch) ([]float64, error) {
	t, p, err := pairRows(stateTrue, statePred)
	if err != nil {
		return nil, err
	}
	s := overlaps(t, p)
	out := make([]float64, len(s))
	for b, v := range s {
		a := cmplx.Abs(v)
		out[b] = 1 - a*a
	}
	return out, nil
}

// AntifidelityLoss is the batch mean of Antifidelity.
func AntifidelityLoss(stateTrue, statePred StateBatch) (float64, error) {
	rows, err := Antifidelity(stateTrue, statePred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, v := range rows {
		sum += v
	}
	return sum / float64(len(rows)), nil
}

// AntifidelityGrad returns the gradient of the summed antifidelity with
// respect to the predicted states, as a complex [batch, 2^n] matrix in
// the ∂L/∂Re + i∂L/∂Im convention: G_b = −2·⟨true_b|pred_b⟩·true_b.
// Scale it by 1/batch for AntifidelityLoss.
func AntifidelityGrad(stateTrue, statePred StateBatch) (*mat.CDense, error) {
	t, p, err := pairRows(stateTrue, statePred)
	if err != nil {
		return nil, err
	}
	s := overlaps(t, p)
	rows, cols := t.Dims()
	grad := mat.NewCDense(rows, cols, nil)
	for b := 0; b < rows; b++ {
		for j := 0; j < cols; j++ {
			grad.Set(b, j, -2*s[b]*t.At(b, j))
		}
	}
	return grad, nil
}
