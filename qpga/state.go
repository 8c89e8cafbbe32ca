package qpga

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/qpga/linalg"
)

// StateBatch is a batch of states in one of the two encodings: a
// [batch, 2^n] complex matrix or the real paired [batch, 2, 2^n] tensor.
// Exactly one field is set.
type StateBatch struct {
	Complex *mat.CDense
	Real    *linalg.Tensor
}

// ComplexBatch wraps a complex-native batch.
func ComplexBatch(x *mat.CDense) StateBatch {
	return StateBatch{Complex: x}
}

// RealBatch wraps a real paired batch.
func RealBatch(t *linalg.Tensor) StateBatch {
	return StateBatch{Real: t}
}

// IsComplex reports whether the batch is in the complex-native encoding.
func (s StateBatch) IsComplex() bool {
	return s.Complex != nil
}

// ToComplex returns the batch as a complex matrix, converting if needed.
func (s StateBatch) ToComplex() (*mat.CDense, error) {
	switch {
	case s.Complex != nil && s.Real != nil:
		return nil, errors.Wrap(ErrConfig, "state batch has both encodings set")
	case s.Complex != nil:
		return s.Complex, nil
	case s.Real != nil:
		return linalg.RealToComplex(s.Real)
	default:
		return nil, errors.Wrap(ErrDimension, "empty state batch")
	}
}

// ToReal returns the batch in the real paired encoding.
func (s StateBatch) ToReal() (*linalg.Tensor, error) {
	if s.Real != nil && s.Complex == nil {
		return s.Real, nil
	}
	x, err := s.ToComplex()
	if err != nil {
		return nil, err
	}
	return linalg.ComplexToReal(x), nil
}

// BasisStates returns a [len(indices), dim] batch whose row r is the
// computational basis state |indices[r]>.
func BasisStates(dim int, indices ...int) (*mat.CDense, error) {
	if len(indices) == 0 {
		return nil, errors.Wrap(ErrDimension, "no basis indices")
	}
	x := mat.NewCDense(len(indices), dim, nil)
	for r, idx := range indices {
		if idx < 0 || idx >= dim {
			return nil, errors.Wrapf(ErrDimension, "basis index %d outside [0, %d)", idx, dim)
		}
		x.Set(r, idx, 1)
	}
	return x, nil
}
