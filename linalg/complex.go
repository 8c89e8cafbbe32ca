package linalg

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// pairedDims validates a real paired encoding. Accepted shapes are
// [batch, 2, d] and [2, d] (a batch of one).
func pairedDims(shape []int) (batch, d int, err error) {
	switch len(shape) {
	case 2:
		batch, d = 1, shape[1]
		if shape[0] != 2 {
			return 0, 0, errors.Wrapf(ErrShape, "paired encoding needs a leading 2, got %v", shape)
		}
	case 3:
		batch, d = shape[0], shape[2]
		if shape[1] != 2 {
			return 0, 0, errors.Wrapf(ErrShape, "paired encoding needs [batch, 2, d], got %v", shape)
		}
	default:
		return 0, 0, errors.Wrapf(ErrShape, "paired encoding needs rank 2 or 3, got %v", shape)
	}
	if batch <= 0 || d <= 0 {
		return 0, 0, errors.Wrapf(ErrShape, "empty paired encoding %v", shape)
	}
	return batch, d, nil
}

// RealToComplex turns a [batch, 2, d] real encoding (real parts at index
// 0, imaginary parts at index 1) into a [batch, d] complex matrix.
func RealToComplex(t *Tensor) (*mat.CDense, error) {
	if t == nil {
		return nil, errors.Wrap(ErrShape, "nil tensor")
	}
	batch, d, err := pairedDims(t.Shape)
	if err != nil {
		return nil, err
	}
	if len(t.Data) != batch*2*d {
		return nil, errors.Wrapf(ErrShape, "data length %d does not match shape %v", len(t.Data), t.Shape)
	}

	data := make([]complex128, batch*d)
	for b := 0; b < batch; b++ {
		re := t.Data[(2*b)*d : (2*b+1)*d]
		im := t.Data[(2*b+1)*d : (2*b+2)*d]
		for j := 0; j < d; j++ {
			data[b*d+j] = complex(re[j], im[j])
		}
	}
	return mat.NewCDense(batch, d, data), nil
}

// ComplexToReal is the inverse of RealToComplex and always yields
// shape [batch, 2, d].
func ComplexToReal(x *mat.CDense) *Tensor {
	batch, d := x.Dims()
	out := NewTensor(batch, 2, d)
	for b := 0; b < batch; b++ {
		for j := 0; j < d; j++ {
			v := x.At(b, j)
			out.Data[(2*b)*d+j] = real(v)
			out.Data[(2*b+1)*d+j] = imag(v)
		}
	}
	return out
}
