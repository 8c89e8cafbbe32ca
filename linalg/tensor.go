package linalg

// Tensor is a dense row-major float64 tensor.
type Tensor struct {
	Data  []float64
	Shape []int
}

// NewTensor allocates a zeroed tensor with the given shape.
func NewTensor(shape ...int) *Tensor {
	return &Tensor{
		Data:  make([]float64, shapeSize(shape)),
		Shape: append([]int(nil), shape...),
	}
}

// NewTensorFromSlice wraps data (not copied) with the given shape.
// It returns nil when the shape does not cover data exactly.
func NewTensorFromSlice(data []float64, shape ...int) *Tensor {
	if shapeSize(shape) != len(data) {
		return nil
	}
	return &Tensor{Data: data, Shape: append([]int(nil), shape...)}
}

// Size returns the number of elements.
func (t *Tensor) Size() int {
	return len(t.Data)
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.Data))
	copy(data, t.Data)
	return &Tensor{Data: data, Shape: append([]int(nil), t.Shape...)}
}

// Reshape returns a view with a new shape sharing the same data, or nil
// if the element count differs.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	if shapeSize(shape) != len(t.Data) {
		return nil
	}
	return &Tensor{Data: t.Data, Shape: append([]int(nil), shape...)}
}

func shapeSize(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
