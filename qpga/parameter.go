package qpga

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
)

// Parameter is a named trainable phase vector with its gradient.
// Value may be changed in place between forward passes; Backward adds
// into Grad.
type Parameter struct {
	Name  string
	Value []float64
	Grad  []float64
}

// newPhaseParameter draws n phases uniformly from [0, 2π).
func newPhaseParameter(name string, n int, rng *rand.Rand) *Parameter {
	p := &Parameter{
		Name:  name,
		Value: make([]float64, n),
		Grad:  make([]float64, n),
	}
	for i := range p.Value {
		p.Value[i] = rng.Float64() * 2 * math.Pi
	}
	return p
}

// Len returns the number of phases.
func (p *Parameter) Len() int {
	return len(p.Value)
}

// Set copies values into the parameter.
func (p *Parameter) Set(values []float64) error {
	if len(values) != len(p.Value) {
		return errors.Wrapf(ErrDimension, "%s: expected %d values, got %d", p.Name, len(p.Value), len(values))
	}
	copy(p.Value, values)
	return nil
}

// ZeroGrad clears the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}
