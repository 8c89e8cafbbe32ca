package qpga

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LayerKind identifies the two layer types of the gate array.
type LayerKind int

const (
	LayerSingleQubit LayerKind = 0 // trainable phase–mix–phase–mix–phase unit
	LayerCPhase      LayerKind = 1 // fixed controlled-phase brick wall
)

func (k LayerKind) String() string {
	switch k {
	case LayerSingleQubit:
		return "single_qubit"
	case LayerCPhase:
		return "cphase"
	default:
		return "unknown"
	}
}

// Layer is one stage of the circuit. States are [batch, 2^n] row vectors
// and every layer maps x to x·TransferMatrix().
type Layer interface {
	Kind() LayerKind
	Name() string
	NumQubits() int

	// Forward applies the layer and caches what Backward needs.
	Forward(x *mat.CDense) (*mat.CDense, error)

	// Backward takes dL/d(output) in the G = ∂L/∂Re + i∂L/∂Im convention,
	// adds phase gradients into the layer's parameters and returns
	// dL/d(input).
	Backward(grad *mat.CDense) (*mat.CDense, error)

	// TransferMatrix materializes the layer's current 2^n × 2^n unitary.
	TransferMatrix() *mat.CDense

	// Parameters returns the trainable phase vectors (none for CPhase).
	Parameters() []*Parameter

	// Config returns the construction parameters of the layer.
	Config() LayerConfig
}

// LayerConfig is the serializable description of a layer.
type LayerConfig struct {
	Type              string `json:"type"`
	Name              string `json:"name"`
	NumQubits         int    `json:"num_qubits"`
	Parity            int    `json:"parity,omitempty"`
	UseStandardCPhase bool   `json:"use_standard_cphase,omitempty"`
}

// checkWidth verifies x is a non-empty [batch, dim] batch.
func checkWidth(x *mat.CDense, dim int) error {
	if x == nil || x.IsEmpty() {
		return errors.Wrap(ErrDimension, "empty state batch")
	}
	if _, c := x.Dims(); c != dim {
		return errors.Wrapf(ErrDimension, "state width %d, expected %d", c, dim)
	}
	return nil
}
