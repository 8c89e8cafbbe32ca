package qpga

import (
	"fmt"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/qpga/linalg"
)

// Circuit is the full gate array: an input SingleQubitLayer followed by
// Depth pairs of (CPhaseLayer with parity i%2, SingleQubitLayer).
type Circuit struct {
	cfg Config
	dim int

	input  *SingleQubitLayer
	cphase []*CPhaseLayer
	single []*SingleQubitLayer

	// layers in application order, 2·depth+1 entries
	layers []Layer

	observer  LayerObserver
	stepCount uint64

	gpu *gpuState
}

// NewCircuit validates cfg and builds the layers. Phases are drawn from a
// generator seeded with cfg.Seed, so equal configs give equal circuits.
func NewCircuit(cfg Config) (*Circuit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)^0x9e3779b97f4a7c15))

	c := &Circuit{
		cfg:    cfg,
		dim:    cfg.Dimension(),
		layers: make([]Layer, 0, 2*cfg.Depth+1),
	}

	input, err := NewSingleQubitLayer("input", cfg.NumQubits, rng)
	if err != nil {
		return nil, err
	}
	input.Factored = cfg.Factored
	c.input = input
	c.layers = append(c.layers, input)

	for i := 0; i < cfg.Depth; i++ {
		cp, err := NewCPhaseLayer(cfg.NumQubits, i%2, cfg.UseStandardCPhase)
		if err != nil {
			return nil, err
		}
		cp.name = fmt.Sprintf("cphase_%d", i)
		cp.Factored = cfg.Factored

		sq, err := NewSingleQubitLayer(fmt.Sprintf("single_qubit_%d", i), cfg.NumQubits, rng)
		if err != nil {
			return nil, err
		}
		sq.Factored = cfg.Factored

		c.cphase = append(c.cphase, cp)
		c.single = append(c.single, sq)
		c.layers = append(c.layers, cp, sq)
	}

	Logger.Debug("built circuit", "qubits", cfg.NumQubits, "depth", cfg.Depth,
		"layers", len(c.layers), "standard_cphase", cfg.UseStandardCPhase, "factored", cfg.Factored)
	return c, nil
}

// Config returns the construction parameters.
func (c *Circuit) Config() Config { return c.cfg }

// NumQubits returns n.
func (c *Circuit) NumQubits() int { return c.cfg.NumQubits }

// Dimension returns 2^n.
func (c *Circuit) Dimension() int { return c.dim }

// Depth returns the number of (CPhase, SingleQubit) pairs.
func (c *Circuit) Depth() int { return c.cfg.Depth }

// Layers returns the layers in application order.
func (c *Circuit) Layers() []Layer {
	return append([]Layer(nil), c.layers...)
}

// InputLayer returns the initial single-qubit layer.
func (c *Circuit) InputLayer() *SingleQubitLayer { return c.input }

// CPhaseLayers returns the entangling layers, one per depth step.
func (c *Circuit) CPhaseLayers() []*CPhaseLayer {
	return append([]*CPhaseLayer(nil), c.cphase...)
}

// SingleQubitLayers returns the single-qubit layers that follow each
// entangling layer (the input layer is not included).
func (c *Circuit) SingleQubitLayers() []*SingleQubitLayer {
	return append([]*SingleQubitLayer(nil), c.single...)
}

// SetObserver attaches an observer that sees every layer's output on
// Forward and every layer's input gradient on Backward. nil detaches.
func (c *Circuit) SetObserver(o LayerObserver) {
	c.observer = o
}

// Forward maps a complex [batch, 2^n] batch through every layer.
func (c *Circuit) Forward(x *mat.CDense) (*mat.CDense, error) {
	if err := checkWidth(x, c.dim); err != nil {
		return nil, err
	}
	c.stepCount++

	out := x
	for i, l := range c.layers {
		var err error
		out, err = l.Forward(out)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		c.notify("forward", i, l, out)
	}
	return out, nil
}

// Backward propagates dL/d(output) through the layers in reverse, adding
// into every parameter's Grad, and returns dL/d(input).
func (c *Circuit) Backward(grad *mat.CDense) (*mat.CDense, error) {
	if err := checkWidth(grad, c.dim); err != nil {
		return nil, err
	}

	g := grad
	for i := len(c.layers) - 1; i >= 0; i-- {
		var err error
		g, err = c.layers[i].Backward(g)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		c.notify("backward", i, c.layers[i], g)
	}
	return g, nil
}

// Call is the boundary-aware forward pass. Unless ComplexInputs is set the
// input must be in the real paired encoding, and unless ComplexOutputs is
// set the result is returned in it.
func (c *Circuit) Call(in StateBatch) (StateBatch, error) {
	x, err := c.decode(in, c.cfg.ComplexInputs, "input")
	if err != nil {
		return StateBatch{}, err
	}
	out, err := c.Forward(x)
	if err != nil {
		return StateBatch{}, err
	}
	return encode(out, c.cfg.ComplexOutputs), nil
}

// CallBackward is Backward for Call: grad is in the output encoding and
// the returned input gradient is in the input encoding. In the real
// encoding the two planes hold ∂L/∂Re and ∂L/∂Im.
func (c *Circuit) CallBackward(grad StateBatch) (StateBatch, error) {
	g, err := c.decode(grad, c.cfg.ComplexOutputs, "gradient")
	if err != nil {
		return StateBatch{}, err
	}
	gx, err := c.Backward(g)
	if err != nil {
		return StateBatch{}, err
	}
	return encode(gx, c.cfg.ComplexInputs), nil
}

func (c *Circuit) decode(in StateBatch, wantComplex bool, what string) (*mat.CDense, error) {
	if in.IsComplex() != wantComplex {
		return nil, errors.Wrapf(ErrConfig, "%s encoding: complex=%t, circuit expects complex=%t", what, in.IsComplex(), wantComplex)
	}
	return in.ToComplex()
}

func encode(x *mat.CDense, complexNative bool) StateBatch {
	if complexNative {
		return ComplexBatch(x)
	}
	return RealBatch(linalg.ComplexToReal(x))
}

// TransferMatrix returns the product of every layer's transfer matrix in
// application order, so Forward(x) equals x·TransferMatrix().
func (c *Circuit) TransferMatrix() *mat.CDense {
	out := linalg.Eye(c.dim)
	for _, l := range c.layers {
		out = linalg.Mul(out, l.TransferMatrix())
	}
	return out
}

// Parameters returns every trainable phase vector in layer order.
func (c *Circuit) Parameters() []*Parameter {
	var params []*Parameter
	for _, l := range c.layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

// Parameter looks a phase vector up by its full name, e.g. "input.alphas".
func (c *Circuit) Parameter(name string) (*Parameter, bool) {
	for _, p := range c.Parameters() {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// NumParameters returns the total count of trainable phases.
func (c *Circuit) NumParameters() int {
	total := 0
	for _, p := range c.Parameters() {
		total += p.Len()
	}
	return total
}

// ZeroGrad clears every parameter gradient.
func (c *Circuit) ZeroGrad() {
	for _, p := range c.Parameters() {
		p.ZeroGrad()
	}
}

func (c *Circuit) notify(eventType string, idx int, l Layer, data *mat.CDense) {
	if c.observer == nil {
		return
	}
	event := LayerEvent{
		Type:      eventType,
		LayerIdx:  idx,
		LayerName: l.Name(),
		LayerKind: l.Kind(),
		Stats:     computeStateStats(data),
		StepCount: c.stepCount,
	}
	if eventType == "forward" {
		c.observer.OnForward(event)
	} else {
		c.observer.OnBackward(event)
	}
}
