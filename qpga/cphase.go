package qpga

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/qpga/linalg"
)

// CPhaseLayer is the fixed entangling layer. With parity 0 it pairs
// qubits (0,1), (2,3), ...; with parity 1 qubit 0 is left alone and
// (1,2), (3,4), ... are paired. Unpaired qubits get the identity. The
// transfer matrix has no trainable state and is built once.
type CPhaseLayer struct {
	name      string
	numQubits int
	dim       int
	parity    int
	standard  bool

	// Factored applies the blocks one at a time instead of the dense matrix.
	Factored bool

	blocks   []*mat.CDense
	adjoint  []*mat.CDense
	transfer *mat.CDense
}

// NewCPhaseLayer builds the brick-wall layer for the given parity.
// standard selects linalg.CPhase over linalg.CPhaseModified.
func NewCPhaseLayer(numQubits, parity int, standard bool) (*CPhaseLayer, error) {
	if err := checkQubits(numQubits); err != nil {
		return nil, err
	}
	if parity != 0 && parity != 1 {
		return nil, errors.Wrapf(ErrConfig, "parity must be 0 or 1, got %d", parity)
	}

	blocks := cphaseBlocks(numQubits, parity, standard)
	return &CPhaseLayer{
		name:      fmt.Sprintf("cphase_p%d", parity),
		numQubits: numQubits,
		dim:       1 << numQubits,
		parity:    parity,
		standard:  standard,
		blocks:    blocks,
		adjoint:   linalg.ConjTransposeAll(blocks),
		transfer:  linalg.Kron(blocks...),
	}, nil
}

// cphaseBlocks lists the Kronecker factors of the layer, qubit 0 first.
func cphaseBlocks(numQubits, parity int, standard bool) []*mat.CDense {
	var blocks []*mat.CDense
	if parity == 0 {
		pairs := numQubits / 2
		for i := 0; i < pairs; i++ {
			blocks = append(blocks, linalg.CPhaseGate(standard))
		}
		if 2*pairs < numQubits {
			blocks = append(blocks, linalg.Identity())
		}
		return blocks
	}

	blocks = append(blocks, linalg.Identity())
	pairs := (numQubits - 1) / 2
	for i := 0; i < pairs; i++ {
		blocks = append(blocks, linalg.CPhaseGate(standard))
	}
	if 2*pairs+1 < numQubits {
		blocks = append(blocks, linalg.Identity())
	}
	return blocks
}

func (l *CPhaseLayer) Kind() LayerKind          { return LayerCPhase }
func (l *CPhaseLayer) Name() string             { return l.name }
func (l *CPhaseLayer) NumQubits() int           { return l.numQubits }
func (l *CPhaseLayer) Parity() int              { return l.parity }
func (l *CPhaseLayer) Standard() bool           { return l.standard }
func (l *CPhaseLayer) Parameters() []*Parameter { return nil }

func (l *CPhaseLayer) Config() LayerConfig {
	return LayerConfig{
		Type:              LayerCPhase.String(),
		Name:              l.name,
		NumQubits:         l.numQubits,
		Parity:            l.parity,
		UseStandardCPhase: l.standard,
	}
}

// Blocks returns copies of the Kronecker factors, qubit 0 first.
func (l *CPhaseLayer) Blocks() []*mat.CDense {
	out := make([]*mat.CDense, len(l.blocks))
	for i, b := range l.blocks {
		out[i] = linalg.Clone(b)
	}
	return out
}

// TransferMatrix returns a copy of the fixed transfer matrix.
func (l *CPhaseLayer) TransferMatrix() *mat.CDense {
	return linalg.Clone(l.transfer)
}

func (l *CPhaseLayer) Forward(x *mat.CDense) (*mat.CDense, error) {
	if err := checkWidth(x, l.dim); err != nil {
		return nil, errors.Wrap(err, l.name)
	}
	if l.Factored {
		return linalg.ApplyKron(x, l.blocks), nil
	}
	return linalg.Mul(x, l.transfer), nil
}

// Backward returns grad·Tᴴ. The layer is linear with no parameters, so
// no forward cache is needed.
func (l *CPhaseLayer) Backward(grad *mat.CDense) (*mat.CDense, error) {
	if err := checkWidth(grad, l.dim); err != nil {
		return nil, errors.Wrap(err, l.name)
	}
	if l.Factored {
		return linalg.ApplyKron(grad, l.adjoint), nil
	}
	return linalg.MulConjTrans(grad, l.transfer), nil
}
