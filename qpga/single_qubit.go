package qpga

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/qpga/linalg"
)

// SingleQubitLayer applies the same four-phase Mach-Zehnder unit to every
// qubit:
//
//	x → x·P(α,β) → ·B → ·P(θ,0) → ·B → ·P(φ,0)
//
// where P is a PhaseDiagonal and B the n-fold Kronecker power of the beam
// splitter. B is built once; the phase diagonals are re-derived from the
// current parameters on every call.
type SingleQubitLayer struct {
	name      string
	numQubits int
	dim       int

	Alphas *Parameter
	Betas  *Parameter
	Thetas *Parameter
	Phis   *Parameter

	// Factored applies B one qubit at a time instead of as a dense matrix.
	Factored bool

	bs        *mat.CDense
	bsFactors []*mat.CDense
	bsAdjoint []*mat.CDense

	cache *singleQubitCache
}

// singleQubitCache keeps the outputs of the three phase stages and their
// angles from the last Forward.
type singleQubitCache struct {
	inAngles, thetaAngles, phiAngles []float64
	inOut, thetaOut, phiOut          *mat.CDense
}

// NewSingleQubitLayer creates a layer on numQubits qubits with phases
// drawn uniformly from [0, 2π). Parameter names are prefixed with name.
func NewSingleQubitLayer(name string, numQubits int, rng *rand.Rand) (*SingleQubitLayer, error) {
	if err := checkQubits(numQubits); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	factors := make([]*mat.CDense, numQubits)
	for i := range factors {
		factors[i] = linalg.BeamSplitter()
	}

	return &SingleQubitLayer{
		name:      name,
		numQubits: numQubits,
		dim:       1 << numQubits,
		Alphas:    newPhaseParameter(name+".alphas", numQubits, rng),
		Betas:     newPhaseParameter(name+".betas", numQubits, rng),
		Thetas:    newPhaseParameter(name+".thetas", numQubits, rng),
		Phis:      newPhaseParameter(name+".phis", numQubits, rng),
		bs:        linalg.Kron(factors...),
		bsFactors: factors,
		bsAdjoint: linalg.ConjTransposeAll(factors),
	}, nil
}

func (l *SingleQubitLayer) Kind() LayerKind { return LayerSingleQubit }
func (l *SingleQubitLayer) Name() string    { return l.name }
func (l *SingleQubitLayer) NumQubits() int  { return l.numQubits }

func (l *SingleQubitLayer) Parameters() []*Parameter {
	return []*Parameter{l.Alphas, l.Betas, l.Thetas, l.Phis}
}

func (l *SingleQubitLayer) Config() LayerConfig {
	return LayerConfig{
		Type:      LayerSingleQubit.String(),
		Name:      l.name,
		NumQubits: l.numQubits,
	}
}

// BeamSplitterMatrix returns the fixed Kronecker power of the beam splitter.
func (l *SingleQubitLayer) BeamSplitterMatrix() *mat.CDense {
	return linalg.Clone(l.bs)
}

func (l *SingleQubitLayer) checkParameters() error {
	for _, p := range l.Parameters() {
		if p.Len() != l.numQubits {
			return errors.Wrapf(ErrDimension, "%s has %d phases, expected %d", p.Name, p.Len(), l.numQubits)
		}
	}
	return nil
}

func (l *SingleQubitLayer) mix(x *mat.CDense) *mat.CDense {
	if l.Factored {
		return linalg.ApplyKron(x, l.bsFactors)
	}
	return linalg.Mul(x, l.bs)
}

func (l *SingleQubitLayer) unmix(grad *mat.CDense) *mat.CDense {
	if l.Factored {
		return linalg.ApplyKron(grad, l.bsAdjoint)
	}
	return linalg.MulConjTrans(grad, l.bs)
}

// Forward applies the five stages to a [batch, 2^n] state.
func (l *SingleQubitLayer) Forward(x *mat.CDense) (*mat.CDense, error) {
	if err := checkWidth(x, l.dim); err != nil {
		return nil, errors.Wrap(err, l.name)
	}
	if err := l.checkParameters(); err != nil {
		return nil, err
	}

	zeros := make([]float64, l.numQubits)
	inAngles, _ := PhaseAngles(l.Alphas.Value, l.Betas.Value)
	thetaAngles, _ := PhaseAngles(l.Thetas.Value, zeros)
	phiAngles, _ := PhaseAngles(l.Phis.Value, zeros)

	inOut := applyPhase(x, inAngles)
	thetaOut := applyPhase(l.mix(inOut), thetaAngles)
	phiOut := applyPhase(l.mix(thetaOut), phiAngles)

	l.cache = &singleQubitCache{
		inAngles:    inAngles,
		thetaAngles: thetaAngles,
		phiAngles:   phiAngles,
		inOut:       inOut,
		thetaOut:    thetaOut,
		phiOut:      phiOut,
	}
	return phiOut, nil
}

// Backward runs the five stages in reverse and adds into the gradients
// of α, β, θ and φ. The zero second phase of the θ and φ stages is not
// trainable, so its share of the gradient is dropped.
func (l *SingleQubitLayer) Backward(grad *mat.CDense) (*mat.CDense, error) {
	if l.cache == nil {
		return nil, errors.Wrap(ErrNoForward, l.name)
	}
	if err := checkWidth(grad, l.dim); err != nil {
		return nil, errors.Wrap(err, l.name)
	}
	c := l.cache
	gr, _ := grad.Dims()
	if fr, _ := c.phiOut.Dims(); gr != fr {
		return nil, errors.Wrapf(ErrDimension, "%s: gradient batch %d, forward batch %d", l.name, gr, fr)
	}

	g, dPhi := phaseBackward(grad, c.phiOut, c.phiAngles)
	phiGrad, _ := scatterPhaseGrad(dPhi, l.numQubits)
	floats.Add(l.Phis.Grad, phiGrad)

	g, dTheta := phaseBackward(l.unmix(g), c.thetaOut, c.thetaAngles)
	thetaGrad, _ := scatterPhaseGrad(dTheta, l.numQubits)
	floats.Add(l.Thetas.Grad, thetaGrad)

	g, dIn := phaseBackward(l.unmix(g), c.inOut, c.inAngles)
	alphaGrad, betaGrad := scatterPhaseGrad(dIn, l.numQubits)
	floats.Add(l.Alphas.Grad, alphaGrad)
	floats.Add(l.Betas.Grad, betaGrad)

	return g, nil
}

// TransferMatrix returns P(α,β)·B·P(θ,0)·B·P(φ,0) for the current phases.
func (l *SingleQubitLayer) TransferMatrix() *mat.CDense {
	zeros := make([]float64, l.numQubits)
	in, err := PhaseDiagonal(l.Alphas.Value, l.Betas.Value)
	if err != nil {
		panic(err)
	}
	theta, err := PhaseDiagonal(l.Thetas.Value, zeros)
	if err != nil {
		panic(err)
	}
	phi, err := PhaseDiagonal(l.Phis.Value, zeros)
	if err != nil {
		panic(err)
	}
	return linalg.MulChain(in, l.bs, theta, l.bs, phi)
}
