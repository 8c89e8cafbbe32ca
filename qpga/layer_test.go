package qpga

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/qpga/linalg"
)

func TestCPhaseTwoQubits(t *testing.T) {
	l, err := NewCPhaseLayer(2, 0, true)
	require.NoError(t, err)
	requireCEqual(t, linalg.CPhase(), l.TransferMatrix(), tol)

	l, err = NewCPhaseLayer(2, 0, false)
	require.NoError(t, err)
	requireCEqual(t, linalg.CPhaseModified(), l.TransferMatrix(), tol)
}

func TestCPhaseParityPlacement(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		parity   int
		standard bool
		want     *mat.CDense
	}{
		{"n3 even", 3, 0, true, linalg.Kron(linalg.CPhase(), linalg.Identity())},
		{"n3 odd", 3, 1, true, linalg.Kron(linalg.Identity(), linalg.CPhase())},
		{"n4 even", 4, 0, true, linalg.Kron(linalg.CPhase(), linalg.CPhase())},
		{"n4 odd", 4, 1, true, linalg.Kron(linalg.Identity(), linalg.CPhase(), linalg.Identity())},
		{"n3 odd modified", 3, 1, false, linalg.Kron(linalg.Identity(), linalg.CPhaseModified())},
		{"n2 odd", 2, 1, true, linalg.Eye(4)},
		{"n1 even", 1, 0, true, linalg.Eye(2)},
		{"n1 odd", 1, 1, false, linalg.Eye(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewCPhaseLayer(tt.n, tt.parity, tt.standard)
			require.NoError(t, err)
			assert.Equal(t, tt.parity, l.Parity())
			assert.Empty(t, l.Parameters())
			requireCEqual(t, tt.want, l.TransferMatrix(), tol)
		})
	}
}

func TestCPhaseRejectsBadConfig(t *testing.T) {
	_, err := NewCPhaseLayer(0, 0, true)
	assert.Equal(t, ErrConfig, errors.Cause(err))
	_, err = NewCPhaseLayer(3, 2, true)
	assert.Equal(t, ErrConfig, errors.Cause(err))
}

func TestCPhaseFactoredMatchesDense(t *testing.T) {
	rng := testRNG(3)
	x := randomStates(rng, 3, 16)
	for parity := 0; parity < 2; parity++ {
		dense, err := NewCPhaseLayer(4, parity, false)
		require.NoError(t, err)
		factored, err := NewCPhaseLayer(4, parity, false)
		require.NoError(t, err)
		factored.Factored = true

		a, err := dense.Forward(x)
		require.NoError(t, err)
		b, err := factored.Forward(x)
		require.NoError(t, err)
		requireCEqual(t, a, b, tol)

		ga, err := dense.Backward(x)
		require.NoError(t, err)
		gb, err := factored.Backward(x)
		require.NoError(t, err)
		requireCEqual(t, ga, gb, tol)
	}
}

func zeroPhases(l *SingleQubitLayer) {
	for _, p := range l.Parameters() {
		for i := range p.Value {
			p.Value[i] = 0
		}
	}
}

func TestSingleQubitZeroPhasesIsBeamSplitterSquared(t *testing.T) {
	l, err := NewSingleQubitLayer("sq", 2, testRNG(1))
	require.NoError(t, err)
	zeroPhases(l)

	bs := l.BeamSplitterMatrix()
	requireCEqual(t, linalg.Mul(bs, bs), l.TransferMatrix(), tol)

	// B² = iX on every qubit
	ix := mat.NewCDense(2, 2, []complex128{0, 1i, 1i, 0})
	requireCEqual(t, linalg.KronPower(ix, 2), l.TransferMatrix(), tol)
}

func TestSingleQubitIsUnitary(t *testing.T) {
	for n := 1; n <= 4; n++ {
		l, err := NewSingleQubitLayer("sq", n, testRNG(uint64(n)))
		require.NoError(t, err)
		assert.True(t, isUnitary(l.TransferMatrix(), 1e-10), "n=%d", n)
	}
}

func TestSingleQubitForwardMatchesTransfer(t *testing.T) {
	rng := testRNG(9)
	l, err := NewSingleQubitLayer("sq", 3, rng)
	require.NoError(t, err)
	x := randomStates(rng, 4, 8)

	out, err := l.Forward(x)
	require.NoError(t, err)
	requireCEqual(t, linalg.Mul(x, l.TransferMatrix()), out, tol)

	l.Factored = true
	factored, err := l.Forward(x)
	require.NoError(t, err)
	requireCEqual(t, out, factored, tol)
}

func TestSingleQubitSeesParameterUpdates(t *testing.T) {
	l, err := NewSingleQubitLayer("sq", 1, testRNG(2))
	require.NoError(t, err)
	x := mat.NewCDense(1, 2, []complex128{1, 0})

	before, err := l.Forward(x)
	require.NoError(t, err)
	require.NoError(t, l.Thetas.Set([]float64{l.Thetas.Value[0] + 0.5}))
	after, err := l.Forward(x)
	require.NoError(t, err)
	assert.False(t, mat.CEqualApprox(before, after, 1e-6))
}

func TestSingleQubitParameterErrors(t *testing.T) {
	_, err := NewSingleQubitLayer("sq", 0, nil)
	assert.Equal(t, ErrConfig, errors.Cause(err))

	l, err := NewSingleQubitLayer("sq", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, ErrDimension, errors.Cause(l.Alphas.Set([]float64{1})))

	l.Betas.Value = []float64{1, 2, 3}
	_, err = l.Forward(mat.NewCDense(1, 4, nil))
	assert.Equal(t, ErrDimension, errors.Cause(err))
}

func TestSingleQubitWidthMismatch(t *testing.T) {
	l, err := NewSingleQubitLayer("sq", 2, testRNG(4))
	require.NoError(t, err)
	_, err = l.Forward(mat.NewCDense(1, 8, nil))
	assert.Equal(t, ErrDimension, errors.Cause(err))
}

func TestSingleQubitBackwardNeedsForward(t *testing.T) {
	l, err := NewSingleQubitLayer("sq", 2, testRNG(4))
	require.NoError(t, err)
	_, err = l.Backward(mat.NewCDense(1, 4, nil))
	assert.Equal(t, ErrNoForward, errors.Cause(err))

	_, err = l.Forward(randomStates(testRNG(5), 2, 4))
	require.NoError(t, err)
	_, err = l.Backward(mat.NewCDense(3, 4, nil))
	assert.Equal(t, ErrDimension, errors.Cause(err))
}

func TestSingleQubitBackwardIsAdjoint(t *testing.T) {
	rng := testRNG(11)
	l, err := NewSingleQubitLayer("sq", 2, rng)
	require.NoError(t, err)
	x := randomStates(rng, 2, 4)
	g := randomStates(rng, 2, 4)

	_, err = l.Forward(x)
	require.NoError(t, err)
	gx, err := l.Backward(g)
	require.NoError(t, err)
	requireCEqual(t, linalg.MulConjTrans(g, l.TransferMatrix()), gx, tol)
}

func TestLayerConfig(t *testing.T) {
	cp, err := NewCPhaseLayer(3, 1, false)
	require.NoError(t, err)
	cfg := cp.Config()
	assert.Equal(t, "cphase", cfg.Type)
	assert.Equal(t, 1, cfg.Parity)
	assert.False(t, cfg.UseStandardCPhase)

	sq, err := NewSingleQubitLayer("input", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, LayerConfig{Type: "single_qubit", Name: "input", NumQubits: 3}, sq.Config())
	assert.Equal(t, "unknown", LayerKind(7).String())
}
