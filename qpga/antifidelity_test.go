package qpga

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/qpga/linalg"
)

func TestAntifidelityIdenticalAndGlobalPhase(t *testing.T) {
	x := randomStates(testRNG(1), 3, 8)
	af, err := Antifidelity(ComplexBatch(x), ComplexBatch(x))
	require.NoError(t, err)
	for _, v := range af {
		assert.InDelta(t, 0, v, tol)
	}

	shifted := linalg.Clone(x)
	phase := cmplx.Exp(complex(0, 1.3))
	r, c := shifted.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			shifted.Set(i, j, shifted.At(i, j)*phase)
		}
	}
	loss, err := AntifidelityLoss(ComplexBatch(x), ComplexBatch(shifted))
	require.NoError(t, err)
	assert.InDelta(t, 0, loss, tol)
}

func TestAntifidelityOrthogonal(t *testing.T) {
	a, err := BasisStates(4, 0, 1)
	require.NoError(t, err)
	b, err := BasisStates(4, 2, 3)
	require.NoError(t, err)

	af, err := Antifidelity(ComplexBatch(a), ComplexBatch(b))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, af)
}

func TestAntifidelityHalfOverlap(t *testing.T) {
	s := 1 / math.Sqrt2
	a := mat.NewCDense(1, 2, []complex128{1, 0})
	b := mat.NewCDense(1, 2, []complex128{complex(s, 0), complex(0, s)})

	loss, err := AntifidelityLoss(ComplexBatch(a), RealBatch(linalg.ComplexToReal(b)))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, loss, tol)
}

func TestAntifidelityShapeMismatch(t *testing.T) {
	a := randomStates(testRNG(1), 2, 4)
	b := randomStates(testRNG(2), 3, 4)
	_, err := Antifidelity(ComplexBatch(a), ComplexBatch(b))
	assert.Equal(t, ErrDimension, errors.Cause(err))

	_, err = AntifidelityGrad(ComplexBatch(a), StateBatch{})
	assert.Error(t, err)
}

// lossAt evaluates the summed antifidelity of the circuit against target.
func lossAt(t *testing.T, c *Circuit, x, target *mat.CDense) float64 {
	t.Helper()
	out, err := c.Forward(x)
	require.NoError(t, err)
	af, err := Antifidelity(ComplexBatch(target), ComplexBatch(out))
	require.NoError(t, err)
	var sum float64
	for _, v := range af {
		sum += v
	}
	return sum
}

func TestBackwardMatchesFiniteDifferences(t *testing.T) {
	for _, factored := range []bool{false, true} {
		cfg := complexConfig(2, 2)
		cfg.Seed = 21
		cfg.Factored = factored
		c := newTestCircuit(t, cfg)

		rng := testRNG(31)
		x := randomStates(rng, 2, 4)
		target := randomStates(rng, 2, 4)

		out, err := c.Forward(x)
		require.NoError(t, err)
		grad, err := AntifidelityGrad(ComplexBatch(target), ComplexBatch(out))
		require.NoError(t, err)
		c.ZeroGrad()
		_, err = c.Backward(grad)
		require.NoError(t, err)

		const h = 1e-6
		for _, p := range c.Parameters() {
			for i := range p.Value {
				orig := p.Value[i]
				p.Value[i] = orig + h
				up := lossAt(t, c, x, target)
				p.Value[i] = orig - h
				down := lossAt(t, c, x, target)
				p.Value[i] = orig

				numeric := (up - down) / (2 * h)
				assert.InDelta(t, numeric, p.Grad[i], 1e-6, "%s[%d] factored=%t", p.Name, i, factored)
			}
		}
	}
}

func TestBackwardInputGradient(t *testing.T) {
	c := newTestCircuit(t, complexConfig(2, 1))
	rng := testRNG(13)
	x := randomStates(rng, 1, 4)
	target := randomStates(rng, 1, 4)

	out, err := c.Forward(x)
	require.NoError(t, err)
	grad, err := AntifidelityGrad(ComplexBatch(target), ComplexBatch(out))
	require.NoError(t, err)
	gx, err := c.Backward(grad)
	require.NoError(t, err)

	const h = 1e-6
	for j := 0; j < 4; j++ {
		for _, dir := range []complex128{1, 1i} {
			orig := x.At(0, j)
			x.Set(0, j, orig+complex(h, 0)*dir)
			up := lossAt(t, c, x, target)
			x.Set(0, j, orig-complex(h, 0)*dir)
			down := lossAt(t, c, x, target)
			x.Set(0, j, orig)

			numeric := (up - down) / (2 * h)
			analytic := real(gx.At(0, j))
			if dir == 1i {
				analytic = imag(gx.At(0, j))
			}
			assert.InDelta(t, numeric, analytic, 1e-6, "amp %d dir %v", j, dir)
		}
	}
}

func TestCallBackwardRealEncoding(t *testing.T) {
	c := newTestCircuit(t, DefaultConfig(2, 1))
	x := randomStates(testRNG(2), 2, 4)

	_, err := c.Call(RealBatch(linalg.ComplexToReal(x)))
	require.NoError(t, err)

	g := randomStates(testRNG(3), 2, 4)
	gx, err := c.CallBackward(RealBatch(linalg.ComplexToReal(g)))
	require.NoError(t, err)
	require.False(t, gx.IsComplex())

	got, err := gx.ToComplex()
	require.NoError(t, err)
	requireCEqual(t, linalg.MulConjTrans(g, c.TransferMatrix()), got, tol)

	_, err = c.CallBackward(ComplexBatch(g))
	assert.Equal(t, ErrConfig, errors.Cause(err))
}

func TestBackwardAccumulatesUntilZeroGrad(t *testing.T) {
	c := newTestCircuit(t, complexConfig(1, 1))
	x := randomStates(testRNG(4), 1, 2)
	g := randomStates(testRNG(5), 1, 2)

	_, err := c.Forward(x)
	require.NoError(t, err)
	_, err = c.Backward(g)
	require.NoError(t, err)
	first := append([]float64(nil), c.InputLayer().Alphas.Grad...)

	_, err = c.Backward(g)
	require.NoError(t, err)
	assert.InDelta(t, 2*first[0], c.InputLayer().Alphas.Grad[0], tol)

	c.ZeroGrad()
	for _, p := range c.Parameters() {
		for _, v := range p.Grad {
			assert.Zero(t, v)
		}
	}
}
