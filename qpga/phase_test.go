package qpga

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseDiagonalIsDiagonalWithUnitModulus(t *testing.T) {
	u := []float64{-3.5, 0, 12 * math.Pi}
	v := []float64{0.25, -100, 7}

	d, err := PhaseDiagonal(u, v)
	require.NoError(t, err)
	r, c := d.Dims()
	require.Equal(t, 8, r)
	require.Equal(t, 8, c)

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if i == j {
				assert.InDelta(t, 1, cmplx.Abs(d.At(i, j)), tol, "diag %d", i)
			} else {
				assert.Equal(t, complex(0, 0), d.At(i, j), "(%d,%d)", i, j)
			}
		}
	}
}

func TestPhaseDiagonalMatchesAngles(t *testing.T) {
	u := []float64{0.3, 1.1}
	v := []float64{-0.7, 2.5}

	d, err := PhaseDiagonal(u, v)
	require.NoError(t, err)
	angles, err := PhaseAngles(u, v)
	require.NoError(t, err)

	// |01>: qubit 0 is 0, qubit 1 is 1
	assert.InDelta(t, u[0]+v[1], angles[1], tol)
	// |10>
	assert.InDelta(t, v[0]+u[1], angles[2], tol)

	for j, a := range angles {
		assert.InDelta(t, 0, cmplx.Abs(d.At(j, j)-cmplx.Exp(complex(0, a))), tol)
	}
}

func TestPhaseDiagonalSingleQubit(t *testing.T) {
	d, err := PhaseDiagonal([]float64{math.Pi / 2}, []float64{math.Pi})
	require.NoError(t, err)
	assert.InDelta(t, 0, cmplx.Abs(d.At(0, 0)-1i), tol)
	assert.InDelta(t, 0, cmplx.Abs(d.At(1, 1)+1), tol)
}

func TestPhaseDiagonalRejectsMismatchedLengths(t *testing.T) {
	_, err := PhaseDiagonal([]float64{1, 2}, []float64{1})
	require.Error(t, err)
	assert.Equal(t, ErrDimension, errors.Cause(err))

	_, err = PhaseAngles([]float64{1}, nil)
	assert.Equal(t, ErrDimension, errors.Cause(err))
}

func TestScatterPhaseGrad(t *testing.T) {
	// n = 2, indices 00 01 10 11
	first, second := scatterPhaseGrad([]float64{1, 2, 4, 8}, 2)
	assert.Equal(t, []float64{3, 5}, first)
	assert.Equal(t, []float64{12, 10}, second)
}
