package qpga

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/qpga/gpu"
)

func TestForwardGPUWithoutInit(t *testing.T) {
	c := newTestCircuit(t, complexConfig(2, 1))
	assert.False(t, c.GPUEnabled())
	_, err := c.ForwardGPU(randomStates(testRNG(1), 1, 4))
	assert.Error(t, err)
	assert.Equal(t, ErrConfig, errors.Cause(c.InitGPU(0)))
	c.ReleaseGPU()
}

func TestForwardGPUMatchesCPU(t *testing.T) {
	if !gpu.Available() {
		t.Skip("no WebGPU adapter")
	}
	c := newTestCircuit(t, complexConfig(3, 2))
	require.NoError(t, c.InitGPU(2))
	defer c.ReleaseGPU()

	x := randomStates(testRNG(2), 2, 8)
	want, err := c.Forward(x)
	require.NoError(t, err)
	got, err := c.ForwardGPU(x)
	require.NoError(t, err)
	assert.True(t, mat.CEqualApprox(want, got, 1e-4))

	_, err = c.ForwardGPU(randomStates(testRNG(3), 3, 8))
	assert.Equal(t, ErrDimension, errors.Cause(err))
}
