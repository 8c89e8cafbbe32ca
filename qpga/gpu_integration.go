package qpga

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/qpga/gpu"
	"github.com/openfluke/qpga/linalg"
)

type gpuState struct {
	seq   *gpu.TransferSequence
	batch int
}

// InitGPU compiles one transfer kernel per layer for batches of the given
// size. It fails when no WebGPU adapter is available.
func (c *Circuit) InitGPU(batch int) error {
	if batch <= 0 {
		return errors.Wrapf(ErrConfig, "gpu batch size must be positive, got %d", batch)
	}
	c.ReleaseGPU()

	seq := gpu.NewTransferSequence(c.dim, batch, len(c.layers))
	if err := seq.Build(); err != nil {
		seq.Cleanup()
		return errors.Wrap(err, "build gpu sequence")
	}
	c.gpu = &gpuState{seq: seq, batch: batch}
	Logger.Info("gpu path ready", "layers", len(c.layers), "dim", c.dim, "batch", batch)
	return nil
}

// GPUEnabled reports whether InitGPU has succeeded.
func (c *Circuit) GPUEnabled() bool { return c.gpu != nil }

// ForwardGPU is Forward computed on the device in single precision. The
// transfer matrices are uploaded on every call so phase updates are seen.
// Observers and Backward are not involved.
func (c *Circuit) ForwardGPU(x *mat.CDense) (*mat.CDense, error) {
	if c.gpu == nil {
		return nil, errors.New("gpu not initialized; call InitGPU first")
	}
	if err := checkWidth(x, c.dim); err != nil {
		return nil, err
	}
	rows, _ := x.Dims()
	if rows != c.gpu.batch {
		return nil, errors.Wrapf(ErrDimension, "batch of %d rows, gpu compiled for %d", rows, c.gpu.batch)
	}

	packed := make([][]float32, len(c.layers))
	for i, l := range c.layers {
		packed[i] = gpu.PackComplex(linalg.Rows(l.TransferMatrix()))
	}
	if err := c.gpu.seq.UploadMatrices(packed); err != nil {
		return nil, errors.Wrap(err, "upload transfer matrices")
	}

	in := gpu.PackComplex(linalg.Rows(x))
	out, err := c.gpu.seq.Forward(in)
	if err != nil {
		return nil, errors.Wrap(err, "gpu forward")
	}
	return mat.NewCDense(rows, c.dim, gpu.UnpackComplex(out)), nil
}

// ReleaseGPU frees device resources. Safe to call when the GPU path was
// never initialized.
func (c *Circuit) ReleaseGPU() {
	if c.gpu == nil {
		return
	}
	c.gpu.seq.Cleanup()
	c.gpu = nil
}
