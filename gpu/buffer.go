package gpu

import (
	"fmt"
	"time"

	"github.com/openfluke/webgpu/wgpu"
)

// readTimeout bounds how long a readback waits for the device.
const readTimeout = 5 * time.Second

// PackComplex interleaves complex values into float32 (re, im) pairs.
func PackComplex(values []complex128) []float32 {
	out := make([]float32, 2*len(values))
	for i, v := range values {
		out[2*i] = float32(real(v))
		out[2*i+1] = float32(imag(v))
	}
	return out
}

// UnpackComplex is the inverse of PackComplex.
func UnpackComplex(data []float32) []complex128 {
	out := make([]complex128, len(data)/2)
	for i := range out {
		out[i] = complex(float64(data[2*i]), float64(data[2*i+1]))
	}
	return out
}

// NewFloatBuffer creates a labelled buffer holding data. CopyDst is
// always added so the contents can be rewritten with Queue.WriteBuffer.
func NewFloatBuffer(c *Context, label string, data []float32, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: wgpu.ToBytes(data),
		Usage:    usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %v", label, err)
	}
	return buf, nil
}

// ReadBuffer submits a copy of the first size floats of buffer into a
// throwaway staging buffer and maps it. Work already submitted to the
// queue completes first.
func ReadBuffer(c *Context, buffer *wgpu.Buffer, size int) ([]float32, error) {
	sizeBytes := uint64(size * 4)
	staging, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ReadStaging",
		Size:  sizeBytes,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %v", err)
	}
	defer staging.Destroy()

	enc, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %v", err)
	}
	enc.CopyBufferToBuffer(buffer, 0, staging, 0, sizeBytes)
	cmd, err := enc.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish readback: %v", err)
	}
	c.Queue.Submit(cmd)

	return mapAndRead(c, staging, size, readTimeout)
}

// mapAndRead maps a MapRead buffer and copies size floats out. Polling is
// non-blocking so a lost device surfaces as a timeout instead of a hang.
func mapAndRead(c *Context, buf *wgpu.Buffer, size int, timeout time.Duration) ([]float32, error) {
	done := make(chan struct{})
	var mapErr error

	err := buf.MapAsync(wgpu.MapModeRead, 0, buf.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("map failed: %v", status)
		}
		close(done)
	})
	if err != nil {
		return nil, fmt.Errorf("MapAsync failed: %v", err)
	}

	deadline := time.After(timeout)
Loop:
	for {
		c.Device.Poll(false, nil)
		select {
		case <-done:
			break Loop
		case <-deadline:
			return nil, fmt.Errorf("buffer map timed out after %v", timeout)
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if mapErr != nil {
		return nil, mapErr
	}

	data := buf.GetMappedRange(0, uint(buf.GetSize()))
	if data == nil {
		return nil, fmt.Errorf("failed to get mapped range")
	}
	out := make([]float32, size)
	copy(out, wgpu.FromBytes[float32](data))
	buf.Unmap()
	return out, nil
}
