package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"
)

// TransferLayer right-multiplies a [batch, dim] complex batch by a
// dim × dim complex matrix.
type TransferLayer struct {
	Dim       int
	BatchSize int

	pipeline        *wgpu.ComputePipeline
	bindGroupLayout *wgpu.BindGroupLayout
	bindGroup       *wgpu.BindGroup

	InputBuffer  *wgpu.Buffer
	OutputBuffer *wgpu.Buffer
	MatrixBuffer *wgpu.Buffer

	WorkgroupsX uint32
}

// TransferSequence chains TransferLayers on the device.
type TransferSequence struct {
	Layers []*TransferLayer
}

// NewTransferSequence prepares numLayers layers of the given size. Call
// Build before use.
func NewTransferSequence(dim, batch, numLayers int) *TransferSequence {
	layers := make([]*TransferLayer, numLayers)
	for i := range layers {
		layers[i] = &TransferLayer{Dim: dim, BatchSize: batch}
	}
	return &TransferSequence{Layers: layers}
}

// stateFloats is the float32 count of one batch (two per amplitude).
func (l *TransferLayer) stateFloats() int {
	return l.BatchSize * l.Dim * 2
}

// GenerateShader returns the WGSL kernel. One invocation computes one
// output amplitude: out[s, k] = Σ_j in[s, j] · M[j, k].
func (l *TransferLayer) GenerateShader() string {
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> input : array<f32>;
		@group(0) @binding(1) var<storage, read_write> output : array<f32>;
		@group(0) @binding(2) var<storage, read> transfer : array<f32>;

		@compute @workgroup_size(256)
		fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
			let idx = gid.x;
			let dim = %du;
			let total = %du;

			if (idx >= total) {
				return;
			}

			let sample = idx / dim;
			let col = idx %% dim;

			var re: f32 = 0.0;
			var im: f32 = 0.0;
			for (var j: u32 = 0u; j < dim; j++) {
				let xi = (sample * dim + j) * 2u;
				let mi = (j * dim + col) * 2u;
				let xr = input[xi];
				let xm = input[xi + 1u];
				let mr = transfer[mi];
				let mm = transfer[mi + 1u];
				re += xr * mr - xm * mm;
				im += xr * mm + xm * mr;
			}

			output[idx * 2u] = re;
			output[idx * 2u + 1u] = im;
		}
	`, l.Dim, l.BatchSize*l.Dim)
}

// AllocateBuffers creates the input, output and matrix buffers. The
// matrix starts as the identity.
func (l *TransferLayer) AllocateBuffers(c *Context, labelPrefix string) error {
	if Debug {
		Logger.Debug("allocating transfer buffers", "label", labelPrefix, "dim", l.Dim, "batch", l.BatchSize)
	}
	state := make([]float32, l.stateFloats())
	usage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	var err error

	if l.InputBuffer, err = NewFloatBuffer(c, labelPrefix+"_In", state, usage); err != nil {
		return err
	}
	if l.OutputBuffer, err = NewFloatBuffer(c, labelPrefix+"_Out", state, usage); err != nil {
		return err
	}

	eye := make([]float32, l.Dim*l.Dim*2)
	for i := 0; i < l.Dim; i++ {
		eye[(i*l.Dim+i)*2] = 1
	}
	l.MatrixBuffer, err = NewFloatBuffer(c, labelPrefix+"_Matrix", eye, usage)
	return err
}

// Compile builds the pipeline with an explicit bind group layout.
func (l *TransferLayer) Compile(c *Context, labelPrefix string) error {
	module, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          labelPrefix + "_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: l.GenerateShader()},
	})
	if err != nil {
		return fmt.Errorf("shader compile: %v", err)
	}
	defer module.Release()

	l.bindGroupLayout, err = c.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: labelPrefix + "_BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}}, // Input
			{Binding: 1, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}},         // Output
			{Binding: 2, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}}, // Matrix
		},
	})
	if err != nil {
		return fmt.Errorf("create bgl: %v", err)
	}

	pipelineLayout, err := c.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            labelPrefix + "_Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{l.bindGroupLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %v", err)
	}
	defer pipelineLayout.Release()

	l.pipeline, err = c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  labelPrefix + "_Pipe",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("pipeline create: %v", err)
	}

	l.WorkgroupsX = uint32(l.BatchSize*l.Dim+255) / 256
	return nil
}

// CreateBindGroup binds the layer's buffers to the pipeline.
func (l *TransferLayer) CreateBindGroup(c *Context, labelPrefix string) error {
	var err error
	l.bindGroup, err = c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  labelPrefix + "_Bind",
		Layout: l.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: l.InputBuffer, Size: l.InputBuffer.GetSize()},
			{Binding: 1, Buffer: l.OutputBuffer, Size: l.OutputBuffer.GetSize()},
			{Binding: 2, Buffer: l.MatrixBuffer, Size: l.MatrixBuffer.GetSize()},
		},
	})
	return err
}

// UploadMatrix writes a row-major dim × dim matrix packed with PackComplex.
func (l *TransferLayer) UploadMatrix(c *Context, packed []float32) error {
	if len(packed) != l.Dim*l.Dim*2 {
		return fmt.Errorf("matrix has %d floats, expected %d", len(packed), l.Dim*l.Dim*2)
	}
	c.Queue.WriteBuffer(l.MatrixBuffer, 0, wgpu.ToBytes(packed))
	return nil
}

// Dispatch records the compute pass for this layer.
func (l *TransferLayer) Dispatch(pass *wgpu.ComputePassEncoder) {
	if Debug {
		Logger.Debug("dispatching transfer layer", "workgroups", l.WorkgroupsX)
	}
	pass.SetPipeline(l.pipeline)
	pass.SetBindGroup(0, l.bindGroup, nil)
	pass.DispatchWorkgroups(l.WorkgroupsX, 1, 1)
}

// Cleanup releases the layer's resources.
func (l *TransferLayer) Cleanup() {
	for _, b := range []*wgpu.Buffer{l.InputBuffer, l.OutputBuffer, l.MatrixBuffer} {
		if b != nil {
			b.Destroy()
		}
	}
	if l.bindGroup != nil {
		l.bindGroup.Release()
	}
	if l.pipeline != nil {
		l.pipeline.Release()
	}
	if l.bindGroupLayout != nil {
		l.bindGroupLayout.Release()
	}
	l.InputBuffer, l.OutputBuffer, l.MatrixBuffer = nil, nil, nil
	l.bindGroup, l.pipeline, l.bindGroupLayout = nil, nil, nil
}

// Build allocates and compiles every layer.
func (s *TransferSequence) Build() error {
	c, err := GetContext()
	if err != nil {
		return err
	}
	for i, l := range s.Layers {
		label := fmt.Sprintf("T%d", i)
		if err := l.AllocateBuffers(c, label); err != nil {
			return err
		}
		if err := l.Compile(c, label); err != nil {
			return err
		}
		if err := l.CreateBindGroup(c, label); err != nil {
			return err
		}
	}
	return nil
}

// UploadMatrices writes one packed matrix per layer.
func (s *TransferSequence) UploadMatrices(packed [][]float32) error {
	if len(packed) != len(s.Layers) {
		return fmt.Errorf("got %d matrices for %d layers", len(packed), len(s.Layers))
	}
	c, err := GetContext()
	if err != nil {
		return err
	}
	for i, l := range s.Layers {
		if err := l.UploadMatrix(c, packed[i]); err != nil {
			return fmt.Errorf("layer %d: %v", i, err)
		}
	}
	return nil
}

// Forward runs a packed batch through every layer and reads the result
// back.
func (s *TransferSequence) Forward(input []float32) ([]float32, error) {
	if len(s.Layers) == 0 {
		return nil, fmt.Errorf("no layers built")
	}
	c, err := GetContext()
	if err != nil {
		return nil, err
	}

	l0 := s.Layers[0]
	if len(input) != l0.stateFloats() {
		return nil, fmt.Errorf("input has %d floats, expected %d", len(input), l0.stateFloats())
	}
	c.Queue.WriteBuffer(l0.InputBuffer, 0, wgpu.ToBytes(input))

	enc, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	for i, l := range s.Layers {
		pass := enc.BeginComputePass(nil)
		l.Dispatch(pass)
		pass.End()

		if i < len(s.Layers)-1 {
			next := s.Layers[i+1]
			enc.CopyBufferToBuffer(l.OutputBuffer, 0, next.InputBuffer, 0, l.OutputBuffer.GetSize())
		}
	}

	cmd, err := enc.Finish(nil)
	if err != nil {
		return nil, err
	}
	c.Queue.Submit(cmd)

	last := s.Layers[len(s.Layers)-1]
	return ReadBuffer(c, last.OutputBuffer, last.stateFloats())
}

// Cleanup releases every layer.
func (s *TransferSequence) Cleanup() {
	for _, l := range s.Layers {
		l.Cleanup()
	}
}
