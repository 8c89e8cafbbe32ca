package qpga

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// TensorWithShape is a named entry of a safetensors container.
type TensorWithShape struct {
	Values []float64
	Shape  []int
	DType  string // "F64" or "F32"
}

// tensorInfo is the per-tensor header entry.
type tensorInfo struct {
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset []int  `json:"data_offsets"`
}

func bytesPerElement(dtype string) int {
	switch dtype {
	case "F64":
		return 8
	case "F32":
		return 4
	default:
		return 0
	}
}

// SaveSafetensors writes tensors to a safetensors file.
func SaveSafetensors(filepath string, tensors map[string]TensorWithShape) error {
	data, err := SerializeSafetensors(tensors)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(filepath, data, 0644), "failed to write %s", filepath)
}

// SerializeSafetensors encodes tensors as
// [header size (8 bytes LE)] [JSON header] [tensor data], with tensors
// laid out in name order.
func SerializeSafetensors(tensors map[string]TensorWithShape) ([]byte, error) {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]tensorInfo, len(names))
	offset := 0
	for _, name := range names {
		t := tensors[name]
		width := bytesPerElement(t.DType)
		if width == 0 {
			return nil, errors.Errorf("unsupported dtype %q for %s", t.DType, name)
		}
		if shapeElements(t.Shape) != len(t.Values) {
			return nil, errors.Wrapf(ErrDimension, "%s: shape %v does not hold %d values", name, t.Shape, len(t.Values))
		}
		size := len(t.Values) * width
		header[name] = tensorInfo{DType: t.DType, Shape: t.Shape, Offset: []int{offset, offset + size}}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal header")
	}

	headerSize := uint64(len(headerJSON))
	out := make([]byte, 8+headerSize+uint64(offset))
	binary.LittleEndian.PutUint64(out[0:8], headerSize)
	copy(out[8:8+headerSize], headerJSON)

	data := out[8+headerSize:]
	for _, name := range names {
		t := tensors[name]
		start := header[name].Offset[0]
		for i, v := range t.Values {
			switch t.DType {
			case "F64":
				binary.LittleEndian.PutUint64(data[start+i*8:], math.Float64bits(v))
			case "F32":
				binary.LittleEndian.PutUint32(data[start+i*4:], math.Float32bits(float32(v)))
			}
		}
	}
	return out, nil
}

// LoadSafetensors reads a safetensors file.
func LoadSafetensors(filepath string) (map[string]TensorWithShape, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", filepath)
	}
	return LoadSafetensorsFromBytes(data)
}

// LoadSafetensorsFromBytes decodes a safetensors container. F32 tensors
// are widened to float64; other dtypes are skipped with a warning.
func LoadSafetensorsFromBytes(data []byte) (map[string]TensorWithShape, error) {
	if len(data) < 8 {
		return nil, errors.New("data too short: need at least 8 bytes for header size")
	}
	headerSize := binary.LittleEndian.Uint64(data[0:8])
	if uint64(len(data)-8) < headerSize {
		return nil, errors.Errorf("data too short: header size %d but only %d bytes available", headerSize, len(data)-8)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerSize], &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse header")
	}
	body := data[8+headerSize:]

	tensors := make(map[string]TensorWithShape, len(raw))
	for name, msg := range raw {
		if name == "__metadata__" {
			continue
		}
		var info tensorInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			return nil, errors.Wrapf(err, "bad header entry for %s", name)
		}
		width := bytesPerElement(info.DType)
		if width == 0 {
			Logger.Warn("skipping tensor with unsupported dtype", "name", name, "dtype", info.DType)
			continue
		}
		if len(info.Offset) != 2 {
			return nil, errors.Errorf("%s: expected 2 data offsets, got %d", name, len(info.Offset))
		}
		for _, d := range info.Shape {
			if d < 0 {
				return nil, errors.Wrapf(ErrDimension, "%s: negative dimension in shape %v", name, info.Shape)
			}
		}
		count := shapeElements(info.Shape)
		start, end := info.Offset[0], info.Offset[1]
		if start < 0 || end > len(body) || end-start != count*width {
			return nil, errors.Errorf("%s: data offsets [%d, %d) do not fit shape %v", name, start, end, info.Shape)
		}

		values := make([]float64, count)
		for i := range values {
			off := start + i*width
			if info.DType == "F64" {
				values[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[off : off+8]))
			} else {
				values[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(body[off : off+4])))
			}
		}
		tensors[name] = TensorWithShape{Values: values, Shape: info.Shape, DType: info.DType}
	}
	return tensors, nil
}

func shapeElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// StateDict exports every phase vector as an F64 tensor keyed by its
// parameter name.
func (c *Circuit) StateDict() map[string]TensorWithShape {
	out := make(map[string]TensorWithShape)
	for _, p := range c.Parameters() {
		values := make([]float64, p.Len())
		copy(values, p.Value)
		out[p.Name] = TensorWithShape{Values: values, Shape: []int{p.Len()}, DType: "F64"}
	}
	return out
}

// LoadStateDict copies phases into the circuit. Every parameter must be
// present with shape [num_qubits]; extra entries are ignored. All
// entries are checked before any phase is written, so a failed load
// leaves the circuit unchanged.
func (c *Circuit) LoadStateDict(tensors map[string]TensorWithShape) error {
	params := c.Parameters()
	for _, p := range params {
		t, ok := tensors[p.Name]
		if !ok {
			return errors.Errorf("missing parameter %s", p.Name)
		}
		if len(t.Shape) != 1 || t.Shape[0] != p.Len() || len(t.Values) != p.Len() {
			return errors.Wrapf(ErrDimension, "%s: shape %v with %d values, expected [%d]", p.Name, t.Shape, len(t.Values), p.Len())
		}
	}
	for _, p := range params {
		copy(p.Value, tensors[p.Name].Values)
	}
	return nil
}

// SaveWeights writes the state dict to a safetensors file.
func (c *Circuit) SaveWeights(filepath string) error {
	return SaveSafetensors(filepath, c.StateDict())
}

// LoadWeights reads phases from a safetensors file.
func (c *Circuit) LoadWeights(filepath string) error {
	tensors, err := LoadSafetensors(filepath)
	if err != nil {
		return err
	}
	return c.LoadStateDict(tensors)
}
