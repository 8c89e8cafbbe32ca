package qpga

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/openfluke/qpga/linalg"
)

// Stage is one step of a Sequential pipeline: a boundary conversion or
// a circuit layer.
type Stage struct {
	Name  string
	Kind  string // "real_to_complex", "complex_to_real" or a LayerKind name
	Layer Layer  // nil for conversion stages

	apply func(StateBatch) (StateBatch, error)
}

// Sequential is a flat, inspectable view of a circuit: the optional
// input conversion, every layer in order, then the optional output
// conversion. It shares the circuit's layers, so running it is the same
// computation as Circuit.Call.
type Sequential struct {
	NumQubits      int
	ComplexInputs  bool
	ComplexOutputs bool
	Stages         []Stage
}

// AsSequential flattens the circuit into a Sequential pipeline.
func (c *Circuit) AsSequential() *Sequential {
	seq := &Sequential{
		NumQubits:      c.cfg.NumQubits,
		ComplexInputs:  c.cfg.ComplexInputs,
		ComplexOutputs: c.cfg.ComplexOutputs,
	}

	if !c.cfg.ComplexInputs {
		seq.Stages = append(seq.Stages, Stage{
			Name: "input_bridge",
			Kind: "real_to_complex",
			apply: func(in StateBatch) (StateBatch, error) {
				if in.Real == nil {
					return StateBatch{}, errors.Wrap(ErrConfig, "expected real paired input")
				}
				x, err := linalg.RealToComplex(in.Real)
				if err != nil {
					return StateBatch{}, err
				}
				return ComplexBatch(x), nil
			},
		})
	}

	for _, layer := range c.layers {
		seq.Stages = append(seq.Stages, Stage{
			Name:  layer.Name(),
			Kind:  layer.Kind().String(),
			Layer: layer,
			apply: func(in StateBatch) (StateBatch, error) {
				if in.Complex == nil {
					return StateBatch{}, errors.Wrapf(ErrConfig, "%s expects a complex batch", layer.Name())
				}
				out, err := layer.Forward(in.Complex)
				if err != nil {
					return StateBatch{}, err
				}
				return ComplexBatch(out), nil
			},
		})
	}

	if !c.cfg.ComplexOutputs {
		seq.Stages = append(seq.Stages, Stage{
			Name: "output_bridge",
			Kind: "complex_to_real",
			apply: func(in StateBatch) (StateBatch, error) {
				return RealBatch(linalg.ComplexToReal(in.Complex)), nil
			},
		})
	}
	return seq
}

// Forward runs the stages in order.
func (s *Sequential) Forward(in StateBatch) (StateBatch, error) {
	if s.ComplexInputs && in.Complex == nil {
		return StateBatch{}, errors.Wrap(ErrConfig, "expected complex input")
	}
	cur := in
	for i, st := range s.Stages {
		var err error
		cur, err = st.apply(cur)
		if err != nil {
			return StateBatch{}, errors.Wrapf(err, "stage %d (%s)", i, st.Name)
		}
	}
	return cur, nil
}

// Summary renders one line per stage.
func (s *Sequential) Summary() string {
	var b strings.Builder
	dim := 1 << s.NumQubits
	for i, st := range s.Stages {
		var shape string
		switch st.Kind {
		case "real_to_complex":
			shape = fmt.Sprintf("[batch, 2, %d] -> [batch, %d]", dim, dim)
		case "complex_to_real":
			shape = fmt.Sprintf("[batch, %d] -> [batch, 2, %d]", dim, dim)
		default:
			shape = fmt.Sprintf("[batch, %d] -> [batch, %d]", dim, dim)
		}
		params := 0
		if st.Layer != nil {
			for _, p := range st.Layer.Parameters() {
				params += p.Len()
			}
		}
		fmt.Fprintf(&b, "%2d  %-16s %-16s %-32s params=%d\n", i, st.Name, st.Kind, shape, params)
	}
	return b.String()
}
