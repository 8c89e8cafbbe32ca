package qpga

// CircuitBlueprint is the structural description of a circuit.
type CircuitBlueprint struct {
	ID          string           `json:"id"`
	NumQubits   int              `json:"num_qubits"`
	Depth       int              `json:"depth"`
	Dimension   int              `json:"dimension"`
	TotalLayers int              `json:"total_layers"`
	TotalParams int              `json:"total_parameters"`
	Layers      []LayerTelemetry `json:"layers"`
}

// LayerTelemetry describes a single layer.
type LayerTelemetry struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Parameters int    `json:"parameters"`

	// CPhase only
	Parity *int   `json:"parity,omitempty"`
	Gate   string `json:"gate,omitempty"` // "standard" or "modified"

	InputShape  []int `json:"input_shape"`
	OutputShape []int `json:"output_shape"`
}

// ExtractBlueprint walks the circuit's layers.
func ExtractBlueprint(c *Circuit, id string) CircuitBlueprint {
	bp := CircuitBlueprint{
		ID:          id,
		NumQubits:   c.NumQubits(),
		Depth:       c.Depth(),
		Dimension:   c.Dimension(),
		TotalLayers: len(c.layers),
		Layers:      make([]LayerTelemetry, 0, len(c.layers)),
	}

	for i, l := range c.layers {
		lt := LayerTelemetry{
			Index:       i,
			Name:        l.Name(),
			Type:        l.Kind().String(),
			InputShape:  []int{c.dim},
			OutputShape: []int{c.dim},
		}
		for _, p := range l.Parameters() {
			lt.Parameters += p.Len()
		}
		if cp, ok := l.(*CPhaseLayer); ok {
			parity := cp.Parity()
			lt.Parity = &parity
			lt.Gate = "modified"
			if cp.Standard() {
				lt.Gate = "standard"
			}
		}
		bp.TotalParams += lt.Parameters
		bp.Layers = append(bp.Layers, lt)
	}
	return bp
}
