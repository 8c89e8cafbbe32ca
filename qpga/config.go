package qpga

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Config holds the construction parameters of a Circuit.
type Config struct {
	NumQubits         int   `json:"num_qubits"`
	Depth             int   `json:"depth"`
	ComplexInputs     bool  `json:"complex_inputs"`
	ComplexOutputs    bool  `json:"complex_outputs"`
	UseStandardCPhase bool  `json:"use_standard_cphase"`
	Seed              int64 `json:"seed,omitempty"`

	// Factored applies every layer through its Kronecker factors instead
	// of dense 2^n × 2^n products. Same results, far less memory for
	// large qubit counts.
	Factored bool `json:"factored,omitempty"`
}

// DefaultConfig returns a circuit configuration that talks the real
// paired encoding on both ends and uses the standard controlled-phase gate.
func DefaultConfig(numQubits, depth int) Config {
	return Config{
		NumQubits:         numQubits,
		Depth:             depth,
		UseStandardCPhase: true,
	}
}

// MaxQubits bounds num_qubits. Every layer materializes at least one
// dense 2^n × 2^n complex matrix (16·4^n bytes), factored or not, so 12
// qubits already costs 256 MiB per matrix.
const MaxQubits = 12

func checkQubits(n int) error {
	if n <= 0 {
		return errors.Wrapf(ErrConfig, "num_qubits must be positive, got %d", n)
	}
	if n > MaxQubits {
		return errors.Wrapf(ErrConfig, "num_qubits %d exceeds the maximum of %d", n, MaxQubits)
	}
	return nil
}

// Validate rejects num_qubits outside [1, MaxQubits] and depth < 0.
func (c Config) Validate() error {
	if err := checkQubits(c.NumQubits); err != nil {
		return err
	}
	if c.Depth < 0 {
		return errors.Wrapf(ErrConfig, "depth must be non-negative, got %d", c.Depth)
	}
	return nil
}

// Dimension returns 2^num_qubits.
func (c Config) Dimension() int {
	return 1 << c.NumQubits
}

// ParseConfig decodes a JSON Config without building a circuit.
//
// Example JSON:
//
//	{
//	  "num_qubits": 3,
//	  "depth": 4,
//	  "complex_inputs": false,
//	  "complex_outputs": false,
//	  "use_standard_cphase": true,
//	  "seed": 7
//	}
func ParseConfig(jsonConfig string) (Config, error) {
	var cfg Config
	if err := json.Unmarshal([]byte(jsonConfig), &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse circuit config")
	}
	return cfg, nil
}

// LoadConfigFile reads a JSON Config from disk.
func LoadConfigFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read %s", filename)
	}
	return ParseConfig(string(data))
}

// BuildCircuitFromJSON parses a Config and builds the circuit.
func BuildCircuitFromJSON(jsonConfig string) (*Circuit, error) {
	cfg, err := ParseConfig(jsonConfig)
	if err != nil {
		return nil, err
	}
	return NewCircuit(cfg)
}

// BuildCircuitFromFile reads a JSON Config from disk and builds the circuit.
func BuildCircuitFromFile(filename string) (*Circuit, error) {
	cfg, err := LoadConfigFile(filename)
	if err != nil {
		return nil, err
	}
	return NewCircuit(cfg)
}
