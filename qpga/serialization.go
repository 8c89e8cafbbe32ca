package qpga

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"
)

const bundleType = "qpga/bundle"

// ModelBundle is a collection of saved circuits.
type ModelBundle struct {
	Type    string       `json:"type"`
	Version int          `json:"version"`
	Models  []SavedModel `json:"models"`
}

// SavedModel is one circuit: its construction config, a description of
// its layers and the phases as a base64 safetensors blob.
type SavedModel struct {
	ID      string         `json:"id"`
	Config  Config         `json:"cfg"`
	Layers  []LayerConfig  `json:"layers,omitempty"`
	Weights EncodedWeights `json:"weights"`
}

// EncodedWeights stores weights as base64 text.
type EncodedWeights struct {
	Format string `json:"fmt"`
	Data   string `json:"data"`
}

// SerializeModel captures the circuit as a SavedModel.
func (c *Circuit) SerializeModel(modelID string) (SavedModel, error) {
	blob, err := SerializeSafetensors(c.StateDict())
	if err != nil {
		return SavedModel{}, errors.Wrap(err, "failed to encode weights")
	}

	layers := make([]LayerConfig, len(c.layers))
	for i, l := range c.layers {
		layers[i] = l.Config()
	}

	return SavedModel{
		ID:     modelID,
		Config: c.cfg,
		Layers: layers,
		Weights: EncodedWeights{
			Format: "safetensors+b64",
			Data:   base64.StdEncoding.EncodeToString(blob),
		},
	}, nil
}

// DeserializeModel rebuilds a circuit from its config and restores its
// phases.
func DeserializeModel(saved SavedModel) (*Circuit, error) {
	c, err := NewCircuit(saved.Config)
	if err != nil {
		return nil, err
	}
	if saved.Weights.Format != "safetensors+b64" {
		return nil, errors.Errorf("unsupported weights format %q", saved.Weights.Format)
	}
	blob, err := base64.StdEncoding.DecodeString(saved.Weights.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode weights")
	}
	tensors, err := LoadSafetensorsFromBytes(blob)
	if err != nil {
		return nil, err
	}
	if err := c.LoadStateDict(tensors); err != nil {
		return nil, errors.Wrapf(err, "model %s", saved.ID)
	}
	Logger.Debug("restored circuit", "id", saved.ID, "params", c.NumParameters())
	return c, nil
}

func newBundle() ModelBundle {
	return ModelBundle{Type: bundleType, Version: 1, Models: []SavedModel{}}
}

// SaveModel writes a bundle holding this circuit alone.
func (c *Circuit) SaveModel(filename string, modelID string) error {
	saved, err := c.SerializeModel(modelID)
	if err != nil {
		return err
	}
	bundle := newBundle()
	bundle.Models = append(bundle.Models, saved)
	return bundle.SaveToFile(filename)
}

// SaveModelToString returns the bundle JSON holding this circuit alone.
func (c *Circuit) SaveModelToString(modelID string) (string, error) {
	saved, err := c.SerializeModel(modelID)
	if err != nil {
		return "", err
	}
	bundle := newBundle()
	bundle.Models = append(bundle.Models, saved)
	return bundle.SaveToString()
}

// SaveBundle writes several circuits into one file, ordered by ID.
func SaveBundle(filename string, circuits map[string]*Circuit) error {
	ids := make([]string, 0, len(circuits))
	for id := range circuits {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	bundle := newBundle()
	for _, id := range ids {
		saved, err := circuits[id].SerializeModel(id)
		if err != nil {
			return errors.Wrapf(err, "failed to serialize model %s", id)
		}
		bundle.Models = append(bundle.Models, saved)
	}
	return bundle.SaveToFile(filename)
}

// SaveToString marshals the bundle as indented JSON.
func (b *ModelBundle) SaveToString() (string, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal bundle")
	}
	return string(data), nil
}

// SaveToFile writes the bundle as indented JSON.
func (b *ModelBundle) SaveToFile(filename string) error {
	data, err := b.SaveToString()
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(filename, []byte(data), 0644), "failed to write %s", filename)
}

// Find returns the model with the given ID.
func (b *ModelBundle) Find(modelID string) (*Circuit, error) {
	for _, saved := range b.Models {
		if saved.ID == modelID {
			return DeserializeModel(saved)
		}
	}
	return nil, errors.Errorf("model %s not found in bundle", modelID)
}

// LoadBundle reads a bundle file.
func LoadBundle(filename string) (*ModelBundle, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", filename)
	}
	return LoadBundleFromString(string(data))
}

// LoadBundleFromString parses bundle JSON.
func LoadBundleFromString(jsonString string) (*ModelBundle, error) {
	var bundle ModelBundle
	if err := json.Unmarshal([]byte(jsonString), &bundle); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal bundle")
	}
	if bundle.Type != bundleType {
		return nil, errors.Errorf("invalid bundle type: %s", bundle.Type)
	}
	return &bundle, nil
}

// LoadModel loads one circuit from a bundle file.
func LoadModel(filename string, modelID string) (*Circuit, error) {
	bundle, err := LoadBundle(filename)
	if err != nil {
		return nil, err
	}
	return bundle.Find(modelID)
}

// LoadModelFromString loads one circuit from bundle JSON.
func LoadModelFromString(jsonString string, modelID string) (*Circuit, error) {
	bundle, err := LoadBundleFromString(jsonString)
	if err != nil {
		return nil, err
	}
	return bundle.Find(modelID)
}
