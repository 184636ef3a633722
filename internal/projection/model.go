package projection

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimensionality does not match projection model")
	ErrModelUnavailable  = errors.New("projection model not loaded")
)

// Model maps an embedding to a 2-D point. It is an opaque trained artifact:
// applying it is in scope here, training it is an out-of-band operation that
// produces a new artifact file with a bumped version.
type Model struct {
	Version    string       `json:"version"`
	Dim        int          `json:"dim"`
	Mean       []float32    `json:"mean"`
	Components [2][]float32 `json:"components"`
}

func (m *Model) validate() error {
	if m.Version == "" {
		return fmt.Errorf("projection model missing version")
	}
	if m.Dim <= 0 {
		return fmt.Errorf("projection model has invalid dim %d", m.Dim)
	}
	if len(m.Mean) != m.Dim {
		return fmt.Errorf("projection model mean length %d != dim %d", len(m.Mean), m.Dim)
	}
	for axis, comp := range m.Components {
		if len(comp) != m.Dim {
			return fmt.Errorf("projection model component %d length %d != dim %d", axis, len(comp), m.Dim)
		}
	}
	return nil
}

// Project applies the affine map: center on the training mean, then dot
// against each 2-D axis. New records land consistently with the existing
// layout because the model itself never moves.
func (m *Model) Project(vec []float32) (float64, float64, error) {
	if len(vec) != m.Dim {
		return 0, 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), m.Dim)
	}

	var x, y float64
	for i, v := range vec {
		centered := float64(v - m.Mean[i])
		x += centered * float64(m.Components[0][i])
		y += centered * float64(m.Components[1][i])
	}
	return x, y, nil
}

// LoadModel reads and validates a model artifact from disk.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read projection model: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode projection model: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
