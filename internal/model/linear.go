package model

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/i474232898/aqi-predictor/internal/prediction"
)

// LinearModel is a linear regression exported to JSON by the training notebook.
type LinearModel struct {
	Features     []string           `json:"features"`
	Coefficients map[string]float64 `json:"coefficients"`
	Intercept    float64            `json:"intercept"`

	weights prediction.FeatureVector
}

// LoadFile reads a LinearModel from path. The model's declared feature list
// must match prediction.FeatureOrder exactly.
func LoadFile(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	if err := m.compile(); err != nil {
		return nil, fmt.Errorf("invalid model %s: %w", path, err)
	}

	log.Printf("INFO: loaded linear model from %s (intercept %.4f)", path, m.Intercept)
	return &m, nil
}

// compile checks the feature order and lays the coefficients out in it.
func (m *LinearModel) compile() error {
	if len(m.Features) != prediction.FeatureCount {
		return fmt.Errorf("model declares %d features, want %d", len(m.Features), prediction.FeatureCount)
	}
	for i, name := range prediction.FeatureOrder {
		if m.Features[i] != name {
			return fmt.Errorf("feature %d is %q, want %q", i, m.Features[i], name)
		}
		coef, ok := m.Coefficients[name]
		if !ok {
			return fmt.Errorf("no coefficient for feature %q", name)
		}
		m.weights[i] = coef
	}
	return nil
}

// Predict returns intercept + Σ coef·x.
func (m *LinearModel) Predict(_ context.Context, v prediction.FeatureVector) (float64, error) {
	score := m.Intercept
	for i, x := range v {
		score += m.weights[i] * x
	}
	return score, nil
}
