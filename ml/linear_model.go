package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// LinearModel is an intercept plus one coefficient per feature column.
type LinearModel struct {
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
}

func (m *LinearModel) Predict(ctx context.Context, features FeatureVector) ([]float64, error) {
	if len(m.Coefficients) == 0 {
		return nil, errors.New("model not loaded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := features.Map()
	for column := range m.Coefficients {
		if _, ok := row[column]; !ok {
			return nil, fmt.Errorf("feature %s missing from input", column)
		}
	}
	// Summed in column order so repeated calls give bit-identical results.
	sum := m.Intercept
	for i, column := range features.columns {
		sum += m.Coefficients[column] * features.values[i]
	}
	return []float64{sum}, nil
}

func (m *LinearModel) Save(path string) error {
	if len(m.Coefficients) == 0 {
		return errors.New("model not loaded")
	}
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (m *LinearModel) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded LinearModel
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return err
	}
	if len(loaded.Coefficients) == 0 {
		return errors.New("linear model has no coefficients")
	}
	*m = loaded
	return nil
}
