package ml

import (
	"fmt"
)

const (
	ModelTypeLinear         = "linear"
	ModelTypeRegressionTree = "regression_tree"
)

// ModelTypes lists the model types LoadModel understands.
func ModelTypes() []string {
	return []string{ModelTypeLinear, ModelTypeRegressionTree}
}

// LoadModel reads a persisted model. Every failure wraps ErrArtifactLoad.
func LoadModel(modelType, path string) (Model, error) {
	switch modelType {
	case ModelTypeLinear:
		model := &LinearModel{}
		if err := model.Load(path); err != nil {
			return nil, fmt.Errorf("%w: load %s model %s: %v", ErrArtifactLoad, modelType, path, err)
		}
		return model, nil
	case ModelTypeRegressionTree:
		model := &RegressionTree{}
		if err := model.Load(path); err != nil {
			return nil, fmt.Errorf("%w: load %s model %s: %v", ErrArtifactLoad, modelType, path, err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("%w: unsupported model type %q", ErrArtifactLoad, modelType)
	}
}
