package ml

import "context"

// Model is a pre-trained estimator. Implementations must not mutate state in
// Predict; one instance is shared by every request.
type Model interface {
	Predict(ctx context.Context, features FeatureVector) ([]float64, error)
}

// ModelFunc adapts a plain function to Model.
type ModelFunc func(ctx context.Context, features FeatureVector) ([]float64, error)

func (f ModelFunc) Predict(ctx context.Context, features FeatureVector) ([]float64, error) {
	return f(ctx, features)
}

// ConstantModel always predicts the same value.
func ConstantModel(value float64) Model {
	return ModelFunc(func(context.Context, FeatureVector) ([]float64, error) {
		return []float64{value}, nil
	})
}
