package domain

import "context"

// Scorer is the trained-classifier capability, treated as an opaque function
// over the assembler's output schema.
type Scorer interface {
	// PredictProbability returns one probability per matrix row, in order.
	PredictProbability(ctx context.Context, m *FeatureMatrix) ([]float64, error)
}

// Explainer is the explainability capability: per-row, per-feature
// contributions to the predicted score.
type Explainer interface {
	Explain(ctx context.Context, m *FeatureMatrix) ([]map[string]float64, error)
}
