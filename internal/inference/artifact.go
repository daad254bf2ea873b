// Package inference runs the four season models over SeasonMetrics. Each model
// prefers a trained artifact from an ArtifactStore and falls back to a fixed
// rule set; failures are reported in the result instead of returned.
package inference

import (
	"context"
	"errors"
)

// ErrArtifactNotFound is returned by an ArtifactStore when no artifact exists for a name.
var ErrArtifactNotFound = errors.New("artifact not found")

// Prediction is the raw output of a trained artifact. Classifiers fill Label,
// regressors fill Value.
type Prediction struct {
	Label string
	Value float64
}

// Artifact is a loaded, trained model.
type Artifact interface {
	Predict(features []float64) (Prediction, error)
}

// ArtifactStore resolves trained artifacts by model name.
type ArtifactStore interface {
	Resolve(ctx context.Context, name string) (Artifact, error)
}

// NoArtifacts is an ArtifactStore that never has a trained model, forcing the rule-based path.
type NoArtifacts struct{}

func (NoArtifacts) Resolve(context.Context, string) (Artifact, error) {
	return nil, ErrArtifactNotFound
}
