package inference

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/postleo/riftinsights/internal/models"
)

const (
	// TrainedConfidence is reported for every trained result. Artifacts do not
	// expose class probabilities, so this is a constant rather than a calibrated value.
	TrainedConfidence = 0.85
	// RuleBasedConfidence is reported for rule-based results.
	RuleBasedConfidence = 0.75
)

// ErrNonFinitePrediction is returned when an artifact yields NaN or an infinity.
var ErrNonFinitePrediction = errors.New("non-finite prediction")

// Input is what a model reads. Prior is the previous year's metrics and may be nil.
type Input struct {
	Current *models.SeasonMetrics
	Prior   *models.SeasonMetrics
}

// model describes one inference model. Result values are built by the model
// itself, including their provenance tag.
type model[R any] struct {
	name string
	// features builds the fixed-order vector fed to a trained artifact.
	features func(in Input) []float64
	// trained converts an artifact prediction into a result.
	trained func(in Input, p Prediction) (R, error)
	// rules computes the result without an artifact.
	rules func(in Input) R
	// failed builds the safe default returned when anything goes wrong.
	failed func(err error) R
	// skipArtifact short-circuits to the rule path when the input cannot use a model.
	skipArtifact func(in Input) bool
}

// slot is one resolved way of running a model: either with a trained
// artifact or with the rule set.
type slot[R any] interface {
	infer(in Input) (R, error)
	provenance() models.Provenance
}

type trainedSlot[R any] struct {
	m        *model[R]
	artifact Artifact
}

func (s trainedSlot[R]) infer(in Input) (R, error) {
	var zero R
	pred, err := s.artifact.Predict(s.m.features(in))
	if err != nil {
		return zero, fmt.Errorf("%s predict: %w", s.m.name, err)
	}
	if math.IsNaN(pred.Value) || math.IsInf(pred.Value, 0) {
		return zero, fmt.Errorf("%s predict: %w: %v", s.m.name, ErrNonFinitePrediction, pred.Value)
	}
	return s.m.trained(in, pred)
}

func (trainedSlot[R]) provenance() models.Provenance { return models.ProvenanceTrained }

type ruleSlot[R any] struct {
	m *model[R]
}

func (s ruleSlot[R]) infer(in Input) (R, error) {
	return s.m.rules(in), nil
}

func (ruleSlot[R]) provenance() models.Provenance { return models.ProvenanceRuleBased }

// resolveSlot picks the trained slot when an artifact is available.
func resolveSlot[R any](ctx context.Context, cache *artifactCache, m *model[R], in Input) slot[R] {
	if m.skipArtifact != nil && m.skipArtifact(in) {
		return ruleSlot[R]{m: m}
	}
	if a := cache.get(ctx, m.name); a != nil {
		return trainedSlot[R]{m: m, artifact: a}
	}
	return ruleSlot[R]{m: m}
}

// runModel resolves and runs a model. It does not panic: failures are folded
// into the model's error result and the cause is returned alongside it.
func runModel[R any](ctx context.Context, cache *artifactCache, m *model[R], in Input) (result R, prov models.Provenance, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
			result, prov = m.failed(err), models.ProvenanceError
		}
	}()

	if in.Current == nil {
		err = fmt.Errorf("%s: no season metrics", m.name)
		return m.failed(err), models.ProvenanceError, err
	}

	s := resolveSlot(ctx, cache, m, in)
	result, err = s.infer(in)
	if err != nil {
		return m.failed(err), models.ProvenanceError, err
	}
	return result, s.provenance(), nil
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
