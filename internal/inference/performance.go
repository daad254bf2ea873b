package inference

import (
	"errors"

	"github.com/postleo/riftinsights/internal/models"
)

const PerformancePatternModel = "performance_pattern_analyzer"

const (
	PatternAggressiveSurvivor = "aggressive_combat_with_survival"
	PatternHighRisk           = "high_risk_high_reward"
	PatternVisionFocused      = "vision_focused_support"
	PatternBalanced           = "balanced_gameplay"
	PatternUnknown            = "unknown"
)

var performancePattern = &model[models.PerformancePattern]{
	name: PerformancePatternModel,
	features: func(in Input) []float64 {
		m := in.Current
		return []float64{
			m.KDA,
			m.WinRate,
			m.DeathsPerGame,
			m.AvgVisionScorePerMin,
			m.AvgObjectiveParticipation,
			m.AvgCSPerMin,
		}
	},
	trained: func(_ Input, p Prediction) (models.PerformancePattern, error) {
		if p.Label == "" {
			return models.PerformancePattern{}, errors.New("performance pattern artifact returned no label")
		}
		return models.PerformancePattern{
			Model:      models.ProvenanceTrained,
			Pattern:    p.Label,
			Confidence: TrainedConfidence,
		}, nil
	},
	rules: func(in Input) models.PerformancePattern {
		return models.PerformancePattern{
			Model:      models.ProvenanceRuleBased,
			Pattern:    ClassifyPerformance(in.Current),
			Confidence: RuleBasedConfidence,
		}
	},
	failed: func(err error) models.PerformancePattern {
		return models.PerformancePattern{
			Model:   models.ProvenanceError,
			Pattern: PatternUnknown,
			Error:   err.Error(),
		}
	},
}

// ClassifyPerformance applies the rule set; the first matching rule wins.
func ClassifyPerformance(m *models.SeasonMetrics) string {
	switch {
	case m.KDA > 3.0 && m.DeathsPerGame < 5:
		return PatternAggressiveSurvivor
	case m.DeathsPerGame > 7:
		return PatternHighRisk
	case m.AvgVisionScorePerMin > 1.0:
		return PatternVisionFocused
	default:
		return PatternBalanced
	}
}
