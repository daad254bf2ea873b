package inference

import (
	"github.com/postleo/riftinsights/internal/logic"
	"github.com/postleo/riftinsights/internal/models"
)

const GrowthTrajectoryModel = "growth_trajectory_analyzer"

const (
	TrajectoryInsufficientData = "insufficient_data"
	TrajectoryImproving        = "improving"
	TrajectoryStable           = "stable"
	TrajectoryError            = "error"

	GrowthPotentialHigh     = "high"
	GrowthPotentialModerate = "moderate"

	AreaCSEfficiency = "cs_efficiency"
	AreaVision       = "vision_control"
	AreaPositioning  = "positioning"
)

// growthMetric is one season value compared year over year.
type growthMetric struct {
	key string
	get func(*models.SeasonMetrics) float64
}

var growthMetrics = []growthMetric{
	{"kda", func(m *models.SeasonMetrics) float64 { return m.KDA }},
	{"win_rate", func(m *models.SeasonMetrics) float64 { return m.WinRate }},
	{"avg_cs_per_min", func(m *models.SeasonMetrics) float64 { return m.AvgCSPerMin }},
	{"avg_vision_score_per_min", func(m *models.SeasonMetrics) float64 { return m.AvgVisionScorePerMin }},
}

var growthTrajectory = &model[models.GrowthTrajectory]{
	name: GrowthTrajectoryModel,
	features: func(in Input) []float64 {
		out := make([]float64, 0, 2*len(growthMetrics))
		for _, gm := range growthMetrics {
			out = append(out, gm.get(in.Current))
		}
		for _, gm := range growthMetrics {
			out = append(out, gm.get(in.Prior))
		}
		return out
	},
	trained: func(in Input, p Prediction) (models.GrowthTrajectory, error) {
		changes := PercentChanges(in.Current, in.Prior)
		return growthResult(in.Current, changes, p.Value, models.ProvenanceTrained, TrainedConfidence), nil
	},
	rules: func(in Input) models.GrowthTrajectory {
		if in.Prior == nil {
			return InsufficientHistory()
		}
		changes := PercentChanges(in.Current, in.Prior)
		return growthResult(in.Current, changes, meanChange(changes), models.ProvenanceRuleBased, RuleBasedConfidence)
	},
	failed: func(err error) models.GrowthTrajectory {
		return models.GrowthTrajectory{
			Model:                     models.ProvenanceError,
			Trajectory:                TrajectoryError,
			PredictedImprovementAreas: []string{},
			Error:                     err.Error(),
		}
	},
	skipArtifact: func(in Input) bool { return in.Prior == nil },
}

// InsufficientHistory is the result when there is no previous season to compare against.
func InsufficientHistory() models.GrowthTrajectory {
	return models.GrowthTrajectory{
		Model:                     models.ProvenanceRuleBased,
		Trajectory:                TrajectoryInsufficientData,
		ImprovementVelocity:       0,
		PredictedImprovementAreas: []string{},
	}
}

// PercentChanges returns the year-over-year percent change per metric.
// Metrics with a zero prior value have no defined change and are left out,
// which biases the velocity toward the metrics that do have a baseline.
func PercentChanges(current, prior *models.SeasonMetrics) map[string]float64 {
	changes := make(map[string]float64, len(growthMetrics))
	for _, gm := range growthMetrics {
		prev := gm.get(prior)
		if prev == 0 {
			continue
		}
		changes[gm.key] = logic.Round2((gm.get(current) - prev) / prev * 100)
	}
	return changes
}

func meanChange(changes map[string]float64) float64 {
	if len(changes) == 0 {
		return 0
	}
	var sum float64
	for _, gm := range growthMetrics {
		sum += changes[gm.key]
	}
	return sum / float64(len(changes))
}

// ImprovementAreas flags weak spots in the current season only.
func ImprovementAreas(m *models.SeasonMetrics) []string {
	areas := []string{}
	if m.AvgCSPerMin < 7.0 {
		areas = append(areas, AreaCSEfficiency)
	}
	if m.AvgVisionScorePerMin < 0.8 {
		areas = append(areas, AreaVision)
	}
	if m.DeathsPerGame > 6 {
		areas = append(areas, AreaPositioning)
	}
	return areas
}

func growthResult(m *models.SeasonMetrics, changes map[string]float64, velocity float64, prov models.Provenance, confidence float64) models.GrowthTrajectory {
	trajectory := TrajectoryStable
	if velocity > 0 {
		trajectory = TrajectoryImproving
	}
	potential := GrowthPotentialModerate
	if velocity > 10 {
		potential = GrowthPotentialHigh
	}

	return models.GrowthTrajectory{
		Model:                     prov,
		Trajectory:                trajectory,
		ImprovementVelocity:       logic.Round2(velocity),
		ImprovementsByMetric:      changes,
		PredictedImprovementAreas: ImprovementAreas(m),
		GrowthPotential:           potential,
		Confidence:                confidence,
	}
}
