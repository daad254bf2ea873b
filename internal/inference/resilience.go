package inference

import (
	"github.com/postleo/riftinsights/internal/logic"
	"github.com/postleo/riftinsights/internal/models"
)

const MentalResilienceModel = "mental_resilience_calculator"

const (
	GradeElite      = "Elite"
	GradeHigh       = "High"
	GradeMedium     = "Medium"
	GradeDeveloping = "Developing"
	GradeUnknown    = "Unknown"

	defaultResilienceScore = 50.0
)

var mentalResilience = &model[models.MentalResilience]{
	name: MentalResilienceModel,
	features: func(in Input) []float64 {
		m := in.Current
		return []float64{
			float64(m.ComebackWins),
			m.WinRate,
			float64(m.TotalGames),
		}
	},
	trained: func(in Input, p Prediction) (models.MentalResilience, error) {
		return resilienceResult(in.Current, p.Value, models.ProvenanceTrained, TrainedConfidence), nil
	},
	rules: func(in Input) models.MentalResilience {
		return resilienceResult(in.Current, ResilienceScore(in.Current), models.ProvenanceRuleBased, RuleBasedConfidence)
	},
	failed: func(err error) models.MentalResilience {
		return models.MentalResilience{
			Model:           models.ProvenanceError,
			ResilienceScore: defaultResilienceScore,
			Grade:           GradeUnknown,
			Error:           err.Error(),
		}
	},
}

func resilienceResult(m *models.SeasonMetrics, score float64, prov models.Provenance, confidence float64) models.MentalResilience {
	score = logic.Round2(logic.Clamp(score, 0, 100))
	return models.MentalResilience{
		Model:             prov,
		ResilienceScore:   score,
		Grade:             ResilienceGrade(score),
		ComebackWins:      m.ComebackWins,
		ConsistencyRating: ConsistencyRating(m.WinRate),
		Confidence:        confidence,
	}
}

// ResilienceScore weights comeback rate at 40% and win rate at 60%, bounded to [0, 100].
func ResilienceScore(m *models.SeasonMetrics) float64 {
	var comebackRate float64
	if m.TotalGames > 0 {
		comebackRate = float64(m.ComebackWins) / float64(m.TotalGames) * 100
	}
	return logic.Clamp(comebackRate*0.4+m.WinRate*0.6, 0, 100)
}

func ResilienceGrade(score float64) string {
	switch {
	case score >= 80:
		return GradeElite
	case score >= 65:
		return GradeHigh
	case score >= 45:
		return GradeMedium
	default:
		return GradeDeveloping
	}
}

func ConsistencyRating(winRate float64) string {
	switch {
	case winRate >= 55:
		return "Very Consistent"
	case winRate >= 50:
		return "Consistent"
	case winRate >= 45:
		return "Moderate"
	default:
		return "Variable"
	}
}
