package inference

import (
	"fmt"

	"github.com/postleo/riftinsights/internal/logic"
	"github.com/postleo/riftinsights/internal/models"
)

const PlaystyleModel = "playstyle_profiler"

const (
	ArchetypeStrategicEnabler    = "Strategic Enabler"
	ArchetypeMechanicalCarry     = "Mechanical Carry"
	ArchetypeLateGameScaler      = "Late-Game Scaler"
	ArchetypeAggressivePlaymaker = "Aggressive Playmaker"
	ArchetypeTeamSupport         = "Team-Oriented Support"
	ArchetypeBalanced            = "Balanced All-Rounder"
	ArchetypeUnknown             = "Unknown"
)

var archetypeDescriptions = map[string]string{
	ArchetypeStrategicEnabler:    "Focuses on team coordination and objective control",
	ArchetypeMechanicalCarry:     "Relies on mechanical skill to dominate games",
	ArchetypeLateGameScaler:      "Excels in extended games with strong scaling",
	ArchetypeAggressivePlaymaker: "Creates opportunities through aggressive plays",
	ArchetypeTeamSupport:         "Enables team success through vision and assists",
	ArchetypeBalanced:            "Well-rounded gameplay across all aspects",
}

// PlaystyleIndices are the three composite scores, each within [0, 100].
type PlaystyleIndices struct {
	Aggression float64
	Teamwork   float64
	Mechanical float64
}

func ComputeIndices(m *models.SeasonMetrics) PlaystyleIndices {
	return PlaystyleIndices{
		Aggression: logic.Clamp(5*m.KillsPerGame+3*m.DeathsPerGame, 0, 100),
		Teamwork:   logic.Clamp(8*m.AssistsPerGame+100*m.AvgObjectiveParticipation, 0, 100),
		Mechanical: logic.Clamp(10*m.AvgCSPerMin+5*m.KDA, 0, 100),
	}
}

// Archetype picks the first matching archetype. The order of the cases matters:
// inputs that satisfy several predicates take the earliest one.
func Archetype(ix PlaystyleIndices) string {
	switch {
	case ix.Teamwork > 60 && ix.Aggression < 50:
		return ArchetypeStrategicEnabler
	case ix.Aggression > 70 && ix.Mechanical > 60:
		return ArchetypeMechanicalCarry
	case ix.Mechanical > 70:
		return ArchetypeLateGameScaler
	case ix.Aggression > 60:
		return ArchetypeAggressivePlaymaker
	case ix.Teamwork > 70:
		return ArchetypeTeamSupport
	default:
		return ArchetypeBalanced
	}
}

func ArchetypeDescription(archetype string) string {
	if d, ok := archetypeDescriptions[archetype]; ok {
		return d
	}
	return "Unknown playstyle"
}

var playstyle = &model[models.PlaystyleProfile]{
	name: PlaystyleModel,
	features: func(in Input) []float64 {
		ix := ComputeIndices(in.Current)
		return []float64{ix.Aggression, ix.Teamwork, ix.Mechanical}
	},
	trained: func(in Input, p Prediction) (models.PlaystyleProfile, error) {
		if _, ok := archetypeDescriptions[p.Label]; !ok {
			return models.PlaystyleProfile{}, fmt.Errorf("playstyle artifact returned unknown archetype %q", p.Label)
		}
		return playstyleResult(ComputeIndices(in.Current), p.Label, models.ProvenanceTrained, TrainedConfidence), nil
	},
	rules: func(in Input) models.PlaystyleProfile {
		ix := ComputeIndices(in.Current)
		return playstyleResult(ix, Archetype(ix), models.ProvenanceRuleBased, RuleBasedConfidence)
	},
	failed: func(err error) models.PlaystyleProfile {
		return models.PlaystyleProfile{
			Model:       models.ProvenanceError,
			Archetype:   ArchetypeUnknown,
			Description: ArchetypeDescription(ArchetypeUnknown),
			Error:       err.Error(),
		}
	},
}

func playstyleResult(ix PlaystyleIndices, archetype string, prov models.Provenance, confidence float64) models.PlaystyleProfile {
	return models.PlaystyleProfile{
		Model:               prov,
		Archetype:           archetype,
		AggressionIndex:     logic.Round2(ix.Aggression),
		TeamworkOrientation: logic.Round2(ix.Teamwork),
		MechanicalSkill:     logic.Round2(ix.Mechanical),
		Description:         ArchetypeDescription(archetype),
		Confidence:          confidence,
	}
}
