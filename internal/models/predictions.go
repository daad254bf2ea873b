package models

import "time"

// Provenance records which path produced a model result.
type Provenance string

const (
	ProvenanceTrained   Provenance = "trained"
	ProvenanceRuleBased Provenance = "rule_based"
	ProvenanceError     Provenance = "error"
)

// PerformancePattern classifies the player's overall performance characteristics.
type PerformancePattern struct {
	Model      Provenance `json:"model"`
	Pattern    string     `json:"pattern"`
	Confidence float64    `json:"confidence"`
	Error      string     `json:"error,omitempty"`
}

// MentalResilience scores tilt resistance and consistency.
type MentalResilience struct {
	Model             Provenance `json:"model"`
	ResilienceScore   float64    `json:"resilience_score"`
	Grade             string     `json:"grade"`
	ComebackWins      int        `json:"comeback_wins"`
	ConsistencyRating string     `json:"consistency_rating,omitempty"`
	Confidence        float64    `json:"confidence"`
	Error             string     `json:"error,omitempty"`
}

// GrowthTrajectory compares a season against the previous one.
type GrowthTrajectory struct {
	Model                     Provenance         `json:"model"`
	Trajectory                string             `json:"trajectory"`
	ImprovementVelocity       float64            `json:"improvement_velocity"`
	ImprovementsByMetric      map[string]float64 `json:"improvements_by_metric,omitempty"`
	PredictedImprovementAreas []string           `json:"predicted_improvement_areas"`
	GrowthPotential           string             `json:"growth_potential,omitempty"`
	Confidence                float64            `json:"confidence"`
	Error                     string             `json:"error,omitempty"`
}

// PlaystyleProfile places the player in one of six archetypes.
type PlaystyleProfile struct {
	Model               Provenance `json:"model"`
	Archetype           string     `json:"archetype"`
	AggressionIndex     float64    `json:"aggression_index"`
	TeamworkOrientation float64    `json:"teamwork_orientation"`
	MechanicalSkill     float64    `json:"mechanical_skill"`
	Description         string     `json:"playstyle_description"`
	Confidence          float64    `json:"confidence"`
	Error               string     `json:"error,omitempty"`
}

// InferenceBundle holds the four model results for one (player, year).
// It is always structurally complete; failed models carry ProvenanceError.
type InferenceBundle struct {
	RunID              string             `json:"run_id"`
	PlayerPUUID        string             `json:"player_puuid"`
	Year               int                `json:"year"`
	PerformancePattern PerformancePattern `json:"performance_pattern"`
	MentalResilience   MentalResilience   `json:"mental_resilience"`
	GrowthTrajectory   GrowthTrajectory   `json:"growth_trajectory"`
	Playstyle          PlaystyleProfile   `json:"playstyle"`
	ProcessedAt        time.Time          `json:"processed_at"`
}
