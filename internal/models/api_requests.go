package models

type CollectRequest struct {
	PUUID  string `json:"player_puuid" validate:"required,min=10,max=128"`
	Region string `json:"region" validate:"required,oneof=na1 euw1 eun1 kr br1 jp1 la1 la2 tr1 ru"`
	Year   int    `json:"year" validate:"omitempty,min=2010,max=2100"`
}

type CollectResponse struct {
	PlayerPUUID      string   `json:"player_puuid"`
	Region           string   `json:"region"`
	Year             int      `json:"year"`
	MatchesCollected int      `json:"matches_collected"`
	MatchesFailed    int      `json:"matches_failed"`
	MatchIDs         []string `json:"match_ids"`
	ArchiveKeys      []string `json:"archive_keys"`
}

type SeasonRequest struct {
	PUUID string `validate:"required,min=10,max=128"`
	Year  int    `validate:"required,min=2010,max=2100"`
}

type ProcessResponse struct {
	PlayerPUUID      string           `json:"player_puuid"`
	Year             int              `json:"year"`
	MatchesProcessed int              `json:"matches_processed"`
	MatchesSkipped   int              `json:"matches_skipped"`
	Metrics          *SeasonMetrics   `json:"metrics"`
	Inference        *InferenceBundle `json:"ml_inference"`
}

// HistoryRequest filters a season's match history. Bound from query parameters.
type HistoryRequest struct {
	PUUID    string `validate:"required,min=10,max=128"`
	Year     int    `validate:"required,min=2010,max=2100"`
	Champion string `validate:"omitempty,alphanum,max=32"`
	Role     string `validate:"omitempty,oneof=TOP JUNGLE MID ADC SUPPORT UNKNOWN"`
	Result   string `validate:"omitempty,oneof=win loss"`
	Sort     string `validate:"omitempty,oneof=recent kda cs gold vision damage"`
	Limit    int    `validate:"omitempty,min=1,max=1000"`
}

type HistoryResponse struct {
	PlayerPUUID string          `json:"player_puuid"`
	Year        int             `json:"year"`
	Matches     []MatchFeatures `json:"matches"`
}
