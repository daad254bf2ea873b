package models

import "time"

// SeasonMetrics aggregates one player's feature records for a calendar year.
type SeasonMetrics struct {
	PlayerPUUID string `json:"player_puuid,omitempty"`
	Year        int    `json:"year"`

	TotalGames int     `json:"total_games"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	WinRate    float64 `json:"win_rate"`

	PrimaryRole      Role         `json:"primary_role"`
	RoleDistribution map[Role]int `json:"role_distribution"`

	TotalKills     int     `json:"total_kills"`
	TotalDeaths    int     `json:"total_deaths"`
	TotalAssists   int     `json:"total_assists"`
	KillsPerGame   float64 `json:"kills_per_game"`
	DeathsPerGame  float64 `json:"deaths_per_game"`
	AssistsPerGame float64 `json:"assists_per_game"`
	KDA            float64 `json:"kda"`

	AvgCSPerMin               float64 `json:"avg_cs_per_min"`
	AvgGoldPerMin             float64 `json:"avg_gold_per_min"`
	AvgVisionScorePerMin      float64 `json:"avg_vision_score_per_min"`
	AvgDamageEfficiency       float64 `json:"avg_damage_efficiency"`
	AvgObjectiveParticipation float64 `json:"avg_objective_participation"`

	ComebackWins   int `json:"comeback_wins"`
	LateGameWins   int `json:"late_game_wins"`
	LateGameLosses int `json:"late_game_losses"`

	TotalDoubleKills int `json:"total_double_kills"`
	TotalTripleKills int `json:"total_triple_kills"`
	TotalQuadraKills int `json:"total_quadra_kills"`
	TotalPentaKills  int `json:"total_penta_kills"`

	UniqueChampions    int    `json:"unique_champions"`
	MostPlayedChampion string `json:"most_played_champion"`

	ProcessedAt time.Time `json:"processed_at"`
}

// SeasonReport is what the API returns for a (player, year) key.
type SeasonReport struct {
	Metrics   *SeasonMetrics   `json:"metrics"`
	Inference *InferenceBundle `json:"ml_inference,omitempty"`
}
