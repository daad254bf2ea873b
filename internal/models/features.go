package models

// Role is the resolved lane of a player in one match.
type Role string

const (
	RoleTop     Role = "TOP"
	RoleJungle  Role = "JUNGLE"
	RoleMid     Role = "MID"
	RoleADC     Role = "ADC"
	RoleSupport Role = "SUPPORT"
	RoleUnknown Role = "UNKNOWN"
)

// MatchFeatures is the normalized feature record for one (player, match).
type MatchFeatures struct {
	PlayerPUUID  string `json:"player_puuid"`
	MatchID      string `json:"match_id"`
	GameCreation int64  `json:"game_creation"`
	GameDuration int    `json:"game_duration"`
	GameMode     string `json:"game_mode"`
	GameType     string `json:"game_type"`

	ChampionName string `json:"champion_name"`
	ChampionID   int    `json:"champion_id"`
	Role         Role   `json:"role"`
	TeamPosition string `json:"team_position"`

	Win     bool    `json:"win"`
	Kills   int     `json:"kills"`
	Deaths  int     `json:"deaths"`
	Assists int     `json:"assists"`
	KDA     float64 `json:"kda"`

	TotalMinionsKilled   int     `json:"total_minions_killed"`
	NeutralMinionsKilled int     `json:"neutral_minions_killed"`
	TotalCS              int     `json:"total_cs"`
	CSPerMin             float64 `json:"cs_per_min"`

	GoldEarned int     `json:"gold_earned"`
	GoldSpent  int     `json:"gold_spent"`
	GoldPerMin float64 `json:"gold_per_min"`

	TotalDamageDealt int     `json:"total_damage_dealt"`
	TotalDamageTaken int     `json:"total_damage_taken"`
	DamageEfficiency float64 `json:"damage_efficiency"`

	VisionScore        int     `json:"vision_score"`
	VisionScorePerMin  float64 `json:"vision_score_per_min"`
	WardsPlaced        int     `json:"wards_placed"`
	WardsKilled        int     `json:"wards_killed"`
	ControlWardsPlaced int     `json:"control_wards_placed"`

	TurretKills            int     `json:"turret_kills"`
	InhibitorKills         int     `json:"inhibitor_kills"`
	ObjectiveParticipation float64 `json:"objective_participation"`

	DoubleKills int  `json:"double_kills"`
	TripleKills int  `json:"triple_kills"`
	QuadraKills int  `json:"quadra_kills"`
	PentaKills  int  `json:"penta_kills"`
	FirstBlood  bool `json:"first_blood"`

	Challenges map[string]any `json:"challenges"`

	IsComebackGame bool `json:"is_comeback_game"`
	EarlySurrender bool `json:"early_surrender"`
	LateGame       bool `json:"late_game"`
}
