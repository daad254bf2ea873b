package models

import "time"

// RawMatch is a match as returned by /lol/match/v5/matches/{matchId}.
// It is stored unchanged in the raw match archive and never mutated.
type RawMatch struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

type MatchInfo struct {
	GameCreation int64         `json:"gameCreation"` // epoch millis
	GameDuration int           `json:"gameDuration"` // seconds
	GameMode     string        `json:"gameMode"`
	GameType     string        `json:"gameType"`
	GameVersion  string        `json:"gameVersion"`
	QueueID      int           `json:"queueId"`
	Participants []Participant `json:"participants"`
	Teams        []MatchTeam   `json:"teams"`
}

// CreatedAt returns the game creation time in UTC.
func (i MatchInfo) CreatedAt() time.Time {
	return time.UnixMilli(i.GameCreation).UTC()
}

type Participant struct {
	ParticipantID  int    `json:"participantId"`
	PUUID          string `json:"puuid"`
	RiotIdGameName string `json:"riotIdGameName"`
	RiotIdTagline  string `json:"riotIdTagline"`
	TeamID         int    `json:"teamId"`
	ChampionID     int    `json:"championId"`
	ChampionName   string `json:"championName"`
	TeamPosition   string `json:"teamPosition"` // TOP, JUNGLE, MIDDLE, BOTTOM, UTILITY
	Win            bool   `json:"win"`

	Kills   int `json:"kills"`
	Deaths  int `json:"deaths"`
	Assists int `json:"assists"`

	TotalMinionsKilled   int `json:"totalMinionsKilled"`
	NeutralMinionsKilled int `json:"neutralMinionsKilled"`
	GoldEarned           int `json:"goldEarned"`
	GoldSpent            int `json:"goldSpent"`

	TotalDamageDealtToChampions int `json:"totalDamageDealtToChampions"`
	TotalDamageTaken            int `json:"totalDamageTaken"`

	VisionScore         int `json:"visionScore"`
	WardsPlaced         int `json:"wardsPlaced"`
	WardsKilled         int `json:"wardsKilled"`
	DetectorWardsPlaced int `json:"detectorWardsPlaced"`

	TurretKills    int `json:"turretKills"`
	InhibitorKills int `json:"inhibitorKills"`

	DoubleKills    int  `json:"doubleKills"`
	TripleKills    int  `json:"tripleKills"`
	QuadraKills    int  `json:"quadraKills"`
	PentaKills     int  `json:"pentaKills"`
	FirstBloodKill bool `json:"firstBloodKill"`

	// Challenges mixes numbers and arrays, so it is kept loosely typed.
	Challenges map[string]any `json:"challenges,omitempty"`
}

// Challenge returns a numeric challenge stat, or 0 when missing or not a number.
func (p Participant) Challenge(key string) float64 {
	switch v := p.Challenges[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

type MatchTeam struct {
	TeamID     int            `json:"teamId"`
	Win        bool           `json:"win"`
	Objectives TeamObjectives `json:"objectives"`
}

type TeamObjectives struct {
	Baron      Objective `json:"baron"`
	Dragon     Objective `json:"dragon"`
	RiftHerald Objective `json:"riftHerald"`
	Tower      Objective `json:"tower"`
	Inhibitor  Objective `json:"inhibitor"`
	Champion   Objective `json:"champion"`
}

type Objective struct {
	First bool `json:"first"`
	Kills int  `json:"kills"`
}
