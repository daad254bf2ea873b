package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/postleo/riftinsights/internal/models"
)

// FeatureTableDDL creates the per-match feature table. Columns follow
// featureColumns.
const FeatureTableDDL = `
CREATE TABLE IF NOT EXISTS riftsage.match_features (
	player_puuid            String,
	match_id                String,
	game_creation           DateTime64(3),
	game_duration           UInt32,
	game_mode               LowCardinality(String),
	game_type               LowCardinality(String),
	champion_name           LowCardinality(String),
	champion_id             UInt16,
	role                    LowCardinality(String),
	team_position           LowCardinality(String),
	win                     UInt8,
	kills                   UInt16,
	deaths                  UInt16,
	assists                 UInt16,
	kda                     Float64,
	total_minions_killed    UInt16,
	neutral_minions_killed  UInt16,
	total_cs                UInt16,
	cs_per_min              Float64,
	gold_earned             UInt32,
	gold_spent              UInt32,
	gold_per_min            Float64,
	total_damage_dealt      UInt32,
	total_damage_taken      UInt32,
	damage_efficiency       Float64,
	vision_score            UInt16,
	vision_score_per_min    Float64,
	wards_placed            UInt16,
	wards_killed            UInt16,
	control_wards_placed    UInt16,
	turret_kills            UInt8,
	inhibitor_kills         UInt8,
	objective_participation Float64,
	double_kills            UInt8,
	triple_kills            UInt8,
	quadra_kills            UInt8,
	penta_kills             UInt8,
	first_blood             UInt8,
	challenges              String,
	is_comeback_game        UInt8,
	early_surrender         UInt8,
	late_game               UInt8,
	inserted_at             DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(inserted_at)
ORDER BY (player_puuid, game_creation, match_id)
`

// featureColumns is the column order shared by inserts and history reads.
const featureColumns = `player_puuid, match_id, game_creation, game_duration, game_mode, game_type,
	champion_name, champion_id, role, team_position,
	win, kills, deaths, assists, kda,
	total_minions_killed, neutral_minions_killed, total_cs, cs_per_min,
	gold_earned, gold_spent, gold_per_min,
	total_damage_dealt, total_damage_taken, damage_efficiency,
	vision_score, vision_score_per_min, wards_placed, wards_killed, control_wards_placed,
	turret_kills, inhibitor_kills, objective_participation,
	double_kills, triple_kills, quadra_kills, penta_kills, first_blood,
	challenges, is_comeback_game, early_surrender, late_game`

// featureRow holds one match_features row in its column types.
type featureRow struct {
	PlayerPUUID, MatchID          string
	GameCreation                  time.Time
	GameDuration                  uint32
	GameMode, GameType            string
	ChampionName                  string
	ChampionID                    uint16
	Role, TeamPosition            string
	Win                           uint8
	Kills, Deaths, Assists        uint16
	KDA                           float64
	MinionsKilled, NeutralKilled  uint16
	TotalCS                       uint16
	CSPerMin                      float64
	GoldEarned, GoldSpent         uint32
	GoldPerMin                    float64
	DamageDealt, DamageTaken      uint32
	DamageEfficiency              float64
	VisionScore                   uint16
	VisionScorePerMin             float64
	WardsPlaced, WardsKilled      uint16
	ControlWardsPlaced            uint16
	TurretKills, InhibitorKills   uint8
	ObjectiveParticipation        float64
	Doubles, Triples              uint8
	Quadras, Pentas               uint8
	FirstBlood                    uint8
	Challenges                    string
	Comeback, Surrender, LateGame uint8
}

func newFeatureRow(f *models.MatchFeatures) (featureRow, error) {
	challenges, err := json.Marshal(f.Challenges)
	if err != nil {
		return featureRow{}, fmt.Errorf("failed to encode challenges for %s: %w", f.MatchID, err)
	}
	return featureRow{
		PlayerPUUID:            f.PlayerPUUID,
		MatchID:                f.MatchID,
		GameCreation:           time.UnixMilli(f.GameCreation).UTC(),
		GameDuration:           uint32(f.GameDuration),
		GameMode:               f.GameMode,
		GameType:               f.GameType,
		ChampionName:           f.ChampionName,
		ChampionID:             uint16(f.ChampionID),
		Role:                   string(f.Role),
		TeamPosition:           f.TeamPosition,
		Win:                    boolToUint8(f.Win),
		Kills:                  uint16(f.Kills),
		Deaths:                 uint16(f.Deaths),
		Assists:                uint16(f.Assists),
		KDA:                    f.KDA,
		MinionsKilled:          uint16(f.TotalMinionsKilled),
		NeutralKilled:          uint16(f.NeutralMinionsKilled),
		TotalCS:                uint16(f.TotalCS),
		CSPerMin:               f.CSPerMin,
		GoldEarned:             uint32(f.GoldEarned),
		GoldSpent:              uint32(f.GoldSpent),
		GoldPerMin:             f.GoldPerMin,
		DamageDealt:            uint32(f.TotalDamageDealt),
		DamageTaken:            uint32(f.TotalDamageTaken),
		DamageEfficiency:       f.DamageEfficiency,
		VisionScore:            uint16(f.VisionScore),
		VisionScorePerMin:      f.VisionScorePerMin,
		WardsPlaced:            uint16(f.WardsPlaced),
		WardsKilled:            uint16(f.WardsKilled),
		ControlWardsPlaced:     uint16(f.ControlWardsPlaced),
		TurretKills:            uint8(f.TurretKills),
		InhibitorKills:         uint8(f.InhibitorKills),
		ObjectiveParticipation: f.ObjectiveParticipation,
		Doubles:                uint8(f.DoubleKills),
		Triples:                uint8(f.TripleKills),
		Quadras:                uint8(f.QuadraKills),
		Pentas:                 uint8(f.PentaKills),
		FirstBlood:             boolToUint8(f.FirstBlood),
		Challenges:             string(challenges),
		Comeback:               boolToUint8(f.IsComebackGame),
		Surrender:              boolToUint8(f.EarlySurrender),
		LateGame:               boolToUint8(f.LateGame),
	}, nil
}

// fields returns scan targets in featureColumns order.
func (r *featureRow) fields() []any {
	return []any{
		&r.PlayerPUUID, &r.MatchID, &r.GameCreation, &r.GameDuration, &r.GameMode, &r.GameType,
		&r.ChampionName, &r.ChampionID, &r.Role, &r.TeamPosition,
		&r.Win, &r.Kills, &r.Deaths, &r.Assists, &r.KDA,
		&r.MinionsKilled, &r.NeutralKilled, &r.TotalCS, &r.CSPerMin,
		&r.GoldEarned, &r.GoldSpent, &r.GoldPerMin,
		&r.DamageDealt, &r.DamageTaken, &r.DamageEfficiency,
		&r.VisionScore, &r.VisionScorePerMin, &r.WardsPlaced, &r.WardsKilled, &r.ControlWardsPlaced,
		&r.TurretKills, &r.InhibitorKills, &r.ObjectiveParticipation,
		&r.Doubles, &r.Triples, &r.Quadras, &r.Pentas, &r.FirstBlood,
		&r.Challenges, &r.Comeback, &r.Surrender, &r.LateGame,
	}
}

// values returns the row in featureColumns order for batch.Append.
func (r *featureRow) values() []any {
	return []any{
		r.PlayerPUUID, r.MatchID, r.GameCreation, r.GameDuration, r.GameMode, r.GameType,
		r.ChampionName, r.ChampionID, r.Role, r.TeamPosition,
		r.Win, r.Kills, r.Deaths, r.Assists, r.KDA,
		r.MinionsKilled, r.NeutralKilled, r.TotalCS, r.CSPerMin,
		r.GoldEarned, r.GoldSpent, r.GoldPerMin,
		r.DamageDealt, r.DamageTaken, r.DamageEfficiency,
		r.VisionScore, r.VisionScorePerMin, r.WardsPlaced, r.WardsKilled, r.ControlWardsPlaced,
		r.TurretKills, r.InhibitorKills, r.ObjectiveParticipation,
		r.Doubles, r.Triples, r.Quadras, r.Pentas, r.FirstBlood,
		r.Challenges, r.Comeback, r.Surrender, r.LateGame,
	}
}

func (r *featureRow) features() (models.MatchFeatures, error) {
	f := models.MatchFeatures{
		PlayerPUUID:            r.PlayerPUUID,
		MatchID:                r.MatchID,
		GameCreation:           r.GameCreation.UnixMilli(),
		GameDuration:           int(r.GameDuration),
		GameMode:               r.GameMode,
		GameType:               r.GameType,
		ChampionName:           r.ChampionName,
		ChampionID:             int(r.ChampionID),
		Role:                   models.Role(r.Role),
		TeamPosition:           r.TeamPosition,
		Win:                    r.Win == 1,
		Kills:                  int(r.Kills),
		Deaths:                 int(r.Deaths),
		Assists:                int(r.Assists),
		KDA:                    r.KDA,
		TotalMinionsKilled:     int(r.MinionsKilled),
		NeutralMinionsKilled:   int(r.NeutralKilled),
		TotalCS:                int(r.TotalCS),
		CSPerMin:               r.CSPerMin,
		GoldEarned:             int(r.GoldEarned),
		GoldSpent:              int(r.GoldSpent),
		GoldPerMin:             r.GoldPerMin,
		TotalDamageDealt:       int(r.DamageDealt),
		TotalDamageTaken:       int(r.DamageTaken),
		DamageEfficiency:       r.DamageEfficiency,
		VisionScore:            int(r.VisionScore),
		VisionScorePerMin:      r.VisionScorePerMin,
		WardsPlaced:            int(r.WardsPlaced),
		WardsKilled:            int(r.WardsKilled),
		ControlWardsPlaced:     int(r.ControlWardsPlaced),
		TurretKills:            int(r.TurretKills),
		InhibitorKills:         int(r.InhibitorKills),
		ObjectiveParticipation: r.ObjectiveParticipation,
		DoubleKills:            int(r.Doubles),
		TripleKills:            int(r.Triples),
		QuadraKills:            int(r.Quadras),
		PentaKills:             int(r.Pentas),
		FirstBlood:             r.FirstBlood == 1,
		IsComebackGame:         r.Comeback == 1,
		EarlySurrender:         r.Surrender == 1,
		LateGame:               r.LateGame == 1,
	}
	if r.Challenges != "" && r.Challenges != "null" {
		if err := json.Unmarshal([]byte(r.Challenges), &f.Challenges); err != nil {
			return f, fmt.Errorf("failed to decode challenges for %s: %w", r.MatchID, err)
		}
	}
	return f, nil
}

// FeatureWriter batch-inserts per-match features into ClickHouse.
// Re-processing a season inserts the same keys again; ReplacingMergeTree
// collapses them.
type FeatureWriter struct {
	ch driver.Conn
}

func NewFeatureWriter(ch driver.Conn) *FeatureWriter {
	return &FeatureWriter{ch: ch}
}

func (w *FeatureWriter) EnsureSchema(ctx context.Context) error {
	if err := w.ch.Exec(ctx, `CREATE DATABASE IF NOT EXISTS riftsage`); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	if err := w.ch.Exec(ctx, FeatureTableDDL); err != nil {
		return fmt.Errorf("failed to create match_features: %w", err)
	}
	return nil
}

// WriteBatch inserts all records in one batch. A record that fails to append
// fails the whole batch.
func (w *FeatureWriter) WriteBatch(ctx context.Context, records []models.MatchFeatures) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := w.ch.PrepareBatch(ctx, "INSERT INTO riftsage.match_features ("+featureColumns+")")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for i := range records {
		row, err := newFeatureRow(&records[i])
		if err != nil {
			_ = batch.Abort()
			return err
		}
		if err := batch.Append(row.values()...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append %s: %w", row.MatchID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch of %d: %w", len(records), err)
	}
	return nil
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
