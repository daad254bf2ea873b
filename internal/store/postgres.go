package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/postleo/riftinsights/internal/models"
)

// Schema creates the tables PostgresSeasons reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS players (
	puuid           TEXT PRIMARY KEY,
	region          TEXT NOT NULL,
	last_collection TIMESTAMPTZ NOT NULL,
	match_count     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS season_metrics (
	puuid        TEXT NOT NULL,
	year         INTEGER NOT NULL,
	metrics      JSONB NOT NULL,
	ml_inference JSONB,
	processed_at TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (puuid, year)
);
`

// SeasonRepository is the keyed store of season metrics and their inference bundles.
type SeasonRepository interface {
	GetSeason(ctx context.Context, puuid string, year int) (*models.SeasonMetrics, error)
	GetReport(ctx context.Context, puuid string, year int) (*models.SeasonReport, error)
	SaveSeason(ctx context.Context, m *models.SeasonMetrics) error
	SaveInference(ctx context.Context, b *models.InferenceBundle) error
}

// PostgresSeasons stores one row per (player, year). Metrics and the
// inference bundle are JSONB documents.
type PostgresSeasons struct {
	pg PgPool
}

func NewPostgresSeasons(pg PgPool) *PostgresSeasons {
	return &PostgresSeasons{pg: pg}
}

// EnsureSchema creates missing tables.
func (s *PostgresSeasons) EnsureSchema(ctx context.Context) error {
	if _, err := s.pg.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *PostgresSeasons) GetSeason(ctx context.Context, puuid string, year int) (*models.SeasonMetrics, error) {
	var raw []byte
	err := s.pg.QueryRow(ctx,
		`SELECT metrics FROM season_metrics WHERE puuid = $1 AND year = $2`,
		puuid, year,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get season %s/%d: %w", puuid, year, err)
	}

	var m models.SeasonMetrics
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode season %s/%d: %w", puuid, year, err)
	}
	return &m, nil
}

func (s *PostgresSeasons) GetReport(ctx context.Context, puuid string, year int) (*models.SeasonReport, error) {
	var metricsRaw, inferenceRaw []byte
	err := s.pg.QueryRow(ctx,
		`SELECT metrics, ml_inference FROM season_metrics WHERE puuid = $1 AND year = $2`,
		puuid, year,
	).Scan(&metricsRaw, &inferenceRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s/%d: %w", puuid, year, err)
	}

	report := &models.SeasonReport{Metrics: &models.SeasonMetrics{}}
	if err := json.Unmarshal(metricsRaw, report.Metrics); err != nil {
		return nil, fmt.Errorf("failed to decode season %s/%d: %w", puuid, year, err)
	}
	if len(inferenceRaw) > 0 {
		report.Inference = &models.InferenceBundle{}
		if err := json.Unmarshal(inferenceRaw, report.Inference); err != nil {
			return nil, fmt.Errorf("failed to decode inference %s/%d: %w", puuid, year, err)
		}
	}
	return report, nil
}

// SaveSeason upserts the metrics. A stored inference bundle is kept.
func (s *PostgresSeasons) SaveSeason(ctx context.Context, m *models.SeasonMetrics) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode season: %w", err)
	}
	_, err = s.pg.Exec(ctx, `
		INSERT INTO season_metrics (puuid, year, metrics, processed_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (puuid, year) DO UPDATE
		SET metrics = EXCLUDED.metrics,
		    processed_at = EXCLUDED.processed_at,
		    updated_at = NOW()
	`, m.PlayerPUUID, m.Year, raw, m.ProcessedAt)
	if err != nil {
		return fmt.Errorf("failed to save season %s/%d: %w", m.PlayerPUUID, m.Year, err)
	}
	return nil
}

// SaveInference attaches a bundle to existing metrics. It returns ErrNotFound
// when no metrics row exists for the bundle's key.
func (s *PostgresSeasons) SaveInference(ctx context.Context, b *models.InferenceBundle) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode inference: %w", err)
	}
	tag, err := s.pg.Exec(ctx, `
		UPDATE season_metrics
		SET ml_inference = $3, updated_at = NOW()
		WHERE puuid = $1 AND year = $2
	`, b.PlayerPUUID, b.Year, raw)
	if err != nil {
		return fmt.Errorf("failed to save inference %s/%d: %w", b.PlayerPUUID, b.Year, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresPlayers tracks collection runs per player.
type PostgresPlayers struct {
	pg PgPool
}

func NewPostgresPlayers(pg PgPool) *PostgresPlayers {
	return &PostgresPlayers{pg: pg}
}

// TouchPlayer records a finished collection run.
func (s *PostgresPlayers) TouchPlayer(ctx context.Context, puuid, region string, matchCount int, at time.Time) error {
	_, err := s.pg.Exec(ctx, `
		INSERT INTO players (puuid, region, last_collection, match_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (puuid) DO UPDATE
		SET region = EXCLUDED.region,
		    last_collection = EXCLUDED.last_collection,
		    match_count = EXCLUDED.match_count
	`, puuid, region, at, matchCount)
	if err != nil {
		return fmt.Errorf("failed to update player %s: %w", puuid, err)
	}
	return nil
}
