// Package season turns an archived season of raw matches into stored season
// metrics and an inference bundle.
package season

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/postleo/riftinsights/internal/inference"
	"github.com/postleo/riftinsights/internal/logic"
	"github.com/postleo/riftinsights/internal/models"
	"github.com/postleo/riftinsights/internal/store"
)

var (
	matchesExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riftsage_matches_extracted_total",
		Help: "Matches turned into feature records",
	})

	matchesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riftsage_matches_skipped_total",
		Help: "Archived matches skipped during season processing",
	}, []string{"reason"})
)

// Archive lists and reads raw match documents.
type Archive interface {
	List(ctx context.Context, puuid string, year int) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// FeatureSink receives every extracted feature record. Enqueue must not block.
type FeatureSink interface {
	Enqueue(f models.MatchFeatures) bool
}

type Config struct {
	Archive   Archive
	Seasons   store.SeasonRepository
	Features  FeatureSink
	Artifacts inference.ArtifactStore
	// ExtractWorkers bounds parallel match reads and extraction.
	ExtractWorkers int
	Logger         *zap.Logger
}

type Service struct {
	archive        Archive
	seasons        store.SeasonRepository
	features       FeatureSink
	artifacts      inference.ArtifactStore
	extractWorkers int
	logger         *zap.Logger
	sugar          *zap.SugaredLogger
}

func NewService(cfg Config) *Service {
	if cfg.ExtractWorkers <= 0 {
		cfg.ExtractWorkers = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		archive:        cfg.Archive,
		seasons:        cfg.Seasons,
		features:       cfg.Features,
		artifacts:      cfg.Artifacts,
		extractWorkers: cfg.ExtractWorkers,
		logger:         cfg.Logger,
		sugar:          cfg.Logger.Sugar(),
	}
}

// ProcessSeason extracts, aggregates, stores and runs inference for one
// player and year. It returns logic.ErrEmptyDataset when no archived match
// yields a feature record.
func (s *Service) ProcessSeason(ctx context.Context, puuid string, year int) (*models.ProcessResponse, error) {
	keys, err := s.archive.List(ctx, puuid, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived matches: %w", err)
	}

	records, err := s.extract(ctx, puuid, keys)
	if err != nil {
		return nil, err
	}
	skipped := len(keys) - len(records)

	if s.features != nil {
		for _, r := range records {
			if !s.features.Enqueue(r) {
				s.sugar.Warnw("Feature record dropped", "puuid", puuid, "matchID", r.MatchID)
			}
		}
	}

	metrics, err := logic.AggregateSeason(records, year)
	if err != nil {
		return nil, fmt.Errorf("season %s/%d: %w", puuid, year, err)
	}
	metrics.PlayerPUUID = puuid

	if err := s.seasons.SaveSeason(ctx, metrics); err != nil {
		return nil, err
	}

	bundle, err := s.runInference(ctx, metrics)
	if err != nil {
		return nil, err
	}

	s.sugar.Infow("Season processed",
		"puuid", puuid,
		"year", year,
		"processed", len(records),
		"skipped", skipped,
		"runID", bundle.RunID,
	)
	return &models.ProcessResponse{
		PlayerPUUID:      puuid,
		Year:             year,
		MatchesProcessed: len(records),
		MatchesSkipped:   skipped,
		Metrics:          metrics,
		Inference:        bundle,
	}, nil
}

// Infer re-runs inference over stored metrics. It returns store.ErrNotFound
// when the season has not been processed.
func (s *Service) Infer(ctx context.Context, puuid string, year int) (*models.InferenceBundle, error) {
	metrics, err := s.seasons.GetSeason(ctx, puuid, year)
	if err != nil {
		return nil, err
	}
	return s.runInference(ctx, metrics)
}

// Season returns the stored metrics and, if present, the stored bundle.
func (s *Service) Season(ctx context.Context, puuid string, year int) (*models.SeasonReport, error) {
	return s.seasons.GetReport(ctx, puuid, year)
}

// runInference builds a fresh pipeline per run so newly published artifacts
// are picked up, then stores the bundle next to the metrics.
func (s *Service) runInference(ctx context.Context, metrics *models.SeasonMetrics) (*models.InferenceBundle, error) {
	prior, err := s.seasons.GetSeason(ctx, metrics.PlayerPUUID, metrics.Year-1)
	switch {
	case errors.Is(err, store.ErrNotFound):
		prior = nil
	case err != nil:
		s.sugar.Warnw("Failed to load prior season, growth will report insufficient data",
			"puuid", metrics.PlayerPUUID, "year", metrics.Year-1, "error", err)
		prior = nil
	}

	pipeline := inference.NewPipeline(inference.Config{Artifacts: s.artifacts, Logger: s.logger})
	bundle := pipeline.Run(ctx, metrics, prior)

	if err := s.seasons.SaveInference(ctx, bundle); err != nil {
		return nil, fmt.Errorf("failed to save inference: %w", err)
	}
	return bundle, nil
}

// extract reads and extracts every archived match in parallel. Matches that
// cannot be read, decoded or attributed to the player are skipped. The result
// is ordered by game creation, then match id.
func (s *Service) extract(ctx context.Context, puuid string, keys []string) ([]models.MatchFeatures, error) {
	slots := make([]*models.MatchFeatures, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.extractWorkers)
	for i, key := range keys {
		g.Go(func() error {
			f, reason, err := s.extractOne(gctx, puuid, key)
			if err != nil {
				matchesSkipped.WithLabelValues(reason).Inc()
				s.sugar.Warnw("Skipping match", "key", key, "reason", reason, "error", err)
				return nil
			}
			slots[i] = f
			matchesExtracted.Inc()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]models.MatchFeatures, 0, len(slots))
	for _, f := range slots {
		if f != nil {
			records = append(records, *f)
		}
	}
	SortChronological(records)
	return records, nil
}

func (s *Service) extractOne(ctx context.Context, puuid, key string) (*models.MatchFeatures, string, error) {
	raw, err := s.archive.Get(ctx, key)
	if err != nil {
		return nil, "read", err
	}
	var match models.RawMatch
	if err := json.Unmarshal(raw, &match); err != nil {
		return nil, "decode", err
	}
	f, err := logic.ExtractFeatures(&match, puuid)
	if errors.Is(err, logic.ErrPlayerNotInMatch) {
		return nil, "player_not_in_match", err
	}
	if err != nil {
		return nil, "extract", err
	}
	return f, "", nil
}

// SortChronological orders records by game creation, breaking ties by match id.
func SortChronological(records []models.MatchFeatures) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].GameCreation != records[j].GameCreation {
			return records[i].GameCreation < records[j].GameCreation
		}
		return records[i].MatchID < records[j].MatchID
	})
}
