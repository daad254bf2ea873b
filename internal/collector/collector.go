// Package collector pulls a player's season of ranked matches from the Riot
// API into the raw match archive.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/postleo/riftinsights/internal/models"
	"github.com/postleo/riftinsights/internal/store"
)

var (
	matchesCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riftsage_matches_collected_total",
		Help: "Matches archived, by where the match document came from",
	}, []string{"source"})

	matchesCollectFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riftsage_matches_collect_failed_total",
		Help: "Matches that could not be fetched or archived",
	})
)

type MatchSource interface {
	SeasonMatchIDs(ctx context.Context, region, puuid string, year int) ([]string, error)
	MatchRaw(ctx context.Context, region, matchID string) ([]byte, error)
}

type MatchCache interface {
	Get(ctx context.Context, matchID string) ([]byte, error)
	Put(ctx context.Context, matchID string, raw []byte) error
}

type Archive interface {
	Put(ctx context.Context, puuid string, year int, matchID string, raw []byte) (string, error)
}

type PlayerStore interface {
	TouchPlayer(ctx context.Context, puuid, region string, matchCount int, at time.Time) error
}

type Config struct {
	Source  MatchSource
	Cache   MatchCache
	Archive Archive
	Players PlayerStore
	// Concurrency bounds in-flight match fetches. The Riot client still
	// enforces its own rate limit.
	Concurrency int
	Logger      *zap.Logger
}

type Collector struct {
	source      MatchSource
	cache       MatchCache
	archive     Archive
	players     PlayerStore
	concurrency int
	logger      *zap.SugaredLogger
}

func New(cfg Config) *Collector {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Collector{
		source:      cfg.Source,
		cache:       cfg.Cache,
		archive:     cfg.Archive,
		players:     cfg.Players,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger.Sugar(),
	}
}

type matchOutcome struct {
	key    string
	cached bool
	err    error
}

// Collect archives every ranked solo match the player played in year.
// Listing failures abort the run; a match that cannot be fetched or archived
// is logged and counted in MatchesFailed.
func (c *Collector) Collect(ctx context.Context, puuid, region string, year int) (*models.CollectResponse, error) {
	ids, err := c.source.SeasonMatchIDs(ctx, region, puuid, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for %s: %w", puuid, err)
	}
	c.logger.Infow("Collecting matches", "puuid", puuid, "region", region, "year", year, "matches", len(ids))

	outcomes := make([]matchOutcome, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			key, cached, err := c.collectOne(gctx, puuid, region, year, id)
			outcomes[i] = matchOutcome{key: key, cached: cached, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &models.CollectResponse{
		PlayerPUUID: puuid,
		Region:      region,
		Year:        year,
		MatchIDs:    []string{},
		ArchiveKeys: []string{},
	}
	for i, o := range outcomes {
		if o.err != nil {
			c.logger.Warnw("Failed to collect match", "puuid", puuid, "matchID", ids[i], "error", o.err)
			matchesCollectFailed.Inc()
			resp.MatchesFailed++
			continue
		}
		source := "api"
		if o.cached {
			source = "cache"
		}
		matchesCollected.WithLabelValues(source).Inc()
		resp.MatchIDs = append(resp.MatchIDs, ids[i])
		resp.ArchiveKeys = append(resp.ArchiveKeys, o.key)
	}
	resp.MatchesCollected = len(resp.MatchIDs)

	if err := c.players.TouchPlayer(ctx, puuid, region, resp.MatchesCollected, time.Now().UTC()); err != nil {
		c.logger.Errorw("Failed to update player record", "puuid", puuid, "error", err)
	}

	c.logger.Infow("Collection complete",
		"puuid", puuid,
		"year", year,
		"collected", resp.MatchesCollected,
		"failed", resp.MatchesFailed,
	)
	return resp, nil
}

func (c *Collector) collectOne(ctx context.Context, puuid, region string, year int, matchID string) (string, bool, error) {
	raw, cached := c.fromCache(ctx, matchID)
	if !cached {
		var err error
		raw, err = c.source.MatchRaw(ctx, region, matchID)
		if err != nil {
			return "", false, fmt.Errorf("fetch: %w", err)
		}
		if !json.Valid(raw) {
			return "", false, errors.New("fetch: response is not valid JSON")
		}
		if err := c.cache.Put(ctx, matchID, raw); err != nil {
			c.logger.Warnw("Failed to cache match", "matchID", matchID, "error", err)
		}
	}

	key, err := c.archive.Put(ctx, puuid, year, matchID, raw)
	if err != nil {
		return "", cached, fmt.Errorf("archive: %w", err)
	}
	return key, cached, nil
}

// fromCache treats cache errors as misses.
func (c *Collector) fromCache(ctx context.Context, matchID string) ([]byte, bool) {
	raw, err := c.cache.Get(ctx, matchID)
	switch {
	case err == nil:
		return raw, true
	case errors.Is(err, store.ErrNotFound):
		return nil, false
	default:
		c.logger.Warnw("Match cache read failed", "matchID", matchID, "error", err)
		return nil, false
	}
}
