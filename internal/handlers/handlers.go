package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/postleo/riftinsights/internal/models"
	"github.com/postleo/riftinsights/internal/store"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// Collector archives a player's season of matches.
type Collector interface {
	Collect(ctx context.Context, puuid, region string, year int) (*models.CollectResponse, error)
}

// SeasonService processes archived seasons and serves stored results.
type SeasonService interface {
	ProcessSeason(ctx context.Context, puuid string, year int) (*models.ProcessResponse, error)
	Infer(ctx context.Context, puuid string, year int) (*models.InferenceBundle, error)
	Season(ctx context.Context, puuid string, year int) (*models.SeasonReport, error)
}

// MatchHistory reads stored per-match features.
type MatchHistory interface {
	History(ctx context.Context, q store.HistoryQuery) ([]models.MatchFeatures, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

type Config struct {
	Collector Collector
	Seasons   SeasonService
	History   MatchHistory
	// Checks are run by /ready, keyed by dependency name.
	Checks         map[string]Pinger
	QueueDepth     func() int
	AllowedOrigins []string
	Logger         *zap.Logger
}

type Handler struct {
	collector      Collector
	seasons        SeasonService
	history        MatchHistory
	checks         map[string]Pinger
	queueDepth     func() int
	allowedOrigins []string
	logger         *zap.SugaredLogger
	validator      *validator.Validate
	now            func() time.Time
}

func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.QueueDepth == nil {
		cfg.QueueDepth = func() int { return 0 }
	}
	return &Handler{
		collector:      cfg.Collector,
		seasons:        cfg.Seasons,
		history:        cfg.History,
		checks:         cfg.Checks,
		queueDepth:     cfg.QueueDepth,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         cfg.Logger.Sugar(),
		validator:      validator.New(),
		now:            time.Now,
	}
}

// Router mounts every route on a chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/players/{puuid}", func(r chi.Router) {
		r.Post("/collect", h.CollectMatches)
		r.Route("/seasons/{year}", func(r chi.Router) {
			r.Get("/", h.GetSeason)
			r.Get("/matches", h.GetMatchHistory)
			r.Post("/process", h.ProcessSeason)
			r.Post("/inference", h.RunInference)
		})
	})

	return r
}
