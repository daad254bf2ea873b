package inference

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/postleo/riftinsights/internal/models"
)

var (
	inferenceResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riftsage_inference_results_total",
		Help: "Model results by model and provenance",
	}, []string{"model", "provenance"})

	inferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riftsage_inference_duration_seconds",
		Help:    "Duration of a full inference run over one season",
		Buckets: prometheus.DefBuckets,
	})
)

// Config configures a Pipeline.
type Config struct {
	// Artifacts resolves trained models. Nil means rule-based only.
	Artifacts ArtifactStore
	Logger    *zap.Logger
}

// Pipeline runs all four models for one season. Artifact lookups are cached
// for the Pipeline's lifetime, so create one per run when artifacts may change.
type Pipeline struct {
	cache  *artifactCache
	logger *zap.SugaredLogger
}

func NewPipeline(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	logger := cfg.Logger.Sugar()
	return &Pipeline{
		cache:  newArtifactCache(cfg.Artifacts, logger),
		logger: logger,
	}
}

// Run produces an InferenceBundle for current. prior may be nil. Run always
// returns a complete bundle: a failing model yields its error result and the
// other models are unaffected.
func (p *Pipeline) Run(ctx context.Context, current, prior *models.SeasonMetrics) *models.InferenceBundle {
	start := time.Now()
	in := Input{Current: current, Prior: prior}
	bundle := &models.InferenceBundle{RunID: uuid.NewString()}
	if current != nil {
		bundle.PlayerPUUID = current.PlayerPUUID
		bundle.Year = current.Year
	}

	// Each goroutine writes a distinct field, and none returns an error.
	var g errgroup.Group
	g.Go(func() error {
		bundle.PerformancePattern = run(ctx, p, performancePattern, in)
		return nil
	})
	g.Go(func() error {
		bundle.MentalResilience = run(ctx, p, mentalResilience, in)
		return nil
	})
	g.Go(func() error {
		bundle.GrowthTrajectory = run(ctx, p, growthTrajectory, in)
		return nil
	})
	g.Go(func() error {
		bundle.Playstyle = run(ctx, p, playstyle, in)
		return nil
	})
	_ = g.Wait()

	bundle.ProcessedAt = time.Now().UTC()
	inferenceDuration.Observe(time.Since(start).Seconds())
	p.logger.Infow("Inference complete",
		"puuid", bundle.PlayerPUUID,
		"year", bundle.Year,
		"runID", bundle.RunID,
		"hasPrior", prior != nil,
	)
	return bundle
}

func run[R any](ctx context.Context, p *Pipeline, m *model[R], in Input) R {
	result, prov, err := runModel(ctx, p.cache, m, in)
	inferenceResults.WithLabelValues(m.name, string(prov)).Inc()
	if err != nil {
		p.logger.Warnw("Model failed", "model", m.name, "error", err)
	}
	return result
}
