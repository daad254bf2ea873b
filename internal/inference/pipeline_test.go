package inference

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/postleo/riftinsights/internal/models"
)

type funcArtifact func(features []float64) (Prediction, error)

func (f funcArtifact) Predict(features []float64) (Prediction, error) { return f(features) }

// fakeStore serves artifacts by name and counts Resolve calls per name.
type fakeStore struct {
	mu        sync.Mutex
	artifacts map[string]Artifact
	errs      map[string]error
	calls     map[string]int
	delay     time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		artifacts: map[string]Artifact{},
		errs:      map[string]error{},
		calls:     map[string]int{},
	}
}

func (s *fakeStore) Resolve(_ context.Context, name string) (Artifact, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	if err, ok := s.errs[name]; ok {
		return nil, err
	}
	if a, ok := s.artifacts[name]; ok {
		return a, nil
	}
	return nil, ErrArtifactNotFound
}

func (s *fakeStore) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func sampleSeason(puuid string, year int) *models.SeasonMetrics {
	return &models.SeasonMetrics{
		PlayerPUUID:               puuid,
		Year:                      year,
		TotalGames:                20,
		Wins:                      12,
		Losses:                    8,
		WinRate:                   60,
		KillsPerGame:              6,
		DeathsPerGame:             4,
		AssistsPerGame:            7,
		KDA:                       3.25,
		AvgCSPerMin:               7.2,
		AvgVisionScorePerMin:      0.9,
		AvgObjectiveParticipation: 0.3,
		ComebackWins:              3,
	}
}

func TestPipeline_RuleBasedWithoutArtifacts(t *testing.T) {
	p := NewPipeline(Config{Logger: zap.NewNop()})
	bundle := p.Run(context.Background(), sampleSeason("puuid-a", 2024), nil)

	require.NotNil(t, bundle)
	assert.NotEmpty(t, bundle.RunID)
	assert.Equal(t, "puuid-a", bundle.PlayerPUUID)
	assert.Equal(t, 2024, bundle.Year)
	assert.False(t, bundle.ProcessedAt.IsZero())

	assert.Equal(t, models.ProvenanceRuleBased, bundle.PerformancePattern.Model)
	assert.Equal(t, PatternAggressiveSurvivor, bundle.PerformancePattern.Pattern)
	assert.Equal(t, models.ProvenanceRuleBased, bundle.MentalResilience.Model)
	assert.Equal(t, InsufficientHistory(), bundle.GrowthTrajectory)
	assert.Equal(t, models.ProvenanceRuleBased, bundle.Playstyle.Model)
}

func TestPipeline_RunIDsAreUnique(t *testing.T) {
	p := NewPipeline(Config{})
	a := p.Run(context.Background(), sampleSeason("puuid-a", 2024), nil)
	b := p.Run(context.Background(), sampleSeason("puuid-a", 2024), nil)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestPipeline_TrainedArtifacts(t *testing.T) {
	store := newFakeStore()
	store.artifacts[PerformancePatternModel] = funcArtifact(func(f []float64) (Prediction, error) {
		if len(f) != 6 {
			return Prediction{}, errors.New("bad feature vector")
		}
		return Prediction{Label: PatternVisionFocused}, nil
	})
	store.artifacts[GrowthTrajectoryModel] = funcArtifact(func(f []float64) (Prediction, error) {
		if len(f) != 8 {
			return Prediction{}, errors.New("bad feature vector")
		}
		return Prediction{Value: 12.5}, nil
	})

	p := NewPipeline(Config{Artifacts: store, Logger: zap.NewNop()})
	bundle := p.Run(context.Background(), sampleSeason("puuid-a", 2024), sampleSeason("puuid-a", 2023))

	assert.Equal(t, models.ProvenanceTrained, bundle.PerformancePattern.Model)
	assert.Equal(t, PatternVisionFocused, bundle.PerformancePattern.Pattern)
	assert.Equal(t, TrainedConfidence, bundle.PerformancePattern.Confidence)

	assert.Equal(t, models.ProvenanceTrained, bundle.GrowthTrajectory.Model)
	assert.Equal(t, 12.5, bundle.GrowthTrajectory.ImprovementVelocity)
	assert.Equal(t, TrajectoryImproving, bundle.GrowthTrajectory.Trajectory)
	assert.Equal(t, GrowthPotentialHigh, bundle.GrowthTrajectory.GrowthPotential)

	assert.Equal(t, models.ProvenanceRuleBased, bundle.MentalResilience.Model)
	assert.Equal(t, models.ProvenanceRuleBased, bundle.Playstyle.Model)
}

func TestPipeline_GrowthSkipsArtifactWithoutPrior(t *testing.T) {
	store := newFakeStore()
	store.artifacts[GrowthTrajectoryModel] = funcArtifact(func([]float64) (Prediction, error) {
		return Prediction{Value: 99}, nil
	})

	p := NewPipeline(Config{Artifacts: store})
	bundle := p.Run(context.Background(), sampleSeason("puuid-a", 2024), nil)

	assert.Equal(t, InsufficientHistory(), bundle.GrowthTrajectory)
	assert.Equal(t, 0, store.callCount(GrowthTrajectoryModel))
}

func TestPipeline_FailingModelIsIsolated(t *testing.T) {
	store := newFakeStore()
	store.artifacts[PlaystyleModel] = funcArtifact(func([]float64) (Prediction, error) {
		panic("corrupt tree")
	})
	store.artifacts[MentalResilienceModel] = funcArtifact(func([]float64) (Prediction, error) {
		return Prediction{}, errors.New("shape mismatch")
	})

	p := NewPipeline(Config{Artifacts: store})
	bundle := p.Run(context.Background(), sampleSeason("puuid-a", 2024), nil)

	assert.Equal(t, models.ProvenanceError, bundle.Playstyle.Model)
	assert.Equal(t, ArchetypeUnknown, bundle.Playstyle.Archetype)
	assert.Contains(t, bundle.Playstyle.Error, "corrupt tree")

	assert.Equal(t, models.ProvenanceError, bundle.MentalResilience.Model)
	assert.Equal(t, 50.0, bundle.MentalResilience.ResilienceScore)
	assert.Equal(t, GradeUnknown, bundle.MentalResilience.Grade)
	assert.Contains(t, bundle.MentalResilience.Error, "shape mismatch")

	assert.Equal(t, models.ProvenanceRuleBased, bundle.PerformancePattern.Model)
	assert.Equal(t, models.ProvenanceRuleBased, bundle.GrowthTrajectory.Model)
}

func TestPipeline_NonFinitePredictions(t *testing.T) {
	tests := map[string]float64{
		"nan":          math.NaN(),
		"positive inf": math.Inf(1),
		"negative inf": math.Inf(-1),
	}

	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			for _, m := range []string{MentalResilienceModel, GrowthTrajectoryModel} {
				store.artifacts[m] = funcArtifact(func([]float64) (Prediction, error) {
					return Prediction{Value: value}, nil
				})
			}

			bundle := NewPipeline(Config{Artifacts: store}).Run(context.Background(), sampleSeason("p", 2024), sampleSeason("p", 2023))

			assert.Equal(t, models.ProvenanceError, bundle.MentalResilience.Model)
			assert.Equal(t, 50.0, bundle.MentalResilience.ResilienceScore)
			assert.Contains(t, bundle.MentalResilience.Error, "non-finite")

			assert.Equal(t, models.ProvenanceError, bundle.GrowthTrajectory.Model)
			assert.Equal(t, TrajectoryError, bundle.GrowthTrajectory.Trajectory)

			_, err := json.Marshal(bundle)
			require.NoError(t, err)
		})
	}
}

func TestPipeline_UnknownArchetypeLabel(t *testing.T) {
	store := newFakeStore()
	store.artifacts[PlaystyleModel] = funcArtifact(func([]float64) (Prediction, error) {
		return Prediction{Label: "Jungle Goblin"}, nil
	})

	bundle := NewPipeline(Config{Artifacts: store}).Run(context.Background(), sampleSeason("p", 2024), nil)
	assert.Equal(t, models.ProvenanceError, bundle.Playstyle.Model)
	assert.Equal(t, "Unknown playstyle", bundle.Playstyle.Description)
}

func TestPipeline_LoadErrorFallsBackToRules(t *testing.T) {
	store := newFakeStore()
	store.errs[PerformancePatternModel] = errors.New("s3: connection reset")

	bundle := NewPipeline(Config{Artifacts: store}).Run(context.Background(), sampleSeason("p", 2024), nil)
	assert.Equal(t, models.ProvenanceRuleBased, bundle.PerformancePattern.Model)
	assert.Empty(t, bundle.PerformancePattern.Error)
}

func TestPipeline_NilCurrent(t *testing.T) {
	bundle := NewPipeline(Config{}).Run(context.Background(), nil, nil)

	assert.Equal(t, models.ProvenanceError, bundle.PerformancePattern.Model)
	assert.Equal(t, PatternUnknown, bundle.PerformancePattern.Pattern)
	assert.Equal(t, models.ProvenanceError, bundle.MentalResilience.Model)
	assert.Equal(t, TrajectoryError, bundle.GrowthTrajectory.Trajectory)
	assert.NotNil(t, bundle.GrowthTrajectory.PredictedImprovementAreas)
	assert.Equal(t, models.ProvenanceError, bundle.Playstyle.Model)
}

func TestArtifactCache_ResolvesOnceUnderConcurrency(t *testing.T) {
	store := newFakeStore()
	store.delay = 20 * time.Millisecond
	store.artifacts["m"] = funcArtifact(func([]float64) (Prediction, error) { return Prediction{}, nil })

	cache := newArtifactCache(store, zap.NewNop().Sugar())

	var wg sync.WaitGroup
	var found atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cache.get(context.Background(), "m") != nil {
				found.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(50), found.Load())
	assert.Equal(t, 1, store.callCount("m"))
}

func TestArtifactCache_AbsenceIsCached(t *testing.T) {
	store := newFakeStore()
	cache := newArtifactCache(store, zap.NewNop().Sugar())

	assert.Nil(t, cache.get(context.Background(), "missing"))
	assert.Nil(t, cache.get(context.Background(), "missing"))
	assert.Equal(t, 1, store.callCount("missing"))
}

func TestArtifactCache_TransientErrorNotCached(t *testing.T) {
	store := newFakeStore()
	store.errs["m"] = errors.New("timeout")
	cache := newArtifactCache(store, zap.NewNop().Sugar())

	assert.Nil(t, cache.get(context.Background(), "m"))

	store.mu.Lock()
	delete(store.errs, "m")
	store.artifacts["m"] = funcArtifact(func([]float64) (Prediction, error) { return Prediction{}, nil })
	store.mu.Unlock()

	assert.NotNil(t, cache.get(context.Background(), "m"))
	assert.Equal(t, 2, store.callCount("m"))
}

type panicStore struct{}

func (panicStore) Resolve(context.Context, string) (Artifact, error) { panic("boom") }

func TestArtifactCache_PanickingStore(t *testing.T) {
	cache := newArtifactCache(panicStore{}, zap.NewNop().Sugar())
	assert.NotPanics(t, func() {
		assert.Nil(t, cache.get(context.Background(), "m"))
	})
}
