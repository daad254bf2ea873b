package season

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postleo/riftinsights/internal/inference"
	"github.com/postleo/riftinsights/internal/logic"
	"github.com/postleo/riftinsights/internal/models"
	"github.com/postleo/riftinsights/internal/store"
)

const testPUUID = "puuid-player-0001"

type memArchive struct {
	objects map[string][]byte
	listErr error
}

func (a *memArchive) List(_ context.Context, puuid string, year int) ([]string, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	prefix := "raw-matches/" + puuid + "/" + strconv.Itoa(year) + "/"
	var keys []string
	for k := range a.objects {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (a *memArchive) Get(_ context.Context, key string) ([]byte, error) {
	raw, ok := a.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return raw, nil
}

type memSeasons struct {
	mu       sync.Mutex
	reports  map[string]*models.SeasonReport
	priorErr error
}

func newMemSeasons() *memSeasons {
	return &memSeasons{reports: map[string]*models.SeasonReport{}}
}

func key(puuid string, year int) string { return puuid + ":" + strconv.Itoa(year) }

func (m *memSeasons) GetSeason(ctx context.Context, puuid string, year int) (*models.SeasonMetrics, error) {
	r, err := m.GetReport(ctx, puuid, year)
	if err != nil {
		return nil, err
	}
	return r.Metrics, nil
}

func (m *memSeasons) GetReport(_ context.Context, puuid string, year int) (*models.SeasonReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.priorErr != nil {
		return nil, m.priorErr
	}
	r, ok := m.reports[key(puuid, year)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (m *memSeasons) SaveSeason(_ context.Context, s *models.SeasonMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[key(s.PlayerPUUID, s.Year)] = &models.SeasonReport{Metrics: s}
	return nil
}

func (m *memSeasons) SaveInference(_ context.Context, b *models.InferenceBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[key(b.PlayerPUUID, b.Year)]
	if !ok {
		return store.ErrNotFound
	}
	r.Inference = b
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	records []models.MatchFeatures
}

func (s *recordingSink) Enqueue(f models.MatchFeatures) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, f)
	return true
}

func rawMatch(t *testing.T, id string, created int64, puuid, champion, position string, win bool) []byte {
	t.Helper()
	m := models.RawMatch{
		Metadata: models.MatchMetadata{MatchID: id},
		Info: models.MatchInfo{
			GameCreation: created,
			GameDuration: 1800,
			Participants: []models.Participant{{
				PUUID:              puuid,
				TeamID:             100,
				ChampionName:       champion,
				TeamPosition:       position,
				Win:                win,
				Kills:              5,
				Deaths:             2,
				Assists:            5,
				TotalMinionsKilled: 210,
				VisionScore:        20,
			}},
			Teams: []models.MatchTeam{{TeamID: 100}},
		},
	}
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	return raw
}

func seededArchive(t *testing.T) *memArchive {
	prefix := "raw-matches/" + testPUUID + "/2025/"
	return &memArchive{objects: map[string][]byte{
		// Listing order (A, B) differs from chronological order (B, A).
		prefix + "NA1_A.json":       rawMatch(t, "NA1_A", 3000, testPUUID, "Ahri", "TOP", true),
		prefix + "NA1_B.json":       rawMatch(t, "NA1_B", 1000, testPUUID, "Zed", "MIDDLE", false),
		prefix + "NA1_C.json":       rawMatch(t, "NA1_C", 2000, "somebody-else", "Lux", "UTILITY", true),
		prefix + "NA1_corrupt.json": []byte(`{"metadata":`),
	}}
}

func TestProcessSeason(t *testing.T) {
	seasons := newMemSeasons()
	sink := &recordingSink{}
	require.NoError(t, seasons.SaveSeason(context.Background(), &models.SeasonMetrics{
		PlayerPUUID: testPUUID, Year: 2024, TotalGames: 10, KDA: 2.5, WinRate: 40, AvgCSPerMin: 6,
	}))

	svc := NewService(Config{Archive: seededArchive(t), Seasons: seasons, Features: sink, ExtractWorkers: 3})
	resp, err := svc.ProcessSeason(context.Background(), testPUUID, 2025)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.MatchesProcessed)
	assert.Equal(t, 2, resp.MatchesSkipped)

	m := resp.Metrics
	assert.Equal(t, testPUUID, m.PlayerPUUID)
	assert.Equal(t, 2, m.TotalGames)
	assert.Equal(t, 1, m.Wins)
	assert.Equal(t, 50.0, m.WinRate)
	// Ties resolve by chronological order, not listing order.
	assert.Equal(t, "Zed", m.MostPlayedChampion)
	assert.Equal(t, models.RoleMid, m.PrimaryRole)

	require.Len(t, sink.records, 2)
	assert.Equal(t, "NA1_B", sink.records[0].MatchID)
	assert.Equal(t, "NA1_A", sink.records[1].MatchID)

	b := resp.Inference
	require.NotNil(t, b)
	assert.Equal(t, testPUUID, b.PlayerPUUID)
	assert.Equal(t, 2025, b.Year)
	assert.Equal(t, models.ProvenanceRuleBased, b.GrowthTrajectory.Model)
	assert.NotEqual(t, inference.TrajectoryInsufficientData, b.GrowthTrajectory.Trajectory)

	report, err := svc.Season(context.Background(), testPUUID, 2025)
	require.NoError(t, err)
	require.NotNil(t, report.Inference)
	assert.Equal(t, b.RunID, report.Inference.RunID)
}

func TestProcessSeason_NoPriorYear(t *testing.T) {
	svc := NewService(Config{Archive: seededArchive(t), Seasons: newMemSeasons()})
	resp, err := svc.ProcessSeason(context.Background(), testPUUID, 2025)
	require.NoError(t, err)
	assert.Equal(t, inference.InsufficientHistory(), resp.Inference.GrowthTrajectory)
}

func TestProcessSeason_PriorLookupFailure(t *testing.T) {
	seasons := newMemSeasons()
	seasons.priorErr = errors.New("connection reset")
	svc := NewService(Config{Archive: seededArchive(t), Seasons: seasons})

	resp, err := svc.ProcessSeason(context.Background(), testPUUID, 2025)
	require.NoError(t, err)
	assert.Equal(t, inference.TrajectoryInsufficientData, resp.Inference.GrowthTrajectory.Trajectory)
}

func TestProcessSeason_Empty(t *testing.T) {
	svc := NewService(Config{Archive: &memArchive{objects: map[string][]byte{}}, Seasons: newMemSeasons()})
	_, err := svc.ProcessSeason(context.Background(), testPUUID, 2025)
	assert.ErrorIs(t, err, logic.ErrEmptyDataset)
}

func TestProcessSeason_ListFailure(t *testing.T) {
	svc := NewService(Config{Archive: &memArchive{listErr: errors.New("s3 down")}, Seasons: newMemSeasons()})
	_, err := svc.ProcessSeason(context.Background(), testPUUID, 2025)
	require.Error(t, err)
	assert.NotErrorIs(t, err, logic.ErrEmptyDataset)
}

func TestInfer(t *testing.T) {
	seasons := newMemSeasons()
	svc := NewService(Config{Archive: seededArchive(t), Seasons: seasons})

	_, err := svc.Infer(context.Background(), testPUUID, 2025)
	assert.ErrorIs(t, err, store.ErrNotFound)

	first, err := svc.ProcessSeason(context.Background(), testPUUID, 2025)
	require.NoError(t, err)

	again, err := svc.Infer(context.Background(), testPUUID, 2025)
	require.NoError(t, err)
	assert.NotEqual(t, first.Inference.RunID, again.RunID)
	assert.Equal(t, first.Inference.Playstyle.Archetype, again.Playstyle.Archetype)
}

func TestSortChronological(t *testing.T) {
	records := []models.MatchFeatures{
		{MatchID: "NA1_3", GameCreation: 200},
		{MatchID: "NA1_2", GameCreation: 100},
		{MatchID: "NA1_1", GameCreation: 200},
	}
	SortChronological(records)
	assert.Equal(t, "NA1_2", records[0].MatchID)
	assert.Equal(t, "NA1_1", records[1].MatchID)
	assert.Equal(t, "NA1_3", records[2].MatchID)
}
