package store

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postleo/riftinsights/internal/models"
)

// MockRows serves fixed rows, assigning each value to the matching Scan target.
type MockRows struct {
	driver.Rows
	Data    [][]any
	ScanErr error
	idx     int
}

func (m *MockRows) Next() bool {
	m.idx++
	return m.idx <= len(m.Data)
}

func (m *MockRows) Scan(dest ...any) error {
	if m.ScanErr != nil {
		return m.ScanErr
	}
	row := m.Data[m.idx-1]
	for i := range dest {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func (m *MockRows) Close() error { return nil }
func (m *MockRows) Err() error   { return nil }

func TestBuildHistoryQuery(t *testing.T) {
	tests := []struct {
		name     string
		q        HistoryQuery
		contains []string
		wantArgs int
		wantErr  bool
	}{
		{
			name:     "defaults",
			q:        HistoryQuery{PUUID: "puuid-player-0001"},
			contains: []string{"WHERE player_puuid = ?", "ORDER BY game_creation DESC, match_id", "LIMIT 100"},
			wantArgs: 1,
		},
		{
			name: "all filters",
			q: HistoryQuery{
				PUUID: "puuid-player-0001", Year: 2025, Champion: "Ahri", Role: models.RoleMid,
				Result: "win", Sort: "kda", Limit: 20,
			},
			contains: []string{
				"game_creation >= ? AND game_creation < ?",
				"champion_name = ?",
				"role = ?",
				"win = 1",
				"ORDER BY kda DESC",
				"LIMIT 20",
			},
			wantArgs: 5,
		},
		{
			name:     "losses with oversized limit",
			q:        HistoryQuery{PUUID: "puuid-player-0001", Result: "loss", Limit: 50000},
			contains: []string{"win = 0", "LIMIT 100"},
			wantArgs: 1,
		},
		{name: "missing puuid", q: HistoryQuery{}, wantErr: true},
		{name: "unknown sort", q: HistoryQuery{PUUID: "p", Sort: "kills; DROP TABLE"}, wantErr: true},
		{name: "unknown result", q: HistoryQuery{PUUID: "p", Result: "draw"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := BuildHistoryQuery(tt.q)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, part := range tt.contains {
				assert.Contains(t, query, part)
			}
			assert.Len(t, args, tt.wantArgs)
			assert.NotContains(t, query, tt.q.PUUID)
		})
	}
}

func TestBuildHistoryQuery_YearWindowIsUTC(t *testing.T) {
	_, args, err := BuildHistoryQuery(HistoryQuery{PUUID: "p", Year: 2025})
	require.NoError(t, err)
	require.Len(t, args, 3)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), args[1])
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), args[2])
}

func fullFeatures(id string, created time.Time, win bool, challenges map[string]any) models.MatchFeatures {
	return models.MatchFeatures{
		PlayerPUUID: "puuid-player-0001", MatchID: id,
		GameCreation: created.UnixMilli(), GameDuration: 1800,
		GameMode: "CLASSIC", GameType: "MATCHED_GAME",
		ChampionName: "Ahri", ChampionID: 103, Role: models.RoleMid, TeamPosition: "MIDDLE",
		Win: win, Kills: 7, Deaths: 2, Assists: 9, KDA: 8,
		TotalMinionsKilled: 190, NeutralMinionsKilled: 26, TotalCS: 216, CSPerMin: 7.2,
		GoldEarned: 12315, GoldSpent: 11800, GoldPerMin: 410.5,
		TotalDamageDealt: 26000, TotalDamageTaken: 20000, DamageEfficiency: 1.3,
		VisionScore: 27, VisionScorePerMin: 0.9, WardsPlaced: 11, WardsKilled: 4, ControlWardsPlaced: 3,
		TurretKills: 2, InhibitorKills: 1, ObjectiveParticipation: 0.55,
		DoubleKills: 2, TripleKills: 1, FirstBlood: true,
		Challenges: challenges, LateGame: true,
	}
}

func historyRow(t *testing.T, f models.MatchFeatures) []any {
	t.Helper()
	row, err := newFeatureRow(&f)
	require.NoError(t, err)
	return row.values()
}

func TestFeatureReader_History(t *testing.T) {
	created := time.Date(2025, 4, 2, 18, 30, 0, 0, time.UTC)
	var captured string
	conn := &MockClickHouseConn{
		QueryFunc: func(ctx context.Context, query string, args ...any) (driver.Rows, error) {
			captured = query
			return &MockRows{Data: [][]any{
				historyRow(t, fullFeatures("NA1_2", created, true, map[string]any{"soloKills": 3.0})),
				historyRow(t, fullFeatures("NA1_1", created.Add(-time.Hour), false, nil)),
			}}, nil
		},
	}

	got, err := NewFeatureReader(conn).History(context.Background(), HistoryQuery{PUUID: "puuid-player-0001", Year: 2025})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, strings.Contains(captured, "FROM riftsage.match_features FINAL"))
	assert.Contains(t, captured, "gold_earned")

	first := got[0]
	assert.Equal(t, "NA1_2", first.MatchID)
	assert.Equal(t, created.UnixMilli(), first.GameCreation)
	assert.Equal(t, 1800, first.GameDuration)
	assert.Equal(t, models.RoleMid, first.Role)
	assert.True(t, first.Win)
	assert.Equal(t, 7, first.Kills)
	assert.Equal(t, 216, first.TotalCS)
	assert.Equal(t, 12315, first.GoldEarned)
	assert.Equal(t, 103, first.ChampionID)
	assert.True(t, first.FirstBlood)
	assert.True(t, first.LateGame)
	assert.False(t, first.IsComebackGame)
	assert.Equal(t, float64(3), first.Challenges["soloKills"])

	assert.False(t, got[1].Win)
	assert.Nil(t, got[1].Challenges)
}

func TestFeatureWriterAndReader_RoundTrip(t *testing.T) {
	created := time.Date(2025, 6, 14, 21, 5, 33, 417e6, time.UTC)
	records := []models.MatchFeatures{
		fullFeatures("EUW1_10", created, true, map[string]any{"soloKills": 2.0, "kda": 8.0}),
		fullFeatures("EUW1_11", created.Add(time.Hour), false, nil),
	}
	records[1].IsComebackGame, records[1].EarlySurrender = true, true
	records[1].QuadraKills, records[1].PentaKills = 1, 1

	batch := &MockBatch{}
	conn := &MockClickHouseConn{Batch: batch}
	require.NoError(t, NewFeatureWriter(conn).WriteBatch(context.Background(), records))

	conn.QueryFunc = func(context.Context, string, ...any) (driver.Rows, error) {
		return &MockRows{Data: batch.AppendedRows}, nil
	}
	got, err := NewFeatureReader(conn).History(context.Background(), HistoryQuery{PUUID: "puuid-player-0001"})
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestFeatureReader_HistoryEmpty(t *testing.T) {
	got, err := NewFeatureReader(&MockClickHouseConn{}).History(context.Background(), HistoryQuery{PUUID: "p"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFeatureReader_HistoryErrors(t *testing.T) {
	queryErr := errors.New("code: 60, table does not exist")
	conn := &MockClickHouseConn{
		QueryFunc: func(context.Context, string, ...any) (driver.Rows, error) { return nil, queryErr },
	}
	_, err := NewFeatureReader(conn).History(context.Background(), HistoryQuery{PUUID: "p"})
	assert.ErrorIs(t, err, queryErr)

	scanErr := errors.New("converting UInt8 to *string is unsupported")
	conn.QueryFunc = func(context.Context, string, ...any) (driver.Rows, error) {
		return &MockRows{Data: [][]any{{}}, ScanErr: scanErr}, nil
	}
	_, err = NewFeatureReader(conn).History(context.Background(), HistoryQuery{PUUID: "p"})
	assert.ErrorIs(t, err, scanErr)

	_, err = NewFeatureReader(conn).History(context.Background(), HistoryQuery{PUUID: "p", Sort: "bogus"})
	assert.Error(t, err)
}
