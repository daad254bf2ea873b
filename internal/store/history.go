package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/postleo/riftinsights/internal/models"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// HistoryQuery selects one player's per-match features for a season.
type HistoryQuery struct {
	PUUID    string
	Year     int
	Champion string
	Role     models.Role
	// Result is "win", "loss" or empty for both.
	Result string
	// Sort is a key of historySort; empty means most recent first.
	Sort  string
	Limit int
}

// historySort maps safe API values to ORDER BY expressions.
var historySort = map[string]string{
	"recent": "game_creation DESC",
	"kda":    "kda DESC",
	"cs":     "cs_per_min DESC",
	"gold":   "gold_per_min DESC",
	"vision": "vision_score_per_min DESC",
	"damage": "damage_efficiency DESC",
}

// BuildHistoryQuery constructs a parameterized ClickHouse query. Only the
// ORDER BY and LIMIT clauses are formatted into the SQL, both from allowlists.
func BuildHistoryQuery(q HistoryQuery) (string, []interface{}, error) {
	if q.PUUID == "" {
		return "", nil, errors.New("player puuid is required")
	}
	sortKey := q.Sort
	if sortKey == "" {
		sortKey = "recent"
	}
	orderBy, ok := historySort[sortKey]
	if !ok {
		return "", nil, fmt.Errorf("invalid sort: %s", q.Sort)
	}

	query := "SELECT " + featureColumns + `
	FROM riftsage.match_features FINAL
	WHERE player_puuid = ?`
	args := []interface{}{q.PUUID}

	if q.Year != 0 {
		start := time.Date(q.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		query += " AND game_creation >= ? AND game_creation < ?"
		args = append(args, start, start.AddDate(1, 0, 0))
	}
	if q.Champion != "" {
		query += " AND champion_name = ?"
		args = append(args, q.Champion)
	}
	if q.Role != "" {
		query += " AND role = ?"
		args = append(args, string(q.Role))
	}
	switch q.Result {
	case "":
	case "win":
		query += " AND win = 1"
	case "loss":
		query += " AND win = 0"
	default:
		return "", nil, fmt.Errorf("invalid result filter: %s", q.Result)
	}

	query += fmt.Sprintf(" ORDER BY %s, match_id", orderBy)

	limit := q.Limit
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	return query, args, nil
}

// FeatureReader reads per-match features back out of ClickHouse.
type FeatureReader struct {
	ch driver.Conn
}

func NewFeatureReader(ch driver.Conn) *FeatureReader {
	return &FeatureReader{ch: ch}
}

// History returns the matches selected by q. The result is never nil.
func (r *FeatureReader) History(ctx context.Context, q HistoryQuery) ([]models.MatchFeatures, error) {
	query, args, err := BuildHistoryQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.ch.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query match history: %w", err)
	}
	defer rows.Close()

	out := []models.MatchFeatures{}
	for rows.Next() {
		var row featureRow
		if err := rows.Scan(row.fields()...); err != nil {
			return nil, fmt.Errorf("failed to scan match history row: %w", err)
		}
		f, err := row.features()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read match history: %w", err)
	}
	return out, nil
}
