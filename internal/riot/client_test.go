package riot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		APIKey:  "RGAPI-test",
		BaseURL: srv.URL,
		Limits:  Limits{Short: 1000, ShortWindow: time.Second, Long: 1000, LongWindow: time.Second},
	})
	require.NoError(t, err)
	return c
}

func TestRoutingValue(t *testing.T) {
	tests := map[string]string{
		"na1": "americas", "br1": "americas", "la1": "americas", "la2": "americas",
		"euw1": "europe", "eun1": "europe", "tr1": "europe", "ru": "europe",
		"kr": "asia", "jp1": "asia",
		"oc1": "americas",
	}
	for region, want := range tests {
		assert.Equal(t, want, RoutingValue(region), region)
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestMatchIDs(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "RGAPI-test", r.Header.Get("X-Riot-Token"))
		assert.Equal(t, "/lol/match/v5/matches/by-puuid/abc/ids", r.URL.Path)
		assert.Equal(t, "420", r.URL.Query().Get("queue"))
		assert.Equal(t, "100", r.URL.Query().Get("count"))
		assert.Empty(t, r.URL.Query().Get("start"))
		_ = json.NewEncoder(w).Encode([]string{"NA1_2", "NA1_1"})
	}))

	ids, err := c.MatchIDs(context.Background(), "na1", "abc", MatchQuery{Queue: RankedSoloQueue, Count: 100})
	require.NoError(t, err)
	assert.Equal(t, []string{"NA1_2", "NA1_1"}, ids)
}

func TestSeasonMatchIDs_PagesAndDedupes(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, strconv.FormatInt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix(), 10), q.Get("startTime"))
		assert.Equal(t, strconv.FormatInt(time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC).Unix(), 10), q.Get("endTime"))

		start, _ := strconv.Atoi(q.Get("start"))
		var ids []string
		switch start {
		case 0:
			for i := 0; i < 100; i++ {
				ids = append(ids, fmt.Sprintf("NA1_%d", 1000-i))
			}
		case 100:
			// Overlaps the first page by one id, then ends.
			ids = []string{"NA1_901", "NA1_900", "NA1_899"}
		}
		_ = json.NewEncoder(w).Encode(ids)
	}))

	ids, err := c.SeasonMatchIDs(context.Background(), "na1", "abc", 2024)
	require.NoError(t, err)
	assert.Len(t, ids, 102)
	assert.Equal(t, "NA1_1000", ids[0])
	assert.Equal(t, "NA1_899", ids[len(ids)-1])
	assert.Equal(t, int32(2), calls.Load())
}

func TestMatch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lol/match/v5/matches/NA1_7", r.URL.Path)
		fmt.Fprint(w, `{"metadata":{"matchId":"NA1_7"},"info":{"gameDuration":1800,"participants":[{"puuid":"p1","kills":3}]}}`)
	}))

	m, err := c.Match(context.Background(), "na1", "NA1_7")
	require.NoError(t, err)
	assert.Equal(t, "NA1_7", m.Metadata.MatchID)
	assert.Equal(t, 1800, m.Info.GameDuration)
	require.Len(t, m.Info.Participants, 1)
	assert.Equal(t, 3, m.Info.Participants[0].Kills)
}

func TestGet_RetriesAfter429(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `["NA1_1"]`)
	}))

	ids, err := c.MatchIDs(context.Background(), "na1", "abc", MatchQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"NA1_1"}, ids)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGet_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.MatchRaw(context.Background(), "na1", "NA1_1")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestGet_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusUnauthorized, ErrForbidden},
	}
	for _, tt := range tests {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := c.MatchRaw(context.Background(), "kr", "KR_1")
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	_, err := c.MatchRaw(context.Background(), "kr", "KR_1")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, retryAfter("3"))
	assert.Equal(t, defaultRetryGap, retryAfter(""))
	assert.Equal(t, defaultRetryGap, retryAfter("soon"))
}
