package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"

	"github.com/postleo/riftinsights/internal/models"
)

const (
	// RankedSoloQueue is the queue id for Ranked Solo/Duo.
	RankedSoloQueue = 420

	// Personal/dev key limits.
	requestsPerSecond = 20
	requestsPer2Min   = 100

	pageSize        = 100
	maxSeasonPages  = 10
	maxRetries      = 3
	defaultRetryGap = 10 * time.Second
)

var (
	ErrNotFound  = errors.New("riot: not found")
	ErrForbidden = errors.New("riot: api key rejected")
)

// StatusError is returned for unexpected HTTP statuses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("riot: %s returned status %d", e.URL, e.Code)
}

var routing = map[string]string{
	"na1":  "americas",
	"br1":  "americas",
	"la1":  "americas",
	"la2":  "americas",
	"euw1": "europe",
	"eun1": "europe",
	"tr1":  "europe",
	"ru":   "europe",
	"kr":   "asia",
	"jp1":  "asia",
}

// Regions lists the platform ids the client can route.
var Regions = []string{"na1", "euw1", "eun1", "kr", "br1", "jp1", "la1", "la2", "tr1", "ru"}

// RoutingValue maps a platform id to its regional cluster. Unknown platforms go to americas.
func RoutingValue(region string) string {
	if r, ok := routing[region]; ok {
		return r
	}
	return "americas"
}

// Config configures a Client.
type Config struct {
	APIKey     string
	HTTPClient *http.Client
	// BaseURL overrides https://<routing>.api.riotgames.com for every region.
	BaseURL string
	Limits  Limits
	Logger  *zap.Logger
}

// Client is a rate-limited Riot match-v5 client.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *limiter
	logger     *zap.SugaredLogger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("riot: api key is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		httpClient: cfg.HTTPClient,
		baseURL:    cfg.BaseURL,
		limiter:    newLimiter(cfg.Limits),
		logger:     cfg.Logger.Sugar(),
	}, nil
}

func (c *Client) host(region string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return "https://" + RoutingValue(region) + ".api.riotgames.com"
}

// MatchQuery filters a match id listing. Zero fields are omitted.
type MatchQuery struct {
	StartTime int64 // epoch seconds
	EndTime   int64 // epoch seconds
	Queue     int
	Start     int
	Count     int
}

func (q MatchQuery) values() url.Values {
	v := url.Values{}
	if q.StartTime > 0 {
		v.Set("startTime", strconv.FormatInt(q.StartTime, 10))
	}
	if q.EndTime > 0 {
		v.Set("endTime", strconv.FormatInt(q.EndTime, 10))
	}
	if q.Queue > 0 {
		v.Set("queue", strconv.Itoa(q.Queue))
	}
	if q.Start > 0 {
		v.Set("start", strconv.Itoa(q.Start))
	}
	if q.Count > 0 {
		v.Set("count", strconv.Itoa(q.Count))
	}
	return v
}

// MatchIDs lists match ids for a player, newest first.
func (c *Client) MatchIDs(ctx context.Context, region, puuid string, q MatchQuery) ([]string, error) {
	u := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids", c.host(region), url.PathEscape(puuid))
	if qs := q.values().Encode(); qs != "" {
		u += "?" + qs
	}

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("riot: decode match ids: %w", err)
	}
	return ids, nil
}

// SeasonMatchIDs pages through every ranked solo match a player played in a
// calendar year (UTC). Pages can overlap when new games finish mid-listing,
// so ids are de-duplicated.
func (c *Client) SeasonMatchIDs(ctx context.Context, region, puuid string, year int) ([]string, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	seen := bloom.NewWithEstimates(pageSize*maxSeasonPages, 1e-6)
	var ids []string
	for page := 0; page < maxSeasonPages; page++ {
		batch, err := c.MatchIDs(ctx, region, puuid, MatchQuery{
			StartTime: start.Unix(),
			EndTime:   end.Unix(),
			Queue:     RankedSoloQueue,
			Start:     page * pageSize,
			Count:     pageSize,
		})
		if err != nil {
			return nil, err
		}
		for _, id := range batch {
			if !seen.TestAndAddString(id) {
				ids = append(ids, id)
			}
		}
		if len(batch) < pageSize {
			break
		}
	}

	c.logger.Infow("Listed season matches", "puuid", puuid, "region", region, "year", year, "matches", len(ids))
	return ids, nil
}

// MatchRaw fetches a match-v5 document as returned by the API.
func (c *Client) MatchRaw(ctx context.Context, region, matchID string) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("%s/lol/match/v5/matches/%s", c.host(region), url.PathEscape(matchID)))
}

func (c *Client) Match(ctx context.Context, region, matchID string) (*models.RawMatch, error) {
	body, err := c.MatchRaw(ctx, region, matchID)
	if err != nil {
		return nil, err
	}
	var m models.RawMatch
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("riot: decode match %s: %w", matchID, err)
	}
	return &m, nil
}

// get performs a rate-limited GET, retrying on 429 after Retry-After.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Riot-Token", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("riot: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("riot: read body: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries:
			gap := retryAfter(resp.Header.Get("Retry-After"))
			c.logger.Warnw("Rate limited by Riot API", "url", u, "retryAfter", gap, "attempt", attempt+1)
			if err := sleep(ctx, gap); err != nil {
				return nil, err
			}
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, ErrForbidden
		default:
			return nil, &StatusError{Code: resp.StatusCode, URL: u}
		}
	}
}

func retryAfter(h string) time.Duration {
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultRetryGap
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
