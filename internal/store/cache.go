package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/postleo/riftinsights/internal/models"
)

// CachedSeasons is a read-through LRU in front of a SeasonRepository.
// Writes go to the backing repository and drop the cached entry.
type CachedSeasons struct {
	next SeasonRepository
	lru  *expirable.LRU[string, *models.SeasonReport]

	// writes counts completed writes. A load that overlapped a write is
	// returned but not cached, since it may hold the pre-write row.
	mu     sync.Mutex
	writes uint64
}

func NewCachedSeasons(next SeasonRepository, size int, ttl time.Duration) *CachedSeasons {
	if size <= 0 {
		size = 1024
	}
	return &CachedSeasons{
		next: next,
		lru:  expirable.NewLRU[string, *models.SeasonReport](size, nil, ttl),
	}
}

func seasonKey(puuid string, year int) string {
	return puuid + ":" + strconv.Itoa(year)
}

// GetReport returns a copy of the cached report, loading it on a miss.
func (c *CachedSeasons) GetReport(ctx context.Context, puuid string, year int) (*models.SeasonReport, error) {
	key := seasonKey(puuid, year)
	if r, ok := c.lru.Get(key); ok {
		return copyReport(r), nil
	}
	c.mu.Lock()
	gen := c.writes
	c.mu.Unlock()

	r, err := c.next.GetReport(ctx, puuid, year)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.writes == gen {
		c.lru.Add(key, r)
	}
	c.mu.Unlock()
	return copyReport(r), nil
}

func (c *CachedSeasons) GetSeason(ctx context.Context, puuid string, year int) (*models.SeasonMetrics, error) {
	r, err := c.GetReport(ctx, puuid, year)
	if err != nil {
		return nil, err
	}
	return r.Metrics, nil
}

func (c *CachedSeasons) SaveSeason(ctx context.Context, m *models.SeasonMetrics) error {
	defer c.invalidate(seasonKey(m.PlayerPUUID, m.Year))
	return c.next.SaveSeason(ctx, m)
}

func (c *CachedSeasons) SaveInference(ctx context.Context, b *models.InferenceBundle) error {
	defer c.invalidate(seasonKey(b.PlayerPUUID, b.Year))
	return c.next.SaveInference(ctx, b)
}

func (c *CachedSeasons) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	c.lru.Remove(key)
}

// copyReport keeps callers from mutating cached values. Maps inside the
// metrics are shared and must be treated as read-only.
func copyReport(r *models.SeasonReport) *models.SeasonReport {
	out := &models.SeasonReport{}
	if r.Metrics != nil {
		m := *r.Metrics
		out.Metrics = &m
	}
	if r.Inference != nil {
		b := *r.Inference
		out.Inference = &b
	}
	return out
}
