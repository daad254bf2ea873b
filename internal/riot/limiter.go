package riot

import (
	"context"
	"sync"
	"time"
)

// Limits are two sliding windows; a request must fit in both.
type Limits struct {
	Short       int
	ShortWindow time.Duration
	Long        int
	LongWindow  time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		Short:       requestsPerSecond,
		ShortWindow: time.Second,
		Long:        requestsPer2Min,
		LongWindow:  2 * time.Minute,
	}
}

type limiter struct {
	limits Limits
	now    func() time.Time

	mu    sync.Mutex
	short []time.Time
	long  []time.Time
}

func newLimiter(l Limits) *limiter {
	return &limiter{limits: l, now: time.Now}
}

// wait blocks until a request slot is free in both windows, then records it.
func (l *limiter) wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.short = prune(l.short, now.Add(-l.limits.ShortWindow))
		l.long = prune(l.long, now.Add(-l.limits.LongWindow))

		var delay time.Duration
		if l.limits.Short > 0 && len(l.short) >= l.limits.Short {
			delay = l.short[0].Add(l.limits.ShortWindow).Sub(now)
		}
		if l.limits.Long > 0 && len(l.long) >= l.limits.Long {
			if d := l.long[0].Add(l.limits.LongWindow).Sub(now); d > delay {
				delay = d
			}
		}
		if delay <= 0 {
			l.short = append(l.short, now)
			l.long = append(l.long, now)
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// prune drops timestamps at or before cutoff. ts is in ascending order.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
