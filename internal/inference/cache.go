package inference

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// artifactCache memoizes resolved artifacts for the lifetime of one Pipeline.
// Each name is written at most once; concurrent lookups of the same name share
// one Resolve call. Absence is cached too, transient load errors are not.
type artifactCache struct {
	store  ArtifactStore
	logger *zap.SugaredLogger

	mu      sync.RWMutex
	entries map[string]Artifact // nil value = known absent
	group   singleflight.Group
}

func newArtifactCache(store ArtifactStore, logger *zap.SugaredLogger) *artifactCache {
	if store == nil {
		store = NoArtifacts{}
	}
	return &artifactCache{
		store:   store,
		logger:  logger,
		entries: make(map[string]Artifact),
	}
}

// get returns the artifact for name, or nil when none is usable.
// Load failures never propagate; they mean "no artifact".
func (c *artifactCache) get(ctx context.Context, name string) Artifact {
	c.mu.RLock()
	a, ok := c.entries[name]
	c.mu.RUnlock()
	if ok {
		return a
	}

	v, _, _ := c.group.Do(name, func() (interface{}, error) {
		c.mu.RLock()
		a, ok := c.entries[name]
		c.mu.RUnlock()
		if ok {
			return a, nil
		}

		a, err := c.resolve(ctx, name)
		switch {
		case err == nil:
			c.logger.Infow("Loaded model artifact", "model", name)
		case errors.Is(err, ErrArtifactNotFound):
			c.logger.Infow("No trained artifact, using rule-based model", "model", name)
			a = nil
		default:
			c.logger.Warnw("Failed to load model artifact, using rule-based model", "model", name, "error", err)
			return Artifact(nil), nil
		}

		c.mu.Lock()
		c.entries[name] = a
		c.mu.Unlock()
		return a, nil
	})

	a, _ = v.(Artifact)
	return a
}

// resolve shields the cache from panicking stores.
func (c *artifactCache) resolve(ctx context.Context, name string) (a Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, panicError(r)
		}
	}()
	a, err = c.store.Resolve(ctx, name)
	if err == nil && a == nil {
		err = ErrArtifactNotFound
	}
	return a, err
}
