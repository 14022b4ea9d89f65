package cache

import (
	"context"
	"time"

	"github.com/bassista/go_connsync/internal/logger"
)

// Loader fetches the authoritative value for a key.
type Loader func(ctx context.Context) (any, error)

// StartRefreshScheduler runs a goroutine that periodically reloads key from the server
// and overwrites the cached value, discarding any local patches in between.
// Keys that are not cached are left alone; nobody is reading them.
// Returns a channel that is closed when the scheduler has stopped.
func StartRefreshScheduler(
	ctx context.Context,
	store *Store,
	key Key,
	load Loader,
	interval time.Duration,
) <-chan struct{} {
	done := make(chan struct{})
	logger.WithComponent("refresh").Debugf("starting refresh scheduler for %s with interval: %v", key, interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.WithComponent("refresh").Infof("refresh scheduler for %s stopped", key)
				return
			case <-ticker.C:
				logger.WithComponent("refresh").Tracef("refresh scheduler tick for %s", key)
				refreshKey(ctx, store, key, load)
			}
		}
	}()
	return done
}

// refreshKey reloads a cached key. Load failures keep the current value.
func refreshKey(ctx context.Context, store *Store, key Key, load Loader) {
	gen, ok := store.cachedGeneration(key)
	if !ok {
		logger.WithComponent("refresh").Tracef("%s is not cached, skipping refresh", key)
		return
	}

	if err := ctx.Err(); err != nil {
		logger.WithComponent("refresh").Debugf("refresh cancelled: %v", err)
		return
	}

	fresh, err := load(ctx)
	if err != nil {
		logger.WithComponent("refresh").Errorf("refresh error for %s: %v", key, err)
		return
	}

	// a mutation patched or removed the key during the load; its value wins
	if !store.setIfGeneration(key, gen, fresh) {
		logger.WithComponent("refresh").Debugf("%s changed during refresh, discarding result", key)
		return
	}
	logger.WithComponent("refresh").Debugf("%s refreshed from server", key)
}
