package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/go_connsync/internal/logger"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// ErrTypeMismatch is returned when a cached value does not have the requested type.
var ErrTypeMismatch = errors.New("cached value has unexpected type")

type entry struct {
	key   Key
	value any
}

// generation counts writes to one key. A load only stores its result when the
// generation it observed at miss time is still current.
type generation struct {
	key Key
	n   uint64
}

// Store keeps previously fetched results addressed by Key.
// Values handed out by the store are shared with every reader and must be treated as read-only;
// updaters build new values instead of mutating the previous one.
type Store struct {
	mu      sync.RWMutex
	entries *ttlcache.Cache[string, entry]
	gens    map[string]*generation
	loads   singleflight.Group

	lifecycle sync.Mutex
	started   bool
}

// NewStore creates an empty store. A ttl of zero keeps entries until they are removed.
func NewStore(ttl time.Duration) *Store {
	opts := []ttlcache.Option[string, entry]{
		ttlcache.WithDisableTouchOnHit[string, entry](),
	}
	if ttl > 0 {
		opts = append(opts, ttlcache.WithTTL[string, entry](ttl))
	}
	return &Store{
		entries: ttlcache.New[string, entry](opts...),
		gens:    make(map[string]*generation),
	}
}

// Start runs the expired-entry janitor in the background until Close is called.
func (s *Store) Start() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.entries.Start()
	logger.WithComponent("cache").Debugf("cache janitor started")
}

// Close stops the janitor and drops every entry.
func (s *Store) Close() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.started {
		s.entries.Stop()
		s.started = false
	}
	s.mu.Lock()
	s.entries.DeleteAll()
	for k, g := range s.gens {
		g.n++
		s.loads.Forget(k)
	}
	s.mu.Unlock()
	logger.WithComponent("cache").Debugf("cache closed")
}

// Get returns the cached value for key, if present and not expired.
func (s *Store) Get(key Key) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item := s.entries.Get(key.String())
	if item == nil {
		return nil, false
	}
	return item.Value().value, true
}

// Set stores value under key, replacing whatever was there.
func (s *Store) Set(key Key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, value)
	logger.WithComponent("cache").Tracef("set %s", key)
}

// setLocked stores value and bumps the key's generation (caller must hold the lock).
func (s *Store) setLocked(key Key, value any) {
	k := key.String()
	s.entries.Set(k, entry{key: NewKey(key...), value: value}, ttlcache.DefaultTTL)
	s.bumpLocked(k, key)
}

// bumpLocked invalidates loads of key that are still running (caller must hold the lock).
func (s *Store) bumpLocked(k string, key Key) {
	g, ok := s.gens[k]
	if !ok {
		s.gens[k] = &generation{key: NewKey(key...), n: 1}
		return
	}
	g.n++
}

// beginLoad returns the cached value, or the current generation of key when it is absent.
func (s *Store) beginLoad(key Key) (any, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	if item := s.entries.Get(k); item != nil {
		return item.Value().value, 0, true
	}
	g, ok := s.gens[k]
	if !ok {
		g = &generation{key: NewKey(key...)}
		s.gens[k] = g
	}
	return nil, g.n, false
}

// cachedGeneration returns the generation of key, or false when key is not cached.
func (s *Store) cachedGeneration(key Key) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k := key.String()
	g, ok := s.gens[k]
	if !ok || s.entries.Get(k) == nil {
		return 0, false
	}
	return g.n, true
}

// setIfGeneration stores value only when nothing has written or removed key since gen was read.
func (s *Store) setIfGeneration(key Key, gen uint64, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gens[key.String()]; ok && g.n != gen {
		return false
	}
	s.setLocked(key, value)
	return true
}

// SetByKey applies updater to the current value (ok is false when absent) and stores the result.
// Updaters run under the store lock, one at a time, in call order.
func (s *Store) SetByKey(key Key, updater func(prev any, ok bool) any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prev any
	item := s.entries.Get(key.String())
	if item != nil {
		prev = item.Value().value
	}
	next := updater(prev, item != nil)
	s.setLocked(key, next)
	logger.WithComponent("cache").Tracef("patched %s (present before: %v)", key, item != nil)
}

// Patch applies updater to the current value only when key is cached and reports whether it did.
// The updater may decline by returning keep=false, leaving the entry untouched.
func (s *Store) Patch(key Key, updater func(prev any) (next any, keep bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.entries.Get(key.String())
	if item == nil {
		logger.WithComponent("cache").Tracef("patch skipped, %s not cached", key)
		return false
	}
	next, keep := updater(item.Value().value)
	if !keep {
		return false
	}
	s.setLocked(key, next)
	logger.WithComponent("cache").Tracef("patched %s", key)
	return true
}

// Remove drops the entry for key. A load of key still in flight will not store its result,
// and later reads start a new load instead of joining it.
func (s *Store) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	s.entries.Delete(k)
	s.bumpLocked(k, key)
	s.loads.Forget(k)
	logger.WithComponent("cache").Tracef("removed %s", key)
}

// RemovePrefix drops every entry whose key starts with prefix and returns how many were removed.
func (s *Store) RemovePrefix(prefix Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, item := range s.entries.Items() {
		if item.Value().key.HasPrefix(prefix) {
			s.entries.Delete(k)
			removed++
		}
	}
	// loads run for keys that are not cached yet, so walk every known key
	for k, g := range s.gens {
		if g.key.HasPrefix(prefix) {
			g.n++
			s.loads.Forget(k)
		}
	}
	logger.WithComponent("cache").Debugf("removed %d entries under %s", removed, prefix)
	return removed
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Len()
}

// GetAs is Get with a type assertion.
func GetAs[T any](s *Store, key Key) (T, bool) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Update is SetByKey for a typed value. A present value of another type is treated as absent.
func Update[T any](s *Store, key Key, updater func(prev T, ok bool) T) {
	s.SetByKey(key, func(prev any, ok bool) any {
		typed, isT := prev.(T)
		return updater(typed, ok && isT)
	})
}

// PatchAs is Patch for a typed value. Absent or mismatched values are left alone.
func PatchAs[T any](s *Store, key Key, updater func(prev T) T) bool {
	return s.Patch(key, func(prev any) (any, bool) {
		typed, ok := prev.(T)
		if !ok {
			return nil, false
		}
		return updater(typed), true
	})
}

// Fetch returns the cached value for key or loads, caches and returns it.
// Concurrent fetches of the same key share one load. A failed load is returned to
// every waiter and nothing is cached. Each caller stops waiting when its own ctx ends;
// the shared load itself is not cancelled by any single caller.
func Fetch[T any](ctx context.Context, s *Store, key Key, loader func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok := s.Get(key); ok {
		typed, isT := v.(T)
		if !isT {
			return zero, fmt.Errorf("%w: %s holds %T", ErrTypeMismatch, key, v)
		}
		logger.WithComponent("cache").Tracef("hit %s", key)
		return typed, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(key.String(), func() (any, error) {
		// another load may have finished between the miss above and joining the group
		cached, gen, ok := s.beginLoad(key)
		if ok {
			return cached, nil
		}
		logger.WithComponent("cache").Debugf("miss %s, loading", key)
		v, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		if !s.setIfGeneration(key, gen, v) {
			logger.WithComponent("cache").Debugf("%s changed while loading, result not cached", key)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		typed, isT := res.Val.(T)
		if !isT {
			return zero, fmt.Errorf("%w: %s holds %T", ErrTypeMismatch, key, res.Val)
		}
		return typed, nil
	}
}
