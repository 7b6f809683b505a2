package application

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ericfisherdev/prready/internal/domain/model"
	"github.com/ericfisherdev/prready/internal/domain/port/driven"
)

const (
	cacheShards = 16

	// DefaultResultTTL is how long a computed readiness result stays in the fast tier.
	DefaultResultTTL = 10 * time.Minute

	persistTimeout = 5 * time.Second
)

// keyState tracks one key with pending durable work or a live fast entry.
// persistMu serializes durable writes for the key so a save can never land
// after the Clear that superseded it. refs counts operations that still need
// the state; it is pruned once refs is zero and the fast entry is gone.
type keyState struct {
	gen       uint64
	refs      int
	persistMu sync.Mutex
}

// cacheShard owns one slice of the key space. mu guards keys, seq and floor
// and orders fast-tier writes against generation changes.
//
// Generations come from the shard-wide seq. floor is the highest generation
// of any pruned key, so a key without state is treated as last changed at
// floor.
type cacheShard struct {
	mu    sync.Mutex
	items *gocache.Cache
	keys  map[string]*keyState
	seq   uint64
	floor uint64
}

// ResultCache is a two-tier cache of readiness results. The fast tier is an
// in-process TTL cache; the durable tier is any driven.ResultStore. Durable
// failures are logged and never surface to callers of Get or Put.
type ResultCache struct {
	shards [cacheShards]*cacheShard
	store  driven.ResultStore
	wg     sync.WaitGroup
}

// NewResultCache creates a ResultCache over store. A non-positive ttl falls
// back to DefaultResultTTL.
func NewResultCache(store driven.ResultStore, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}

	c := &ResultCache{store: store}
	for i := range c.shards {
		s := &cacheShard{
			items: gocache.New(ttl, 2*ttl),
			keys:  make(map[string]*keyState),
		}
		// Runs on the janitor goroutine, and on Invalidate's Delete, which
		// is made without s.mu held.
		s.items.OnEvicted(func(key string, _ any) {
			s.mu.Lock()
			s.pruneLocked(key)
			s.mu.Unlock()
		})
		c.shards[i] = s
	}
	return c
}

func (c *ResultCache) shard(key string) *cacheShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%cacheShards]
}

// acquireLocked bumps the key's generation and takes a reference on its state.
func (s *cacheShard) acquireLocked(key string) (*keyState, uint64) {
	st, ok := s.keys[key]
	if !ok {
		st = &keyState{}
		s.keys[key] = st
	}
	s.seq++
	st.gen = s.seq
	st.refs++
	return st, st.gen
}

func (s *cacheShard) release(key string, st *keyState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.refs--
	s.pruneLocked(key)
}

func (s *cacheShard) pruneLocked(key string) {
	st, ok := s.keys[key]
	if !ok || st.refs > 0 {
		return
	}
	if _, live := s.items.Get(key); live {
		return
	}
	s.floor = max(s.floor, st.gen)
	delete(s.keys, key)
}

// lastChangeLocked returns the generation of the key's latest Put or Invalidate.
func (s *cacheShard) lastChangeLocked(key string) uint64 {
	if st, ok := s.keys[key]; ok {
		return st.gen
	}
	return s.floor
}

// Get returns the cached result for key. A fast-tier hit never touches the
// durable tier. A durable hit repopulates the fast tier unless the key was
// invalidated or rewritten while the load was in flight.
func (c *ResultCache) Get(ctx context.Context, key string) (*model.ReadinessResult, bool) {
	s := c.shard(key)

	s.mu.Lock()
	if v, ok := s.items.Get(key); ok {
		s.mu.Unlock()
		result := v.(model.ReadinessResult)
		return &result, true
	}
	start := s.seq
	s.mu.Unlock()

	result, err := c.store.Load(ctx, key)
	if err != nil {
		slog.Warn("durable cache load failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if result == nil {
		return nil, false
	}

	s.mu.Lock()
	if s.lastChangeLocked(key) <= start {
		s.items.Set(key, *result, gocache.DefaultExpiration)
	}
	s.mu.Unlock()

	return result, true
}

// Put stores result in the fast tier synchronously and persists it to the
// durable tier in the background.
func (c *ResultCache) Put(ctx context.Context, key string, result model.ReadinessResult) {
	s := c.shard(key)

	s.mu.Lock()
	st, gen := s.acquireLocked(key)
	s.items.Set(key, result, gocache.DefaultExpiration)
	s.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer s.release(key, st)

		st.persistMu.Lock()
		defer st.persistMu.Unlock()

		s.mu.Lock()
		current := st.gen == gen
		s.mu.Unlock()
		if !current {
			slog.Debug("skipping superseded cache persist", "key", key)
			return
		}

		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()

		if err := c.store.Save(saveCtx, key, result); err != nil {
			slog.Warn("durable cache save failed", "key", key, "error", err)
		}
	}()
}

// Invalidate drops key from both tiers. Any persist still pending for key is
// abandoned. Only persists of the same key are waited for. The durable-tier
// error is returned for visibility only; the fast tier is already clear.
func (c *ResultCache) Invalidate(ctx context.Context, key string) error {
	s := c.shard(key)

	s.mu.Lock()
	st, _ := s.acquireLocked(key)
	s.mu.Unlock()
	defer s.release(key, st)

	// A Get that sees the old entry between the generation bump and this
	// Delete overlaps the Invalidate call.
	s.items.Delete(key)

	st.persistMu.Lock()
	defer st.persistMu.Unlock()

	if err := c.store.Clear(ctx, key); err != nil {
		slog.Warn("durable cache clear failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Wait blocks until every background persist has finished.
func (c *ResultCache) Wait() {
	c.wg.Wait()
}
