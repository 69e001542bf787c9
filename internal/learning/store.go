/*
Package learning keeps the process-wide adaptive state of the archive
assistant: keyword weights, pattern counters, per-user query logs, failure
logs, archive access counters and per-user context.

State lives in a sharded Store. Each key owns its own atomic value or
mutex-guarded log, so updates to one key never wait on another key and
readers may observe a burst of updates half applied.
*/
package learning

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	defaultShardCount      = 32
	defaultPatternCapacity = 100
	defaultFailureCapacity = 50
)

// QueryPattern is one entry of a user's query log.
type QueryPattern struct {
	QueryText  string    `json:"query_text"`
	Successful bool      `json:"successful"`
	Timestamp  time.Time `json:"timestamp"`
}

// FailureReason records that a pattern produced no archives. Count is the
// number of failures seen for the pattern including this one.
type FailureReason struct {
	Pattern   string    `json:"pattern"`
	Timestamp time.Time `json:"timestamp"`
	Count     int64     `json:"count"`
}

// UserContext is the last thing a user asked.
type UserContext struct {
	LastQuery  string    `json:"last_query"`
	LastIntent string    `json:"last_intent"`
	Categories []string  `json:"categories"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StoreConfig sizes a Store. Zero values select defaults.
type StoreConfig struct {
	Shards          int
	PatternCapacity int
	FailureCapacity int
}

// Store is the concurrent key-value state shared by all requests. Create one
// per process and pass it by reference.
type Store struct {
	frequency     *shardedMap[*atomic.Int64]
	successes     *shardedMap[*atomic.Int64]
	failureCounts *shardedMap[*atomic.Int64]
	weights       *shardedMap[*atomicFloat]
	patterns      *shardedMap[*ring[QueryPattern]]
	failures      *shardedMap[*ring[FailureReason]]
	contexts      *shardedMap[*atomic.Pointer[UserContext]]
}

// NewStore creates an empty store.
func NewStore(cfg StoreConfig) *Store {
	if cfg.Shards <= 0 {
		cfg.Shards = defaultShardCount
	}
	if cfg.PatternCapacity <= 0 {
		cfg.PatternCapacity = defaultPatternCapacity
	}
	if cfg.FailureCapacity <= 0 {
		cfg.FailureCapacity = defaultFailureCapacity
	}

	newCounter := func() *atomic.Int64 { return new(atomic.Int64) }

	return &Store{
		frequency:     newShardedMap(cfg.Shards, newCounter),
		successes:     newShardedMap(cfg.Shards, newCounter),
		failureCounts: newShardedMap(cfg.Shards, newCounter),
		weights:       newShardedMap(cfg.Shards, func() *atomicFloat { return new(atomicFloat) }),
		patterns: newShardedMap(cfg.Shards, func() *ring[QueryPattern] {
			return newRing[QueryPattern](cfg.PatternCapacity)
		}),
		failures: newShardedMap(cfg.Shards, func() *ring[FailureReason] {
			return newRing[FailureReason](cfg.FailureCapacity)
		}),
		contexts: newShardedMap(cfg.Shards, func() *atomic.Pointer[UserContext] {
			return new(atomic.Pointer[UserContext])
		}),
	}
}

// IncrementFrequency counts one observation of an archive file number.
func (s *Store) IncrementFrequency(fileNumber string) int64 {
	return s.frequency.getOrCreate(fileNumber).Add(1)
}

// Frequency returns how often a file number was observed.
func (s *Store) Frequency(fileNumber string) int64 {
	if c, ok := s.frequency.get(fileNumber); ok {
		return c.Load()
	}
	return 0
}

// IncrementSuccess counts one success of an exact query text.
func (s *Store) IncrementSuccess(pattern string) int64 {
	return s.successes.getOrCreate(pattern).Add(1)
}

// SuccessCount returns the success counter of a query text.
func (s *Store) SuccessCount(pattern string) int64 {
	if c, ok := s.successes.get(pattern); ok {
		return c.Load()
	}
	return 0
}

// AddWeight nudges a keyword weight and returns the new value.
func (s *Store) AddWeight(keyword string, delta float64) float64 {
	return s.weights.getOrCreate(keyword).Add(delta)
}

// Weight returns a keyword weight and whether the keyword was ever nudged.
func (s *Store) Weight(keyword string) (float64, bool) {
	if w, ok := s.weights.get(keyword); ok {
		return w.Load(), true
	}
	return 0, false
}

// Weights returns a point-in-time copy of all keyword weights.
func (s *Store) Weights() map[string]float64 {
	out := make(map[string]float64)
	s.weights.each(func(key string, w *atomicFloat) {
		out[key] = w.Load()
	})
	return out
}

// AppendPattern adds to a user's query log, evicting the oldest entry once
// the log is full.
func (s *Store) AppendPattern(userKey string, p QueryPattern) {
	s.patterns.getOrCreate(userKey).Append(p)
}

// Patterns returns a user's query log, oldest first.
func (s *Store) Patterns(userKey string) []QueryPattern {
	if r, ok := s.patterns.get(userKey); ok {
		return r.Items()
	}
	return nil
}

// RecordFailure appends a failure entry for pattern.
func (s *Store) RecordFailure(pattern string, at time.Time) FailureReason {
	reason := FailureReason{
		Pattern:   pattern,
		Timestamp: at,
		Count:     s.failureCounts.getOrCreate(pattern).Add(1),
	}
	s.failures.getOrCreate(pattern).Append(reason)
	return reason
}

// Failures returns the retained failure entries of a pattern, oldest first.
func (s *Store) Failures(pattern string) []FailureReason {
	if r, ok := s.failures.get(pattern); ok {
		return r.Items()
	}
	return nil
}

// SetUserContext replaces a user's context.
func (s *Store) SetUserContext(userKey string, c UserContext) {
	s.contexts.getOrCreate(userKey).Store(&c)
}

// UserContext returns a user's context if one was recorded.
func (s *Store) UserContext(userKey string) (UserContext, bool) {
	p, ok := s.contexts.get(userKey)
	if !ok {
		return UserContext{}, false
	}
	c := p.Load()
	if c == nil {
		return UserContext{}, false
	}
	return *c, true
}

// shardedMap spreads keys over independently locked shards. The shard lock
// only guards key creation; values carry their own synchronisation.
type shardedMap[V any] struct {
	shards   []*mapShard[V]
	newValue func() V
}

type mapShard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

func newShardedMap[V any](n int, newValue func() V) *shardedMap[V] {
	m := &shardedMap[V]{
		shards:   make([]*mapShard[V], n),
		newValue: newValue,
	}
	for i := range m.shards {
		m.shards[i] = &mapShard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *shardedMap[V]) shard(key string) *mapShard[V] {
	return m.shards[xxhash.Sum64String(key)%uint64(len(m.shards))]
}

func (m *shardedMap[V]) get(key string) (V, bool) {
	sh := m.shard(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.items[key]
	return v, ok
}

func (m *shardedMap[V]) getOrCreate(key string) V {
	sh := m.shard(key)

	sh.mu.RLock()
	v, ok := sh.items[key]
	sh.mu.RUnlock()
	if ok {
		return v
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if v, ok = sh.items[key]; ok {
		return v
	}
	v = m.newValue()
	sh.items[key] = v
	return v
}

func (m *shardedMap[V]) each(fn func(key string, v V)) {
	for _, sh := range m.shards {
		sh.mu.RLock()
		for k, v := range sh.items {
			fn(k, v)
		}
		sh.mu.RUnlock()
	}
}

// atomicFloat is a float64 updated by compare-and-swap.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat) Add(delta float64) float64 {
	for {
		old := f.bits.Load()
		next := math.Float64frombits(old) + delta
		if f.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}
