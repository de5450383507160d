// Package pool recycles identifiers between synthetic webhook deliveries.
// A products/create delivery mints product ids and variant SKUs; pooling
// them lets later update, delete, order and inventory deliveries reference
// entities the backend has already ingested, the way storefront traffic
// does. Identifiers are held per semantic type in fixed-capacity rings, so
// a long run keeps a bounded, slowly rolling working set.
package pool

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by pool operations after Close.
var ErrClosed = errors.New("pool: closed")

// Config sizes the pool.
type Config struct {
	// TTL is how long an identifier stays drawable after it is added.
	// Zero keeps entries until ring capacity pushes them out.
	TTL time.Duration

	// MaxPerType caps how many identifiers of one semantic type are held.
	// Adding past the cap overwrites the oldest entry.
	MaxPerType int

	// Shards spreads semantic types over independently locked shards.
	// Rounded up to a power of two.
	Shards int

	// SweepInterval is how often a background pass drops expired entries.
	// Zero disables the sweeper; stale entries then fall out on draw.
	SweepInterval time.Duration
}

// DefaultConfig suits a single-host load run.
func DefaultConfig() Config {
	return Config{
		TTL:           30 * time.Minute,
		MaxPerType:    1000,
		Shards:        16,
		SweepInterval: time.Minute,
	}
}

// Pool holds recycled identifiers, one ring per semantic type. Safe for
// concurrent use.
type Pool struct {
	cfg    Config
	shards []*shard
	mask   uint64

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

type shard struct {
	mu    sync.Mutex
	rings map[SemanticType]*ring
}

// New creates a pool. Non-positive MaxPerType and Shards fall back to the
// DefaultConfig values; a zero TTL disables expiry and a zero SweepInterval
// disables the background sweeper.
func New(cfg Config) *Pool {
	def := DefaultConfig()
	if cfg.MaxPerType <= 0 {
		cfg.MaxPerType = def.MaxPerType
	}
	if cfg.Shards <= 0 {
		cfg.Shards = def.Shards
	}
	if cfg.TTL < 0 {
		cfg.TTL = 0
	}

	n := powerOfTwo(cfg.Shards)
	p := &Pool{
		cfg:    cfg,
		shards: make([]*shard, n),
		mask:   uint64(n - 1),
		done:   make(chan struct{}),
	}
	for i := range p.shards {
		p.shards[i] = &shard{rings: make(map[SemanticType]*ring)}
	}

	if cfg.SweepInterval > 0 {
		p.wg.Add(1)
		go p.sweepLoop()
	}
	return p
}

// Add records v. A value without an expiry of its own gets the pool TTL.
// When the type's ring is full the oldest entry is overwritten.
func (p *Pool) Add(v *ParameterValue) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if v == nil || v.SemanticType == "" {
		return fmt.Errorf("pool: value without a semantic type")
	}
	if v.ExpiresAt.IsZero() && p.cfg.TTL > 0 {
		v.ExpiresAt = v.CreatedAt.Add(p.cfg.TTL)
	}

	s := p.shardFor(v.SemanticType)
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.rings[v.SemanticType]
	if r == nil {
		r = newRing(p.cfg.MaxPerType)
		s.rings[v.SemanticType] = r
	}
	r.add(v)
	return nil
}

// GetRandom draws an identifier of the given type without removing it, so
// the same product can take several updates before it is deleted. Returns
// nil when the type has no live identifier.
func (p *Pool) GetRandom(semanticType SemanticType) (*ParameterValue, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	s := p.shardFor(semanticType)
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.rings[semanticType]
	if r == nil {
		return nil, nil
	}
	return r.random(time.Now()), nil
}

// Remove retires an identifier so later draws stop returning it. Matching
// is by identity: pass the pointer GetRandom returned. Reports whether the
// identifier was still pooled.
func (p *Pool) Remove(v *ParameterValue) bool {
	if v == nil || p.closed.Load() {
		return false
	}

	s := p.shardFor(v.SemanticType)
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.rings[v.SemanticType]
	if r == nil {
		return false
	}
	return r.remove(v)
}

// Count reports how many identifiers of the given type are held, counting
// expired entries the sweeper has not reached yet.
func (p *Pool) Count(semanticType SemanticType) int {
	s := p.shardFor(semanticType)
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.rings[semanticType]
	if r == nil {
		return 0
	}
	return r.count()
}

// Types lists the semantic types currently holding at least one identifier.
func (p *Pool) Types() []SemanticType {
	var types []SemanticType
	for _, s := range p.shards {
		s.mu.Lock()
		for st, r := range s.rings {
			if r.count() > 0 {
				types = append(types, st)
			}
		}
		s.mu.Unlock()
	}
	return types
}

// Close stops the sweeper and makes further Add and GetRandom calls fail
// with ErrClosed. Safe to call more than once.
func (p *Pool) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	close(p.done)
	p.wg.Wait()
	return nil
}

func (p *Pool) sweepLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case now := <-ticker.C:
			p.sweep(now)
		}
	}
}

// sweep drops expired entries and empty rings, returning how many entries
// went.
func (p *Pool) sweep(now time.Time) int {
	removed := 0
	for _, s := range p.shards {
		s.mu.Lock()
		for st, r := range s.rings {
			removed += r.removeExpired(now)
			if r.count() == 0 {
				delete(s.rings, st)
			}
		}
		s.mu.Unlock()
	}
	return removed
}

func (p *Pool) shardFor(semanticType SemanticType) *shard {
	h := fnv.New64a()
	h.Write([]byte(semanticType))
	return p.shards[h.Sum64()&p.mask]
}

func powerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
