package validation

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/agenthands/attendance/internal/core/model"
)

// Validator is the expensive signature check the cache memoizes.
type Validator interface {
	Validate(ctx context.Context, sig model.Signature) (bool, error)
}

type Config struct {
	// Capacity is the maximum number of verdicts kept before the least
	// recently used one is evicted.
	Capacity int

	// Timeout bounds a single call to the Validator. A timeout is reported
	// as an invalid verdict, not an error.
	Timeout time.Duration

	// MaxConcurrent bounds validator calls in flight across all keys.
	MaxConcurrent int

	// QueueTimeout bounds the wait for one of the MaxConcurrent slots. The
	// Timeout clock only starts once a slot is held. Zero means Timeout.
	QueueTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Capacity:      10000,
		Timeout:       5 * time.Second,
		MaxConcurrent: 8,
		QueueTimeout:  10 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive (got %d)", c.Capacity)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive (got %v)", c.Timeout)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive (got %d)", c.MaxConcurrent)
	}
	if c.QueueTimeout < 0 {
		return fmt.Errorf("queue_timeout cannot be negative (got %v)", c.QueueTimeout)
	}
	return nil
}

// Stats counts cache traffic. Misses counts callers that found no verdict,
// including those that joined another caller's flight. Runs counts flights
// that actually invoked the Validator. Shared counts callers whose result
// came from a flight with more than one caller, the leader included.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Runs      uint64 `json:"runs"`
	Shared    uint64 `json:"shared"`
	Failures  uint64 `json:"failures"`
	Evictions uint64 `json:"evictions"`
	Len       int    `json:"len"`
}

// Cache memoizes Validator verdicts by signature id and hash.
//
// A key is absent, pending while one validation is in flight, or resolved
// once its verdict is stored. Concurrent misses on the same key join the
// pending flight. Resolved keys only return to absent through LRU eviction
// or Purge. Failed validations are handed to every waiter but never stored.
type Cache struct {
	validator Validator
	cfg       Config
	entries   *lru.Cache[string, model.ValidationResult]
	group     singleflight.Group
	sem       *semaphore.Weighted

	hits      atomic.Uint64
	misses    atomic.Uint64
	runs      atomic.Uint64
	shared    atomic.Uint64
	failures  atomic.Uint64
	evictions atomic.Uint64
}

func NewCache(validator Validator, cfg Config) (*Cache, error) {
	if validator == nil {
		return nil, fmt.Errorf("validator cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	c := &Cache{
		validator: validator,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
	entries, err := lru.NewWithEvict[string, model.ValidationResult](cfg.Capacity, func(string, model.ValidationResult) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	c.entries = entries

	return c, nil
}

// Validate returns the verdict for sig, running the Validator at most once
// per key while the verdict stays cached.
func (c *Cache) Validate(ctx context.Context, sig model.Signature) model.ValidationResult {
	key := sig.CacheKey()
	if res, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return res
	}
	c.misses.Add(1)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// A flight that finished between the Get above and DoChan has
		// already stored its verdict.
		if res, ok := c.entries.Peek(key); ok {
			return res, nil
		}

		valid, err := c.run(ctx, sig)
		if err != nil {
			c.failures.Add(1)
			log.Printf("[CACHE] Validation failed for %s: %v", key, err)
			return failed(err), nil
		}

		res := verdict(valid)
		c.entries.Add(key, res)
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			c.shared.Add(1)
		}
		return r.Val.(model.ValidationResult)
	case <-ctx.Done():
		return model.ValidationResult{
			IsValid:    false,
			Confidence: 0,
			Reason:     fmt.Sprintf("validation cancelled: %v", ctx.Err()),
		}
	}
}

// run calls the Validator detached from the caller's cancellation, since
// other waiters may share the flight. The slot wait and the call itself have
// separate bounds.
func (c *Cache) run(parent context.Context, sig model.Signature) (bool, error) {
	detached := context.WithoutCancel(parent)

	queueTimeout := c.cfg.QueueTimeout
	if queueTimeout == 0 {
		queueTimeout = c.cfg.Timeout
	}
	queueCtx, cancelQueue := context.WithTimeout(detached, queueTimeout)
	err := c.sem.Acquire(queueCtx, 1)
	cancelQueue()
	if err != nil {
		return false, fmt.Errorf("waiting for validator slot: %w", err)
	}
	c.runs.Add(1)

	ctx, cancel := context.WithTimeout(detached, c.cfg.Timeout)
	defer cancel()

	type outcome struct {
		valid bool
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer c.sem.Release(1)
		valid, err := c.validator.Validate(ctx, sig)
		done <- outcome{valid: valid, err: err}
	}()

	select {
	case o := <-done:
		return o.valid, o.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Peek reports the cached verdict for sig without touching recency.
func (c *Cache) Peek(sig model.Signature) (model.ValidationResult, bool) {
	return c.entries.Peek(sig.CacheKey())
}

func (c *Cache) Purge() {
	c.entries.Purge()
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Runs:      c.runs.Load(),
		Shared:    c.shared.Load(),
		Failures:  c.failures.Load(),
		Evictions: c.evictions.Load(),
		Len:       c.entries.Len(),
	}
}

func verdict(valid bool) model.ValidationResult {
	if valid {
		return model.ValidationResult{IsValid: true, Confidence: 0.9, Reason: "Valid signature"}
	}
	return model.ValidationResult{IsValid: false, Confidence: 0.1, Reason: "Invalid signature"}
}

func failed(err error) model.ValidationResult {
	return model.ValidationResult{
		IsValid:    false,
		Confidence: 0,
		Reason:     fmt.Sprintf("validation failed: %v", err),
	}
}
