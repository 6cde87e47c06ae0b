package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
)

var (
	// ErrNotFound is returned when a cache entry is not found
	ErrNotFound = errors.New("cache entry not found")
	// ErrExpired is returned when a cache entry has expired
	ErrExpired = errors.New("cache entry expired")
)

type entry struct {
	verdict   core.Verdict
	expiresAt time.Time
}

// MemoryCache is an in-memory implementation of core.ResultCache
type MemoryCache struct {
	entries     map[string]entry
	mu          sync.RWMutex
	logger      *zap.Logger
	ttl         time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewMemoryCache creates a new in-memory cache. A zero cleanupFreq disables
// the background sweep.
func NewMemoryCache(logger *zap.Logger, ttl, cleanupFreq time.Duration) *MemoryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := &MemoryCache{
		entries:     make(map[string]entry),
		logger:      logger,
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	if cleanupFreq > 0 {
		go cache.startCleanupTask()
	}

	return cache
}

// Get retrieves a cached verdict
func (c *MemoryCache) Get(_ context.Context, key string) (*core.Verdict, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !c.now().Before(e.expiresAt) {
		return nil, ErrExpired
	}

	v := e.verdict
	v.Result.Reasons = append([]string{}, e.verdict.Result.Reasons...)
	return &v, nil
}

// Set stores a copy of verdict
func (c *MemoryCache) Set(_ context.Context, key string, verdict *core.Verdict) error {
	if verdict == nil {
		return nil
	}
	v := *verdict
	v.Result.Reasons = append([]string{}, verdict.Result.Reasons...)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{verdict: v, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// Clear drops every entry
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.logger.Debug("Cleared result cache", zap.Int("entries", n))
	return nil
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expiredCount := 0

	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			expiredCount++
		}
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	return nil
}

// Len returns the number of stored entries, expired or not
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
