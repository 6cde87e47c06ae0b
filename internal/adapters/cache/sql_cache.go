package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/sqldb"
	"github.com/mikey/phishguard/internal/core"
)

// KeyColumnWidth is the width of the cache_key column.
const KeyColumnWidth = 128

// SQLCache stores verdicts as JSON rows keyed by email fingerprint. It works
// on every dialect sqldb supports.
type SQLCache struct {
	db          *sqldb.DB
	logger      *zap.Logger
	ttl         time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewSQLCache creates the cache table if needed and starts the cleanup task
func NewSQLCache(ctx context.Context, db *sqldb.DB, logger *zap.Logger, ttl, cleanupFreq time.Duration) (*SQLCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	err := db.Migrate(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS analysis_cache (
			cache_key VARCHAR(%d) PRIMARY KEY,
			verdict TEXT NOT NULL,
			expires_at BIGINT NOT NULL
		)
	`, KeyColumnWidth), `
		CREATE INDEX IF NOT EXISTS idx_analysis_cache_expires ON analysis_cache(expires_at)
	`)
	if err != nil && db.Dialect() == sqldb.MySQL {
		// MySQL has no CREATE INDEX IF NOT EXISTS; the table alone is enough
		err = db.Migrate(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS analysis_cache (
				cache_key VARCHAR(%d) PRIMARY KEY,
				verdict TEXT NOT NULL,
				expires_at BIGINT NOT NULL,
				INDEX idx_analysis_cache_expires (expires_at)
			)
		`, KeyColumnWidth))
	}
	if err != nil {
		return nil, err
	}

	cache := &SQLCache{
		db:          db,
		logger:      logger,
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	if cleanupFreq > 0 {
		go cache.startCleanupTask()
	}

	return cache, nil
}

// Get retrieves a cached verdict
func (c *SQLCache) Get(ctx context.Context, key string) (*core.Verdict, error) {
	var raw string
	err := c.db.QueryRowContext(ctx, c.db.Rebind(`
		SELECT verdict FROM analysis_cache
		WHERE cache_key = ? AND expires_at > ?
	`), key, c.now().Unix()).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var v core.Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("failed to decode cached verdict: %w", err)
	}
	return &v, nil
}

// Set stores a verdict, replacing any previous entry for key
func (c *SQLCache) Set(ctx context.Context, key string, verdict *core.Verdict) error {
	if verdict == nil {
		return nil
	}
	raw, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}
	expiresAt := c.now().Add(c.ttl).Unix()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, c.db.Rebind(`DELETE FROM analysis_cache WHERE cache_key = ?`), key); err != nil {
		return fmt.Errorf("failed to replace cache entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, c.db.Rebind(`
		INSERT INTO analysis_cache (cache_key, verdict, expires_at)
		VALUES (?, ?, ?)
	`), key, string(raw), expiresAt); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return tx.Commit()
}

// Clear drops every entry
func (c *SQLCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM analysis_cache`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	c.logger.Debug("Cleared result cache")
	return nil
}

// Cleanup removes expired entries
func (c *SQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, c.db.Rebind(`
		DELETE FROM analysis_cache
		WHERE expires_at <= ?
	`), c.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

func (c *SQLCache) startCleanupTask() {
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

// Stop stops the background cleanup task. The database is owned by the caller.
func (c *SQLCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
