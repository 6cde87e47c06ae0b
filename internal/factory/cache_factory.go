package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/cache"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
)

// ResultCache is a verdict cache with a background cleanup task
type ResultCache interface {
	core.ResultCache
	Stop()
}

// CacheFactory creates result caches based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	stores *StoreFactory
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger, stores *StoreFactory) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
		stores: stores,
	}
}

// CreateResultCache creates the result cache. It returns nil when caching
// is disabled.
func (f *CacheFactory) CreateResultCache(ctx context.Context) (ResultCache, error) {
	cacheCfg := f.cfg.GetCache()
	if !cacheCfg.Enabled {
		f.logger.Info("Result cache disabled")
		return nil, nil
	}

	switch cacheCfg.Type {
	case "memory", "":
		return cache.NewMemoryCache(f.logger, cacheCfg.TTL, cacheCfg.CleanupFrequency), nil
	case "sql":
		// Shares the trust store database
		db, err := f.stores.SQLDB(ctx)
		if err != nil {
			return nil, fmt.Errorf("sql cache needs an SQL trust store: %w", err)
		}
		return cache.NewSQLCache(ctx, db, f.logger, cacheCfg.TTL, cacheCfg.CleanupFrequency)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}
