package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/sqldb"
	"github.com/mikey/phishguard/internal/adapters/store"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
)

// StoreFactory creates the trust store and owns the SQL database it may
// share with the result cache
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger

	mu sync.Mutex
	db *sqldb.DB
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTrustStore creates the trust store based on the configuration
func (f *StoreFactory) CreateTrustStore(ctx context.Context) (core.TrustStore, error) {
	storeCfg := f.cfg.GetStore()

	switch storeCfg.Type {
	case "memory", "":
		f.logger.Warn("Using in-memory trust store, user lists are lost on restart")
		return store.NewMemoryStore(f.logger), nil
	case sqldb.SQLite, sqldb.MySQL, sqldb.Postgres:
		db, err := f.SQLDB(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewSQLStore(ctx, db, f.logger)
	case "redis":
		return store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     storeCfg.RedisAddr,
			Password: storeCfg.RedisPassword,
			DB:       storeCfg.RedisDB,
			Prefix:   storeCfg.RedisPrefix,
		}, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}

// SQLDB opens the configured SQL database once and returns the shared handle
func (f *StoreFactory) SQLDB(ctx context.Context) (*sqldb.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db != nil {
		return f.db, nil
	}

	storeCfg := f.cfg.GetStore()
	var dsn string
	switch storeCfg.Type {
	case sqldb.SQLite:
		dsn = storeCfg.SQLitePath
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
			}
		}
	case sqldb.MySQL:
		dsn = storeCfg.MySQLDSN
	case sqldb.Postgres:
		dsn = storeCfg.PostgresDSN
	default:
		return nil, fmt.Errorf("store type %s has no SQL database", storeCfg.Type)
	}

	db, err := sqldb.Open(ctx, storeCfg.Type, dsn, f.logger)
	if err != nil {
		return nil, err
	}
	f.db = db
	return db, nil
}

// Close closes the shared SQL database, if one was opened
func (f *StoreFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		return nil
	}
	err := f.db.Close()
	f.db = nil
	return err
}
