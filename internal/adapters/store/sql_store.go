package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/sqldb"
	"github.com/mikey/phishguard/internal/core"
)

// SQLStore keeps trust lists in a single table, one row per entry.
type SQLStore struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewSQLStore creates the trust table if needed
func NewSQLStore(ctx context.Context, db *sqldb.DB, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	err := db.Migrate(ctx, `
		CREATE TABLE IF NOT EXISTS trust_entries (
			list_name VARCHAR(64) NOT NULL,
			entry VARCHAR(320) NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (list_name, entry)
		)
	`)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db, logger: logger}, nil
}

// Get returns the requested lists in insertion order
func (s *SQLStore) Get(ctx context.Context, keys ...core.ListKey) (core.TrustLists, error) {
	out := make(core.TrustLists, len(keys))
	for _, k := range keys {
		if !validKey(k) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownList, k)
		}
		entries, err := s.list(ctx, k)
		if err != nil {
			return nil, err
		}
		out[k] = entries
	}
	return out, nil
}

func (s *SQLStore) list(ctx context.Context, k core.ListKey) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT entry FROM trust_entries
		WHERE list_name = ?
		ORDER BY position
	`), string(k))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query %s: %v", ErrUnavailable, k, err)
	}
	defer rows.Close()

	entries := []string{}
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("%w: failed to scan %s: %v", ErrUnavailable, k, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return entries, nil
}

// Set replaces each list present in lists inside one transaction
func (s *SQLStore) Set(ctx context.Context, lists core.TrustLists) error {
	for k := range lists {
		if !validKey(k) {
			return fmt.Errorf("%w: %s", ErrUnknownList, k)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	del := s.db.Rebind(`DELETE FROM trust_entries WHERE list_name = ?`)
	ins := s.db.Rebind(`INSERT INTO trust_entries (list_name, entry, position) VALUES (?, ?, ?)`)
	for k, entries := range lists {
		if _, err := tx.ExecContext(ctx, del, string(k)); err != nil {
			return fmt.Errorf("%w: failed to clear %s: %v", ErrUnavailable, k, err)
		}
		for i, e := range clean(entries) {
			if _, err := tx.ExecContext(ctx, ins, string(k), e, i); err != nil {
				return fmt.Errorf("%w: failed to insert into %s: %v", ErrUnavailable, k, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", ErrUnavailable, err)
	}
	s.logger.Debug("Trust lists updated", zap.String("dialect", s.db.Dialect()), zap.Int("lists", len(lists)))
	return nil
}

// Close closes the underlying database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
