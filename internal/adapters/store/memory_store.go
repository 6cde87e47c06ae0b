package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
)

// MemoryStore keeps trust lists in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	lists  map[core.ListKey][]string
	logger *zap.Logger
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		lists:  make(map[core.ListKey][]string),
		logger: logger,
	}
}

// Get returns copies of the requested lists
func (s *MemoryStore) Get(_ context.Context, keys ...core.ListKey) (core.TrustLists, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(core.TrustLists, len(keys))
	for _, k := range keys {
		if !validKey(k) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownList, k)
		}
		out[k] = append([]string{}, s.lists[k]...)
	}
	return out, nil
}

// Set replaces each list present in lists
func (s *MemoryStore) Set(_ context.Context, lists core.TrustLists) error {
	for k := range lists {
		if !validKey(k) {
			return fmt.Errorf("%w: %s", ErrUnknownList, k)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range lists {
		s.lists[k] = clean(v)
	}
	s.logger.Debug("Trust lists updated", zap.Int("lists", len(lists)))
	return nil
}
