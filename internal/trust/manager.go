package trust

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/domainutil"
	"github.com/mikey/phishguard/internal/whitelist"
)

// ErrInvalidSender is returned when an ignore request has no "@".
var ErrInvalidSender = errors.New("sender is not an email address")

// Manager resolves trust against a store and applies the ignore-list edits.
// Edits are read-merge-write under a mutex; concurrent writers in other
// processes follow last-writer-wins.
type Manager struct {
	store   core.TrustStore
	base    *whitelist.Base
	logger  *zap.Logger
	promote bool

	writeMu sync.Mutex

	cacheTTL time.Duration
	cacheMu  sync.RWMutex
	cached   core.TrustLists
	cachedAt time.Time
	gen      uint64 // bumped by Invalidate
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithCacheTTL keeps the user lists in memory for ttl. Zero reads the store
// on every check.
func WithCacheTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.cacheTTL = ttl }
}

// WithIgnorePromotesWhitelist makes AddIgnoredSender also whitelist the
// sender's email and domain.
func WithIgnorePromotesWhitelist(promote bool) Option {
	return func(m *Manager) { m.promote = promote }
}

// NewManager creates a manager over store.
func NewManager(store core.TrustStore, base *whitelist.Base, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		store:  store,
		base:   base,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check resolves sender. A store failure yields the untrusted decision.
func (m *Manager) Check(ctx context.Context, sender string) core.TrustDecision {
	lists, err := m.lists(ctx)
	if err != nil {
		m.logger.Warn("Trust store unavailable, treating sender as untrusted",
			zap.String("sender", sender),
			zap.Error(err))
		return core.Untrusted()
	}
	decision := Resolve(sender, m.base, lists)
	m.logger.Debug("Sender trust resolved",
		zap.String("sender", sender),
		zap.Bool("trusted", decision.Trusted),
		zap.String("trust_level", string(decision.Level)))
	return decision
}

// UserLists returns the user-maintained lists.
func (m *Manager) UserLists(ctx context.Context) (core.TrustLists, error) {
	lists, err := m.store.Get(ctx, core.AllListKeys...)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust lists: %w", err)
	}
	return lists, nil
}

// AddIgnoredSender records that the user dismissed warnings for sender.
func (m *Manager) AddIgnoredSender(ctx context.Context, sender string) error {
	email := strings.ToLower(strings.TrimSpace(sender))
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: %q", ErrInvalidSender, sender)
	}
	_, domain := domainutil.SplitAddress(email)

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	lists, err := m.store.Get(ctx, core.AllListKeys...)
	if err != nil {
		return fmt.Errorf("failed to read trust lists: %w", err)
	}

	update := core.TrustLists{
		core.KeyIgnoredSenders: addUnique(lists[core.KeyIgnoredSenders], email),
	}
	if m.promote {
		update[core.KeyWhitelistEmails] = addUnique(lists[core.KeyWhitelistEmails], email)
		if domain != "" {
			update[core.KeyWhitelistDomains] = addUnique(lists[core.KeyWhitelistDomains], domain)
		}
	}

	if err := m.store.Set(ctx, update); err != nil {
		return fmt.Errorf("failed to write trust lists: %w", err)
	}
	m.Invalidate()
	m.logger.Info("Sender added to ignore list", zap.String("sender", email))
	return nil
}

// RemoveIgnoredSender removes target, an email or a domain, from every user list.
func (m *Manager) RemoveIgnoredSender(ctx context.Context, target string) error {
	key := strings.ToLower(strings.TrimSpace(target))
	if key == "" {
		return nil
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	lists, err := m.store.Get(ctx, core.AllListKeys...)
	if err != nil {
		return fmt.Errorf("failed to read trust lists: %w", err)
	}

	update := make(core.TrustLists, len(core.AllListKeys))
	for _, k := range core.AllListKeys {
		update[k] = remove(lists[k], key)
	}

	if err := m.store.Set(ctx, update); err != nil {
		return fmt.Errorf("failed to write trust lists: %w", err)
	}
	m.Invalidate()
	m.logger.Info("Sender removed from trust lists", zap.String("target", key))
	return nil
}

// ClearIgnoredSenders empties the ignore list. Whitelists are left alone.
func (m *Manager) ClearIgnoredSenders(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.store.Set(ctx, core.TrustLists{core.KeyIgnoredSenders: {}}); err != nil {
		return fmt.Errorf("failed to clear ignore list: %w", err)
	}
	m.Invalidate()
	m.logger.Info("Ignore list cleared")
	return nil
}

// Invalidate drops the cached lists so the next check reads the store.
func (m *Manager) Invalidate() {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	m.cached = nil
	m.gen++
}

func (m *Manager) lists(ctx context.Context) (core.TrustLists, error) {
	var gen uint64
	if m.cacheTTL > 0 {
		m.cacheMu.RLock()
		cached, at := m.cached, m.cachedAt
		gen = m.gen
		m.cacheMu.RUnlock()
		if cached != nil && m.now().Sub(at) < m.cacheTTL {
			return cached, nil
		}
	}

	lists, err := m.store.Get(ctx, core.AllListKeys...)
	if err != nil {
		return nil, err
	}

	if m.cacheTTL > 0 {
		m.cacheMu.Lock()
		// An edit landed while reading; these lists may predate it.
		if m.gen == gen {
			m.cached, m.cachedAt = lists, m.now()
		}
		m.cacheMu.Unlock()
	}
	return lists, nil
}

func addUnique(list []string, value string) []string {
	out := make([]string, 0, len(list)+1)
	for _, s := range list {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || s == value {
			continue
		}
		out = append(out, s)
	}
	return append(out, value)
}

func remove(list []string, value string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && s != value {
			out = append(out, s)
		}
	}
	return out
}
