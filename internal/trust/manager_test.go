package trust

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/store"
	"github.com/mikey/phishguard/internal/core"
)

type failingStore struct{}

func (failingStore) Get(context.Context, ...core.ListKey) (core.TrustLists, error) {
	return nil, store.ErrUnavailable
}

func (failingStore) Set(context.Context, core.TrustLists) error {
	return store.ErrUnavailable
}

type countingStore struct {
	*store.MemoryStore
	mu   sync.Mutex
	gets int
}

func (c *countingStore) Get(ctx context.Context, keys ...core.ListKey) (core.TrustLists, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.MemoryStore.Get(ctx, keys...)
}

func TestManager_CheckStoreUnavailable(t *testing.T) {
	m := NewManager(failingStore{}, nil, zap.NewNop())
	assert.Equal(t, core.Untrusted(), m.Check(context.Background(), "a@b.example"))
}

func TestManager_AddIgnoredSender(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(nil)
	m := NewManager(s, nil, zap.NewNop())

	require.NoError(t, m.AddIgnoredSender(ctx, " News@Shop.example "))
	require.NoError(t, m.AddIgnoredSender(ctx, "news@shop.example"))

	lists, err := m.UserLists(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"news@shop.example"}, lists[core.KeyIgnoredSenders])
	assert.Empty(t, lists[core.KeyWhitelistEmails])
	assert.Empty(t, lists[core.KeyWhitelistDomains])

	got := m.Check(ctx, "news@shop.example")
	assert.Equal(t, core.TrustDecision{Trusted: true, Source: core.SourceIgnoredList, Level: core.LevelUser}, got)

	err = m.AddIgnoredSender(ctx, "not-an-address")
	assert.True(t, errors.Is(err, ErrInvalidSender))
}

func TestManager_AddIgnoredSenderPromotes(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore(nil), nil, nil, WithIgnorePromotesWhitelist(true))

	require.NoError(t, m.AddIgnoredSender(ctx, "news@shop.example"))

	lists, err := m.UserLists(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"news@shop.example"}, lists[core.KeyIgnoredSenders])
	assert.Equal(t, []string{"news@shop.example"}, lists[core.KeyWhitelistEmails])
	assert.Equal(t, []string{"shop.example"}, lists[core.KeyWhitelistDomains])

	assert.Equal(t, core.LevelEmail, m.Check(ctx, "news@shop.example").Level)
	assert.Equal(t, core.LevelDomain, m.Check(ctx, "other@shop.example").Level)
}

func TestManager_RemoveIgnoredSender(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(nil)
	require.NoError(t, s.Set(ctx, core.TrustLists{
		core.KeyWhitelistEmails:  {"a@shop.example", "keep@x.example"},
		core.KeyWhitelistDomains: {"shop.example"},
		core.KeyIgnoredSenders:   {"a@shop.example"},
	}))
	m := NewManager(s, nil, nil)

	require.NoError(t, m.RemoveIgnoredSender(ctx, "A@shop.example"))
	lists, err := m.UserLists(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep@x.example"}, lists[core.KeyWhitelistEmails])
	assert.Equal(t, []string{"shop.example"}, lists[core.KeyWhitelistDomains])
	assert.Empty(t, lists[core.KeyIgnoredSenders])

	require.NoError(t, m.RemoveIgnoredSender(ctx, "shop.example"))
	lists, err = m.UserLists(ctx)
	require.NoError(t, err)
	assert.Empty(t, lists[core.KeyWhitelistDomains])

	assert.NoError(t, m.RemoveIgnoredSender(ctx, "  "))
}

func TestManager_ClearIgnoredSenders(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(nil)
	require.NoError(t, s.Set(ctx, core.TrustLists{
		core.KeyWhitelistEmails: {"keep@x.example"},
		core.KeyIgnoredSenders:  {"a@x.example", "b@x.example"},
	}))
	m := NewManager(s, nil, nil)

	require.NoError(t, m.ClearIgnoredSenders(ctx))

	lists, err := m.UserLists(ctx)
	require.NoError(t, err)
	assert.Empty(t, lists[core.KeyIgnoredSenders])
	assert.Equal(t, []string{"keep@x.example"}, lists[core.KeyWhitelistEmails])
}

func TestManager_WritesFailWhenStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	m := NewManager(failingStore{}, nil, nil)

	assert.ErrorIs(t, m.AddIgnoredSender(ctx, "a@b.example"), store.ErrUnavailable)
	assert.ErrorIs(t, m.RemoveIgnoredSender(ctx, "a@b.example"), store.ErrUnavailable)
	assert.ErrorIs(t, m.ClearIgnoredSenders(ctx), store.ErrUnavailable)
	_, err := m.UserLists(ctx)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestManager_CacheInvalidatedOnWrite(t *testing.T) {
	ctx := context.Background()
	cs := &countingStore{MemoryStore: store.NewMemoryStore(nil)}
	m := NewManager(cs, nil, nil, WithCacheTTL(time.Hour))

	assert.False(t, m.Check(ctx, "a@b.example").Trusted)
	assert.False(t, m.Check(ctx, "a@b.example").Trusted)
	assert.Equal(t, 1, cs.gets, "second check served from cache")

	require.NoError(t, m.AddIgnoredSender(ctx, "a@b.example"))
	assert.True(t, m.Check(ctx, "a@b.example").Trusted, "write invalidates the cache")
}

type hookedStore struct {
	*countingStore
	onGet func()
}

func (h *hookedStore) Get(ctx context.Context, keys ...core.ListKey) (core.TrustLists, error) {
	lists, err := h.countingStore.Get(ctx, keys...)
	if h.onGet != nil {
		h.onGet()
	}
	return lists, err
}

func TestManager_StaleReadNotCachedAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	hs := &hookedStore{countingStore: &countingStore{MemoryStore: store.NewMemoryStore(nil)}}
	m := NewManager(hs, nil, nil, WithCacheTTL(time.Hour))

	// an edit lands between the store read and the cache fill
	hs.onGet = func() {
		hs.onGet = nil
		require.NoError(t, hs.MemoryStore.Set(ctx, core.TrustLists{core.KeyIgnoredSenders: {"a@b.example"}}))
		m.Invalidate()
	}

	assert.False(t, m.Check(ctx, "a@b.example").Trusted)
	assert.True(t, m.Check(ctx, "a@b.example").Trusted, "pre-edit lists must not be cached")
	assert.Equal(t, 2, hs.gets)

	assert.True(t, m.Check(ctx, "a@b.example").Trusted)
	assert.Equal(t, 2, hs.gets, "later reads are cached again")
}

func TestManager_CacheExpires(t *testing.T) {
	ctx := context.Background()
	cs := &countingStore{MemoryStore: store.NewMemoryStore(nil)}
	m := NewManager(cs, nil, nil, WithCacheTTL(time.Minute))
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Check(ctx, "a@b.example")
	now = now.Add(2 * time.Minute)
	m.Check(ctx, "a@b.example")

	assert.Equal(t, 2, cs.gets)
}

func TestManager_ConcurrentAddsKeepStoreShape(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(nil)
	m := NewManager(s, nil, nil)

	var wg sync.WaitGroup
	senders := []string{"a@x.example", "b@x.example", "c@x.example", "d@x.example"}
	for _, sender := range senders {
		wg.Add(1)
		go func(sender string) {
			defer wg.Done()
			assert.NoError(t, m.AddIgnoredSender(ctx, sender))
		}(sender)
	}
	wg.Wait()

	lists, err := m.UserLists(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, senders, lists[core.KeyIgnoredSenders])
}
