package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/sqldb"
	"github.com/mikey/phishguard/internal/core"
)

func sampleVerdict() *core.Verdict {
	return &core.Verdict{
		Result:       core.AnalysisResult{Score: 42, Reasons: []string{"URL shortener: bit.ly"}},
		Mode:         core.ModeFull,
		Trust:        core.Untrusted(),
		Threshold:    50,
		RulesSource:  "builtin",
		ProcessingID: "abc",
		AnalyzedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

type clockedCache interface {
	core.ResultCache
	setNow(func() time.Time)
}

func (c *MemoryCache) setNow(f func() time.Time) { c.now = f }
func (c *SQLCache) setNow(f func() time.Time)    { c.now = f }

func runCacheContract(t *testing.T, c clockedCache) {
	ctx := context.Background()
	now := time.Now()
	c.setNow(func() time.Time { return now })

	_, err := c.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	want := sampleVerdict()
	require.NoError(t, c.Set(ctx, "k1", want))
	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, want.Result, got.Result)
	assert.Equal(t, want.ProcessingID, got.ProcessingID)
	assert.True(t, want.AnalyzedAt.Equal(got.AnalyzedAt))

	// overwrite
	updated := sampleVerdict()
	updated.Result.Score = 7
	require.NoError(t, c.Set(ctx, "k1", updated))
	got, err = c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Result.Score)

	require.NoError(t, c.Clear(ctx))
	_, err = c.Get(ctx, "k1")
	assert.Error(t, err)

	require.NoError(t, c.Set(ctx, "k2", sampleVerdict()))
	now = now.Add(2 * time.Hour)
	_, err = c.Get(ctx, "k2")
	assert.Error(t, err, "entry past its ttl is not served")
	require.NoError(t, c.Cleanup(ctx))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour, 0)
	defer c.Stop()
	runCacheContract(t, c)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(nil, time.Hour, 0)
	defer c.Stop()

	v := sampleVerdict()
	require.NoError(t, c.Set(ctx, "k", v))
	v.Result.Reasons[0] = "changed"

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	got.Result.Reasons[0] = "changed again"

	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"URL shortener: bit.ly"}, again.Result.Reasons)
}

func TestMemoryCache_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(nil, time.Minute, 0)
	defer c.Stop()
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", sampleVerdict()))
	now = now.Add(time.Minute)
	_, err := c.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrExpired))
}

func TestMemoryCache_StopTwice(t *testing.T) {
	c := NewMemoryCache(nil, time.Minute, time.Hour)
	c.Stop()
	assert.NotPanics(t, c.Stop)
}

func TestSQLCache(t *testing.T) {
	ctx := context.Background()
	db, err := sqldb.Open(ctx, sqldb.SQLite, ":memory:", zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	c, err := NewSQLCache(ctx, db, zap.NewNop(), time.Hour, 0)
	require.NoError(t, err)
	defer c.Stop()

	runCacheContract(t, c)
}

func TestSQLCache_KeyFitsColumn(t *testing.T) {
	email := core.EmailData{Subject: "x", Body: strings.Repeat("long body ", 1000)}
	for _, mode := range []core.Mode{core.ModeFull, core.ModeLight} {
		key := core.CacheKey(email, mode)
		assert.LessOrEqual(t, len(key), KeyColumnWidth, "mode %s", mode)
	}
}
