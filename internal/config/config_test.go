package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, PhishingConfig{Threshold: 40}, cfg.GetPhishing())
	assert.Equal(t, RulesConfig{Path: "", Watch: true}, cfg.GetRules())
	assert.Equal(t, "memory", cfg.GetStore().Type)
	assert.Equal(t, CacheConfig{Enabled: true, Type: "memory", TTL: 10 * time.Minute, CleanupFrequency: 5 * time.Minute}, cfg.GetCache())

	ds := cfg.GetDeepScan()
	assert.False(t, ds.Enabled)
	assert.Equal(t, 70, ds.Threshold)
	assert.Equal(t, 30*time.Second, ds.Timeout)
	assert.Equal(t, uint32(5), ds.BreakerFailures)
	assert.True(t, ds.Minimal)

	srv := cfg.GetServer()
	assert.Equal(t, HeadersConfig{Status: "X-Phish-Status", Score: "X-Phish-Score", Reasons: "X-Phish-Reasons", Trust: "X-Phish-Trust"}, srv.Headers)
	assert.Equal(t, 10026, srv.Relay.Port)

	assert.Equal(t, []string{"*"}, cfg.GetHTTP().AllowedOrigins)
	assert.Equal(t, "0.0.0.0:9102", cfg.GetMetrics().ListenAddress)
	assert.Equal(t, time.Duration(0), cfg.GetTrust().CacheTTL)
}

func TestBadDurationFallsBack(t *testing.T) {
	v := NewEmptyViper()
	v.Set("cache.ttl", "soon")
	assert.Equal(t, 10*time.Minute, NewFromViper(v).GetCache().TTL)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
phishing:
  threshold: 55
store:
  type: redis
  redis_addr: cache:6379
deep_scan:
  enabled: true
  provider: urlhaus
`), 0o600))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 55, cfg.GetPhishing().Threshold)
	assert.Equal(t, "redis", cfg.GetStore().Type)
	assert.Equal(t, "cache:6379", cfg.GetStore().RedisAddr)
	assert.Equal(t, "urlhaus", cfg.GetDeepScan().Provider)
	assert.Equal(t, "X-Phish-Score", cfg.GetServer().Headers.Score)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PHISHGUARD_PHISHING_THRESHOLD", "65")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("phishing:\n  threshold: 55\n"), 0o600))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 65, cfg.GetPhishing().Threshold)
}
