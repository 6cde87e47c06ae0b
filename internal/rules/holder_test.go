package rules

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeRules(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadHolder_NoPathUsesDefaults(t *testing.T) {
	h := LoadHolder("", zap.NewNop())

	assert.Equal(t, "builtin", h.Get().Source())
	assert.NoError(t, h.Status())
}

func TestLoadHolder_MalformedFailsClosed(t *testing.T) {
	path := writeRules(t, t.TempDir(), "keywords: [unterminated")

	h := LoadHolder(path, zap.NewNop())

	assert.Equal(t, "empty", h.Get().Source())
	assert.Empty(t, h.Get().Keywords())
	assert.Error(t, h.Status())
}

func TestHolder_ReloadKeepsLastGoodOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeRules(t, dir, "trusted: [good.example]\n")

	h := LoadHolder(path, zap.NewNop())
	require.NoError(t, h.Status())
	good := h.Get()
	assert.True(t, good.IsTrusted("good.example"))

	writeRules(t, dir, "regexPatterns:\n  cta: '(broken'\n")
	err := h.Reload(path)

	assert.Error(t, err)
	assert.Error(t, h.Status())
	assert.Same(t, good, h.Get())

	writeRules(t, dir, "trusted: [better.example]\n")
	require.NoError(t, h.Reload(path))
	assert.NoError(t, h.Status())
	assert.True(t, h.Get().IsTrusted("better.example"))
}

func TestHolder_ReloadErrorNotifiesListeners(t *testing.T) {
	path := writeRules(t, t.TempDir(), "keywords: [unterminated")
	h := NewHolder(Default(), zap.NewNop())

	var failures []error
	h.OnReloadError(func(err error) { failures = append(failures, err) })

	assert.Error(t, h.Reload(path))
	require.Len(t, failures, 1)
	assert.Equal(t, h.Status(), failures[0])
}

func TestHolder_SwapNotifiesListeners(t *testing.T) {
	h := NewHolder(nil, nil)
	assert.Equal(t, "empty", h.Get().Source())

	var got []*RuleSet
	h.OnSwap(func(rs *RuleSet) { got = append(got, rs) })

	next := Default()
	h.Swap(next)
	h.Swap(nil)

	require.Len(t, got, 1)
	assert.Same(t, next, got[0])
	assert.Same(t, next, h.Get())
}

func TestHolder_ConcurrentReadersSeeWholeRuleSets(t *testing.T) {
	h := NewHolder(Empty(), zap.NewNop())
	def := Default()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				rs := h.Get()
				// either the empty or the default set, never a mix
				if rs.Source() == "builtin" {
					assert.NotEmpty(t, rs.Keywords())
				} else {
					assert.Empty(t, rs.Keywords())
				}
			}
		}()
	}
	for j := 0; j < 50; j++ {
		if j%2 == 0 {
			h.Swap(def)
		} else {
			h.Swap(Empty())
		}
	}
	wg.Wait()
}
