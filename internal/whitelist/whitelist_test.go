package whitelist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewBase(t *testing.T) {
	b := NewBase([]string{" Alerts@Bank.example ", ""}, []string{"GitHub.com"}, zap.NewNop())

	assert.True(t, b.HasEmail("alerts@bank.example"))
	assert.True(t, b.HasEmail("ALERTS@bank.example"))
	assert.True(t, b.HasDomain("github.com"))
	assert.False(t, b.HasDomain("example.org"))
	assert.Equal(t, 2, b.Size())
	assert.Equal(t, []string{"alerts@bank.example"}, b.Emails())
	assert.Equal(t, []string{"github.com"}, b.Domains())
}

func TestNilBase(t *testing.T) {
	var b *Base
	assert.False(t, b.HasEmail("a@b.c"))
	assert.False(t, b.HasDomain("b.c"))
	assert.Equal(t, 0, b.Size())
	assert.Empty(t, b.Emails())
	assert.Empty(t, b.Domains())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trusted_senders.json")
	content := `{
  "emails": ["noreply@github.com"],
  "domains": {
    "banks": ["bank.example"],
    "dev": ["gitlab.com"]
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	b, err := Load(path, []string{"ops@example.org"}, []string{"example.org"}, nil)
	require.NoError(t, err)

	assert.True(t, b.HasEmail("noreply@github.com"))
	assert.True(t, b.HasEmail("ops@example.org"))
	assert.True(t, b.HasDomain("bank.example"))
	assert.True(t, b.HasDomain("gitlab.com"))
	assert.True(t, b.HasDomain("example.org"))
}

func TestLoad_NoPath(t *testing.T) {
	b, err := Load("", nil, []string{"example.org"}, nil)
	require.NoError(t, err)
	assert.True(t, b.HasDomain("example.org"))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), nil, nil, nil)
	assert.Error(t, err)
}
