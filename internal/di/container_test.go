package di

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/filter"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/trust"
)

func TestBuildCLIContainer_Defaults(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{Threshold: 30})
	require.NoError(t, err)

	err = container.Invoke(func(svc *core.PhishingService, manager *trust.Manager, cfg *config.Config) {
		assert.Equal(t, 30, svc.Threshold())
		assert.False(t, cfg.GetCache().Enabled)

		v, err := svc.Analyze(context.Background(), core.EmailData{
			Subject: "URGENT: verify your password",
			Sender:  "security@paypa1.com",
			Body:    "Click here http://bit.ly/x",
			Links:   []string{"http://bit.ly/x"},
		})
		require.NoError(t, err)
		assert.True(t, v.Flagged)
		assert.Equal(t, core.ModeFull, v.Mode)
		assert.Equal(t, "builtin", v.RulesSource)

		require.NoError(t, manager.AddIgnoredSender(context.Background(), "security@paypa1.com"))
		assert.True(t, manager.Check(context.Background(), "security@paypa1.com").Trusted)
	})
	require.NoError(t, err)
}

func TestBuildCLIContainer_CliFilter(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{JSONOutput: true})
	require.NoError(t, err)

	err = container.Invoke(func(f *filter.CliFilter) {
		var buf bytes.Buffer
		filter.WithOutput(&buf)(f)

		v, err := f.ProcessEmail(context.Background(), &core.EmailData{Subject: "hello"})
		require.NoError(t, err)
		assert.False(t, v.Flagged)
		assert.Contains(t, buf.String(), `"flagged": false`)
	})
	require.NoError(t, err)
}

func TestBuildCLIContainer_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "phishing:\n  threshold: 55\nstore:\n  type: sqlite\n  sqlite_path: " + filepath.Join(dir, "db", "trust.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	container, err := BuildCLIContainer(&CLIFlags{ConfigFile: path})
	require.NoError(t, err)

	err = container.Invoke(func(svc *core.PhishingService, manager *trust.Manager, logger *zap.Logger) {
		assert.Equal(t, 55, svc.Threshold())
		require.NoError(t, manager.AddIgnoredSender(context.Background(), "news@shop.example"))
		lists, err := manager.UserLists(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"news@shop.example"}, lists[core.KeyIgnoredSenders])
	})
	require.NoError(t, err)
}

func TestBuildCLIContainer_MissingConfigFile(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	require.NoError(t, err)

	err = container.Invoke(func(*core.PhishingService) {})
	assert.Error(t, err)
}
