package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/filter"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/logging"
)

// CLIFlags contains the global command line flags of phish-scan
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool
	JSONOutput bool
	Threshold  int
	DeepScan   bool
	Light      bool
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		return cliConfig(flags, logger)
	}); err != nil {
		return nil, err
	}

	if err := provideService(container); err != nil {
		return nil, err
	}

	// Register CLI filter
	if err := container.Provide(func(svc *core.PhishingService, logger *zap.Logger, flags *CLIFlags) *filter.CliFilter {
		opts := []filter.CliOption{filter.WithJSON(flags.JSONOutput)}
		if flags.Light {
			opts = append(opts, filter.WithMode(core.ModeLight))
		}
		return filter.NewCliFilter(svc, logger, flags.Verbose, opts...)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// cliConfig loads the config file when one is given, otherwise defaults,
// then applies the flags. One-shot runs never cache verdicts.
func cliConfig(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	if flags.ConfigFile != "" {
		loaded, err := config.NewFromFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded configuration from file", zap.String("file", loaded.GetViper().ConfigFileUsed()))
		cfg = loaded
	} else {
		cfg = config.NewFromViper(config.NewEmptyViper())
	}

	v := cfg.GetViper()
	v.Set("cache.enabled", false)
	v.Set("rules.watch", false)
	if flags.Threshold > 0 {
		v.Set("phishing.threshold", flags.Threshold)
	}
	if flags.DeepScan {
		v.Set("deep_scan.enabled", true)
	}
	return cfg, nil
}
