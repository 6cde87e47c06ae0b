package factory

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/deepscan"
	"github.com/mikey/phishguard/internal/adapters/deepscan/urlhaus"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/utils"
)

// DeepScanFactory creates the guarded deep scanner for the configured provider
type DeepScanFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	text   *utils.TextProcessor
	closer io.Closer
}

// NewDeepScanFactory creates a new deep scan factory
func NewDeepScanFactory(cfg *config.Config, logger *zap.Logger, text *utils.TextProcessor) *DeepScanFactory {
	return &DeepScanFactory{
		cfg:    cfg,
		logger: logger,
		text:   text,
	}
}

// CreateDeepScanner creates the deep scanner. It returns nil when deep scans
// are disabled.
func (f *DeepScanFactory) CreateDeepScanner(ctx context.Context) (core.DeepScanner, error) {
	dsCfg := f.cfg.GetDeepScan()
	if !dsCfg.Enabled {
		return nil, nil
	}

	prompts := deepscan.NewPromptBuilder(f.text, dsCfg.MaxBodySize, dsCfg.Minimal)

	var scanner core.DeepScanner
	var err error
	switch dsCfg.Provider {
	case "openai":
		scanner, err = NewOpenAIFactory(f.cfg, f.logger).CreateScanner(prompts)
	case "gemini":
		client, gerr := NewGeminiFactory(f.cfg, f.logger).CreateScanner(ctx, prompts)
		if gerr == nil {
			f.closer = client
		}
		scanner, err = client, gerr
	case "bedrock":
		scanner, err = NewBedrockFactory(f.cfg, f.logger).CreateScanner(ctx, prompts)
	case "urlhaus":
		urlhausCfg := f.cfg.GetURLhaus()
		scanner = urlhaus.NewClient(urlhausCfg.Endpoint, urlhausCfg.AuthKey, &http.Client{Timeout: dsCfg.Timeout}, f.logger)
	default:
		return nil, fmt.Errorf("unsupported deep scan provider: %s", dsCfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("Deep scan enabled",
		zap.String("provider", scanner.Name()),
		zap.Int("threshold", dsCfg.Threshold),
		zap.Bool("minimal", dsCfg.Minimal))

	return deepscan.NewGuard(scanner, deepscan.GuardConfig{
		Timeout:         dsCfg.Timeout,
		RatePerMinute:   dsCfg.RatePerMinute,
		BreakerFailures: dsCfg.BreakerFailures,
		BreakerTimeout:  dsCfg.BreakerTimeout,
	}, f.logger), nil
}

// Close releases provider clients that hold connections
func (f *DeepScanFactory) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
