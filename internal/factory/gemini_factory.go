package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/deepscan"
	"github.com/mikey/phishguard/internal/adapters/deepscan/gemini"
	"github.com/mikey/phishguard/internal/config"
)

// GeminiFactory creates Gemini deep scanners
type GeminiFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger) *GeminiFactory {
	return &GeminiFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateScanner creates a Gemini deep scanner. The caller closes it.
func (f *GeminiFactory) CreateScanner(ctx context.Context, prompts *deepscan.PromptBuilder) (*gemini.GeminiClient, error) {
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	return gemini.NewGeminiClient(
		ctx,
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		prompts,
		f.logger,
	)
}
