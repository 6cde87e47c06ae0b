package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/extract"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/utils"
)

// TextProcessorFactory creates text processors and the MIME extractor
// built on them
type TextProcessorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreateExtractor creates the MIME extractor used by the mail front ends
func (f *TextProcessorFactory) CreateExtractor(text *utils.TextProcessor) *extract.Extractor {
	return extract.NewExtractor(f.logger, text, f.cfg.GetServer().MaxBodySize)
}
