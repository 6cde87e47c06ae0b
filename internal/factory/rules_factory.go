package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/metrics"
	"github.com/mikey/phishguard/internal/rules"
)

// RulesFactory loads the rule document into a holder
type RulesFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRulesFactory creates a new rules factory
func NewRulesFactory(cfg *config.Config, logger *zap.Logger) *RulesFactory {
	return &RulesFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateHolder loads the configured rules and records reload outcomes
func (f *RulesFactory) CreateHolder() *rules.Holder {
	h := rules.LoadHolder(f.cfg.GetRules().Path, f.logger)
	metrics.RecordRulesReload(h.Status() == nil, h.Status() != nil)

	h.OnSwap(func(*rules.RuleSet) {
		metrics.RecordRulesReload(true, false)
	})
	h.OnReloadError(func(error) {
		metrics.RecordRulesReload(false, degraded(h))
	})
	return h
}

// StartWatching reloads the rules file on change when enabled
func (f *RulesFactory) StartWatching(h *rules.Holder) error {
	rulesCfg := f.cfg.GetRules()
	if rulesCfg.Path == "" || !rulesCfg.Watch {
		return nil
	}
	f.logger.Info("Watching rules file", zap.String("path", rulesCfg.Path))
	return h.Watch(rulesCfg.Path)
}

// Status reports the active rule source and whether scoring runs on the
// empty rule set because no document could be loaded
func Status(h *rules.Holder) core.RulesStatus {
	return func() (string, bool) {
		return h.Get().Source(), degraded(h)
	}
}

func degraded(h *rules.Holder) bool {
	return h.Status() != nil && h.Get().Source() == "empty"
}
