package factory

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/detection"
	"github.com/mikey/phishguard/internal/metrics"
	"github.com/mikey/phishguard/internal/rules"
)

// ServiceFactory assembles the analyzer and the phishing service
type ServiceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(cfg *config.Config, logger *zap.Logger) *ServiceFactory {
	return &ServiceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateAnalyzer creates the detector pipeline reading rules from holder
func (f *ServiceFactory) CreateAnalyzer(holder *rules.Holder) *detection.Analyzer {
	return detection.NewAnalyzer(holder, f.logger,
		detection.WithParallel(f.cfg.GetPhishing().Parallel),
		detection.WithFindingObserver(metrics.ObserveFinding),
	)
}

// CreateService creates the phishing service. cache and scanner may be nil.
// Cached verdicts are dropped whenever the rules change.
func (f *ServiceFactory) CreateService(
	scorer core.Scorer,
	trust core.TrustChecker,
	holder *rules.Holder,
	cache core.ResultCache,
	scanner core.DeepScanner,
) *core.PhishingService {
	dsCfg := f.cfg.GetDeepScan()
	opts := []core.ServiceOption{
		core.WithRulesStatus(Status(holder)),
		core.WithRecorder(metrics.NewRecorder()),
	}
	if cache != nil {
		opts = append(opts, core.WithResultCache(cache))
	}
	if scanner != nil {
		opts = append(opts, core.WithDeepScanner(scanner))
	}

	svc := core.NewPhishingService(scorer, trust, f.logger, core.ServiceConfig{
		Threshold:         f.cfg.GetPhishing().Threshold,
		CacheEnabled:      cache != nil,
		DeepScanEnabled:   scanner != nil,
		DeepScanThreshold: dsCfg.Threshold,
	}, opts...)

	if cache != nil {
		holder.OnSwap(func(*rules.RuleSet) {
			if err := svc.ClearCache(context.Background()); err != nil {
				f.logger.Warn("Failed to clear result cache after rules reload", zap.Error(err))
			}
		})
	}
	return svc
}
