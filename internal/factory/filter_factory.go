package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/extract"
	"github.com/mikey/phishguard/internal/adapters/filter"
	"github.com/mikey/phishguard/internal/adapters/httpapi"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/ports"
	"github.com/mikey/phishguard/internal/rules"
	"github.com/mikey/phishguard/internal/trust"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger) *FilterFactory {
	return &FilterFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEmailFilter creates the front end named by server.filter_type
func (f *FilterFactory) CreateEmailFilter(
	svc *core.PhishingService,
	manager *trust.Manager,
	extractor *extract.Extractor,
	holder *rules.Holder,
) (ports.EmailFilter, error) {
	filterType := f.cfg.GetServer().FilterType

	switch filterType {
	case "postfix":
		return filter.NewPostfixFilter(svc, extractor, f.logger, f.cfg.GetServer()), nil
	case "http":
		return httpapi.NewServer(svc, manager, Status(holder), f.cfg.GetHTTP(), f.cfg.GetMetrics().Enabled, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", filterType)
	}
}
