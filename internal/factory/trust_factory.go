package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/trust"
	"github.com/mikey/phishguard/internal/whitelist"
)

// TrustFactory creates the global trusted-sender base and the trust manager
type TrustFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTrustFactory creates a new trust factory
func NewTrustFactory(cfg *config.Config, logger *zap.Logger) *TrustFactory {
	return &TrustFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateBase loads the global trusted senders
func (f *TrustFactory) CreateBase() (*whitelist.Base, error) {
	trustCfg := f.cfg.GetTrust()
	return whitelist.Load(trustCfg.GlobalPath, trustCfg.GlobalEmails, trustCfg.GlobalDomains, f.logger)
}

// CreateManager creates the trust manager over store
func (f *TrustFactory) CreateManager(store core.TrustStore, base *whitelist.Base) *trust.Manager {
	trustCfg := f.cfg.GetTrust()
	return trust.NewManager(store, base, f.logger,
		trust.WithCacheTTL(trustCfg.CacheTTL),
		trust.WithIgnorePromotesWhitelist(trustCfg.IgnorePromotesWhitelist),
	)
}
