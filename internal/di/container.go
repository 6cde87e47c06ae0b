package di

import (
	"context"

	"go.uber.org/dig"

	"github.com/mikey/phishguard/internal/adapters/extract"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/detection"
	"github.com/mikey/phishguard/internal/factory"
	"github.com/mikey/phishguard/internal/logging"
	"github.com/mikey/phishguard/internal/ports"
	"github.com/mikey/phishguard/internal/rules"
	"github.com/mikey/phishguard/internal/trust"
	"github.com/mikey/phishguard/internal/utils"
	"github.com/mikey/phishguard/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideService(container); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(
		f *factory.FilterFactory,
		svc *core.PhishingService,
		manager *trust.Manager,
		extractor *extract.Extractor,
		holder *rules.Holder,
	) (ports.EmailFilter, error) {
		return f.CreateEmailFilter(svc, manager, extractor, holder)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideService registers everything from the factories down to the
// phishing service. Config and logger are provided by the caller.
func provideService(container *dig.Container) error {
	// Register factories
	for _, ctor := range []any{
		factory.NewTextProcessorFactory,
		factory.NewRulesFactory,
		factory.NewTrustFactory,
		factory.NewStoreFactory,
		factory.NewCacheFactory,
		factory.NewDeepScanFactory,
		factory.NewServiceFactory,
		factory.NewFilterFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return err
		}
	}

	// Register text processing
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.TextProcessorFactory, text *utils.TextProcessor) *extract.Extractor {
		return f.CreateExtractor(text)
	}); err != nil {
		return err
	}

	// Register rules
	if err := container.Provide(func(f *factory.RulesFactory) *rules.Holder {
		return f.CreateHolder()
	}); err != nil {
		return err
	}

	// Register trust
	if err := container.Provide(func(f *factory.TrustFactory) (*whitelist.Base, error) {
		return f.CreateBase()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.StoreFactory) (core.TrustStore, error) {
		return f.CreateTrustStore(context.Background())
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.TrustFactory, store core.TrustStore, base *whitelist.Base) *trust.Manager {
		return f.CreateManager(store, base)
	}); err != nil {
		return err
	}

	// Register scoring collaborators
	if err := container.Provide(func(f *factory.ServiceFactory, holder *rules.Holder) *detection.Analyzer {
		return f.CreateAnalyzer(holder)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.CacheFactory) (factory.ResultCache, error) {
		return f.CreateResultCache(context.Background())
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.DeepScanFactory) (core.DeepScanner, error) {
		return f.CreateDeepScanner(context.Background())
	}); err != nil {
		return err
	}

	// Register phishing service
	return container.Provide(func(
		f *factory.ServiceFactory,
		analyzer *detection.Analyzer,
		manager *trust.Manager,
		holder *rules.Holder,
		cache factory.ResultCache,
		scanner core.DeepScanner,
	) *core.PhishingService {
		var rc core.ResultCache
		if cache != nil {
			rc = cache
		}
		return f.CreateService(analyzer, manager, holder, rc, scanner)
	})
}
