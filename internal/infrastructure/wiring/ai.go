package wiring

import (
	"github.com/felixgeelhaar/critique/internal/infrastructure/config"
	infraai "github.com/felixgeelhaar/critique/pkg/ai"
	domainai "github.com/felixgeelhaar/critique/pkg/domain/ai"
)

func LoadAIProvider(root string) (domainai.Provider, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return ProviderFromConfig(cfg)
}

// ProviderFromConfig builds the configured backend wrapped with retry and timeout.
func ProviderFromConfig(cfg *config.Config) (domainai.Provider, error) {
	resilienceConfig := infraai.DefaultResilienceConfig()
	if cfg.MaxRetries > 0 {
		resilienceConfig.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryDelayMs > 0 {
		resilienceConfig.RetryDelay = cfg.RetryDelay()
	}
	if cfg.TimeoutSec > 0 {
		resilienceConfig.Timeout = cfg.Timeout()
	}

	baseProvider, err := infraai.NewProvider(cfg.Provider, cfg.Model)
	if err != nil {
		return nil, err
	}

	return infraai.NewResilientProviderWithConfig(baseProvider, resilienceConfig), nil
}
