package ecommerce

import (
	"go.uber.org/zap"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
)

// RegistryConfig carries per-platform settings for NewPlatformRegistry
type RegistryConfig struct {
	Shopify ShopifyConfig
}

// NewPlatformRegistry registers every supported platform. Adapters built by
// the registry share one outbound HTTP client per platform.
func NewPlatformRegistry(cfg RegistryConfig, logger *zap.Logger, observer RequestObserver) (*integration.Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	shopifyConfig := cfg.Shopify
	if err := shopifyConfig.Validate(); err != nil {
		return nil, err
	}
	shopifyClient := NewShopifyHTTPClient(shopifyConfig)

	registry := integration.NewRegistry().
		Register(integration.PlatformCodeShopify, ShopifyFactory(shopifyConfig,
			WithHTTPClient(shopifyClient),
			WithLogger(logger),
			WithRequestObserver(observer),
		))

	return registry, nil
}

// ShopifyFactory returns an AdapterFactory bound to config and opts
func ShopifyFactory(config ShopifyConfig, opts ...ShopifyOption) integration.AdapterFactory {
	return func(creds integration.Credentials) (integration.PlatformAdapter, error) {
		return NewShopifyAdapter(config, creds, opts...)
	}
}
