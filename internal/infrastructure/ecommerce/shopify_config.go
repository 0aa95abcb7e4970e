package ecommerce

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/config"
)

const (
	// ShopifyDefaultEndpointTemplate is the Admin REST API base; {store} and
	// {version} are substituted per adapter
	ShopifyDefaultEndpointTemplate = "https://{store}/admin/api/{version}"
	// ShopifyDefaultAPIVersion is the pinned Admin API version
	ShopifyDefaultAPIVersion = "2024-01"
	// ShopifyMaxPageSize is the largest page Shopify serves
	ShopifyMaxPageSize = 250

	// DefaultMaxCatalogItems caps one catalog pull
	DefaultMaxCatalogItems = 1000
	// DefaultConnectTimeout bounds TestConnection
	DefaultConnectTimeout = 5 * time.Second
	// DefaultRequestTimeout bounds every other request
	DefaultRequestTimeout = 30 * time.Second
	// DefaultMaxResponseSize limits how much of a response body is read (10MB)
	DefaultMaxResponseSize = 10 * 1024 * 1024

	shopifyAccessTokenHeader = "X-Shopify-Access-Token"
)

// Errors for Shopify configuration
var (
	ErrShopifyConfigEndpointTemplate = errors.New("shopify: endpoint template must contain {store}")
	ErrShopifyConfigAPIVersion       = errors.New("shopify: api version is required")
)

// ShopifyConfig holds process-wide settings shared by every Shopify adapter.
// Per-store values (store host, access token) come from the credentials.
type ShopifyConfig struct {
	// EndpointTemplate is the API base with {store} and {version} placeholders
	EndpointTemplate string
	// APIVersion replaces {version}
	APIVersion string
	// PageSize is the products.json page limit (1..250)
	PageSize int
	// MaxItems is the hard cap per catalog pull
	MaxItems int
	// ConnectTimeout bounds the connection probe
	ConnectTimeout time.Duration
	// RequestTimeout bounds a single HTTP round trip
	RequestTimeout time.Duration
	// RateLimit is requests per second per store; zero disables throttling
	RateLimit float64
	// RateBurst is the limiter bucket size
	RateBurst int
	// MaxResponseSize caps a response body in bytes
	MaxResponseSize int64
	// AllowPrivateNetworks disables the SSRF guard (local development and tests)
	AllowPrivateNetworks bool
}

// DefaultShopifyConfig returns the documented defaults
func DefaultShopifyConfig() ShopifyConfig {
	return ShopifyConfig{
		EndpointTemplate: ShopifyDefaultEndpointTemplate,
		APIVersion:       ShopifyDefaultAPIVersion,
		PageSize:         ShopifyMaxPageSize,
		MaxItems:         DefaultMaxCatalogItems,
		ConnectTimeout:   DefaultConnectTimeout,
		RequestTimeout:   DefaultRequestTimeout,
		RateLimit:        2,
		RateBurst:        4,
		MaxResponseSize:  DefaultMaxResponseSize,
	}
}

// ShopifyConfigFrom maps the [shopify] config section. Zero values are
// filled by Validate.
func ShopifyConfigFrom(cfg config.ShopifyConfig) ShopifyConfig {
	return ShopifyConfig{
		EndpointTemplate:     cfg.EndpointTemplate,
		APIVersion:           cfg.APIVersion,
		PageSize:             cfg.PageSize,
		MaxItems:             cfg.MaxItems,
		ConnectTimeout:       cfg.ConnectTimeout,
		RequestTimeout:       cfg.RequestTimeout,
		RateLimit:            cfg.RateLimit,
		RateBurst:            cfg.RateBurst,
		MaxResponseSize:      cfg.MaxResponseSize,
		AllowPrivateNetworks: cfg.AllowPrivateNetworks,
	}
}

// Validate fills zero values with defaults and rejects unusable settings
func (c *ShopifyConfig) Validate() error {
	if c.EndpointTemplate == "" {
		c.EndpointTemplate = ShopifyDefaultEndpointTemplate
	}
	if !strings.Contains(c.EndpointTemplate, "{store}") {
		return ErrShopifyConfigEndpointTemplate
	}
	if strings.Contains(c.EndpointTemplate, "{version}") && c.APIVersion == "" {
		c.APIVersion = ShopifyDefaultAPIVersion
	}
	if strings.TrimSpace(c.APIVersion) == "" {
		return ErrShopifyConfigAPIVersion
	}
	if c.PageSize <= 0 || c.PageSize > ShopifyMaxPageSize {
		c.PageSize = ShopifyMaxPageSize
	}
	if c.MaxItems <= 0 {
		c.MaxItems = DefaultMaxCatalogItems
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	if c.MaxResponseSize <= 0 {
		c.MaxResponseSize = DefaultMaxResponseSize
	}
	return nil
}

// BaseURL expands the endpoint template for a store host
func (c *ShopifyConfig) BaseURL(storeHost string) (*url.URL, error) {
	raw := strings.NewReplacer("{store}", storeHost, "{version}", c.APIVersion).Replace(c.EndpointTemplate)
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("shopify: endpoint is not an absolute URL")
	}
	return u, nil
}

// shopifyCredentials are the per-store fields an adapter needs
type shopifyCredentials struct {
	storeHost   string
	accessToken string
}

// parseShopifyCredentials validates the raw credential map. store_url may be
// given with or without scheme and trailing slash.
func parseShopifyCredentials(creds integration.Credentials) (*shopifyCredentials, error) {
	storeURL := creds.Get("store_url")
	if storeURL == "" {
		return nil, integration.NewValidationError("store_url", "is required")
	}
	token := creds.Get("access_token")
	if token == "" {
		return nil, integration.NewValidationError("access_token", "is required")
	}

	host, err := normalizeStoreHost(storeURL)
	if err != nil {
		return nil, integration.NewValidationError("store_url", "is not a valid host")
	}
	return &shopifyCredentials{storeHost: host, accessToken: token}, nil
}

// normalizeStoreHost strips scheme, path and trailing slashes and lowercases
// the host
func normalizeStoreHost(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" || u.User != nil {
		return "", errors.New("missing host")
	}
	return strings.ToLower(u.Host), nil
}
