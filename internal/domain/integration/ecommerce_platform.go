package integration

import (
	"context"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// PlatformCode represents the type of e-commerce platform
// ---------------------------------------------------------------------------

// PlatformCode represents the type of e-commerce platform
type PlatformCode string

const (
	// PlatformCodeShopify represents the Shopify Admin REST API
	PlatformCodeShopify PlatformCode = "shopify"
)

// ParsePlatformCode normalizes a caller-supplied platform tag.
// It does not check the tag against the registry.
func ParsePlatformCode(s string) PlatformCode {
	return PlatformCode(strings.ToLower(strings.TrimSpace(s)))
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c PlatformCode) DisplayName() string {
	switch c {
	case PlatformCodeShopify:
		return "Shopify"
	default:
		return string(c)
	}
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials holds the raw credential fields a caller supplies for a platform
// (for Shopify: store_url and access_token). Plaintext credentials only live in
// memory; at rest they are always sealed by a CredentialVault.
type Credentials map[string]string

// Get returns the trimmed value for key
func (c Credentials) Get(key string) string {
	return strings.TrimSpace(c[key])
}

// Clone returns a copy that can be modified without touching the original
func (c Credentials) Clone() Credentials {
	out := make(Credentials, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// ---------------------------------------------------------------------------
// Adapter value objects
// ---------------------------------------------------------------------------

// ConnectionResult is returned by a successful platform handshake
type ConnectionResult struct {
	// ExternalStoreID is the platform's own identifier for the store
	ExternalStoreID string
	// StoreName is the display name reported by the platform
	StoreName string
	// StoreURL is the canonical store URL reported by the platform
	StoreURL string
}

// ConnectionCheck is the outcome of a reachability probe
type ConnectionCheck struct {
	OK      bool
	Message string
	Latency time.Duration
}

// FetchOptions controls one catalog pull
type FetchOptions struct {
	// PageSize is the number of items requested per page (0 = adapter default)
	PageSize int
	// MaxItems is the hard upper bound of items returned (0 = adapter default)
	MaxItems int
}

// ProductUpdate is the partial field set pushed back to a platform.
// Nil fields are left untouched on the platform.
type ProductUpdate struct {
	Tags   []string
	Title  *string
	Status *string
}

// IsEmpty returns true if the update carries no field
func (u ProductUpdate) IsEmpty() bool {
	return u.Tags == nil && u.Title == nil && u.Status == nil
}

// ---------------------------------------------------------------------------
// PlatformAdapter Port Interface
// ---------------------------------------------------------------------------

// PlatformAdapter defines the port for one e-commerce platform.
// An adapter instance is bound to a single credential set; use the Registry to
// construct one. Every variant implements the full capability set.
type PlatformAdapter interface {
	// Platform returns the platform code this adapter serves
	Platform() PlatformCode

	// Connect performs a live handshake and returns the platform's view of the store.
	// It never persists anything. Fails with *ConnectionError.
	Connect(ctx context.Context) (*ConnectionResult, error)

	// TestConnection is a lightweight, bounded reachability probe. It never fails;
	// problems are reported through ConnectionCheck.Message.
	TestConnection(ctx context.Context) ConnectionCheck

	// FetchCatalog walks the paginated product listing. The result never exceeds
	// the effective MaxItems. A failure after at least one page returns the items
	// collected so far with a nil error.
	FetchCatalog(ctx context.Context, opts FetchOptions) ([]CanonicalProduct, error)

	// UpdateProduct pushes a partial field set and returns the re-normalized product.
	// Fails with *UpdateError.
	UpdateProduct(ctx context.Context, productID string, update ProductUpdate) (*CanonicalProduct, error)

	// Normalize maps one platform-native product record to the canonical model.
	// It is pure and only fails when raw is not a decodable record.
	Normalize(raw []byte) (*CanonicalProduct, error)
}

// ---------------------------------------------------------------------------
// CredentialVault Port Interface
// ---------------------------------------------------------------------------

// CredentialVault seals platform credentials for storage and opens them again.
// The sealed form is opaque outside the vault implementation.
type CredentialVault interface {
	// Seal encrypts credentials with a fresh nonce
	Seal(ctx context.Context, creds Credentials) ([]byte, error)
	// Open verifies and decrypts a sealed envelope. Fails closed with
	// *CredentialDecryptionError.
	Open(ctx context.Context, envelope []byte) (Credentials, error)
}
