package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/telemetry"
)

// ErrResponseTooLarge is returned when a response body exceeds MaxResponseSize
var ErrResponseTooLarge = errors.New("shopify: response exceeds size limit")

// RequestObserver receives one call per outbound platform request
type RequestObserver interface {
	ObservePlatformRequest(platform, operation, outcome string, duration time.Duration)
}

// ShopifyOption configures a ShopifyAdapter
type ShopifyOption func(*ShopifyAdapter)

// WithHTTPClient overrides the outbound client
func WithHTTPClient(client *http.Client) ShopifyOption {
	return func(a *ShopifyAdapter) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// WithLogger sets the adapter logger
func WithLogger(logger *zap.Logger) ShopifyOption {
	return func(a *ShopifyAdapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRequestObserver reports every request to o
func WithRequestObserver(o RequestObserver) ShopifyOption {
	return func(a *ShopifyAdapter) {
		a.observer = o
	}
}

// ShopifyAdapter implements integration.PlatformAdapter against the Shopify
// Admin REST API. One instance is bound to one store's credentials.
type ShopifyAdapter struct {
	config      ShopifyConfig
	storeHost   string
	accessToken string
	baseURL     *url.URL

	httpClient *http.Client
	limiter    *rate.Limiter
	sanitizer  *bluemonday.Policy
	observer   RequestObserver
	logger     *zap.Logger
}

// NewShopifyAdapter creates an adapter for one store. Missing credential
// fields are reported as *integration.ValidationError.
func NewShopifyAdapter(config ShopifyConfig, creds integration.Credentials, opts ...ShopifyOption) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	parsed, err := parseShopifyCredentials(creds)
	if err != nil {
		return nil, err
	}

	baseURL, err := config.BaseURL(parsed.storeHost)
	if err != nil {
		return nil, integration.NewValidationError("store_url", "does not form a valid API endpoint")
	}

	a := &ShopifyAdapter{
		config:      config,
		storeHost:   parsed.storeHost,
		accessToken: parsed.accessToken,
		baseURL:     baseURL,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      zap.NewNop(),
	}
	if config.RateLimit > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst)
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.httpClient == nil {
		a.httpClient = NewShopifyHTTPClient(config)
	}
	a.logger = a.logger.With(
		zap.String("platform", integration.PlatformCodeShopify.String()),
		zap.String("store_host", a.storeHost),
	)

	return a, nil
}

// NewShopifyHTTPClient builds the outbound client. Unless private networks
// are allowed the client refuses private, loopback, link-local and cloud
// metadata addresses after DNS resolution.
func NewShopifyHTTPClient(config ShopifyConfig) *http.Client {
	if config.AllowPrivateNetworks {
		return &http.Client{Timeout: config.RequestTimeout}
	}

	safeConfig := safeurl.GetConfigBuilder().
		SetTimeout(config.RequestTimeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(safeConfig).Client
}

// Platform returns the platform tag this adapter handles
func (a *ShopifyAdapter) Platform() integration.PlatformCode {
	return integration.PlatformCodeShopify
}

// ---------------------------------------------------------------------------
// Connection
// ---------------------------------------------------------------------------

// Connect performs the live handshake against shop.json
func (a *ShopifyAdapter) Connect(ctx context.Context) (*integration.ConnectionResult, error) {
	resp, err := a.do(ctx, "connect", http.MethodGet, a.endpoint("shop.json"), nil)
	if err != nil {
		return nil, integration.NewConnectionError(a.Platform(), "store unreachable", err)
	}
	if err := a.connectionStatusError(resp); err != nil {
		return nil, err
	}

	var body shopResponse
	if err := json.Unmarshal(resp.body, &body); err != nil || body.Shop == nil || body.Shop.ID == "" {
		return nil, integration.NewConnectionError(a.Platform(), "invalid shop response", err)
	}

	storeURL := body.Shop.Domain
	if storeURL == "" {
		storeURL = body.Shop.MyshopifyDomain
	}
	if storeURL == "" {
		storeURL = a.storeHost
	}

	return &integration.ConnectionResult{
		ExternalStoreID: string(body.Shop.ID),
		StoreName:       body.Shop.Name,
		StoreURL:        storeURL,
	}, nil
}

// TestConnection probes the store within ConnectTimeout. It never returns an
// error; failures are reported in the result.
func (a *ShopifyAdapter) TestConnection(ctx context.Context) integration.ConnectionCheck {
	ctx, cancel := context.WithTimeout(ctx, a.config.ConnectTimeout)
	defer cancel()

	start := time.Now()
	result, err := a.Connect(ctx)
	latency := time.Since(start)

	if err != nil {
		msg := err.Error()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("connection timed out after %s", a.config.ConnectTimeout)
		}
		return integration.ConnectionCheck{OK: false, Message: msg, Latency: latency}
	}
	return integration.ConnectionCheck{
		OK:      true,
		Message: "connected to " + result.StoreName,
		Latency: latency,
	}
}

func (a *ShopifyAdapter) connectionStatusError(resp *shopifyResponse) error {
	switch {
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return integration.NewConnectionError(a.Platform(), "credentials rejected", nil)
	case resp.status == http.StatusNotFound:
		return integration.NewConnectionError(a.Platform(), "store not found", nil)
	case resp.status >= 300:
		return integration.NewConnectionError(a.Platform(), fmt.Sprintf("unexpected status %d", resp.status), nil)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// catalogPageSlack is how many pages beyond ceil(maxItems/pageSize) a pull may
// spend on products that fail to normalize
const catalogPageSlack = 2

// FetchCatalog pulls products page by page following the Link header. The
// pull stops at the item cap, at the last page, at an empty page, after the
// page budget, or at a cursor that is malformed, foreign or already visited.
// A failure on the first page is a *integration.ConnectionError; a failure
// later returns what was collected.
func (a *ShopifyAdapter) FetchCatalog(ctx context.Context, opts integration.FetchOptions) ([]integration.CanonicalProduct, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > ShopifyMaxPageSize {
		pageSize = a.config.PageSize
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = a.config.MaxItems
	}

	first := a.endpoint("products.json")
	first.RawQuery = url.Values{
		"limit":  []string{strconv.Itoa(pageSize)},
		"status": []string{"any"},
	}.Encode()

	products := make([]integration.CanonicalProduct, 0, min(pageSize, maxItems))
	visited := make(map[string]struct{})
	next := first.String()
	pages := 0
	maxPages := (maxItems+pageSize-1)/pageSize + catalogPageSlack

	for next != "" && len(products) < maxItems {
		if pages >= maxPages {
			a.logger.Warn("Stopping pagination",
				zap.String("reason", "page budget exhausted"),
				zap.Int("pages", pages),
				zap.Int("products", len(products)),
			)
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		visited[next] = struct{}{}

		raws, link, err := a.fetchPage(ctx, next)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if pages == 0 {
				var connErr *integration.ConnectionError
				if errors.As(err, &connErr) {
					return nil, err
				}
				return nil, integration.NewConnectionError(a.Platform(), "catalog request failed", err)
			}
			a.logger.Warn("Catalog page failed, returning partial result",
				zap.Int("pages", pages),
				zap.Int("products", len(products)),
				zap.Error(err),
			)
			break
		}
		pages++
		if len(raws) == 0 {
			if link != "" {
				a.logger.Warn("Stopping pagination", zap.String("reason", "empty page"), zap.Int("pages", pages))
			}
			break
		}

		for _, raw := range raws {
			if len(products) >= maxItems {
				break
			}
			p, err := a.Normalize(raw)
			if err != nil {
				a.logger.Warn("Skipping unmappable product", zap.Error(err))
				continue
			}
			products = append(products, *p)
		}

		var reason string
		next, reason = resolveNextPage(a.baseURL, link, visited)
		if next == "" && reason != "no next link" {
			a.logger.Warn("Stopping pagination", zap.String("reason", reason), zap.Int("pages", pages))
		}
	}

	a.logger.Debug("Catalog fetched", zap.Int("pages", pages), zap.Int("products", len(products)))
	return products, nil
}

func (a *ShopifyAdapter) fetchPage(ctx context.Context, pageURL string) ([]json.RawMessage, string, error) {
	target, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", err
	}

	resp, err := a.do(ctx, "fetch_catalog", http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	if resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden {
		return nil, "", integration.NewConnectionError(a.Platform(), "credentials rejected", nil)
	}
	if resp.status >= 300 {
		return nil, "", fmt.Errorf("shopify: unexpected status %d", resp.status)
	}

	var body productsResponse
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return nil, "", fmt.Errorf("shopify: decode products: %w", err)
	}
	return body.Products, resp.header.Get("Link"), nil
}

// ---------------------------------------------------------------------------
// Product update
// ---------------------------------------------------------------------------

// UpdateProduct pushes tags (and optionally title and status) and returns the
// re-normalized product
func (a *ShopifyAdapter) UpdateProduct(ctx context.Context, productID string, update integration.ProductUpdate) (*integration.CanonicalProduct, error) {
	productID = strings.TrimSpace(productID)
	if _, err := strconv.ParseUint(productID, 10, 64); err != nil {
		return nil, a.updateError(productID, "invalid product id", nil)
	}
	if update.IsEmpty() {
		return nil, a.updateError(productID, "nothing to update", nil)
	}

	payload := productUpdatePayload{Product: productUpdateFields{
		ID:     json.Number(productID),
		Title:  update.Title,
		Status: update.Status,
	}}
	if update.Tags != nil {
		tags := strings.Join(normalizeShopifyTags(update.Tags), ", ")
		payload.Product.Tags = &tags
	}

	resp, err := a.do(ctx, "update_product", http.MethodPut, a.endpoint("products", productID+".json"), payload)
	if err != nil {
		return nil, a.updateError(productID, "request failed", err)
	}

	switch {
	case resp.status == http.StatusNotFound:
		return nil, a.updateError(productID, "product not found", nil)
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return nil, a.updateError(productID, "credentials rejected", nil)
	case resp.status >= 300:
		msg := fmt.Sprintf("unexpected status %d", resp.status)
		var errBody shopifyErrorResponse
		if json.Unmarshal(resp.body, &errBody) == nil && errBody.Message() != "" {
			msg = errBody.Message()
		}
		return nil, a.updateError(productID, msg, nil)
	}

	var body productResponse
	if err := json.Unmarshal(resp.body, &body); err != nil || len(body.Product) == 0 {
		return nil, a.updateError(productID, "invalid product response", err)
	}
	product, err := a.Normalize(body.Product)
	if err != nil {
		return nil, a.updateError(productID, "invalid product response", err)
	}
	return product, nil
}

func (a *ShopifyAdapter) updateError(productID, msg string, err error) error {
	return &integration.UpdateError{
		Platform:  a.Platform(),
		ProductID: productID,
		Message:   msg,
		Err:       err,
	}
}

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------

// Normalize maps one Shopify product resource to the canonical schema.
// Missing optional fields fall back to zero values and empty collections.
// Only the first variant contributes sku, price and inventory.
func (a *ShopifyAdapter) Normalize(raw []byte) (*integration.CanonicalProduct, error) {
	var p shopifyProduct
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, integration.NewValidationError("product", "is not a valid Shopify product")
	}
	if p.ID == "" {
		return nil, integration.NewValidationError("id", "is required")
	}

	product := &integration.CanonicalProduct{
		ExternalID:  string(p.ID),
		Title:       p.Title,
		Description: a.sanitizer.Sanitize(p.BodyHTML),
		Status:      p.Status,
		Tags:        normalizeShopifyTags(strings.Split(p.Tags, ",")),
		Images:      make([]integration.ProductImage, 0, len(p.Images)),
	}

	if len(p.Variants) > 0 {
		v := p.Variants[0]
		product.SKU = v.SKU
		product.Price = v.Price.Decimal()
		product.InventoryQuantity = v.InventoryQuantity.Int64()
	}

	for _, img := range p.Images {
		if img.Src == "" {
			continue
		}
		image := integration.ProductImage{URL: img.Src}
		if img.Alt != nil {
			image.Alt = *img.Alt
		}
		product.Images = append(product.Images, image)
	}

	var publishedAt any
	if p.PublishedAt != nil {
		publishedAt = *p.PublishedAt
	}
	product.PlatformData = map[string]any{
		"handle":         p.Handle,
		"vendor":         p.Vendor,
		"product_type":   p.ProductType,
		"published_at":   publishedAt,
		"variants_count": len(p.Variants),
	}

	product.ApplyDefaults()
	return product, nil
}

// normalizeShopifyTags applies Unicode NFC before the canonical tag rules so
// visually identical tags collapse
func normalizeShopifyTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, norm.NFC.String(t))
	}
	return integration.NormalizeTags(out)
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

type shopifyResponse struct {
	status int
	header http.Header
	body   []byte
}

// endpoint joins path segments onto the API base
func (a *ShopifyAdapter) endpoint(segments ...string) *url.URL {
	return a.baseURL.JoinPath(segments...)
}

// do performs one throttled, traced request. Non-2xx statuses are returned
// to the caller, transport failures are errors.
func (a *ShopifyAdapter) do(ctx context.Context, operation, method string, target *url.URL, payload any) (*shopifyResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "shopify."+operation,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("http.method", method),
		telemetry.WithAttribute("platform.store_host", a.storeHost),
	)
	defer span.End()

	start := time.Now()
	resp, err := a.roundTrip(ctx, method, target, payload)
	duration := time.Since(start)

	outcome := "error"
	if err != nil {
		telemetry.RecordError(span, err)
	} else {
		outcome = strconv.Itoa(resp.status)
		telemetry.SetAttribute(span, "http.status_code", resp.status)
	}
	if a.observer != nil {
		a.observer.ObservePlatformRequest(integration.PlatformCodeShopify.String(), operation, outcome, duration)
	}

	a.logger.Debug("Shopify request",
		zap.String("operation", operation),
		zap.String("method", method),
		zap.String("path", target.Path),
		zap.String("outcome", outcome),
		zap.Duration("duration", duration),
	)
	return resp, err
}

func (a *ShopifyAdapter) roundTrip(ctx context.Context, method string, target *url.URL, payload any) (*shopifyResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("shopify: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("shopify: create request: %w", err)
	}
	req.Header.Set(shopifyAccessTokenHeader, a.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, a.config.MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("shopify: read response: %w", err)
	}
	if int64(len(data)) > a.config.MaxResponseSize {
		return nil, ErrResponseTooLarge
	}

	return &shopifyResponse{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// Ensure ShopifyAdapter implements PlatformAdapter interface
var _ integration.PlatformAdapter = (*ShopifyAdapter)(nil)
