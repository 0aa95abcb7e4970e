package integration

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var productValidator = newProductValidator()

func newProductValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so errors read like the API
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ProductImage is one entry of a product's ordered image list
type ProductImage struct {
	URL string `json:"url" validate:"required,max=2048"`
	Alt string `json:"alt"`
}

// CanonicalProduct is the platform-agnostic product record every adapter
// produces. It is unique on (StoreID, ExternalID).
type CanonicalProduct struct {
	// StoreID is zero when the product comes straight from an adapter; the
	// sync orchestrator assigns it before storage
	StoreID uuid.UUID `json:"store_id"`
	// ExternalID is the platform's product identifier
	ExternalID  string `json:"external_id" validate:"required,max=255"`
	SKU         string `json:"sku" validate:"max=255"`
	Title       string `json:"title" validate:"max=1000"`
	Description string `json:"description"`
	// Price is never negative; absent prices are zero
	Price decimal.Decimal `json:"price"`
	// InventoryQuantity is never negative; absent quantities are zero
	InventoryQuantity int64 `json:"inventory_quantity" validate:"gte=0"`
	// Status is the platform-defined lifecycle string (e.g. active, draft)
	Status string `json:"status" validate:"max=50"`
	// Tags is an ordered set: no duplicates, first occurrence wins
	Tags   []string       `json:"tags"`
	Images []ProductImage `json:"images" validate:"dive"`
	// PlatformData keeps platform-specific fields not promoted to attributes
	PlatformData map[string]any `json:"platform_data"`
}

// ApplyDefaults fills documented defaults and clamps numeric fields so the
// product satisfies the canonical invariants
func (p *CanonicalProduct) ApplyDefaults() {
	if p.Price.IsNegative() {
		p.Price = decimal.Zero
	}
	if p.InventoryQuantity < 0 {
		p.InventoryQuantity = 0
	}
	p.Tags = NormalizeTags(p.Tags)
	if p.Images == nil {
		p.Images = []ProductImage{}
	}
	if p.PlatformData == nil {
		p.PlatformData = map[string]any{}
	}
}

// Validate checks the canonical invariants
func (p *CanonicalProduct) Validate() error {
	if p.Price.IsNegative() {
		return NewValidationError("price", "must not be negative")
	}
	if err := productValidator.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return NewValidationError(fe.Field(), fmt.Sprintf("failed %q check", fe.Tag()))
		}
		return NewValidationError("", err.Error())
	}
	return nil
}

// NormalizeTags trims each tag, drops empties and duplicates, and keeps the
// first occurrence order. It never returns nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
