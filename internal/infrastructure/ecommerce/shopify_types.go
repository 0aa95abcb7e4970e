package ecommerce

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Shopify Admin REST API payloads
// ---------------------------------------------------------------------------

// shopifyID accepts both numeric and string identifiers and keeps them as
// strings. Shopify ids exceed float64 precision, so numbers are never
// decoded through float64.
type shopifyID string

// UnmarshalJSON implements json.Unmarshaler
func (id *shopifyID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = shopifyID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = shopifyID(n.String())
	return nil
}

// shopifyNumber is a loosely typed numeric field (price arrives as a string,
// inventory as a number, and either may be null)
type shopifyNumber string

// UnmarshalJSON implements json.Unmarshaler
func (n *shopifyNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = shopifyNumber(strings.TrimSpace(s))
	default:
		*n = shopifyNumber(data)
	}
	return nil
}

// Decimal returns the value or zero when absent or unparsable
func (n shopifyNumber) Decimal() decimal.Decimal {
	return ParseDecimal(string(n))
}

// Int64 returns the integer part or zero when absent or unparsable
func (n shopifyNumber) Int64() int64 {
	if n == "" {
		return 0
	}
	if v, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return v
	}
	return n.Decimal().IntPart()
}

// shopResponse is the body of GET shop.json
type shopResponse struct {
	Shop *shopifyShop `json:"shop"`
}

type shopifyShop struct {
	ID              shopifyID `json:"id"`
	Name            string    `json:"name"`
	Domain          string    `json:"domain"`
	MyshopifyDomain string    `json:"myshopify_domain"`
}

// productsResponse is the body of GET products.json
type productsResponse struct {
	Products []json.RawMessage `json:"products"`
}

// productResponse is the body of PUT products/{id}.json
type productResponse struct {
	Product json.RawMessage `json:"product"`
}

// shopifyErrorResponse covers both `{"errors":"..."}` and
// `{"errors":{"field":["..."]}}`
type shopifyErrorResponse struct {
	Errors json.RawMessage `json:"errors"`
}

// Message flattens the error payload into one line
func (r *shopifyErrorResponse) Message() string {
	if len(r.Errors) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Errors, &s); err == nil {
		return s
	}
	var fields map[string][]string
	if err := json.Unmarshal(r.Errors, &fields); err == nil {
		parts := make([]string, 0, len(fields))
		for field, msgs := range fields {
			parts = append(parts, field+" "+strings.Join(msgs, ", "))
		}
		return strings.Join(parts, "; ")
	}
	return string(r.Errors)
}

// shopifyProduct is the subset of the Shopify product resource the adapter maps
type shopifyProduct struct {
	ID          shopifyID        `json:"id"`
	Title       string           `json:"title"`
	BodyHTML    string           `json:"body_html"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	Handle      string           `json:"handle"`
	Status      string           `json:"status"`
	Tags        string           `json:"tags"`
	PublishedAt *string          `json:"published_at"`
	Variants    []shopifyVariant `json:"variants"`
	Images      []shopifyImage   `json:"images"`
}

type shopifyVariant struct {
	ID                shopifyID     `json:"id"`
	SKU               string        `json:"sku"`
	Price             shopifyNumber `json:"price"`
	InventoryQuantity shopifyNumber `json:"inventory_quantity"`
}

type shopifyImage struct {
	Src string  `json:"src"`
	Alt *string `json:"alt"`
}

// productUpdatePayload is the PUT body. Only the fields being changed are sent.
type productUpdatePayload struct {
	Product productUpdateFields `json:"product"`
}

type productUpdateFields struct {
	ID     json.Number `json:"id"`
	Tags   *string     `json:"tags,omitempty"`
	Title  *string     `json:"title,omitempty"`
	Status *string     `json:"status,omitempty"`
}

// ParseDecimal parses a decimal string, returning zero on empty or invalid input
func ParseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
