// Package catalog provides the product-catalog collaborator: authoritative
// unit prices fetched at checkout time. The engine never trusts client-cached
// prices for an order.
package catalog

import (
	"context"
	"time"

	"github.com/Storeline/cart_engine/internal/apperr"
	"github.com/Storeline/cart_engine/internal/httputil"
)

// Product is the authoritative catalog record for one product.
type Product struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	UnitPriceCents int64  `json:"price"`
}

// Lookup fetches the authoritative current price for a product. Any failure
// is a hard reconciliation failure for that product.
type Lookup interface {
	GetUnitPrice(ctx context.Context, productID string) (Product, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, productID string) (Product, error)

func (f LookupFunc) GetUnitPrice(ctx context.Context, productID string) (Product, error) {
	return f(ctx, productID)
}

// Client implements Lookup against the commerce backend's HTTP API.
type Client struct {
	http *httputil.Client
}

var _ Lookup = (*Client)(nil)

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: httputil.New(httputil.Config{BaseURL: baseURL, Timeout: timeout})}
}

// GetUnitPrice fetches the product's current price and display name.
func (c *Client) GetUnitPrice(ctx context.Context, productID string) (Product, error) {
	resp, err := c.http.Get(ctx, "/products/"+productID+"/price")
	if err != nil {
		return Product{}, apperr.PriceLookup(productID, err)
	}
	var p Product
	if err := httputil.DecodeResponse(resp, &p); err != nil {
		return Product{}, apperr.PriceLookup(productID, err)
	}
	return p, nil
}
