// Package orders provides the order-submission collaborator. A successful
// submission is the only event that clears the cart.
package orders

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Storeline/cart_engine/internal/app/domain/order"
	"github.com/Storeline/cart_engine/internal/apperr"
	"github.com/Storeline/cart_engine/internal/httputil"
)

// Submitter hands a fully-priced order to the commerce backend and returns
// the created order identifier.
type Submitter interface {
	CreateOrder(ctx context.Context, o order.Order) (string, error)
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, o order.Order) (string, error)

func (f SubmitterFunc) CreateOrder(ctx context.Context, o order.Order) (string, error) {
	return f(ctx, o)
}

// Client implements Submitter against the commerce backend's HTTP API.
type Client struct {
	http *httputil.Client
}

var _ Submitter = (*Client)(nil)

// NewClient creates an order-submission client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: httputil.New(httputil.Config{BaseURL: baseURL, Timeout: timeout})}
}

// CreateOrder submits the order payload. Each submission carries a fresh
// idempotency key so the backend can deduplicate transport-level retries.
func (c *Client) CreateOrder(ctx context.Context, o order.Order) (string, error) {
	header := http.Header{"Idempotency-Key": []string{uuid.New().String()}}
	resp, err := c.http.PostWithHeader(ctx, "/orders", o, header)
	if err != nil {
		return "", apperr.OrderSubmission(err)
	}
	var created struct {
		OrderID string `json:"orderId"`
	}
	if err := httputil.DecodeResponse(resp, &created); err != nil {
		return "", apperr.OrderSubmission(err)
	}
	return created.OrderID, nil
}
