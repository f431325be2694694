// Package checkout implements the checkout reconciler: the one-shot state
// machine that replaces client-cached prices with authoritative catalog
// prices and hands the resulting order to the submission collaborator.
package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Storeline/cart_engine/internal/app/catalog"
	"github.com/Storeline/cart_engine/internal/app/domain/cart"
	"github.com/Storeline/cart_engine/internal/app/domain/order"
	"github.com/Storeline/cart_engine/internal/app/metrics"
	"github.com/Storeline/cart_engine/internal/app/orders"
	cartsvc "github.com/Storeline/cart_engine/internal/app/services/cart"
	"github.com/Storeline/cart_engine/internal/apperr"
	"github.com/Storeline/cart_engine/pkg/logger"
)

const defaultLookupTimeout = 5 * time.Second

// Service reconciles the cart against authoritative prices and submits the
// order. Every attempt re-fetches all prices from scratch; staleness, not
// partial failure, is the dominant risk, so nothing is resumable mid-way.
type Service struct {
	carts   *cartsvc.Service
	catalog catalog.Lookup
	orders  orders.Submitter
	log     *logger.Logger

	lookupTimeout time.Duration

	mu          sync.Mutex
	status      Status
	lastErr     error
	lastOrderID string
}

// New constructs a checkout service over the cart replica and the two
// external collaborators.
func New(carts *cartsvc.Service, lookup catalog.Lookup, submitter orders.Submitter, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("checkout")
	}
	return &Service{
		carts:         carts,
		catalog:       lookup,
		orders:        submitter,
		log:           log,
		status:        StatusIdle,
		lookupTimeout: defaultLookupTimeout,
	}
}

// WithLookupTimeout overrides the per-product price lookup timeout.
func (s *Service) WithLookupTimeout(d time.Duration) *Service {
	if d > 0 {
		s.lookupTimeout = d
	}
	return s
}

// Status returns the reconciler's current state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastError returns the error of the most recent failed attempt, nil
// otherwise.
func (s *Service) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LastOrderID returns the identifier of the most recently submitted order.
func (s *Service) LastOrderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOrderID
}

// Submit runs one reconciliation attempt: fetch authoritative prices for
// every distinct product in the cart, rebuild the line items around them,
// submit the order, and clear the cart on success. Any failure leaves the
// cart untouched; the caller may retry, which re-enters reconciling from
// scratch. An empty cart is rejected immediately without touching the
// collaborators.
func (s *Service) Submit(ctx context.Context, contact order.Contact, address order.Address, notes string) (string, error) {
	snapshot := s.carts.Snapshot()
	if snapshot.IsEmpty() {
		return "", apperr.Validationf("cart is empty")
	}

	if err := s.transition(StatusReconciling); err != nil {
		return "", err
	}
	start := time.Now()

	prices, err := s.fetchPrices(ctx, snapshot.DistinctProductIDs())
	if err != nil {
		s.fail(err)
		metrics.RecordCheckout("price_lookup_failed", time.Since(start))
		return "", err
	}

	payload := buildOrder(snapshot, prices, contact, address, notes)

	orderID, err := s.orders.CreateOrder(ctx, payload)
	if err != nil {
		s.fail(err)
		metrics.RecordCheckout("submission_failed", time.Since(start))
		return "", err
	}
	metrics.RecordCheckout("submitted", time.Since(start))

	if err := s.carts.Clear(ctx); err != nil {
		// The order is placed either way; the stale cart is logged, not
		// surfaced as a checkout failure.
		s.log.WithError(err).WithField("order_id", orderID).
			Warn("cart clear after submission failed")
	}

	s.mu.Lock()
	s.status = StatusSubmitted
	s.lastErr = nil
	s.lastOrderID = orderID
	s.mu.Unlock()

	s.log.WithField("order_id", orderID).
		WithField("items", len(payload.Items)).
		Info("order submitted")
	return orderID, nil
}

func (s *Service) transition(to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(s.status, to) {
		if s.status == StatusReconciling {
			return apperr.Validationf("a checkout attempt is already in progress")
		}
		return TransitionError{From: s.status, To: to}
	}
	s.status = to
	return nil
}

func (s *Service) fail(err error) {
	s.mu.Lock()
	s.status = StatusFailed
	s.lastErr = err
	s.mu.Unlock()
	s.log.WithError(err).Warn("checkout reconciliation failed")
}

// fetchPrices issues one lookup per distinct product concurrently, each under
// its own timeout, and joins before reconciliation proceeds. The first
// failure cancels the remaining lookups and fails the whole attempt.
func (s *Service) fetchPrices(ctx context.Context, productIDs []string) (map[string]catalog.Product, error) {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		productID string
		product   catalog.Product
		err       error
	}
	results := make(chan result, len(productIDs))

	for _, id := range productIDs {
		go func(productID string) {
			reqCtx, done := context.WithTimeout(fetchCtx, s.lookupTimeout)
			defer done()
			p, err := s.catalog.GetUnitPrice(reqCtx, productID)
			if err != nil && !errors.Is(err, apperr.ErrPriceLookup) {
				err = apperr.PriceLookup(productID, err)
			}
			results <- result{productID: productID, product: p, err: err}
		}(id)
	}

	prices := make(map[string]catalog.Product, len(productIDs))
	var firstErr error
	for range productIDs {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				cancel()
			}
			continue
		}
		// Key by the requested ID: the lookup contract does not require
		// the backend to echo it.
		prices[r.productID] = r.product
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return prices, nil
}

// buildOrder rebuilds the line items with server-trusted prices, the client's
// quantity and variation selection, and zero discount. Server-side discount
// policy is outside this engine.
func buildOrder(snapshot cart.Cart, prices map[string]catalog.Product, contact order.Contact, address order.Address, notes string) order.Order {
	items := make([]order.Item, 0, len(snapshot.Items))
	for _, li := range snapshot.Items {
		items = append(items, order.Item{
			ProductID:      li.ProductID,
			Size:           variationValue(li.Variation, "size"),
			Color:          variationValue(li.Variation, "color"),
			Quantity:       li.Quantity,
			UnitPriceCents: prices[li.ProductID].UnitPriceCents,
			DiscountCents:  0,
		})
	}
	return order.Order{
		CustomerContact: contact,
		ShippingAddress: address,
		Notes:           notes,
		Items:           items,
	}
}

func variationValue(variation map[string]string, name string) string {
	for k, v := range variation {
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return v
		}
	}
	return ""
}
