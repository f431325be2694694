// Package cart implements the line-item store: the engine's authoritative
// in-memory cart replica, with synchronous write-through persistence and
// observer notification.
package cart

import (
	"context"
	"strings"
	"sync"

	"github.com/Storeline/cart_engine/internal/app/domain/cart"
	"github.com/Storeline/cart_engine/internal/app/domain/discount"
	domainpricing "github.com/Storeline/cart_engine/internal/app/domain/pricing"
	"github.com/Storeline/cart_engine/internal/app/metrics"
	"github.com/Storeline/cart_engine/internal/app/pricing"
	"github.com/Storeline/cart_engine/internal/app/storage"
	"github.com/Storeline/cart_engine/internal/apperr"
	"github.com/Storeline/cart_engine/pkg/logger"
)

// Service owns one replica of the cart. All mutations validate first, apply
// to the in-memory cart, write through to the persistence adapter, and then
// notify observers, in that order. A failed write is logged and the
// in-memory cart stays authoritative for this replica until the next
// successful write; mutations are never rolled back or blocked by storage.
type Service struct {
	store storage.CartStore
	log   *logger.Logger

	// writeMu serializes whole mutations so write-throughs reach storage
	// in the order the mutations were issued. mu guards only the state
	// and is never held across storage or observer calls.
	writeMu sync.Mutex

	mu       sync.Mutex
	current  cart.Cart
	watchers map[int]func(cart.Cart)
	nextID   int

	unsubscribe func()
}

// New loads the persisted cart and wires up external change notifications.
// A load failure is logged and the replica starts empty.
func New(ctx context.Context, store storage.CartStore, log *logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewDefault("cart")
	}
	s := &Service{
		store:    store,
		log:      log,
		current:  cart.Empty(),
		watchers: make(map[int]func(cart.Cart)),
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		log.WithError(err).Warn("initial cart load failed, starting empty")
	} else {
		s.current = loaded
	}

	cancel, err := store.Subscribe(s.applyExternal)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	s.unsubscribe = cancel
	return s, nil
}

// AddItem merges the item into the cart: an existing line with the same
// product and variation has its quantity incremented, otherwise a new line
// is appended. Returns the updated cart snapshot.
func (s *Service) AddItem(ctx context.Context, productID string, quantity int, variation map[string]string, displayName string, unitPriceCents int64) (cart.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return cart.Cart{}, apperr.Validationf("product id is required")
	}
	if quantity < 1 {
		return cart.Cart{}, apperr.Validationf("quantity must be at least 1, got %d", quantity)
	}
	if unitPriceCents < 0 {
		return cart.Cart{}, apperr.Validationf("unit price must not be negative, got %d", unitPriceCents)
	}

	return s.mutate(ctx, "add_item", func(c *cart.Cart) {
		c.Add(cart.LineItem{
			ProductID:      productID,
			Variation:      variation,
			DisplayName:    displayName,
			Quantity:       quantity,
			UnitPriceCents: unitPriceCents,
		})
	})
}

// RemoveItem deletes the matching line entirely, regardless of quantity.
// Removing an absent key is a no-op, not an error.
func (s *Service) RemoveItem(ctx context.Context, productID string, variation map[string]string) (cart.Cart, error) {
	key := cart.NewKey(productID, variation)
	return s.mutate(ctx, "remove_item", func(c *cart.Cart) {
		c.Remove(key)
	})
}

// UpdateQuantity sets the line's quantity exactly. A quantity of zero or
// less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, productID string, variation map[string]string, quantity int) (cart.Cart, error) {
	key := cart.NewKey(productID, variation)
	return s.mutate(ctx, "update_quantity", func(c *cart.Cart) {
		c.SetQuantity(key, quantity)
	})
}

// Clear empties the cart and writes an empty record, keeping the cart-scope
// discount and shipping selection reset as well.
func (s *Service) Clear(ctx context.Context) error {
	_, err := s.mutate(ctx, "clear", func(c *cart.Cart) {
		*c = cart.Empty()
	})
	return err
}

// SetCartDiscount replaces the cart-scope discount. Applying a new discount
// replaces, never stacks.
func (s *Service) SetCartDiscount(ctx context.Context, spec discount.Spec) (cart.Cart, error) {
	if err := spec.Validate(); err != nil {
		return cart.Cart{}, apperr.Validationf("%v", err)
	}
	return s.mutate(ctx, "set_cart_discount", func(c *cart.Cart) {
		d := spec
		c.CartDiscount = &d
	})
}

// ClearCartDiscount removes the cart-scope discount.
func (s *Service) ClearCartDiscount(ctx context.Context) (cart.Cart, error) {
	return s.mutate(ctx, "clear_cart_discount", func(c *cart.Cart) {
		c.CartDiscount = nil
	})
}

// SetItemDiscount replaces the discount on one line. The line must exist.
func (s *Service) SetItemDiscount(ctx context.Context, productID string, variation map[string]string, spec discount.Spec) (cart.Cart, error) {
	if err := spec.Validate(); err != nil {
		return cart.Cart{}, apperr.Validationf("%v", err)
	}
	key := cart.NewKey(productID, variation)
	s.mu.Lock()
	present := s.current.Find(key) >= 0
	s.mu.Unlock()
	if !present {
		return cart.Cart{}, apperr.Validationf("no cart line for product %s", productID)
	}
	return s.mutate(ctx, "set_item_discount", func(c *cart.Cart) {
		c.SetItemDiscount(key, &spec)
	})
}

// ClearItemDiscount removes the discount on one line. Absent lines are a
// no-op.
func (s *Service) ClearItemDiscount(ctx context.Context, productID string, variation map[string]string) (cart.Cart, error) {
	key := cart.NewKey(productID, variation)
	return s.mutate(ctx, "clear_item_discount", func(c *cart.Cart) {
		c.SetItemDiscount(key, nil)
	})
}

// SetShipping selects a shipping method.
func (s *Service) SetShipping(ctx context.Context, method domainpricing.ShippingMethod) (cart.Cart, error) {
	if !method.Valid() {
		return cart.Cart{}, apperr.Validationf("unknown shipping method %q", method)
	}
	return s.mutate(ctx, "set_shipping", func(c *cart.Cart) {
		c.Shipping = method
	})
}

// Snapshot returns a deep copy of the current cart. The copy never aliases
// internal state, so callers cannot bypass the write-through path.
func (s *Service) Snapshot() cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Totals recomputes the monetary breakdown for the current cart.
func (s *Service) Totals() domainpricing.Totals {
	return pricing.ComputeTotals(s.Snapshot())
}

// Watch registers an observer called with a cart snapshot after every
// mutation on this replica and after every applied external change. The
// returned cancel function unregisters it.
func (s *Service) Watch(fn func(cart.Cart)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Close detaches the service from the persistence adapter's notifications.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// mutate applies fn to the cart under the lock, writes through, and notifies
// observers. The write happens before any observer can recompute derived
// totals, keeping cart and persisted encoding bidirectionally consistent.
func (s *Service) mutate(ctx context.Context, op string, fn func(*cart.Cart)) (cart.Cart, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	fn(&s.current)
	snapshot := s.current.Clone()
	s.mu.Unlock()

	if err := s.store.Save(ctx, snapshot); err != nil {
		s.log.WithError(err).Warn("cart write-through failed, in-memory cart remains authoritative")
	}
	metrics.RecordCartMutation(op)
	s.notify(snapshot)
	return snapshot, nil
}

// applyExternal handles a change notification from another replica. It
// serializes against mutate via writeMu so a notification in flight while a
// local mutation writes through cannot clobber that mutation, and it treats
// the notification as a signal only: the cart is reloaded from storage under
// the lock, so the content applied is whatever storage holds after the local
// write, not a stale snapshot carried by the notification. Reapplying
// identical content is a no-op, so duplicate or echoed notifications neither
// oscillate nor re-notify observers.
func (s *Service) applyExternal(cart.Cart) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	reloaded, err := s.store.Load(context.Background())
	if err != nil {
		s.log.WithError(err).Warn("reload after external change failed, keeping current cart")
		return
	}

	s.mu.Lock()
	if s.current.Equal(reloaded) {
		s.mu.Unlock()
		return
	}
	s.current = reloaded.Clone()
	snapshot := s.current.Clone()
	s.mu.Unlock()

	metrics.RecordExternalChange()
	s.log.WithField("items", len(snapshot.Items)).Debug("applied external cart change")
	s.notify(snapshot)
}

func (s *Service) notify(snapshot cart.Cart) {
	s.mu.Lock()
	fns := make([]func(cart.Cart), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot.Clone())
	}
}
