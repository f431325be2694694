// Package storage defines the persistence adapter contract for the cart
// engine and the serialization format shared by its backends.
//
// A cart namespace is one shopper's (or one POS terminal's) persisted cart.
// Several engine replicas may share a namespace; the adapter propagates
// whole-record writes between them via backend change notifications, with
// last-write-wins semantics. No partial patches, no locking.
package storage

import (
	"context"

	"github.com/Storeline/cart_engine/internal/app/domain/cart"
)

// KeyPrefix namespaces every record this engine writes, so cart state never
// collides with unrelated keys sharing the same storage area.
const KeyPrefix = "cartengine:cart:"

// RecordKey returns the storage key for a cart namespace.
func RecordKey(namespace string) string {
	return KeyPrefix + namespace
}

// CartStore persists one cart namespace and reports external changes to it.
type CartStore interface {
	// Load reads the persisted cart. A missing or malformed record loads
	// as an empty cart with a nil error; only genuine backend failures
	// return an error.
	Load(ctx context.Context) (cart.Cart, error)

	// Save replaces the persisted record wholesale.
	Save(ctx context.Context, c cart.Cart) error

	// Subscribe registers a callback invoked with the freshly reloaded
	// cart whenever this namespace is written through another replica's
	// adapter. Delivering the same stored content twice must be harmless.
	// The returned cancel function unregisters the callback.
	Subscribe(fn func(cart.Cart)) (cancel func(), err error)

	// Close releases backend resources. The store is unusable afterwards.
	Close() error
}
