// Package cart defines the line-item collection at the center of the engine:
// a normalized, insertion-ordered mapping from composite product identity to
// quantity and cached display metadata.
package cart

import (
	"sort"
	"strings"

	"github.com/Storeline/cart_engine/internal/app/domain/discount"
	"github.com/Storeline/cart_engine/internal/app/domain/pricing"
)

// Key is the canonical identity of a line item: the product plus its selected
// variation attributes. Two items with the same product but different
// attribute values (a different color, say) are distinct keys.
type Key string

// NewKey canonicalizes a product and its variation attributes into a Key.
// Attribute comparison is order-independent and case-normalized, so any
// map yielding the same lowercased attribute/value pairs produces the same
// Key regardless of construction order.
func NewKey(productID string, variation map[string]string) Key {
	pairs := make([]string, 0, len(variation))
	for name, value := range variation {
		pairs = append(pairs, strings.ToLower(strings.TrimSpace(name))+"="+strings.ToLower(strings.TrimSpace(value)))
	}
	sort.Strings(pairs)
	return Key(strings.TrimSpace(productID) + "|" + strings.Join(pairs, ";"))
}

// LineItem is one cart entry. UnitPriceCents is the client-cached display
// price; checkout never trusts it and re-fetches the authoritative price.
type LineItem struct {
	ProductID     string
	Variation     map[string]string // attribute name -> value, original casing, for display
	DisplayName   string
	Quantity      int
	UnitPriceCents int64
	ItemDiscount  *discount.Spec
}

// Key returns the canonical identity of the item.
func (li LineItem) Key() Key {
	return NewKey(li.ProductID, li.Variation)
}

// LineTotalCents is quantity times cached unit price, before any discount.
func (li LineItem) LineTotalCents() int64 {
	return int64(li.Quantity) * li.UnitPriceCents
}

func (li LineItem) clone() LineItem {
	li.Variation = copyMap(li.Variation)
	if li.ItemDiscount != nil {
		d := *li.ItemDiscount
		li.ItemDiscount = &d
	}
	return li
}

// Cart is the full client-held transaction state: the ordered line items plus
// the cart-scope discount and shipping selection that feed total computation.
// Insertion order of Items is preserved for deterministic rendering; no two
// entries share a Key.
type Cart struct {
	Items        []LineItem
	CartDiscount *discount.Spec
	Shipping     pricing.ShippingMethod
}

// Empty returns a cart with no items and the default shipping method.
func Empty() Cart {
	return Cart{Shipping: pricing.DefaultShipping}
}

// IsEmpty reports whether the cart holds no line items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Find returns the index of the item with the given key, or -1.
func (c Cart) Find(key Key) int {
	for i, li := range c.Items {
		if li.Key() == key {
			return i
		}
	}
	return -1
}

// Add merges the item into the cart: an existing entry with the same key has
// its quantity incremented, otherwise the item is appended. The merged entry
// keeps the incoming display metadata and cached price, which are the most
// recently observed values.
func (c *Cart) Add(li LineItem) {
	if i := c.Find(li.Key()); i >= 0 {
		existing := &c.Items[i]
		existing.Quantity += li.Quantity
		existing.UnitPriceCents = li.UnitPriceCents
		if li.DisplayName != "" {
			existing.DisplayName = li.DisplayName
		}
		return
	}
	c.Items = append(c.Items, li.clone())
}

// Remove deletes the item with the given key. Removing an absent key is a
// no-op, not an error.
func (c *Cart) Remove(key Key) {
	if i := c.Find(key); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
}

// SetQuantity sets the quantity of the item with the given key exactly.
// A quantity of zero or less removes the item; a zero-quantity record is
// never retained. Setting an absent key is a no-op.
func (c *Cart) SetQuantity(key Key, quantity int) {
	if quantity <= 0 {
		c.Remove(key)
		return
	}
	if i := c.Find(key); i >= 0 {
		c.Items[i].Quantity = quantity
	}
}

// SetItemDiscount replaces the discount on the item with the given key.
// A nil spec clears it.
func (c *Cart) SetItemDiscount(key Key, spec *discount.Spec) {
	if i := c.Find(key); i >= 0 {
		if spec == nil {
			c.Items[i].ItemDiscount = nil
			return
		}
		d := *spec
		c.Items[i].ItemDiscount = &d
	}
}

// DistinctProductIDs returns the unique product identifiers referenced by the
// cart, in first-appearance order.
func (c Cart) DistinctProductIDs() []string {
	seen := make(map[string]bool, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, li := range c.Items {
		if !seen[li.ProductID] {
			seen[li.ProductID] = true
			ids = append(ids, li.ProductID)
		}
	}
	return ids
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (c Cart) Clone() Cart {
	out := Cart{Shipping: c.Shipping}
	if c.CartDiscount != nil {
		d := *c.CartDiscount
		out.CartDiscount = &d
	}
	if len(c.Items) > 0 {
		out.Items = make([]LineItem, len(c.Items))
		for i, li := range c.Items {
			out.Items[i] = li.clone()
		}
	}
	return out
}

// Equal reports whether two carts hold the same items, discounts and shipping
// selection, comparing keys, quantities and cached prices in order.
func (c Cart) Equal(other Cart) bool {
	if len(c.Items) != len(other.Items) || c.Shipping != other.Shipping {
		return false
	}
	if (c.CartDiscount == nil) != (other.CartDiscount == nil) {
		return false
	}
	if c.CartDiscount != nil && *c.CartDiscount != *other.CartDiscount {
		return false
	}
	for i, li := range c.Items {
		o := other.Items[i]
		if li.Key() != o.Key() || li.Quantity != o.Quantity || li.UnitPriceCents != o.UnitPriceCents {
			return false
		}
		if (li.ItemDiscount == nil) != (o.ItemDiscount == nil) {
			return false
		}
		if li.ItemDiscount != nil && *li.ItemDiscount != *o.ItemDiscount {
			return false
		}
	}
	return true
}

func copyMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
