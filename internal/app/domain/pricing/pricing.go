// Package pricing defines shipping methods and the computed totals breakdown.
package pricing

// ShippingMethod names one of the fixed-fee delivery options.
type ShippingMethod string

const (
	// ShippingPickup is in-store pickup, the zero-fee default.
	ShippingPickup ShippingMethod = "pickup"

	// ShippingStandard is standard parcel delivery.
	ShippingStandard ShippingMethod = "standard"

	// ShippingExpress is next-day delivery.
	ShippingExpress ShippingMethod = "express"
)

// DefaultShipping is the method assigned to a cart that never selected one.
const DefaultShipping = ShippingPickup

var shippingFees = map[ShippingMethod]int64{
	ShippingPickup:   0,
	ShippingStandard: 500,
	ShippingExpress:  1500,
}

// Valid reports whether m names a known shipping method.
func (m ShippingMethod) Valid() bool {
	_, ok := shippingFees[m]
	return ok
}

// FeeCents returns the fixed fee for the method. Unknown methods cost nothing,
// matching the fail-open posture of the rest of the engine.
func (m ShippingMethod) FeeCents() int64 {
	return shippingFees[m]
}

// Methods lists the supported shipping methods in display order.
func Methods() []ShippingMethod {
	return []ShippingMethod{ShippingPickup, ShippingStandard, ShippingExpress}
}

// Totals is the monetary breakdown derived from a cart, its discounts and the
// selected shipping method. All amounts are cents.
type Totals struct {
	SubtotalCents     int64
	ItemDiscountCents int64
	CartDiscountCents int64
	ShippingFeeCents  int64
	GrandTotalCents   int64
}
