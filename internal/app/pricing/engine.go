// Package pricing implements the discount rule engine and the totals
// aggregator. Everything here is pure: no I/O, no state, deterministic for a
// given cart.
package pricing

import (
	"math"

	"github.com/Storeline/cart_engine/internal/app/domain/cart"
	"github.com/Storeline/cart_engine/internal/app/domain/discount"
	"github.com/Storeline/cart_engine/internal/app/domain/pricing"
)

// Apply reduces an amount by the given discount. Results are clamped at zero:
// a fixed discount larger than the amount it applies to never produces a
// negative value. A nil spec leaves the amount unchanged.
func Apply(amountCents int64, spec *discount.Spec) int64 {
	if spec == nil || amountCents <= 0 {
		if amountCents < 0 {
			return 0
		}
		return amountCents
	}
	var reduced int64
	switch spec.Kind {
	case discount.KindPercentage:
		off := int64(math.Round(float64(amountCents) * spec.Value / 100))
		reduced = amountCents - off
	case discount.KindFixed:
		reduced = amountCents - int64(math.Round(spec.Value))
	default:
		reduced = amountCents
	}
	if reduced < 0 {
		return 0
	}
	return reduced
}

// ComputeTotals derives the monetary breakdown for the cart. Item-scope
// discounts apply first to each line total, then the cart-scope discount
// applies to the sum of already-item-discounted line totals. That ordering is
// fixed: a 100 line with a 10% item discount under a 10% cart discount totals
// 81, not 80. The merchandise total after all discounts is clamped at zero
// before the shipping fee is added, so the grand total never drops below the
// fee alone.
func ComputeTotals(c cart.Cart) pricing.Totals {
	var subtotal, afterItems int64
	for _, li := range c.Items {
		line := li.LineTotalCents()
		subtotal += line
		afterItems += Apply(line, li.ItemDiscount)
	}

	afterCart := Apply(afterItems, c.CartDiscount)
	fee := c.Shipping.FeeCents()

	return pricing.Totals{
		SubtotalCents:     subtotal,
		ItemDiscountCents: subtotal - afterItems,
		CartDiscountCents: afterItems - afterCart,
		ShippingFeeCents:  fee,
		GrandTotalCents:   afterCart + fee,
	}
}
