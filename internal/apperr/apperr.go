// Package apperr defines the error vocabulary shared across the cart engine.
// Every failure the engine surfaces belongs to one of four kinds; none of them
// is fatal to the process.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure kinds. Wrapped errors created by
// the constructors below match these with errors.Is.
var (
	// ErrStorage marks persistence load/save failures. The engine recovers
	// locally: loads fail open to an empty cart, failed saves leave the
	// in-memory cart authoritative.
	ErrStorage = errors.New("storage error")

	// ErrValidation marks invalid input rejected before any mutation.
	ErrValidation = errors.New("validation error")

	// ErrPriceLookup marks a failed authoritative price fetch during
	// checkout reconciliation.
	ErrPriceLookup = errors.New("price lookup error")

	// ErrOrderSubmission marks a failed order submission. The cart is
	// preserved so the caller can retry.
	ErrOrderSubmission = errors.New("order submission error")
)

// Storage wraps err as a storage failure.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// Validationf builds a validation failure from a format string.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// PriceLookup wraps err as a price lookup failure for the given product.
func PriceLookup(productID string, err error) error {
	return fmt.Errorf("%w: product %s: %w", ErrPriceLookup, productID, err)
}

// OrderSubmission wraps err as an order submission failure.
func OrderSubmission(err error) error {
	return fmt.Errorf("%w: %w", ErrOrderSubmission, err)
}
