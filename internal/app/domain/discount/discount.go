// Package discount defines the discount specification applied at cart or
// line-item scope.
package discount

import "fmt"

// Kind discriminates the two supported discount variants.
type Kind string

const (
	// KindPercentage reduces an amount by Value percent (0..100).
	KindPercentage Kind = "percentage"

	// KindFixed reduces an amount by Value cents, clamped at zero.
	KindFixed Kind = "fixed"
)

// Spec is a tagged discount variant. For KindPercentage, Value is a percent in
// [0, 100]; for KindFixed, Value is a non-negative amount in cents. At most
// one Spec exists per scope target; applying a new one replaces the previous.
type Spec struct {
	Kind  Kind
	Value float64
}

// Validate reports whether the spec is well formed.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindPercentage:
		if s.Value < 0 || s.Value > 100 {
			return fmt.Errorf("percentage discount must be between 0 and 100, got %v", s.Value)
		}
	case KindFixed:
		if s.Value < 0 {
			return fmt.Errorf("fixed discount must not be negative, got %v", s.Value)
		}
	default:
		return fmt.Errorf("unknown discount kind %q", s.Kind)
	}
	return nil
}
