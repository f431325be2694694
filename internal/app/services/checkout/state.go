package checkout

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle state of the checkout reconciler.
type Status int32

const (
	// StatusIdle means no reconciliation has been attempted yet.
	StatusIdle Status = iota

	// StatusReconciling means authoritative prices are being fetched and
	// the order payload is being rebuilt.
	StatusReconciling

	// StatusSubmitted means the order was accepted and the cart cleared.
	StatusSubmitted

	// StatusFailed means a lookup or submission failed; the cart is
	// untouched and the caller may retry from scratch.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusReconciling:
		return "reconciling"
	case StatusSubmitted:
		return "submitted"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ParseStatus(str)
	return nil
}

// ParseStatus converts a string to Status. Unknown strings parse as idle.
func ParseStatus(s string) Status {
	switch s {
	case "reconciling":
		return StatusReconciling
	case "submitted":
		return StatusSubmitted
	case "failed":
		return StatusFailed
	default:
		return StatusIdle
	}
}

// ValidTransitions defines the allowed status transitions. A retry after
// failure re-enters reconciling from scratch; a submitted checkout may start
// a fresh reconciliation for the next (re-filled) cart.
var ValidTransitions = map[Status][]Status{
	StatusIdle:        {StatusReconciling},
	StatusReconciling: {StatusSubmitted, StatusFailed},
	StatusSubmitted:   {StatusReconciling},
	StatusFailed:      {StatusReconciling},
}

// CanTransition returns true if the transition from -> to is valid.
func CanTransition(from, to Status) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError represents an invalid status transition.
type TransitionError struct {
	From Status
	To   Status
}

// Error implements error.
func (e TransitionError) Error() string {
	return fmt.Sprintf("invalid checkout transition: %s -> %s", e.From, e.To)
}
