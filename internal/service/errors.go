package service

import "fmt"

// ValidationError carries field-level issues back to the form that submitted
// them. It is returned before any external call is made.
type ValidationError struct {
	Issues map[string][]string
}

func (e *ValidationError) Error() string {
	return "invalid input"
}

// InsufficientCreditsError reports the balance observed when the charge was
// refused so the UI can prompt a purchase.
type InsufficientCreditsError struct {
	Credits int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: %d remaining", e.Credits)
}
