package model

import "fmt"

// ValidationError reports malformed input: an out of range score or quota,
// an unknown program or enum value. Validation errors are never silently clamped.
type ValidationError struct {
	// Subject identifies the record being validated (applicant ID or program code), may be empty
	Subject string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("validation failed for %s: %s: %s", e.Subject, e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}
