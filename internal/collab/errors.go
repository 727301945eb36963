package collab

import "fmt"

// ValidationError reports a missing or invalid request field.
// Surfaced as HTTP 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthorizationError reports that the record exists but is owned by a
// different user. Surfaced as HTTP 404, not 403, so the API never leaks
// the existence of another user's records.
type AuthorizationError struct {
	ID string
}

func (e *AuthorizationError) Error() string {
	return "collaboration not accessible: " + e.ID
}

// InvalidStateError reports a lifecycle transition attempted from a
// disallowed state. Surfaced as HTTP 400 with the current state named.
type InvalidStateError struct {
	ID     string
	Status string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("collaboration %s is %s: %s", e.ID, e.Status, e.Reason)
}
