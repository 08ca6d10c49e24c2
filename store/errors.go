// store/errors.go
package store

import "fmt"

// ValidationError marks a malformed assignment rejected before any mutation
// was applied.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid assignment: %s %s", e.Field, e.Message)
}

// ConcurrencyError marks a stale-version write. The caller must refetch the
// assignment and retry.
type ConcurrencyError struct {
	AssignmentID string
	Expected     int64
	Actual       int64
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("stale write on assignment %s: version %d, current is %d",
		e.AssignmentID, e.Expected, e.Actual)
}

// NotFoundError is returned when the assignment id is unknown.
type NotFoundError struct {
	AssignmentID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("assignment %s not found", e.AssignmentID)
}
