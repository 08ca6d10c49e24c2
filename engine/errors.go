// engine/errors.go
package engine

import (
	"fmt"
	"strings"
)

// NoCandidateError means no team member survived the hard filters for an
// installation. It is recoverable: the caller may relax criteria or assign
// manually.
type NoCandidateError struct {
	InstallationID    string
	FailedConstraints []string
}

func (e *NoCandidateError) Error() string {
	if len(e.FailedConstraints) == 0 {
		return fmt.Sprintf("no candidate team member for installation %s", e.InstallationID)
	}
	return fmt.Sprintf("no candidate team member for installation %s (failed constraints: %s)",
		e.InstallationID, strings.Join(e.FailedConstraints, ", "))
}

// ConflictBlockedError means a proposal would introduce a conflict and the
// batch options did not allow overriding it.
type ConflictBlockedError struct {
	InstallationID string
	ConflictIDs    []string
}

func (e *ConflictBlockedError) Error() string {
	return fmt.Sprintf("assignment for installation %s blocked by %d conflict(s)",
		e.InstallationID, len(e.ConflictIDs))
}
