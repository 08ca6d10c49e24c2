// models/conflict.go
package models

import "time"

// Conflict types.
const (
	ConflictTimeOverlap      = "time_overlap"
	ConflictSkillMismatch    = "skill_mismatch"
	ConflictCapacityExceeded = "capacity_exceeded"
	ConflictTravelDistance   = "travel_distance"
	ConflictAvailability     = "availability"
)

// Conflict severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Resolution methods.
const (
	ResolveReassign  = "reassign"
	ResolveShiftTime = "shift_time"
	ResolveSplitTeam = "split_team"
)

// Resolution is one suggested fix for a conflict. Lower impact is better.
// AssignmentID names the assignment the fix would move; applying the fix to
// any other assignment invalidates the impact score.
type Resolution struct {
	Method                 string  `json:"method"`
	Description            string  `json:"description"`
	AssignmentID           string  `json:"assignmentId"`
	TeamMemberID           string  `json:"teamMemberId,omitempty"`
	ImpactScore            float64 `json:"impactScore"` // 0-10
	EstimatedEffortMinutes int     `json:"estimatedEffortMinutes"`
}

// Conflict is a derived scheduling problem. It is recomputed from assignment
// state on every detection pass and never stored authoritatively; its ID is a
// deterministic function of the type and the affected assignment ids so that
// repeated passes agree on identity.
type Conflict struct {
	ID                   string       `json:"id"`
	Type                 string       `json:"type"`
	Severity             string       `json:"severity"`
	AssignmentIDs        []string     `json:"assignmentIds"`
	TeamMemberID         string       `json:"teamMemberId,omitempty"`
	Date                 string       `json:"date,omitempty"`
	Description          string       `json:"description"`
	DetectedAt           time.Time    `json:"detectedAt"`
	ResolvedAt           *time.Time   `json:"resolvedAt,omitempty"`
	ResolvedBy           string       `json:"resolvedBy,omitempty"`
	ResolutionMethod     string       `json:"resolutionMethod,omitempty"`
	SuggestedResolutions []Resolution `json:"suggestedResolutions,omitempty"`
	AutoResolvable       bool         `json:"autoResolvable"`
	ImpactScore          float64      `json:"impactScore"` // 0-10
}

// SeverityRank orders severities for sorting, critical highest.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}
