// models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assignment statuses.
const (
	AssignmentAssigned   = "assigned"
	AssignmentInProgress = "in_progress"
	AssignmentCompleted  = "completed"
	AssignmentCancelled  = "cancelled"
)

// History actions.
const (
	ActionCreated          = "created"
	ActionAssigned         = "assigned"
	ActionReassigned       = "reassigned"
	ActionUnassigned       = "unassigned"
	ActionStarted          = "started"
	ActionCompleted        = "completed"
	ActionCancelled        = "cancelled"
	ActionRescheduled      = "rescheduled"
	ActionConflictResolved = "conflict_resolved"
)

// HistoryEntry is one append-only audit record on an Assignment.
// Entries are never edited or removed once appended.
type HistoryEntry struct {
	ID            string    `bson:"id" json:"id"`
	Action        string    `bson:"action" json:"action"`
	PerformedBy   string    `bson:"performedBy" json:"performedBy"`
	PerformedAt   time.Time `bson:"performedAt" json:"performedAt"`
	PreviousValue string    `bson:"previousValue,omitempty" json:"previousValue,omitempty"`
	NewValue      string    `bson:"newValue,omitempty" json:"newValue,omitempty"`
	Reason        string    `bson:"reason,omitempty" json:"reason,omitempty"`
}

type AssignmentMetadata struct {
	AutoAssigned         bool    `bson:"autoAssigned" json:"autoAssigned"`
	WorkloadScore        float64 `bson:"workloadScore,omitempty" json:"workloadScore,omitempty"`
	EfficiencyScore      float64 `bson:"efficiencyScore,omitempty" json:"efficiencyScore,omitempty"`
	OriginalAssignmentID string  `bson:"originalAssignmentId,omitempty" json:"originalAssignmentId,omitempty"`
}

type Assignment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID  primitive.ObjectID `bson:"organizationId" json:"organizationId"`
	InstallationID  primitive.ObjectID `bson:"installationId" json:"installationId"`
	LeadID          primitive.ObjectID `bson:"leadId" json:"leadId"`
	AssistantID     primitive.ObjectID `bson:"assistantId,omitempty" json:"assistantId,omitempty"`
	Status          string             `bson:"status" json:"status"`
	Priority        string             `bson:"priority" json:"priority"`
	ScheduledDate   time.Time          `bson:"scheduledDate" json:"scheduledDate"`
	StartTime       string             `bson:"startTime" json:"startTime"` // "15:04"
	DurationMinutes int                `bson:"durationMinutes" json:"durationMinutes"`
	Metadata        AssignmentMetadata `bson:"metadata" json:"metadata"`
	History         []HistoryEntry     `bson:"history" json:"history"`
	Version         int64              `bson:"version" json:"version"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Active reports whether the assignment still occupies its team slot.
func (a *Assignment) Active() bool {
	return a.Status == AssignmentAssigned || a.Status == AssignmentInProgress
}

// Involves reports whether the member is the lead or assistant on this assignment.
func (a *Assignment) Involves(memberID primitive.ObjectID) bool {
	return a.LeadID == memberID || (!a.AssistantID.IsZero() && a.AssistantID == memberID)
}
