// models/installation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Installation priority levels, ordinal from low to urgent.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Installation statuses.
const (
	InstallationPending    = "pending"
	InstallationAssigned   = "assigned"
	InstallationInProgress = "in_progress"
	InstallationCompleted  = "completed"
	InstallationCancelled  = "cancelled"
)

type Address struct {
	Street    string  `bson:"street,omitempty" json:"street,omitempty"`
	City      string  `bson:"city,omitempty" json:"city,omitempty"`
	State     string  `bson:"state,omitempty" json:"state,omitempty"`
	Zip       string  `bson:"zip,omitempty" json:"zip,omitempty"`
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

type Installation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID  primitive.ObjectID `bson:"organizationId" json:"organizationId"`
	JobCode         string             `bson:"jobCode" json:"jobCode"`
	CustomerName    string             `bson:"customerName,omitempty" json:"customerName,omitempty"`
	Address         Address            `bson:"address" json:"address"`
	ScheduledDate   time.Time          `bson:"scheduledDate" json:"scheduledDate"`
	StartTime       string             `bson:"startTime" json:"startTime"` // "15:04"
	DurationMinutes int                `bson:"durationMinutes" json:"durationMinutes"`
	Priority        string             `bson:"priority" json:"priority"`
	RequiredSkills  []string           `bson:"requiredSkills,omitempty" json:"requiredSkills,omitempty"`
	Status          string             `bson:"status" json:"status"`
	Deadline        *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PriorityRank maps a priority to its ordinal, unknown values rank as medium.
func PriorityRank(priority string) int {
	switch priority {
	case PriorityLow:
		return 1
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return 2
	}
}

// DateKey is the calendar-day key used throughout the scheduling engine.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
