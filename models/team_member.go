// models/team_member.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Availability declares the days and the daily window a member works.
// Days are lowercase English weekday names ("monday" ... "sunday").
type Availability struct {
	WorkingDays []string `bson:"workingDays,omitempty" json:"workingDays,omitempty"`
	StartTime   string   `bson:"startTime,omitempty" json:"startTime,omitempty"` // "15:04"
	EndTime     string   `bson:"endTime,omitempty" json:"endTime,omitempty"`
}

type TeamMember struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID primitive.ObjectID `bson:"organizationId" json:"organizationId"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email,omitempty" json:"email,omitempty"`
	Region         string             `bson:"region,omitempty" json:"region,omitempty"`
	Active         bool               `bson:"active" json:"active"`
	DailyCapacity  int                `bson:"dailyCapacity" json:"dailyCapacity"` // max job slots per day
	Skills         []string           `bson:"skills,omitempty" json:"skills,omitempty"`
	HomeBase       Address            `bson:"homeBase" json:"homeBase"`
	Efficiency     float64            `bson:"efficiency" json:"efficiency"` // rolling 0-1
	TravelRating   float64            `bson:"travelRating" json:"travelRating"`
	Availability   Availability       `bson:"availability" json:"availability"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasSkill reports whether the member has the given skill, case-insensitive.
func (m *TeamMember) HasSkill(skill string) bool {
	for _, s := range m.Skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

// WorksOn reports whether the member works on the given date's weekday.
// An empty WorkingDays list means the member works every day.
func (m *TeamMember) WorksOn(date time.Time) bool {
	if len(m.Availability.WorkingDays) == 0 {
		return true
	}
	day := strings.ToLower(date.Weekday().String())
	for _, d := range m.Availability.WorkingDays {
		if strings.EqualFold(d, day) {
			return true
		}
	}
	return false
}
