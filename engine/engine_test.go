package engine

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsched/models"
)

// oid builds a fixed ObjectID for deterministic fixtures. n must be > 0.
func oid(n byte) primitive.ObjectID {
	var id primitive.ObjectID
	id[11] = n
	return id
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func member(n byte, name string, capacity int, skills ...string) models.TeamMember {
	return models.TeamMember{
		ID:            oid(n),
		Name:          name,
		Active:        true,
		DailyCapacity: capacity,
		Skills:        skills,
		Efficiency:    0.8,
		HomeBase:      models.Address{Latitude: 40.7, Longitude: -74.0},
	}
}

func installation(n byte, date string, start string, durationMins int, skills ...string) models.Installation {
	return models.Installation{
		ID:              oid(n),
		JobCode:         "INST-TEST",
		Address:         models.Address{Latitude: 40.7, Longitude: -74.0},
		ScheduledDate:   day(date),
		StartTime:       start,
		DurationMinutes: durationMins,
		Priority:        models.PriorityMedium,
		RequiredSkills:  skills,
		Status:          models.InstallationPending,
	}
}

func assignment(n byte, installationID, leadID primitive.ObjectID, date string, start string, durationMins int) models.Assignment {
	return models.Assignment{
		ID:              oid(n),
		InstallationID:  installationID,
		LeadID:          leadID,
		Status:          models.AssignmentAssigned,
		ScheduledDate:   day(date),
		StartTime:       start,
		DurationMinutes: durationMins,
	}
}

// scoringCriteria enables every filter and weighs all sub-scores equally.
func scoringCriteria() Criteria {
	return Criteria{
		ConsiderSkills:       true,
		ConsiderLocation:     true,
		ConsiderAvailability: true,
		ConsiderWorkload:     true,
		ConsiderPerformance:  true,
		MaxTravelKm:          50,
		Weights:              Weights{WorkloadBalance: 1, SkillMatch: 1, Performance: 1, Urgency: 1, Geographic: 1},
	}
}
