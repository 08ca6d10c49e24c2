// engine/snapshot.go
package engine

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsched/models"
)

// Snapshot is the immutable scheduling state every engine function operates
// on. Callers build it from current repository/roster/job data; the engine
// never mutates it, so the same snapshot may be shared across goroutines.
type Snapshot struct {
	Installations []models.Installation
	Teams         []models.TeamMember
	Assignments   []models.Assignment
}

func (s *Snapshot) Installation(id primitive.ObjectID) (models.Installation, bool) {
	for _, inst := range s.Installations {
		if inst.ID == id {
			return inst, true
		}
	}
	return models.Installation{}, false
}

func (s *Snapshot) Team(id primitive.ObjectID) (models.TeamMember, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return models.TeamMember{}, false
}

// ActiveAssignmentsFor returns the member's active assignments on one
// calendar day, ordered by start time then id so every engine pass sees the
// same sequence.
func (s *Snapshot) ActiveAssignmentsFor(memberID primitive.ObjectID, dateKey string) []models.Assignment {
	var out []models.Assignment
	for _, a := range s.Assignments {
		if !a.Active() {
			continue
		}
		if !a.Involves(memberID) {
			continue
		}
		if models.DateKey(a.ScheduledDate) != dateKey {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := clockMinutes(out[i].StartTime), clockMinutes(out[j].StartTime)
		if si != sj {
			return si < sj
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out
}

// AssignedMinutesFor sums active assignment minutes for a member on one day.
func (s *Snapshot) AssignedMinutesFor(memberID primitive.ObjectID, dateKey string) int {
	total := 0
	for _, a := range s.ActiveAssignmentsFor(memberID, dateKey) {
		total += a.DurationMinutes
	}
	return total
}

// HasActiveAssignment reports whether the installation already has an active
// assignment in the snapshot.
func (s *Snapshot) HasActiveAssignment(installationID primitive.ObjectID) (models.Assignment, bool) {
	for _, a := range s.Assignments {
		if a.InstallationID == installationID && a.Active() {
			return a, true
		}
	}
	return models.Assignment{}, false
}

// WithAssignment returns a copy of the snapshot with one more assignment,
// used by the bulk processor so later items see earlier commitments.
func (s *Snapshot) WithAssignment(a models.Assignment) *Snapshot {
	next := &Snapshot{
		Installations: s.Installations,
		Teams:         s.Teams,
		Assignments:   make([]models.Assignment, 0, len(s.Assignments)+1),
	}
	next.Assignments = append(next.Assignments, s.Assignments...)
	next.Assignments = append(next.Assignments, a)
	return next
}

// clockMinutes parses "15:04" into minutes since midnight, -1 when unset or
// malformed.
func clockMinutes(clock string) int {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}

func minutesClock(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(mins) * time.Minute).Format("15:04")
}
