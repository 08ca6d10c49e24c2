// engine/conflicts.go
package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsched/config"
	"fieldsched/models"
)

// Detect runs every conflict rule over the snapshot and returns the derived
// conflict list, deterministically ordered. It is side-effect free and safe
// to call at any frequency.
func Detect(snap *Snapshot, maxTravelKm float64, asOf time.Time) []models.Conflict {
	return detect(snap, maxTravelKm, asOf, primitive.NilObjectID, "")
}

// DetectScoped restricts detection to one team member and calendar day. The
// matrix builder uses it to re-check a cell after reassignment without paying
// for a full rescan.
func DetectScoped(snap *Snapshot, maxTravelKm float64, asOf time.Time, memberID primitive.ObjectID, dateKey string) []models.Conflict {
	return detect(snap, maxTravelKm, asOf, memberID, dateKey)
}

func detect(snap *Snapshot, maxTravelKm float64, asOf time.Time, onlyMember primitive.ObjectID, onlyDate string) []models.Conflict {
	if maxTravelKm <= 0 {
		maxTravelKm = config.MaxTravelKm
		if maxTravelKm <= 0 {
			maxTravelKm = 50
		}
	}

	var conflicts []models.Conflict
	seen := map[string]bool{}
	add := func(c models.Conflict) {
		if seen[c.ID] {
			return
		}
		seen[c.ID] = true
		conflicts = append(conflicts, c)
	}

	// Teams in id order so bucket traversal is stable.
	teams := make([]models.TeamMember, len(snap.Teams))
	copy(teams, snap.Teams)
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID.Hex() < teams[j].ID.Hex() })

	for _, member := range teams {
		if !onlyMember.IsZero() && member.ID != onlyMember {
			continue
		}
		for _, dateKey := range memberDates(snap, member.ID) {
			if onlyDate != "" && dateKey != onlyDate {
				continue
			}
			bucket := snap.ActiveAssignmentsFor(member.ID, dateKey)
			if len(bucket) == 0 {
				continue
			}

			checkCapacity(snap, member, dateKey, bucket, add, asOf)
			checkOverlaps(snap, member, dateKey, bucket, add, asOf)
			checkTravel(snap, member, dateKey, bucket, maxTravelKm, add, asOf)

			for _, a := range bucket {
				// Skill coverage belongs to the crew, so it is checked once,
				// on the lead's bucket.
				if a.LeadID == member.ID {
					checkSkills(snap, a, add, asOf)
				}
				checkAvailability(snap, member, a, add, asOf)
			}
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Date != conflicts[j].Date {
			return conflicts[i].Date < conflicts[j].Date
		}
		if conflicts[i].Type != conflicts[j].Type {
			return conflicts[i].Type < conflicts[j].Type
		}
		return conflicts[i].ID < conflicts[j].ID
	})
	return conflicts
}

// memberDates returns the sorted calendar days on which the member has
// active assignments.
func memberDates(snap *Snapshot, memberID primitive.ObjectID) []string {
	set := map[string]bool{}
	for _, a := range snap.Assignments {
		if a.Active() && a.Involves(memberID) {
			set[models.DateKey(a.ScheduledDate)] = true
		}
	}
	dates := make([]string, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// conflictID builds the deterministic conflict identity from the type and
// the sorted affected assignment ids.
func conflictID(ctype string, assignmentIDs []string) string {
	ids := make([]string, len(assignmentIDs))
	copy(ids, assignmentIDs)
	sort.Strings(ids)
	return ctype + ":" + strings.Join(ids, "+")
}

func severityImpact(severity string) float64 {
	switch severity {
	case models.SeverityCritical:
		return 9
	case models.SeverityHigh:
		return 7
	case models.SeverityMedium:
		return 5
	default:
		return 2
	}
}

func checkCapacity(snap *Snapshot, member models.TeamMember, dateKey string, bucket []models.Assignment, add func(models.Conflict), asOf time.Time) {
	capacity := member.DailyCapacity
	if capacity <= 0 {
		capacity = 1
	}
	if len(bucket) <= capacity {
		return
	}

	severity := models.SeverityMedium
	if float64(len(bucket)) > float64(capacity)*1.5 {
		severity = models.SeverityCritical
	}

	ids := assignmentIDs(bucket)
	c := models.Conflict{
		ID:            conflictID(models.ConflictCapacityExceeded, ids),
		Type:          models.ConflictCapacityExceeded,
		Severity:      severity,
		AssignmentIDs: ids,
		TeamMemberID:  member.ID.Hex(),
		Date:          dateKey,
		Description: fmt.Sprintf("%s has %d assignments on %s, exceeding daily capacity of %d",
			member.Name, len(bucket), dateKey, capacity),
		DetectedAt:  asOf,
		ImpactScore: severityImpact(severity),
	}
	c.SuggestedResolutions = suggestResolutions(snap, c, member, bucket)
	c.AutoResolvable = autoResolvable(c.SuggestedResolutions)
	add(c)
}

func checkOverlaps(snap *Snapshot, member models.TeamMember, dateKey string, bucket []models.Assignment, add func(models.Conflict), asOf time.Time) {
	for i := 0; i < len(bucket); i++ {
		for j := i + 1; j < len(bucket); j++ {
			a, b := bucket[i], bucket[j]
			sa, sb := clockMinutes(a.StartTime), clockMinutes(b.StartTime)
			if sa < 0 || sb < 0 {
				continue
			}
			ea, eb := sa+a.DurationMinutes, sb+b.DurationMinutes
			overlap := min(ea, eb) - max(sa, sb)
			if overlap <= 0 {
				continue
			}

			shorter := min(a.DurationMinutes, b.DurationMinutes)
			severity := models.SeverityMedium
			if shorter > 0 && overlap > shorter/2 {
				severity = models.SeverityHigh
			}

			ids := []string{a.ID.Hex(), b.ID.Hex()}
			c := models.Conflict{
				ID:            conflictID(models.ConflictTimeOverlap, ids),
				Type:          models.ConflictTimeOverlap,
				Severity:      severity,
				AssignmentIDs: ids,
				TeamMemberID:  member.ID.Hex(),
				Date:          dateKey,
				Description: fmt.Sprintf("%s is double-booked on %s: jobs overlap by %d minutes",
					member.Name, dateKey, overlap),
				DetectedAt:  asOf,
				ImpactScore: severityImpact(severity),
			}
			c.SuggestedResolutions = suggestResolutions(snap, c, member, []models.Assignment{a, b})
			c.AutoResolvable = autoResolvable(c.SuggestedResolutions)
			add(c)
		}
	}
}

func checkTravel(snap *Snapshot, member models.TeamMember, dateKey string, bucket []models.Assignment, maxTravelKm float64, add func(models.Conflict), asOf time.Time) {
	for i := 0; i+1 < len(bucket); i++ {
		from := addressOf(snap, bucket[i].InstallationID)
		to := addressOf(snap, bucket[i+1].InstallationID)
		km := haversineKm(from, to)
		if km <= maxTravelKm {
			continue
		}

		ids := []string{bucket[i].ID.Hex(), bucket[i+1].ID.Hex()}
		c := models.Conflict{
			ID:            conflictID(models.ConflictTravelDistance, ids),
			Type:          models.ConflictTravelDistance,
			Severity:      models.SeverityLow,
			AssignmentIDs: ids,
			TeamMemberID:  member.ID.Hex(),
			Date:          dateKey,
			Description: fmt.Sprintf("%s must travel %.1f km between consecutive jobs on %s (limit %.0f km, ~%.0f min)",
				member.Name, km, dateKey, maxTravelKm, travelMinutes(km)),
			DetectedAt:  asOf,
			ImpactScore: severityImpact(models.SeverityLow),
		}
		c.SuggestedResolutions = suggestResolutions(snap, c, member, []models.Assignment{bucket[i+1]})
		c.AutoResolvable = autoResolvable(c.SuggestedResolutions)
		add(c)
	}
}

func checkSkills(snap *Snapshot, a models.Assignment, add func(models.Conflict), asOf time.Time) {
	inst, ok := snap.Installation(a.InstallationID)
	if !ok || len(inst.RequiredSkills) == 0 {
		return
	}

	var missing []string
	for _, skill := range inst.RequiredSkills {
		if !crewHasSkill(snap, a, skill) {
			missing = append(missing, skill)
		}
	}
	if len(missing) == 0 {
		return
	}

	ids := []string{a.ID.Hex()}
	c := models.Conflict{
		ID:            conflictID(models.ConflictSkillMismatch, ids),
		Type:          models.ConflictSkillMismatch,
		Severity:      models.SeverityHigh,
		AssignmentIDs: ids,
		TeamMemberID:  a.LeadID.Hex(),
		Date:          models.DateKey(a.ScheduledDate),
		Description: fmt.Sprintf("assigned crew lacks required skills for %s: %s",
			inst.JobCode, strings.Join(missing, ", ")),
		DetectedAt:  asOf,
		ImpactScore: severityImpact(models.SeverityHigh),
	}
	if lead, ok := snap.Team(a.LeadID); ok {
		c.SuggestedResolutions = suggestResolutions(snap, c, lead, []models.Assignment{a})
	}
	c.AutoResolvable = autoResolvable(c.SuggestedResolutions)
	add(c)
}

func checkAvailability(snap *Snapshot, member models.TeamMember, a models.Assignment, add func(models.Conflict), asOf time.Time) {
	start := clockMinutes(a.StartTime)
	winStart, winEnd := workingWindow(member)

	outsideDay := !member.WorksOn(a.ScheduledDate)
	outsideHours := start >= 0 && (start < winStart || start+a.DurationMinutes > winEnd)
	if !outsideDay && !outsideHours {
		return
	}

	// A fixed customer deadline makes an availability violation unfixable by
	// waiting, so it blocks completion outright.
	severity := models.SeverityHigh
	if inst, ok := snap.Installation(a.InstallationID); ok && inst.Deadline != nil {
		severity = models.SeverityCritical
	}

	reason := "outside working hours"
	if outsideDay {
		reason = fmt.Sprintf("not a working day (%s)", strings.ToLower(a.ScheduledDate.Weekday().String()))
	}

	ids := []string{a.ID.Hex()}
	c := models.Conflict{
		ID:            conflictID(models.ConflictAvailability, ids),
		Type:          models.ConflictAvailability,
		Severity:      severity,
		AssignmentIDs: ids,
		TeamMemberID:  member.ID.Hex(),
		Date:          models.DateKey(a.ScheduledDate),
		Description: fmt.Sprintf("%s is scheduled on %s %s but is %s",
			member.Name, models.DateKey(a.ScheduledDate), a.StartTime, reason),
		DetectedAt:  asOf,
		ImpactScore: severityImpact(severity),
	}
	c.SuggestedResolutions = suggestResolutions(snap, c, member, []models.Assignment{a})
	c.AutoResolvable = autoResolvable(c.SuggestedResolutions)
	add(c)
}

// workingWindow returns the member's daily window in minutes since midnight.
// No declared hours means the whole day.
func workingWindow(member models.TeamMember) (int, int) {
	start := clockMinutes(member.Availability.StartTime)
	end := clockMinutes(member.Availability.EndTime)
	if start < 0 || end <= start {
		return 0, 24 * 60
	}
	return start, end
}

func crewHasSkill(snap *Snapshot, a models.Assignment, skill string) bool {
	if lead, ok := snap.Team(a.LeadID); ok && lead.HasSkill(skill) {
		return true
	}
	if !a.AssistantID.IsZero() {
		if assistant, ok := snap.Team(a.AssistantID); ok && assistant.HasSkill(skill) {
			return true
		}
	}
	return false
}

func assignmentIDs(assignments []models.Assignment) []string {
	ids := make([]string, len(assignments))
	for i, a := range assignments {
		ids[i] = a.ID.Hex()
	}
	sort.Strings(ids)
	return ids
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
