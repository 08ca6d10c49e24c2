// engine/resolutions.go
package engine

import (
	"fmt"
	"sort"

	"fieldsched/models"
)

// suggestResolutions enumerates candidate fixes for a conflict, scores each
// by how many other assignments it perturbs plus the workload imbalance it
// introduces, and returns the best three ordered by impact then effort.
func suggestResolutions(snap *Snapshot, c models.Conflict, member models.TeamMember, affected []models.Assignment) []models.Resolution {
	if len(affected) == 0 {
		return nil
	}
	var out []models.Resolution

	// The last affected assignment is the one we would move; for overlap and
	// capacity conflicts that is the later-starting job.
	moved := affected[len(affected)-1]

	if r, ok := reassignResolution(snap, member, moved); ok {
		out = append(out, r)
	}
	if r, ok := shiftTimeResolution(snap, member, moved, affected); ok {
		out = append(out, r)
	}
	if r, ok := splitTeamResolution(snap, moved); ok {
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ImpactScore != out[j].ImpactScore {
			return out[i].ImpactScore < out[j].ImpactScore
		}
		return out[i].EstimatedEffortMinutes < out[j].EstimatedEffortMinutes
	})
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

// autoResolvable is true exactly when a low-impact fix exists.
func autoResolvable(resolutions []models.Resolution) bool {
	for _, r := range resolutions {
		if r.ImpactScore <= 3 {
			return true
		}
	}
	return false
}

// reassignResolution finds the best alternate member: active, skilled for
// the job, with spare capacity on the day. Impact grows with the target's
// projected utilization so lightly loaded targets rank first.
func reassignResolution(snap *Snapshot, current models.TeamMember, moved models.Assignment) (models.Resolution, bool) {
	inst, hasInst := snap.Installation(moved.InstallationID)
	dateKey := models.DateKey(moved.ScheduledDate)

	teams := make([]models.TeamMember, len(snap.Teams))
	copy(teams, snap.Teams)
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID.Hex() < teams[j].ID.Hex() })

	best := models.Resolution{ImpactScore: 11}
	found := false
	for _, t := range teams {
		if t.ID == current.ID || !t.Active {
			continue
		}
		if hasInst && !memberCoversSkills(t, inst.RequiredSkills) {
			continue
		}
		capacity := t.DailyCapacity
		if capacity <= 0 {
			capacity = 1
		}
		existing := snap.ActiveAssignmentsFor(t.ID, dateKey)
		if len(existing)+1 > capacity {
			continue
		}

		util := projectedUtilization(snap, t, dateKey, moved.DurationMinutes)
		impact := 1 + util*2 // one assignment moved plus the imbalance added
		if impact < best.ImpactScore {
			best = models.Resolution{
				Method:                 models.ResolveReassign,
				Description:            fmt.Sprintf("reassign job to %s (projected utilization %.0f%%)", t.Name, util*100),
				AssignmentID:           moved.ID.Hex(),
				TeamMemberID:           t.ID.Hex(),
				ImpactScore:            round1(impact),
				EstimatedEffortMinutes: 15,
			}
			found = true
		}
	}
	return best, found
}

// shiftTimeResolution proposes pushing the moved job to the first free slot
// after the member's other assignments. Low impact when the slot fits inside
// the working window without touching anything else, steep otherwise.
func shiftTimeResolution(snap *Snapshot, member models.TeamMember, moved models.Assignment, affected []models.Assignment) (models.Resolution, bool) {
	dateKey := models.DateKey(moved.ScheduledDate)
	winStart, winEnd := workingWindow(member)

	latestEnd := winStart
	for _, a := range snap.ActiveAssignmentsFor(member.ID, dateKey) {
		if a.ID == moved.ID {
			continue
		}
		s := clockMinutes(a.StartTime)
		if s < 0 {
			continue
		}
		if end := s + a.DurationMinutes; end > latestEnd {
			latestEnd = end
		}
	}

	fits := latestEnd+moved.DurationMinutes <= winEnd
	impact := 6.0
	desc := fmt.Sprintf("shift job to %s (exceeds %s's working window, requires approval)", minutesClock(latestEnd), member.Name)
	if fits {
		impact = 1.5
		desc = fmt.Sprintf("shift job start to %s within existing buffer", minutesClock(latestEnd))
	}
	return models.Resolution{
		Method:                 models.ResolveShiftTime,
		Description:            desc,
		AssignmentID:           moved.ID.Hex(),
		ImpactScore:            impact,
		EstimatedEffortMinutes: 10,
	}, true
}

// splitTeamResolution promotes the assistant to lead on the moved job,
// freeing the current lead. Only possible when an assistant is assigned.
func splitTeamResolution(snap *Snapshot, moved models.Assignment) (models.Resolution, bool) {
	if moved.AssistantID.IsZero() {
		return models.Resolution{}, false
	}
	assistant, ok := snap.Team(moved.AssistantID)
	if !ok || !assistant.Active {
		return models.Resolution{}, false
	}
	return models.Resolution{
		Method:                 models.ResolveSplitTeam,
		Description:            fmt.Sprintf("promote assistant %s to lead and release the current lead", assistant.Name),
		AssignmentID:           moved.ID.Hex(),
		TeamMemberID:           assistant.ID.Hex(),
		ImpactScore:            4,
		EstimatedEffortMinutes: 20,
	}, true
}

func memberCoversSkills(member models.TeamMember, required []string) bool {
	for _, skill := range required {
		if !member.HasSkill(skill) {
			return false
		}
	}
	return true
}

// projectedUtilization is assigned-plus-new minutes over the member's daily
// capacity hours.
func projectedUtilization(snap *Snapshot, member models.TeamMember, dateKey string, addMinutes int) float64 {
	assigned := float64(snap.AssignedMinutesFor(member.ID, dateKey) + addMinutes)
	return assigned / capacityMinutes(member)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
