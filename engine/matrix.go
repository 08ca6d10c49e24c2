// engine/matrix.go
package engine

import (
	"sort"
	"time"

	"fieldsched/models"
)

// BuildMatrix arranges the snapshot's assignments into the (date x team)
// grid. conflicts should come from a Detect pass over the same snapshot so
// cell statuses reflect current problems.
func BuildMatrix(snap *Snapshot, start, end time.Time, conflicts []models.Conflict) models.Matrix {
	matrix := models.Matrix{
		Cells: map[string]map[string]models.MatrixCell{},
	}
	if end.Before(start) {
		return matrix
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		matrix.Dates = append(matrix.Dates, models.DateKey(day))
	}

	teams := make([]models.TeamMember, 0, len(snap.Teams))
	for _, t := range snap.Teams {
		if t.Active {
			teams = append(teams, t)
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })

	// Conflicts indexed by assignment id for cell attribution.
	conflictsByAssignment := map[string][]string{}
	for _, c := range conflicts {
		for _, aid := range c.AssignmentIDs {
			conflictsByAssignment[aid] = append(conflictsByAssignment[aid], c.ID)
		}
	}

	for _, member := range teams {
		capacity := member.DailyCapacity
		if capacity <= 0 {
			capacity = 1
		}
		matrix.Teams = append(matrix.Teams, models.MatrixTeam{
			ID:       member.ID.Hex(),
			Name:     member.Name,
			Region:   member.Region,
			Capacity: capacity,
			Skills:   member.Skills,
		})

		for _, dateKey := range matrix.Dates {
			cell := buildCell(snap, member.ID.Hex(), dateKey, capacity,
				snap.ActiveAssignmentsFor(member.ID, dateKey), conflictsByAssignment)
			if matrix.Cells[dateKey] == nil {
				matrix.Cells[dateKey] = map[string]models.MatrixCell{}
			}
			matrix.Cells[dateKey][member.ID.Hex()] = cell
		}
	}
	return matrix
}

// buildCell aggregates one (date, team) slot. Status priority:
// conflict > overbooked > assigned > available.
func buildCell(snap *Snapshot, memberID, dateKey string, capacity int, assignments []models.Assignment, conflictsByAssignment map[string][]string) models.MatrixCell {
	cell := models.MatrixCell{
		Date:         dateKey,
		TeamMemberID: memberID,
		Assignments:  assignments,
		Capacity:     capacity,
	}
	cell.Utilization = float64(len(assignments)) / float64(capacity)

	seen := map[string]bool{}
	for _, a := range assignments {
		for _, cid := range conflictsByAssignment[a.ID.Hex()] {
			if !seen[cid] {
				seen[cid] = true
				cell.ConflictIDs = append(cell.ConflictIDs, cid)
			}
		}
	}
	sort.Strings(cell.ConflictIDs)

	switch {
	case len(cell.ConflictIDs) > 0:
		cell.Status = models.CellConflict
	case len(assignments) > capacity:
		cell.Status = models.CellOverbooked
	case len(assignments) > 0:
		cell.Status = models.CellAssigned
	default:
		cell.Status = models.CellAvailable
	}
	return cell
}
