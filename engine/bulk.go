// engine/bulk.go
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsched/models"
)

// BulkOptions controls a batch run.
type BulkOptions struct {
	OverrideConflicts bool `json:"overrideConflicts"`
	PreserveExisting  bool `json:"preserveExisting"`
	DryRun            bool `json:"dryRun"`
}

// ItemError records one failed batch item without aborting its siblings.
type ItemError struct {
	InstallationID  string `json:"installationId"`
	Reason          string `json:"reason"`
	SuggestedAction string `json:"suggestedAction"`
}

// BatchResult summarizes a bulk assignment run.
type BatchResult struct {
	RunID             string              `json:"runId"`
	DryRun            bool                `json:"dryRun"`
	Successful        int                 `json:"successful"`
	Failed            int                 `json:"failed"`
	Results           []*AssignmentResult `json:"results"`
	Errors            []ItemError         `json:"errors,omitempty"`
	Conflicts         []models.Conflict   `json:"conflicts,omitempty"`
	DurationMillis    int64               `json:"durationMillis"`
	OptimizationScore float64             `json:"optimizationScore"` // mean composite of accepted proposals
	Recommendations   []string            `json:"recommendations,omitempty"`
}

// CommitFunc persists one planned assignment. It is not called in dry-run
// mode. A nil CommitFunc makes every run a dry run.
type CommitFunc func(models.Assignment) (models.Assignment, error)

// RunBulk drives the optimizer over the installations in input order. Each
// accepted proposal is folded into the working snapshot so later items see
// earlier commitments; each failure is recorded per item and never aborts
// the batch.
func RunBulk(snap *Snapshot, installations []models.Installation, criteria Criteria, opts BulkOptions, commit CommitFunc) BatchResult {
	start := time.Now()
	result := BatchResult{
		RunID:  uuid.NewString(),
		DryRun: opts.DryRun,
	}

	working := snap
	scoreSum := 0.0
	noSkillCandidates := 0

	for _, inst := range installations {
		if existing, ok := working.HasActiveAssignment(inst.ID); ok && opts.PreserveExisting {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{
				InstallationID:  inst.ID.Hex(),
				Reason:          fmt.Sprintf("installation already assigned (assignment %s)", existing.ID.Hex()),
				SuggestedAction: "disable preserveExisting to allow reassignment",
			})
			continue
		}

		proposal, err := Propose(working, inst, criteria)
		if err != nil {
			result.Failed++
			item := ItemError{InstallationID: inst.ID.Hex(), Reason: err.Error()}
			if nce, ok := err.(*NoCandidateError); ok {
				item.SuggestedAction = suggestForConstraints(nce.FailedConstraints)
				for _, c := range nce.FailedConstraints {
					if c == "skills" {
						noSkillCandidates++
					}
				}
			}
			result.Errors = append(result.Errors, item)
			continue
		}

		planned := plannedAssignment(inst, proposal, working)

		// A fresh scoped detection pass guards the commit: the proposal must
		// not introduce conflicts unless the caller opted to override.
		trial := working.WithAssignment(planned)
		newConflicts := diffConflicts(
			DetectScoped(working, criteria.maxTravel(), start, planned.LeadID, models.DateKey(planned.ScheduledDate)),
			DetectScoped(trial, criteria.maxTravel(), start, planned.LeadID, models.DateKey(planned.ScheduledDate)),
		)
		if len(newConflicts) > 0 && !opts.OverrideConflicts {
			result.Failed++
			result.Conflicts = append(result.Conflicts, newConflicts...)
			blocked := &ConflictBlockedError{InstallationID: inst.ID.Hex(), ConflictIDs: conflictIDsOf(newConflicts)}
			result.Errors = append(result.Errors, ItemError{
				InstallationID:  inst.ID.Hex(),
				Reason:          blocked.Error(),
				SuggestedAction: "resolve the listed conflicts or rerun with overrideConflicts",
			})
			continue
		}

		if !opts.DryRun && commit != nil {
			committed, err := commit(planned)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, ItemError{
					InstallationID:  inst.ID.Hex(),
					Reason:          fmt.Sprintf("commit failed: %v", err),
					SuggestedAction: "retry the installation individually",
				})
				continue
			}
			// The store may rewrite the document (id, version, history); later
			// items must see the committed form, not the plan.
			trial = working.WithAssignment(committed)
		}

		working = trial
		result.Successful++
		result.Results = append(result.Results, proposal)
		result.Conflicts = append(result.Conflicts, newConflicts...)
		scoreSum += proposal.Recommended.Score
	}

	if result.Successful > 0 {
		result.OptimizationScore = scoreSum / float64(result.Successful)
	}
	if noSkillCandidates > 0 {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("%d installation(s) had no skill-matching team; consider training or roster adjustment", noSkillCandidates))
	}
	if result.Failed > result.Successful && len(installations) > 1 {
		result.Recommendations = append(result.Recommendations,
			"more items failed than succeeded; review criteria strictness before rerunning")
	}
	result.DurationMillis = time.Since(start).Milliseconds()
	return result
}

// plannedAssignment materializes the optimizer's pick into an assignment
// the repository can commit.
func plannedAssignment(inst models.Installation, proposal *AssignmentResult, snap *Snapshot) models.Assignment {
	leadID, _ := primitive.ObjectIDFromHex(proposal.Recommended.TeamMemberID)
	a := models.Assignment{
		ID:              primitive.NewObjectID(),
		OrganizationID:  inst.OrganizationID,
		InstallationID:  inst.ID,
		LeadID:          leadID,
		Status:          models.AssignmentAssigned,
		Priority:        inst.Priority,
		ScheduledDate:   inst.ScheduledDate,
		StartTime:       inst.StartTime,
		DurationMinutes: inst.DurationMinutes,
		Metadata: models.AssignmentMetadata{
			AutoAssigned:    true,
			WorkloadScore:   proposal.Recommended.SubScores.WorkloadBalance,
			EfficiencyScore: proposal.Recommended.SubScores.Performance,
		},
	}
	if existing, ok := snap.HasActiveAssignment(inst.ID); ok {
		a.Metadata.OriginalAssignmentID = existing.ID.Hex()
	}
	return a
}

// diffConflicts returns the conflicts present after but not before.
func diffConflicts(before, after []models.Conflict) []models.Conflict {
	known := map[string]bool{}
	for _, c := range before {
		known[c.ID] = true
	}
	var fresh []models.Conflict
	for _, c := range after {
		if !known[c.ID] {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

func conflictIDsOf(conflicts []models.Conflict) []string {
	ids := make([]string, len(conflicts))
	for i, c := range conflicts {
		ids[i] = c.ID
	}
	return ids
}

func suggestForConstraints(constraints []string) string {
	for _, c := range constraints {
		switch c {
		case "skills":
			return "no team member holds the required skills; adjust the roster or disable considerSkills"
		case "travel_distance":
			return "all candidates exceed the travel limit; raise maxTravelKm or assign manually"
		case "availability":
			return "no team member works the scheduled slot; reschedule the installation"
		}
	}
	return "relax the assignment criteria or assign manually"
}
