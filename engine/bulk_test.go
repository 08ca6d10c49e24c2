package engine

import (
	"strings"
	"testing"

	"fieldsched/models"
)

func bulkFixture() (*Snapshot, []models.Installation) {
	a := member(1, "Alex", 4, "electrical", "plumbing")
	b := member(2, "Blair", 4, "electrical")

	installations := []models.Installation{
		installation(10, "2024-06-10", "08:00", 60, "electrical"),
		installation(11, "2024-06-10", "10:00", 60, "plumbing"),
		installation(12, "2024-06-10", "12:00", 60),
		installation(13, "2024-06-11", "08:00", 60, "electrical"),
		installation(14, "2024-06-11", "10:00", 60, "welding"), // nobody welds
	}
	snap := &Snapshot{
		Teams:         []models.TeamMember{a, b},
		Installations: installations,
	}
	return snap, installations
}

func TestRunBulkPartialSuccess(t *testing.T) {
	snap, installations := bulkFixture()

	var committed []models.Assignment
	commit := func(a models.Assignment) (models.Assignment, error) {
		committed = append(committed, a)
		return a, nil
	}

	result := RunBulk(snap, installations, scoringCriteria(), BulkOptions{}, commit)
	if result.Successful != 4 || result.Failed != 1 {
		t.Fatalf("successful/failed = %d/%d, want 4/1", result.Successful, result.Failed)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 per-item error, got %d", len(result.Errors))
	}
	if result.Errors[0].InstallationID != installations[4].ID.Hex() {
		t.Errorf("failed item = %s, want the unskillable installation", result.Errors[0].InstallationID)
	}
	if !strings.Contains(result.Errors[0].SuggestedAction, "skill") {
		t.Errorf("suggested action %q should mention skills", result.Errors[0].SuggestedAction)
	}
	if len(committed) != 4 {
		t.Errorf("commit called %d times, want 4", len(committed))
	}
	if result.RunID == "" {
		t.Error("run id must be set")
	}
	if result.OptimizationScore <= 0 || result.OptimizationScore > 100 {
		t.Errorf("optimization score %.2f out of range", result.OptimizationScore)
	}
	if len(result.Recommendations) == 0 {
		t.Error("skill failure should produce a roster recommendation")
	}
	for _, a := range committed {
		if !a.Metadata.AutoAssigned {
			t.Error("bulk-planned assignments must be flagged autoAssigned")
		}
		if a.Status != models.AssignmentAssigned {
			t.Errorf("planned status = %q, want assigned", a.Status)
		}
	}
}

func TestRunBulkDryRunCommitsNothing(t *testing.T) {
	snap, installations := bulkFixture()

	calls := 0
	commit := func(a models.Assignment) (models.Assignment, error) {
		calls++
		return a, nil
	}

	result := RunBulk(snap, installations, scoringCriteria(), BulkOptions{DryRun: true}, commit)
	if calls != 0 {
		t.Fatalf("dry run invoked commit %d times", calls)
	}
	if !result.DryRun {
		t.Error("result must echo dry-run mode")
	}
	if result.Successful != 4 {
		t.Errorf("dry run should still plan 4 items, got %d", result.Successful)
	}
}

func TestRunBulkPreserveExisting(t *testing.T) {
	snap, installations := bulkFixture()
	first := installations[0]
	lead := snap.Teams[0]
	snap.Assignments = []models.Assignment{
		assignment(30, first.ID, lead.ID, "2024-06-10", "08:00", 60),
	}

	result := RunBulk(snap, installations[:1], scoringCriteria(), BulkOptions{PreserveExisting: true}, nil)
	if result.Successful != 0 || result.Failed != 1 {
		t.Fatalf("successful/failed = %d/%d, want 0/1", result.Successful, result.Failed)
	}
	if !strings.Contains(result.Errors[0].Reason, "already assigned") {
		t.Errorf("reason = %q, want already-assigned", result.Errors[0].Reason)
	}
}

func TestRunBulkReassignsWhenNotPreserving(t *testing.T) {
	snap, installations := bulkFixture()
	first := installations[0]
	lead := snap.Teams[0]
	existing := assignment(30, first.ID, lead.ID, "2024-06-10", "08:00", 60)
	snap.Assignments = []models.Assignment{existing}

	var committed []models.Assignment
	commit := func(a models.Assignment) (models.Assignment, error) {
		committed = append(committed, a)
		return a, nil
	}

	result := RunBulk(snap, installations[:1], scoringCriteria(), BulkOptions{OverrideConflicts: true}, commit)
	if result.Successful != 1 {
		t.Fatalf("expected the reassignment to succeed, got %d/%d", result.Successful, result.Failed)
	}
	if len(committed) != 1 {
		t.Fatalf("commit called %d times, want 1", len(committed))
	}
	if committed[0].Metadata.OriginalAssignmentID != existing.ID.Hex() {
		t.Errorf("replacement should reference the original assignment, got %q", committed[0].Metadata.OriginalAssignmentID)
	}
}

func TestRunBulkFoldsCommittedAssignment(t *testing.T) {
	// The commit layer may assign its own document id; the working snapshot
	// must carry the committed form so later items reference it, not the
	// uncommitted plan.
	m := member(1, "Alex", 4)
	inst := installation(10, "2024-06-10", "09:00", 60)
	snap := &Snapshot{
		Teams:         []models.TeamMember{m},
		Installations: []models.Installation{inst},
	}

	storeID := oid(77)
	commit := func(a models.Assignment) (models.Assignment, error) {
		a.ID = storeID
		return a, nil
	}

	result := RunBulk(snap, []models.Installation{inst, inst}, scoringCriteria(),
		BulkOptions{PreserveExisting: true}, commit)
	if result.Successful != 1 || result.Failed != 1 {
		t.Fatalf("successful/failed = %d/%d, want 1/1", result.Successful, result.Failed)
	}
	if !strings.Contains(result.Errors[0].Reason, storeID.Hex()) {
		t.Errorf("duplicate item should reference the committed assignment id, got %q", result.Errors[0].Reason)
	}
}

func TestRunBulkConflictBlocked(t *testing.T) {
	// One member with capacity 1 and an existing job: the second job on the
	// same day must be blocked unless conflicts are overridden.
	m := member(1, "Alex", 1)
	booked := installation(10, "2024-06-10", "08:00", 60)
	incoming := installation(11, "2024-06-10", "10:00", 60)
	snap := &Snapshot{
		Teams:         []models.TeamMember{m},
		Installations: []models.Installation{booked, incoming},
		Assignments:   []models.Assignment{assignment(20, booked.ID, m.ID, "2024-06-10", "08:00", 60)},
	}

	calls := 0
	commit := func(a models.Assignment) (models.Assignment, error) {
		calls++
		return a, nil
	}

	result := RunBulk(snap, []models.Installation{incoming}, scoringCriteria(), BulkOptions{}, commit)
	if result.Successful != 0 || result.Failed != 1 {
		t.Fatalf("successful/failed = %d/%d, want 0/1", result.Successful, result.Failed)
	}
	if calls != 0 {
		t.Error("blocked item must not be committed")
	}
	if len(result.Conflicts) == 0 {
		t.Fatal("blocked result should surface the new conflicts")
	}
	if result.Conflicts[0].Type != models.ConflictCapacityExceeded {
		t.Errorf("conflict type = %q, want capacity_exceeded", result.Conflicts[0].Type)
	}

	override := RunBulk(snap, []models.Installation{incoming}, scoringCriteria(), BulkOptions{OverrideConflicts: true}, commit)
	if override.Successful != 1 {
		t.Fatalf("override run should succeed, got %d/%d", override.Successful, override.Failed)
	}
	if calls != 1 {
		t.Errorf("override run should commit once, commit calls = %d", calls)
	}
}

func TestRunBulkLaterItemsSeeEarlierCommitments(t *testing.T) {
	// Two members, capacity 1 each, three same-day jobs: the third has nowhere
	// to go without a conflict, so it is blocked even though a stale snapshot
	// would have accepted it.
	a := member(1, "Alex", 1)
	b := member(2, "Blair", 1)
	jobs := []models.Installation{
		installation(10, "2024-06-10", "08:00", 60),
		installation(11, "2024-06-10", "10:00", 60),
		installation(12, "2024-06-10", "12:00", 60),
	}
	snap := &Snapshot{
		Teams:         []models.TeamMember{a, b},
		Installations: jobs,
	}

	result := RunBulk(snap, jobs, scoringCriteria(), BulkOptions{DryRun: true}, nil)
	if result.Successful != 2 || result.Failed != 1 {
		t.Fatalf("successful/failed = %d/%d, want 2/1", result.Successful, result.Failed)
	}
	if result.Errors[0].InstallationID != jobs[2].ID.Hex() {
		t.Errorf("blocked item = %s, want the third job", result.Errors[0].InstallationID)
	}
}
