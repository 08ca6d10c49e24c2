package engine

import (
	"reflect"
	"testing"
	"time"

	"fieldsched/models"
)

var detectAsOf = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func conflictsOfType(conflicts []models.Conflict, ctype string) []models.Conflict {
	var out []models.Conflict
	for _, c := range conflicts {
		if c.Type == ctype {
			out = append(out, c)
		}
	}
	return out
}

func TestDetectEmptyState(t *testing.T) {
	snap := &Snapshot{}
	if got := Detect(snap, 50, detectAsOf); len(got) != 0 {
		t.Fatalf("expected no conflicts on empty state, got %d", len(got))
	}
}

func TestDetectCapacityExceeded(t *testing.T) {
	m := member(1, "Dana", 2)
	i1 := installation(10, "2024-06-10", "08:00", 60)
	i2 := installation(11, "2024-06-10", "10:00", 60)
	i3 := installation(12, "2024-06-10", "12:00", 60)
	snap := &Snapshot{
		Teams:         []models.TeamMember{m},
		Installations: []models.Installation{i1, i2, i3},
		Assignments: []models.Assignment{
			assignment(20, i1.ID, m.ID, "2024-06-10", "08:00", 60),
			assignment(21, i2.ID, m.ID, "2024-06-10", "10:00", 60),
			assignment(22, i3.ID, m.ID, "2024-06-10", "12:00", 60),
		},
	}

	got := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictCapacityExceeded)
	if len(got) != 1 {
		t.Fatalf("expected exactly one capacity_exceeded conflict, got %d", len(got))
	}
	c := got[0]
	if len(c.AssignmentIDs) != 3 {
		t.Errorf("conflict should reference all 3 assignments, got %v", c.AssignmentIDs)
	}
	if models.SeverityRank(c.Severity) < models.SeverityRank(models.SeverityMedium) {
		t.Errorf("severity %q should be at least medium", c.Severity)
	}
	if c.TeamMemberID != m.ID.Hex() {
		t.Errorf("conflict attributed to %s, want %s", c.TeamMemberID, m.ID.Hex())
	}
}

func TestDetectCapacityCriticalWhenFarOver(t *testing.T) {
	m := member(1, "Dana", 2)
	var assignments []models.Assignment
	var installations []models.Installation
	for n := byte(0); n < 4; n++ {
		inst := installation(10+n, "2024-06-10", "08:00", 30)
		inst.StartTime = minutesClock(8*60 + int(n)*60)
		installations = append(installations, inst)
		assignments = append(assignments, assignment(20+n, inst.ID, m.ID, "2024-06-10", inst.StartTime, 30))
	}
	snap := &Snapshot{Teams: []models.TeamMember{m}, Installations: installations, Assignments: assignments}

	got := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictCapacityExceeded)
	if len(got) != 1 {
		t.Fatalf("expected one capacity conflict, got %d", len(got))
	}
	// 4 assignments against capacity 2 is more than 50% over.
	if got[0].Severity != models.SeverityCritical {
		t.Errorf("severity = %q, want critical", got[0].Severity)
	}
}

func TestDetectTimeOverlap(t *testing.T) {
	m := member(1, "Dana", 5)
	i1 := installation(10, "2024-06-10", "09:00", 120)
	i2 := installation(11, "2024-06-10", "10:00", 120)
	snap := &Snapshot{
		Teams:         []models.TeamMember{m},
		Installations: []models.Installation{i1, i2},
		Assignments: []models.Assignment{
			assignment(20, i1.ID, m.ID, "2024-06-10", "09:00", 120),
			assignment(21, i2.ID, m.ID, "2024-06-10", "10:00", 120),
		},
	}

	got := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictTimeOverlap)
	if len(got) != 1 {
		t.Fatalf("expected one overlap conflict, got %d", len(got))
	}
	// 60 min overlap on 120 min jobs: not beyond half the shorter job.
	if got[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %q, want medium", got[0].Severity)
	}
	if len(got[0].AssignmentIDs) != 2 {
		t.Errorf("overlap should reference both assignments, got %v", got[0].AssignmentIDs)
	}
}

func TestDetectOverlapHighSeverity(t *testing.T) {
	m := member(1, "Dana", 5)
	i1 := installation(10, "2024-06-10", "09:00", 120)
	i2 := installation(11, "2024-06-10", "09:30", 60)
	snap := &Snapshot{
		Teams:         []models.TeamMember{m},
		Installations: []models.Installation{i1, i2},
		Assignments: []models.Assignment{
			assignment(20, i1.ID, m.ID, "2024-06-10", "09:00", 120),
			assignment(21, i2.ID, m.ID, "2024-06-10", "09:30", 60),
		},
	}

	got := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictTimeOverlap)
	if len(got) != 1 {
		t.Fatalf("expected one overlap conflict, got %d", len(got))
	}
	// The shorter job is fully swallowed.
	if got[0].Severity != models.SeverityHigh {
		t.Errorf("severity = %q, want high", got[0].Severity)
	}
}

func TestDetectOverlapViaAssistant(t *testing.T) {
	lead := member(1, "Dana", 5)
	helper := member(2, "Eli", 5)
	i1 := installation(10, "2024-06-10", "09:00", 60)
	i2 := installation(11, "2024-06-10", "09:30", 60)

	a1 := assignment(20, i1.ID, lead.ID, "2024-06-10", "09:00", 60)
	a2 := assignment(21, i2.ID, helper.ID, "2024-06-10", "09:30", 60)
	a2.AssistantID = lead.ID // lead is also assisting elsewhere

	snap := &Snapshot{
		Teams:         []models.TeamMember{lead, helper},
		Installations: []models.Installation{i1, i2},
		Assignments:   []models.Assignment{a1, a2},
	}

	got := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictTimeOverlap)
	if len(got) != 1 {
		t.Fatalf("assistant double-booking should be detected, got %d overlap conflicts", len(got))
	}
}

func TestDetectSkillMismatch(t *testing.T) {
	m := member(1, "Dana", 5, "plumbing")
	inst := installation(10, "2024-06-10", "09:00", 60, "electrical")
	snap := &Snapshot{
		Teams:         []models.TeamMember{m},
		Installations: []models.Installation{inst},
		Assignments:   []models.Assignment{assignment(20, inst.ID, m.ID, "2024-06-10", "09:00", 60)},
	}

	got := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictSkillMismatch)
	if len(got) != 1 {
		t.Fatalf("expected one skill_mismatch conflict, got %d", len(got))
	}
	if got[0].Severity != models.SeverityHigh {
		t.Errorf("severity = %q, want high", got[0].Severity)
	}
}

func TestDetectSkillCoveredByAssistant(t *testing.T) {
	lead := member(1, "Dana", 5, "plumbing")
	helper := member(2, "Eli", 5, "electrical")
	inst := installation(10, "2024-06-10", "09:00", 60, "electrical")
	a := assignment(20, inst.ID, lead.ID, "2024-06-10", "09:00", 60)
	a.AssistantID = helper.ID

	snap := &Snapshot{
		Teams:         []models.TeamMember{lead, helper},
		Installations: []models.Installation{inst},
		Assignments:   []models.Assignment{a},
	}

	if got := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictSkillMismatch); len(got) != 0 {
		t.Fatalf("assistant covers the skill, expected no mismatch, got %d", len(got))
	}
}

func TestDetectAvailabilityViolation(t *testing.T) {
	m := member(1, "Dana", 5)
	m.Availability = models.Availability{
		WorkingDays: []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		StartTime:   "08:00",
		EndTime:     "17:00",
	}
	// 2024-06-09 is a Sunday.
	inst := installation(10, "2024-06-09", "09:00", 60)
	snap := &Snapshot{
		Teams:         []models.TeamMember{m},
		Installations: []models.Installation{inst},
		Assignments:   []models.Assignment{assignment(20, inst.ID, m.ID, "2024-06-09", "09:00", 60)},
	}

	got := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictAvailability)
	if len(got) != 1 {
		t.Fatalf("expected one availability conflict, got %d", len(got))
	}
	if got[0].Severity != models.SeverityHigh {
		t.Errorf("severity = %q, want high", got[0].Severity)
	}
}

func TestDetectAvailabilityCriticalWithDeadline(t *testing.T) {
	m := member(1, "Dana", 5)
	m.Availability = models.Availability{WorkingDays: []string{"monday"}}
	inst := installation(10, "2024-06-09", "09:00", 60) // Sunday
	deadline := day("2024-06-09")
	inst.Deadline = &deadline

	snap := &Snapshot{
		Teams:         []models.TeamMember{m},
		Installations: []models.Installation{inst},
		Assignments:   []models.Assignment{assignment(20, inst.ID, m.ID, "2024-06-09", "09:00", 60)},
	}

	got := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictAvailability)
	if len(got) != 1 {
		t.Fatalf("expected one availability conflict, got %d", len(got))
	}
	if got[0].Severity != models.SeverityCritical {
		t.Errorf("severity = %q, want critical for fixed-deadline job", got[0].Severity)
	}
}

func TestDetectTravelDistance(t *testing.T) {
	m := member(1, "Dana", 5)
	near := installation(10, "2024-06-10", "08:00", 60)
	far := installation(11, "2024-06-10", "10:00", 60)
	far.Address = models.Address{Latitude: 41.5, Longitude: -74.0} // ~89 km north

	snap := &Snapshot{
		Teams:         []models.TeamMember{m},
		Installations: []models.Installation{near, far},
		Assignments: []models.Assignment{
			assignment(20, near.ID, m.ID, "2024-06-10", "08:00", 60),
			assignment(21, far.ID, m.ID, "2024-06-10", "10:00", 60),
		},
	}

	got := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictTravelDistance)
	if len(got) != 1 {
		t.Fatalf("expected one travel_distance conflict, got %d", len(got))
	}
	if got[0].Severity != models.SeverityLow {
		t.Errorf("severity = %q, want low", got[0].Severity)
	}
}

func TestDetectDeterministic(t *testing.T) {
	m1 := member(1, "Dana", 1)
	m2 := member(2, "Eli", 1)
	i1 := installation(10, "2024-06-10", "09:00", 120)
	i2 := installation(11, "2024-06-10", "10:00", 120)
	i3 := installation(12, "2024-06-10", "09:00", 60, "electrical")
	snap := &Snapshot{
		Teams:         []models.TeamMember{m2, m1}, // deliberately unsorted
		Installations: []models.Installation{i1, i2, i3},
		Assignments: []models.Assignment{
			assignment(20, i1.ID, m1.ID, "2024-06-10", "09:00", 120),
			assignment(21, i2.ID, m1.ID, "2024-06-10", "10:00", 120),
			assignment(22, i3.ID, m2.ID, "2024-06-10", "09:00", 60),
		},
	}

	first := Detect(snap, 50, detectAsOf)
	for i := 0; i < 5; i++ {
		if got := Detect(snap, 50, detectAsOf); !reflect.DeepEqual(first, got) {
			t.Fatalf("Detect is not deterministic: run %d differs", i)
		}
	}
}

func TestDetectSuggestsReassignToSkilledSpareMember(t *testing.T) {
	busy := member(1, "Dana", 1, "electrical")
	spare := member(2, "Eli", 4, "electrical")
	i1 := installation(10, "2024-06-10", "09:00", 60, "electrical")
	i2 := installation(11, "2024-06-10", "09:30", 60, "electrical")
	snap := &Snapshot{
		Teams:         []models.TeamMember{busy, spare},
		Installations: []models.Installation{i1, i2},
		Assignments: []models.Assignment{
			assignment(20, i1.ID, busy.ID, "2024-06-10", "09:00", 60),
			assignment(21, i2.ID, busy.ID, "2024-06-10", "09:30", 60),
		},
	}

	overlaps := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictTimeOverlap)
	if len(overlaps) != 1 {
		t.Fatalf("expected one overlap, got %d", len(overlaps))
	}
	c := overlaps[0]
	if len(c.SuggestedResolutions) == 0 {
		t.Fatal("expected suggested resolutions")
	}
	var reassign *models.Resolution
	for i := range c.SuggestedResolutions {
		if c.SuggestedResolutions[i].Method == models.ResolveReassign {
			reassign = &c.SuggestedResolutions[i]
		}
	}
	if reassign == nil {
		t.Fatal("expected a reassign suggestion")
	}
	if reassign.TeamMemberID != spare.ID.Hex() {
		t.Errorf("reassign target = %s, want spare member %s", reassign.TeamMemberID, spare.ID.Hex())
	}
	if !c.AutoResolvable {
		t.Error("conflict with a low-impact reassign should be autoResolvable")
	}
	for i := 1; i < len(c.SuggestedResolutions); i++ {
		if c.SuggestedResolutions[i].ImpactScore < c.SuggestedResolutions[i-1].ImpactScore {
			t.Error("suggestions not sorted by ascending impact")
		}
	}
}

func TestResolutionsNameTheLatestStartingAssignment(t *testing.T) {
	// The conflict's id list is hex-sorted, so when the later-starting job has
	// the lower id the two orderings disagree. Suggestions must name the job
	// they were scored against, not whatever sorts last.
	m := member(1, "Dana", 1)
	early := installation(10, "2024-06-10", "08:00", 60)
	late := installation(11, "2024-06-10", "12:00", 60)
	earlyAssign := assignment(25, early.ID, m.ID, "2024-06-10", "08:00", 60)
	lateAssign := assignment(21, late.ID, m.ID, "2024-06-10", "12:00", 60)

	snap := &Snapshot{
		Teams:         []models.TeamMember{m},
		Installations: []models.Installation{early, late},
		Assignments:   []models.Assignment{earlyAssign, lateAssign},
	}

	got := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictCapacityExceeded)
	if len(got) != 1 {
		t.Fatalf("expected one capacity conflict, got %d", len(got))
	}
	c := got[0]
	if c.AssignmentIDs[len(c.AssignmentIDs)-1] == lateAssign.ID.Hex() {
		t.Fatal("fixture must place the later-starting job before the end of the sorted id list")
	}
	if len(c.SuggestedResolutions) == 0 {
		t.Fatal("expected suggested resolutions")
	}
	for _, res := range c.SuggestedResolutions {
		if res.AssignmentID != lateAssign.ID.Hex() {
			t.Errorf("%s resolution targets %s, want the later-starting assignment %s",
				res.Method, res.AssignmentID, lateAssign.ID.Hex())
		}
	}
}

func TestCapacityMonotonicity(t *testing.T) {
	// A member already at capacity always trips capacity_exceeded when one
	// more assignment lands on the same date.
	m := member(1, "Dana", 2)
	i1 := installation(10, "2024-06-10", "08:00", 60)
	i2 := installation(11, "2024-06-10", "10:00", 60)
	snap := &Snapshot{
		Teams:         []models.TeamMember{m},
		Installations: []models.Installation{i1, i2},
		Assignments: []models.Assignment{
			assignment(20, i1.ID, m.ID, "2024-06-10", "08:00", 60),
			assignment(21, i2.ID, m.ID, "2024-06-10", "10:00", 60),
		},
	}
	if got := conflictsOfType(Detect(snap, 50, detectAsOf), models.ConflictCapacityExceeded); len(got) != 0 {
		t.Fatalf("at capacity is not over capacity, got %d conflicts", len(got))
	}

	extra := installation(12, "2024-06-10", "13:00", 60)
	next := snap.WithAssignment(assignment(22, extra.ID, m.ID, "2024-06-10", "13:00", 60))
	next.Installations = append(next.Installations, extra)

	if got := conflictsOfType(Detect(next, 50, detectAsOf), models.ConflictCapacityExceeded); len(got) != 1 {
		t.Fatalf("expected capacity_exceeded after exceeding capacity, got %d", len(got))
	}
}

func TestDetectScoped(t *testing.T) {
	m1 := member(1, "Dana", 1)
	m2 := member(2, "Eli", 1)
	i1 := installation(10, "2024-06-10", "09:00", 60)
	i2 := installation(11, "2024-06-10", "10:00", 60)
	i3 := installation(12, "2024-06-11", "09:00", 60)
	i4 := installation(13, "2024-06-11", "10:00", 60)
	snap := &Snapshot{
		Teams:         []models.TeamMember{m1, m2},
		Installations: []models.Installation{i1, i2, i3, i4},
		Assignments: []models.Assignment{
			assignment(20, i1.ID, m1.ID, "2024-06-10", "09:00", 60),
			assignment(21, i2.ID, m1.ID, "2024-06-10", "10:00", 60),
			assignment(22, i3.ID, m2.ID, "2024-06-11", "09:00", 60),
			assignment(23, i4.ID, m2.ID, "2024-06-11", "10:00", 60),
		},
	}

	all := Detect(snap, 50, detectAsOf)
	if len(all) != 2 {
		t.Fatalf("expected 2 capacity conflicts overall, got %d", len(all))
	}
	scoped := DetectScoped(snap, 50, detectAsOf, m1.ID, "2024-06-10")
	if len(scoped) != 1 {
		t.Fatalf("scoped detection should see only m1's conflict, got %d", len(scoped))
	}
	if scoped[0].TeamMemberID != m1.ID.Hex() {
		t.Errorf("scoped conflict attributed to %s, want %s", scoped[0].TeamMemberID, m1.ID.Hex())
	}
}
