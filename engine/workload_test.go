package engine

import (
	"math"
	"testing"

	"fieldsched/models"
)

func TestComputeWorkloadStatuses(t *testing.T) {
	// Default capacity is 8h; 528 assigned minutes is 110%, 96 is 20%.
	busy := member(1, "Alex", 5)
	light := member(2, "Blair", 5)
	i1 := installation(10, "2024-06-10", "08:00", 528)
	i2 := installation(11, "2024-06-10", "09:00", 96)

	snap := &Snapshot{
		Teams:         []models.TeamMember{busy, light},
		Installations: []models.Installation{i1, i2},
		Assignments: []models.Assignment{
			assignment(20, i1.ID, busy.ID, "2024-06-10", "08:00", 528),
			assignment(21, i2.ID, light.ID, "2024-06-10", "09:00", 96),
		},
	}

	d := day("2024-06-10")
	records, summary := ComputeWorkload(snap, d, d, nil)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	byID := map[string]models.WorkloadRecord{}
	for _, r := range records {
		byID[r.TeamMemberID] = r
	}

	over := byID[busy.ID.Hex()]
	if over.Status != models.WorkloadOverutilized {
		t.Errorf("110%% utilization status = %q, want overutilized", over.Status)
	}
	if math.Abs(over.UtilizationPercentage-110) > 0.01 {
		t.Errorf("utilization = %.2f, want 110", over.UtilizationPercentage)
	}
	if math.Abs(over.OvertimeHours-0.8) > 0.01 {
		t.Errorf("overtime = %.2f hours, want 0.8", over.OvertimeHours)
	}

	under := byID[light.ID.Hex()]
	if under.Status != models.WorkloadUnderutilized {
		t.Errorf("20%% utilization status = %q, want underutilized", under.Status)
	}
	if under.OvertimeHours != 0 {
		t.Errorf("under capacity should have no overtime, got %.2f", under.OvertimeHours)
	}

	if len(summary.Recommendations) == 0 {
		t.Error("overutilized member should produce a recommendation")
	}
}

func TestComputeWorkloadFullDayIsOptimal(t *testing.T) {
	m := member(1, "Alex", 5)
	inst := installation(10, "2024-06-10", "08:00", 480)
	snap := &Snapshot{
		Teams:         []models.TeamMember{m},
		Installations: []models.Installation{inst},
		Assignments:   []models.Assignment{assignment(20, inst.ID, m.ID, "2024-06-10", "08:00", 480)},
	}

	d := day("2024-06-10")
	records, _ := ComputeWorkload(snap, d, d, nil)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Status != models.WorkloadOptimal {
		t.Errorf("exactly 100%% utilization status = %q, want optimal", records[0].Status)
	}
}

func TestComputeWorkloadSummaryVariance(t *testing.T) {
	// 100% and 20% utilization: mean 60, population variance 1600.
	full := member(1, "Alex", 5)
	light := member(2, "Blair", 5)
	i1 := installation(10, "2024-06-10", "08:00", 480)
	i2 := installation(11, "2024-06-10", "09:00", 96)

	snap := &Snapshot{
		Teams:         []models.TeamMember{full, light},
		Installations: []models.Installation{i1, i2},
		Assignments: []models.Assignment{
			assignment(20, i1.ID, full.ID, "2024-06-10", "08:00", 480),
			assignment(21, i2.ID, light.ID, "2024-06-10", "09:00", 96),
		},
	}

	d := day("2024-06-10")
	_, summary := ComputeWorkload(snap, d, d, nil)
	if math.Abs(summary.AvgUtilization-60) > 0.01 {
		t.Errorf("avg utilization = %.2f, want 60", summary.AvgUtilization)
	}
	if math.Abs(summary.Variance-1600) > 0.01 {
		t.Errorf("variance = %.2f, want 1600", summary.Variance)
	}
	if len(summary.Recommendations) == 0 {
		t.Error("variance above threshold should recommend rebalancing")
	}
	if summary.TotalCapacityHours != 16 {
		t.Errorf("total capacity = %.1f hours, want 16", summary.TotalCapacityHours)
	}
	if math.Abs(summary.TotalAssignedHours-9.6) > 0.01 {
		t.Errorf("total assigned = %.2f hours, want 9.6", summary.TotalAssignedHours)
	}
}

func TestComputeWorkloadSkipsInactiveMembers(t *testing.T) {
	gone := member(1, "Alex", 5)
	gone.Active = false
	snap := &Snapshot{Teams: []models.TeamMember{gone}}

	d := day("2024-06-10")
	records, summary := ComputeWorkload(snap, d, d, nil)
	if len(records) != 0 {
		t.Fatalf("inactive members must not produce records, got %d", len(records))
	}
	if summary.TotalCapacityHours != 0 {
		t.Errorf("inactive members must not count toward capacity, got %.1f", summary.TotalCapacityHours)
	}
}

func TestComputeWorkloadConflictCounts(t *testing.T) {
	m := member(1, "Alex", 1)
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

	d := day("2024-06-10")
	conflicts := Detect(snap, 50, detectAsOf)
	if len(conflicts) == 0 {
		t.Fatal("fixture should produce a capacity conflict")
	}
	records, _ := ComputeWorkload(snap, d, d, conflicts)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ConflictCount != len(conflicts) {
		t.Errorf("conflict count = %d, want %d", records[0].ConflictCount, len(conflicts))
	}
}

func TestCapacityMinutesFromDeclaredWindow(t *testing.T) {
	m := member(1, "Alex", 5)
	m.Availability.StartTime = "08:00"
	m.Availability.EndTime = "14:00"
	if got := capacityMinutes(m); got != 360 {
		t.Errorf("declared 6h window capacity = %.0f minutes, want 360", got)
	}

	m.Availability = models.Availability{}
	if got := capacityMinutes(m); got != 480 {
		t.Errorf("default capacity = %.0f minutes, want 480", got)
	}
}
