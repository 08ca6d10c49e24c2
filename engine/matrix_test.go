package engine

import (
	"testing"

	"fieldsched/models"
)

func TestBuildMatrixShape(t *testing.T) {
	a := member(1, "Alex", 2)
	b := member(2, "Blair", 2)
	inactive := member(3, "Casey", 2)
	inactive.Active = false

	inst := installation(10, "2024-06-10", "09:00", 60)
	snap := &Snapshot{
		Teams:         []models.TeamMember{b, a, inactive},
		Installations: []models.Installation{inst},
		Assignments:   []models.Assignment{assignment(20, inst.ID, a.ID, "2024-06-10", "09:00", 60)},
	}

	m := BuildMatrix(snap, day("2024-06-10"), day("2024-06-12"), nil)

	wantDates := []string{"2024-06-10", "2024-06-11", "2024-06-12"}
	if len(m.Dates) != 3 {
		t.Fatalf("expected 3 dates, got %d", len(m.Dates))
	}
	for i, d := range wantDates {
		if m.Dates[i] != d {
			t.Errorf("dates[%d] = %s, want %s", i, m.Dates[i], d)
		}
	}

	if len(m.Teams) != 2 {
		t.Fatalf("inactive members must be excluded, got %d teams", len(m.Teams))
	}
	if m.Teams[0].Name != "Alex" || m.Teams[1].Name != "Blair" {
		t.Errorf("teams not sorted by name: %s, %s", m.Teams[0].Name, m.Teams[1].Name)
	}

	for _, d := range wantDates {
		row, ok := m.Cells[d]
		if !ok {
			t.Fatalf("missing row for %s", d)
		}
		if len(row) != 2 {
			t.Errorf("row %s has %d cells, want 2", d, len(row))
		}
	}
}

func TestBuildMatrixCellStatuses(t *testing.T) {
	a := member(1, "Alex", 2)
	i1 := installation(10, "2024-06-10", "08:00", 60)
	i2 := installation(11, "2024-06-10", "10:00", 60)
	i3 := installation(12, "2024-06-10", "12:00", 60)
	snap := &Snapshot{
		Teams:         []models.TeamMember{a},
		Installations: []models.Installation{i1, i2, i3},
		Assignments: []models.Assignment{
			assignment(20, i1.ID, a.ID, "2024-06-10", "08:00", 60),
			assignment(21, i2.ID, a.ID, "2024-06-10", "10:00", 60),
		},
	}

	// Two assignments against capacity two, no conflicts.
	m := BuildMatrix(snap, day("2024-06-10"), day("2024-06-11"), nil)
	cell := m.Cells["2024-06-10"][a.ID.Hex()]
	if cell.Status != models.CellAssigned {
		t.Errorf("status = %q, want assigned", cell.Status)
	}
	if cell.Utilization != 1.0 {
		t.Errorf("utilization = %.2f, want 1.0", cell.Utilization)
	}
	if len(cell.Assignments) != 2 {
		t.Errorf("cell carries %d assignments, want 2", len(cell.Assignments))
	}

	empty := m.Cells["2024-06-11"][a.ID.Hex()]
	if empty.Status != models.CellAvailable {
		t.Errorf("empty cell status = %q, want available", empty.Status)
	}

	// Third assignment overbooks the day; without conflicts attached the cell
	// is overbooked, with them it escalates to conflict.
	over := snap.WithAssignment(assignment(22, i3.ID, a.ID, "2024-06-10", "12:00", 60))

	m = BuildMatrix(over, day("2024-06-10"), day("2024-06-10"), nil)
	cell = m.Cells["2024-06-10"][a.ID.Hex()]
	if cell.Status != models.CellOverbooked {
		t.Errorf("status = %q, want overbooked", cell.Status)
	}

	conflicts := Detect(over, 50, detectAsOf)
	if len(conflicts) == 0 {
		t.Fatal("fixture should produce a capacity conflict")
	}
	m = BuildMatrix(over, day("2024-06-10"), day("2024-06-10"), conflicts)
	cell = m.Cells["2024-06-10"][a.ID.Hex()]
	if cell.Status != models.CellConflict {
		t.Errorf("status = %q, want conflict", cell.Status)
	}
	if len(cell.ConflictIDs) != 1 {
		t.Errorf("cell references %d conflicts, want 1", len(cell.ConflictIDs))
	}
	if cell.ConflictIDs[0] != conflicts[0].ID {
		t.Errorf("cell conflict id = %s, want %s", cell.ConflictIDs[0], conflicts[0].ID)
	}
}

func TestBuildMatrixEmptyRange(t *testing.T) {
	snap := &Snapshot{Teams: []models.TeamMember{member(1, "Alex", 2)}}
	m := BuildMatrix(snap, day("2024-06-11"), day("2024-06-10"), nil)
	if len(m.Dates) != 0 || len(m.Teams) != 0 {
		t.Errorf("inverted range should yield an empty matrix, got %d dates %d teams", len(m.Dates), len(m.Teams))
	}
}
