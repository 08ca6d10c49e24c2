// models/matrix.go
package models

// Matrix cell statuses, in ascending display priority.
const (
	CellAvailable  = "available"
	CellAssigned   = "assigned"
	CellOverbooked = "overbooked"
	CellConflict   = "conflict"
)

// MatrixCell aggregates one (date, team member) slot of the schedule grid.
type MatrixCell struct {
	Date          string       `json:"date"`
	TeamMemberID  string       `json:"teamMemberId"`
	Assignments   []Assignment `json:"assignments,omitempty"`
	Capacity      int          `json:"capacity"`
	Utilization   float64      `json:"utilization"` // assignment count / capacity
	ConflictIDs   []string     `json:"conflictIds,omitempty"`
	Status        string       `json:"status"`
}

// MatrixTeam is the team header row of the grid.
type MatrixTeam struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Region   string   `json:"region,omitempty"`
	Capacity int      `json:"capacity"`
	Skills   []string `json:"skills,omitempty"`
}

// Matrix is the (date x team) schedule grid handed to the frontend.
type Matrix struct {
	Dates []string                         `json:"dates"`
	Teams []MatrixTeam                     `json:"teams"`
	Cells map[string]map[string]MatrixCell `json:"cells"` // date -> teamMemberId -> cell
}
