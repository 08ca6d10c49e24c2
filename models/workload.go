// models/workload.go
package models

// Workload statuses derived from utilization percentage.
const (
	WorkloadOptimal       = "optimal"       // 60-100%
	WorkloadOverutilized  = "overutilized"  // >100%
	WorkloadUnderutilized = "underutilized" // <60%
)

// WorkloadRecord is the recomputed (teamMember, date) projection of assigned
// work. It is never mutated independently of the assignments it summarizes.
type WorkloadRecord struct {
	TeamMemberID          string   `json:"teamMemberId"`
	TeamMemberName        string   `json:"teamMemberName,omitempty"`
	Date                  string   `json:"date"`
	AssignedHours         float64  `json:"assignedHours"`
	CapacityHours         float64  `json:"capacityHours"`
	UtilizationPercentage float64  `json:"utilizationPercentage"`
	Efficiency            float64  `json:"efficiency"`
	ConflictCount         int      `json:"conflictCount"`
	Status                string   `json:"status"`
	AssignmentIDs         []string `json:"assignmentIds,omitempty"`
	TravelMinutes         float64  `json:"travelMinutes"`
	BufferMinutes         float64  `json:"bufferMinutes"`
	OvertimeHours         float64  `json:"overtimeHours"`
}

// WorkloadSummary aggregates the records over a date range.
type WorkloadSummary struct {
	TotalCapacityHours float64  `json:"totalCapacityHours"`
	TotalAssignedHours float64  `json:"totalAssignedHours"`
	AvgUtilization     float64  `json:"avgUtilization"`
	AvgEfficiency      float64  `json:"avgEfficiency"`
	Variance           float64  `json:"variance"` // population variance of per-member utilization
	Recommendations    []string `json:"recommendations,omitempty"`
}
