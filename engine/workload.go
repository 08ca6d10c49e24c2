// engine/workload.go
package engine

import (
	"fmt"
	"sort"
	"time"

	"fieldsched/config"
	"fieldsched/models"
)

// rebalanceVarianceThreshold is the utilization variance above which the
// summary recommends redistributing work.
const rebalanceVarianceThreshold = 20

// capacityMinutes is the member's daily working capacity in minutes: the
// declared availability window when present, the configured work day
// otherwise.
func capacityMinutes(member models.TeamMember) float64 {
	start := clockMinutes(member.Availability.StartTime)
	end := clockMinutes(member.Availability.EndTime)
	if start >= 0 && end > start {
		return float64(end - start)
	}
	hours := config.WorkDayHours
	if hours <= 0 {
		hours = 8
	}
	return hours * 60
}

// ComputeWorkload builds one WorkloadRecord per active team member per day
// in [start, end], plus the aggregate summary. conflicts may be nil; when a
// fresh Detect result is passed, per-record conflict counts are filled in.
func ComputeWorkload(snap *Snapshot, start, end time.Time, conflicts []models.Conflict) ([]models.WorkloadRecord, models.WorkloadSummary) {
	var records []models.WorkloadRecord
	summary := models.WorkloadSummary{}
	if end.Before(start) {
		return records, summary
	}

	conflictsByKey := map[string]int{}
	for _, c := range conflicts {
		conflictsByKey[c.TeamMemberID+"|"+c.Date]++
	}

	teams := make([]models.TeamMember, len(snap.Teams))
	copy(teams, snap.Teams)
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID.Hex() < teams[j].ID.Hex() })

	memberUtilSums := map[string]float64{}
	memberUtilCounts := map[string]int{}

	for _, member := range teams {
		if !member.Active {
			continue
		}
		capMins := capacityMinutes(member)

		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			dateKey := models.DateKey(day)
			bucket := snap.ActiveAssignmentsFor(member.ID, dateKey)

			assignedMins := 0
			ids := make([]string, 0, len(bucket))
			for _, a := range bucket {
				assignedMins += a.DurationMinutes
				ids = append(ids, a.ID.Hex())
			}

			travelMins := 0.0
			prev := member.HomeBase
			for _, a := range bucket {
				site := addressOf(snap, a.InstallationID)
				travelMins += travelMinutes(haversineKm(prev, site))
				prev = site
			}

			utilization := 0.0
			if capMins > 0 {
				utilization = float64(assignedMins) / capMins * 100
			}

			status := models.WorkloadOptimal
			switch {
			case utilization > 100:
				status = models.WorkloadOverutilized
			case utilization < 60:
				status = models.WorkloadUnderutilized
			}

			buffer := capMins - float64(assignedMins) - travelMins
			if buffer < 0 {
				buffer = 0
			}
			overtime := 0.0
			if float64(assignedMins) > capMins {
				overtime = (float64(assignedMins) - capMins) / 60
			}

			records = append(records, models.WorkloadRecord{
				TeamMemberID:          member.ID.Hex(),
				TeamMemberName:        member.Name,
				Date:                  dateKey,
				AssignedHours:         float64(assignedMins) / 60,
				CapacityHours:         capMins / 60,
				UtilizationPercentage: utilization,
				Efficiency:            memberEfficiency(member),
				ConflictCount:         conflictsByKey[member.ID.Hex()+"|"+dateKey],
				Status:                status,
				AssignmentIDs:         ids,
				TravelMinutes:         travelMins,
				BufferMinutes:         buffer,
				OvertimeHours:         overtime,
			})

			summary.TotalCapacityHours += capMins / 60
			summary.TotalAssignedHours += float64(assignedMins) / 60
			memberUtilSums[member.ID.Hex()] += utilization
			memberUtilCounts[member.ID.Hex()]++
		}
	}

	// Aggregate utilization statistics across members (population variance of
	// per-member mean utilization, the optimizer's balance signal).
	memberIDs := make([]string, 0, len(memberUtilSums))
	for id := range memberUtilSums {
		memberIDs = append(memberIDs, id)
	}
	sort.Strings(memberIDs)

	if len(memberIDs) > 0 {
		var utils []float64
		sum := 0.0
		for _, id := range memberIDs {
			u := memberUtilSums[id] / float64(memberUtilCounts[id])
			utils = append(utils, u)
			sum += u
		}
		mean := sum / float64(len(utils))
		variance := 0.0
		for _, u := range utils {
			variance += (u - mean) * (u - mean)
		}
		variance /= float64(len(utils))

		summary.AvgUtilization = mean
		summary.Variance = variance
	}

	effSum, effCount := 0.0, 0
	for _, member := range teams {
		if member.Active {
			effSum += memberEfficiency(member)
			effCount++
		}
	}
	if effCount > 0 {
		summary.AvgEfficiency = effSum / float64(effCount)
	}

	if summary.Variance > rebalanceVarianceThreshold {
		summary.Recommendations = append(summary.Recommendations,
			fmt.Sprintf("utilization variance is %.1f; redistribute work from overutilized to underutilized members", summary.Variance))
	}
	for _, r := range records {
		if r.Status == models.WorkloadOverutilized {
			summary.Recommendations = append(summary.Recommendations,
				fmt.Sprintf("%s is at %.0f%% on %s; consider reassigning or rescheduling", r.TeamMemberName, r.UtilizationPercentage, r.Date))
			break
		}
	}

	return records, summary
}

// memberEfficiency clamps the rolling metric into [0,1], defaulting to 0.5
// for members with no history yet.
func memberEfficiency(member models.TeamMember) float64 {
	e := member.Efficiency
	if e <= 0 {
		return 0.5
	}
	if e > 1 {
		return 1
	}
	return e
}
