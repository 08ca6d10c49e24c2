// engine/optimizer.go
package engine

import (
	"fmt"
	"math"
	"sort"

	"fieldsched/models"
)

// SubScores are the five normalized (0-1) components behind a composite
// score. They are returned with every candidate so operators can audit why a
// member ranked where it did.
type SubScores struct {
	WorkloadBalance float64 `json:"workloadBalance"`
	SkillMatch      float64 `json:"skillMatch"`
	Performance     float64 `json:"performance"`
	Urgency         float64 `json:"urgency"`
	Geographic      float64 `json:"geographic"`
}

// CandidateScore is one scored team member for an installation.
type CandidateScore struct {
	TeamMemberID         string    `json:"teamMemberId"`
	TeamMemberName       string    `json:"teamMemberName"`
	Score                float64   `json:"score"` // composite, 0-100
	SubScores            SubScores `json:"subScores"`
	TravelKm             float64   `json:"travelKm"`
	ProjectedUtilization float64   `json:"projectedUtilization"`
	assignedMins         int
}

// Alternative is a runner-up candidate with a one-line tradeoff against the
// recommended member.
type Alternative struct {
	CandidateScore
	Tradeoff string `json:"tradeoff"`
}

// AssignmentResult is a ranked proposal for one installation.
type AssignmentResult struct {
	InstallationID string         `json:"installationId"`
	Recommended    CandidateScore `json:"recommended"`
	Alternatives   []Alternative  `json:"alternatives,omitempty"`
	Confidence     float64        `json:"confidence"` // 0-1 gap between top two
	Reasoning      string         `json:"reasoning"`
	Weights        Weights        `json:"weights"` // normalized weights used
}

// Propose scores every eligible team member for the installation and returns
// the best candidate plus up to three alternatives. Members failing any
// enabled hard filter are excluded before scoring; if nobody survives, a
// *NoCandidateError names the failing constraints.
func Propose(snap *Snapshot, inst models.Installation, criteria Criteria) (*AssignmentResult, error) {
	weights := criteria.Weights.Normalize()
	dateKey := models.DateKey(inst.ScheduledDate)
	maxKm := criteria.maxTravel()

	teams := make([]models.TeamMember, len(snap.Teams))
	copy(teams, snap.Teams)
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID.Hex() < teams[j].ID.Hex() })

	failed := map[string]bool{}
	var candidates []CandidateScore

	for _, member := range teams {
		if !member.Active {
			failed["active"] = true
			continue
		}
		if criteria.ConsiderAvailability && !availableFor(member, inst) {
			failed["availability"] = true
			continue
		}
		if criteria.ConsiderSkills && !memberCoversSkills(member, inst.RequiredSkills) {
			failed["skills"] = true
			continue
		}
		km := travelKmTo(snap, member, inst)
		if criteria.ConsiderLocation && km > maxKm {
			failed["travel_distance"] = true
			continue
		}

		assignedMins := snap.AssignedMinutesFor(member.ID, dateKey)
		projected := projectedUtilization(snap, member, dateKey, inst.DurationMinutes)

		sub := SubScores{
			WorkloadBalance: clamp01(1 - projected),
			SkillMatch:      skillMatchScore(member, inst, criteria),
			Performance:     memberEfficiency(member),
			Urgency:         urgencyScore(inst),
			Geographic:      geographicScore(km, maxKm, criteria),
		}
		composite := (weights.WorkloadBalance*sub.WorkloadBalance +
			weights.SkillMatch*sub.SkillMatch +
			weights.Performance*sub.Performance +
			weights.Urgency*sub.Urgency +
			weights.Geographic*sub.Geographic) * 100

		candidates = append(candidates, CandidateScore{
			TeamMemberID:         member.ID.Hex(),
			TeamMemberName:       member.Name,
			Score:                composite,
			SubScores:            sub,
			TravelKm:             km,
			ProjectedUtilization: projected,
			assignedMins:         assignedMins,
		})
	}

	if len(candidates) == 0 {
		constraints := make([]string, 0, len(failed))
		for name := range failed {
			constraints = append(constraints, name)
		}
		sort.Strings(constraints)
		return nil, &NoCandidateError{InstallationID: inst.ID.Hex(), FailedConstraints: constraints}
	}

	// Rank: composite descending, then lower current workload, then id.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].assignedMins != candidates[j].assignedMins {
			return candidates[i].assignedMins < candidates[j].assignedMins
		}
		return candidates[i].TeamMemberID < candidates[j].TeamMemberID
	})

	top := candidates[0]
	result := &AssignmentResult{
		InstallationID: inst.ID.Hex(),
		Recommended:    top,
		Confidence:     confidence(candidates),
		Reasoning:      reasoning(top, weights),
		Weights:        weights,
	}
	for _, c := range candidates[1:] {
		if len(result.Alternatives) == 3 {
			break
		}
		result.Alternatives = append(result.Alternatives, Alternative{
			CandidateScore: c,
			Tradeoff:       tradeoff(top, c),
		})
	}
	return result, nil
}

// ProposeAll runs Propose over the installations in input order. The result
// and error slices are index-aligned with the input; exactly one of the pair
// is set per item.
func ProposeAll(snap *Snapshot, installations []models.Installation, criteria Criteria) ([]*AssignmentResult, []error) {
	results := make([]*AssignmentResult, len(installations))
	errs := make([]error, len(installations))
	for i, inst := range installations {
		results[i], errs[i] = Propose(snap, inst, criteria)
	}
	return results, errs
}

func availableFor(member models.TeamMember, inst models.Installation) bool {
	if !member.WorksOn(inst.ScheduledDate) {
		return false
	}
	start := clockMinutes(inst.StartTime)
	if start < 0 {
		return true
	}
	winStart, winEnd := workingWindow(member)
	return start >= winStart && start+inst.DurationMinutes <= winEnd
}

// skillMatchScore is the fraction of required skills the member already has;
// 1 when nothing is required or skill matching is disabled, so the weight
// cannot penalize anyone the filter did not screen. With ConsiderSkills
// enabled the hard filter has already guaranteed a full match.
func skillMatchScore(member models.TeamMember, inst models.Installation, criteria Criteria) float64 {
	if !criteria.ConsiderSkills || len(inst.RequiredSkills) == 0 {
		return 1
	}
	have := 0
	for _, skill := range inst.RequiredSkills {
		if member.HasSkill(skill) {
			have++
		}
	}
	return float64(have) / float64(len(inst.RequiredSkills))
}

// urgencyScore maps priority monotonically onto [0,1] and escalates when a
// deadline is close.
func urgencyScore(inst models.Installation) float64 {
	score := float64(models.PriorityRank(inst.Priority)) / 4
	if inst.Deadline != nil {
		daysLeft := inst.Deadline.Sub(inst.ScheduledDate).Hours() / 24
		switch {
		case daysLeft <= 2:
			score = 1
		case daysLeft <= 5 && score < 0.75:
			score = 0.75
		}
	}
	return score
}

// geographicScore rewards short travel; disabled location checks score a
// neutral 1 so the weight cannot penalize anyone.
func geographicScore(km, maxKm float64, criteria Criteria) float64 {
	if !criteria.ConsiderLocation {
		return 1
	}
	if maxKm <= 0 {
		return 1
	}
	return clamp01(1 - km/maxKm)
}

// confidence is the normalized gap between the top two composite scores:
// 1.0 for a lone candidate, 0.5 when the top two are within 5 points,
// scaling linearly with the gap otherwise.
func confidence(candidates []CandidateScore) float64 {
	if len(candidates) == 1 {
		return 1
	}
	gap := candidates[0].Score - candidates[1].Score
	if gap <= 5 {
		return 0.5
	}
	return math.Min(1, 0.5+gap/100)
}

// reasoning explains the pick by its strongest weighted component.
func reasoning(top CandidateScore, weights Weights) string {
	labels := []string{"workload balance", "skill match", "performance", "urgency", "proximity"}
	contribs := []float64{
		weights.WorkloadBalance * top.SubScores.WorkloadBalance,
		weights.SkillMatch * top.SubScores.SkillMatch,
		weights.Performance * top.SubScores.Performance,
		weights.Urgency * top.SubScores.Urgency,
		weights.Geographic * top.SubScores.Geographic,
	}
	best := 0
	for i := range contribs {
		if contribs[i] > contribs[best] {
			best = i
		}
	}
	return fmt.Sprintf("%s scored %.1f/100, led by %s; projected utilization after assignment %.0f%%, travel %.1f km",
		top.TeamMemberName, top.Score, labels[best], top.ProjectedUtilization*100, top.TravelKm)
}

// tradeoff names the sub-score on which the alternative differs most from
// the leader.
func tradeoff(top, alt CandidateScore) string {
	type delta struct {
		label      string
		topV, altV float64
	}
	deltas := []delta{
		{"workload balance", top.SubScores.WorkloadBalance, alt.SubScores.WorkloadBalance},
		{"skill match", top.SubScores.SkillMatch, alt.SubScores.SkillMatch},
		{"performance", top.SubScores.Performance, alt.SubScores.Performance},
		{"urgency", top.SubScores.Urgency, alt.SubScores.Urgency},
		{"proximity", top.SubScores.Geographic, alt.SubScores.Geographic},
	}
	best := deltas[0]
	for _, d := range deltas[1:] {
		if math.Abs(d.topV-d.altV) > math.Abs(best.topV-best.altV) {
			best = d
		}
	}
	if best.altV < best.topV {
		return fmt.Sprintf("lower %s (%.2f vs %.2f)", best.label, best.altV, best.topV)
	}
	return fmt.Sprintf("higher %s (%.2f vs %.2f) but lower overall score", best.label, best.altV, best.topV)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
