// engine/criteria.go
package engine

import "fieldsched/config"

// Weights are the user-supplied scoring weights. They are normalized to sum
// to 1 before any scoring so that identical criteria always yield identical
// rankings regardless of the raw slider magnitudes.
type Weights struct {
	WorkloadBalance float64 `json:"workloadBalance"`
	SkillMatch      float64 `json:"skillMatch"`
	Performance     float64 `json:"performance"`
	Urgency         float64 `json:"urgency"`
	Geographic      float64 `json:"geographic"`
}

// Normalize scales the weights to sum to 1. All-zero weights fall back to
// equal weighting.
func (w Weights) Normalize() Weights {
	sum := w.WorkloadBalance + w.SkillMatch + w.Performance + w.Urgency + w.Geographic
	if sum <= 0 {
		return Weights{0.2, 0.2, 0.2, 0.2, 0.2}
	}
	return Weights{
		WorkloadBalance: w.WorkloadBalance / sum,
		SkillMatch:      w.SkillMatch / sum,
		Performance:     w.Performance / sum,
		Urgency:         w.Urgency / sum,
		Geographic:      w.Geographic / sum,
	}
}

// Criteria controls candidate filtering and scoring for auto-assignment.
type Criteria struct {
	OptimizationGoal     string  `json:"optimizationGoal,omitempty"`
	ConsiderSkills       bool    `json:"considerSkills"`
	ConsiderLocation     bool    `json:"considerLocation"`
	ConsiderAvailability bool    `json:"considerAvailability"`
	ConsiderWorkload     bool    `json:"considerWorkload"`
	ConsiderPerformance  bool    `json:"considerPerformance"`
	ConsiderPreferences  bool    `json:"considerPreferences"`
	MaxTravelKm          float64 `json:"maxTravelKm,omitempty"`
	Weights              Weights `json:"weights"`
}

// DefaultCriteria is the balanced configuration used when a request carries
// no criteria block.
func DefaultCriteria() Criteria {
	return Criteria{
		OptimizationGoal:     "balanced",
		ConsiderSkills:       true,
		ConsiderLocation:     true,
		ConsiderAvailability: true,
		ConsiderWorkload:     true,
		ConsiderPerformance:  true,
		MaxTravelKm:          config.MaxTravelKm,
		Weights:              Weights{WorkloadBalance: 1, SkillMatch: 1, Performance: 1, Urgency: 1, Geographic: 1},
	}
}

// maxTravel returns the effective travel limit, falling back to the
// configured default when the request left it unset.
func (c Criteria) maxTravel() float64 {
	if c.MaxTravelKm > 0 {
		return c.MaxTravelKm
	}
	if config.MaxTravelKm > 0 {
		return config.MaxTravelKm
	}
	return 50
}
