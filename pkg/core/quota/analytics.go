package quota

import (
	"fmt"
	"sort"
)

// Priority is the triage level of a recommendation
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var priorityOrder = map[Priority]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

// Direction says whether a recommendation raises or lowers the quota
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// Demand is the observed demand for one program in a ranking run
type Demand struct {
	Program    string
	Quota      int
	Applicants int
	Accepted   int
}

// Recommendation is an advisory quota change. Recommendations are never applied automatically.
type Recommendation struct {
	Program          string
	CurrentQuota     int
	RecommendedQuota int
	Direction        Direction
	Priority         Priority
	Reason           string
}

// Utilization returns accepted / quota, or nil when the quota is 0
func Utilization(accepted, seats int) *float64 {
	if seats <= 0 {
		return nil
	}
	u := float64(accepted) / float64(seats)
	return &u
}

// Oversubscribed reports whether a program has more applicants than seats
func Oversubscribed(applicants, seats int) bool {
	return applicants > seats
}

// Recommend produces quota suggestions from observed demand, sorted by priority then program.
//
// Rules, evaluated in order:
//   - quota 0 with applicants: raise to the applicant count (high)
//   - oversubscription above 50%: raise by 50% (high)
//   - any other oversubscription: raise by 20% (medium)
//   - utilization below 25%: shrink to actual demand (medium)
//   - utilization below 50%: lower by 20% (low)
func Recommend(demand []Demand) []Recommendation {
	recommendations := []Recommendation{}

	for _, d := range demand {
		rec, ok := recommendFor(d)
		if ok {
			recommendations = append(recommendations, rec)
		}
	}

	sort.Slice(recommendations, func(i, j int) bool {
		pi, pj := priorityOrder[recommendations[i].Priority], priorityOrder[recommendations[j].Priority]
		if pi != pj {
			return pi < pj
		}
		return recommendations[i].Program < recommendations[j].Program
	})

	return recommendations
}

func recommendFor(d Demand) (Recommendation, bool) {
	rec := Recommendation{Program: d.Program, CurrentQuota: d.Quota}

	if d.Quota <= 0 {
		if d.Applicants == 0 {
			return rec, false
		}
		rec.RecommendedQuota = min(d.Applicants, MaxSeats)
		rec.Direction = DirectionIncrease
		rec.Priority = PriorityHigh
		rec.Reason = fmt.Sprintf("program is closed but has %d applicants", d.Applicants)
		return rec, true
	}

	if Oversubscribed(d.Applicants, d.Quota) {
		rate := float64(d.Applicants-d.Quota) / float64(d.Quota)
		rec.Direction = DirectionIncrease
		if rate > 0.5 {
			rec.RecommendedQuota = min(scaleCeil(d.Quota, 150), MaxSeats)
			rec.Priority = PriorityHigh
			rec.Reason = fmt.Sprintf("oversubscribed by %.0f%% (%d applicants for %d seats)", rate*100, d.Applicants, d.Quota)
		} else {
			rec.RecommendedQuota = min(scaleCeil(d.Quota, 120), MaxSeats)
			rec.Priority = PriorityMedium
			rec.Reason = fmt.Sprintf("moderately oversubscribed by %.0f%% (%d applicants for %d seats)", rate*100, d.Applicants, d.Quota)
		}
		if rec.RecommendedQuota <= d.Quota {
			// Already at the ceiling
			return rec, false
		}
		return rec, true
	}

	utilization := float64(d.Accepted) / float64(d.Quota)
	switch {
	case utilization < 0.25:
		rec.RecommendedQuota = max(d.Applicants, 1)
		rec.Direction = DirectionDecrease
		rec.Priority = PriorityMedium
		rec.Reason = fmt.Sprintf("utilization %.0f%%, shrink toward actual demand of %d", utilization*100, d.Applicants)
	case utilization < 0.5:
		rec.RecommendedQuota = d.Quota * 80 / 100
		rec.Direction = DirectionDecrease
		rec.Priority = PriorityLow
		rec.Reason = fmt.Sprintf("utilization %.0f%%, consider lowering quota by 20%%", utilization*100)
	default:
		return rec, false
	}

	if rec.RecommendedQuota >= d.Quota {
		return rec, false
	}
	return rec, true
}

// scaleCeil returns ceil(seats * percent / 100) without floating point error
func scaleCeil(seats, percent int) int {
	return (seats*percent + 99) / 100
}
