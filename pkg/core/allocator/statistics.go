package allocator

import (
	"github.com/jakechorley/admissions-allocator/pkg/core/model"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
)

// ProgramStats summarises one program of a ranking set
type ProgramStats struct {
	Program    string
	Quota      int
	Applicants int

	// Counts by effective status
	Accepted   int
	Waitlisted int
	Rejected   int
	Pending    int

	HighestScore float64

	// LowestAcceptedScore is 0 when nobody was accepted
	LowestAcceptedScore float64

	// CompetitionRatio is applicants / quota, nil when the quota is 0
	CompetitionRatio *float64

	// Utilization is accepted / quota, nil when the quota is 0
	Utilization *float64

	Inconsistent int
}

// OverallStats summarises a whole ranking set
type OverallStats struct {
	Programs     int
	Applicants   int
	Accepted     int
	Waitlisted   int
	Rejected     int
	Pending      int
	TotalQuota   int
	Inconsistent int
	Unranked     int

	// Score extrema and mean across every ranked applicant; all 0 when nobody is ranked
	AverageScore float64
	HighestScore float64
	LowestScore  float64
}

// Aggregate computes per-program and overall statistics from a ranking set.
// Counts use the effective status, so reconcile first to take overrides into account.
func Aggregate(rankings *Rankings) (map[string]ProgramStats, OverallStats) {
	perProgram := make(map[string]ProgramStats, len(rankings.Programs))
	overall := OverallStats{Unranked: len(rankings.Unranked)}

	var scoreSum float64
	first := true

	for _, program := range rankings.ProgramCodes() {
		stats := programStats(program, rankings.Quotas[program], rankings.Programs[program])
		perProgram[program] = stats

		overall.Programs++
		overall.Applicants += stats.Applicants
		overall.Accepted += stats.Accepted
		overall.Waitlisted += stats.Waitlisted
		overall.Rejected += stats.Rejected
		overall.Pending += stats.Pending
		overall.TotalQuota += stats.Quota
		overall.Inconsistent += stats.Inconsistent

		for _, entry := range rankings.Programs[program] {
			scoreSum += entry.Score
			if first || entry.Score > overall.HighestScore {
				overall.HighestScore = entry.Score
			}
			if first || entry.Score < overall.LowestScore {
				overall.LowestScore = entry.Score
			}
			first = false
		}
	}

	if overall.Applicants > 0 {
		overall.AverageScore = roundScore(scoreSum / float64(overall.Applicants))
	}

	return perProgram, overall
}

func programStats(program string, seats int, entries []RankEntry) ProgramStats {
	stats := ProgramStats{
		Program:    program,
		Quota:      seats,
		Applicants: len(entries),
	}

	lowestAccepted := 0.0
	for i, entry := range entries {
		if i == 0 || entry.Score > stats.HighestScore {
			stats.HighestScore = entry.Score
		}

		switch entry.EffectiveStatus {
		case model.StatusApproved:
			if stats.Accepted == 0 || entry.Score < lowestAccepted {
				lowestAccepted = entry.Score
			}
			stats.Accepted++
		case model.StatusWaitlisted:
			stats.Waitlisted++
		case model.StatusRejected:
			stats.Rejected++
		default:
			stats.Pending++
		}

		if !entry.Consistent {
			stats.Inconsistent++
		}
	}
	stats.LowestAcceptedScore = lowestAccepted

	if seats > 0 {
		ratio := float64(stats.Applicants) / float64(seats)
		stats.CompetitionRatio = &ratio
	}
	stats.Utilization = quota.Utilization(stats.Accepted, seats)

	return stats
}
