package allocator

import (
	"github.com/jakechorley/admissions-allocator/pkg/core/model"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
)

// SimulatedEntry is one applicant's outcome in a simulation
type SimulatedEntry struct {
	Rank        int
	ApplicantID string
	FullName    string
	Score       float64
	Status      model.Status
}

// ProgramSimulation is the three-tier split of one program
type ProgramSimulation struct {
	Program    string
	Quota      int
	Reserve    int
	Applicants int
	Accepted   int
	Waitlisted int
	Rejected   int

	// CutoffScore is the score of the last accepted applicant, 0 when nobody is accepted
	CutoffScore float64

	// WaitlistCutoffScore is the score of the last waitlisted applicant, 0 when nobody is waitlisted
	WaitlistCutoffScore float64

	Entries []SimulatedEntry
}

// SimulationSummary totals a simulation across programs
type SimulationSummary struct {
	Applicants int
	Accepted   int
	Waitlisted int
	Rejected   int
	TotalQuota int

	// Utilization is accepted / total quota as a percentage, 0 when the total quota is 0
	Utilization float64
}

// SimulationResult is the output of Simulate
type SimulationResult struct {
	Programs map[string]ProgramSimulation
	Summary  SimulationSummary
	Unranked []UnrankedApplicant
}

// Simulate replays the allocation under the given quotas. In each program the first quota
// applicants are accepted, the next Reserve(quota, reservePercent) are waitlisted and the rest
// are rejected. Persisted statuses are ignored and nothing is written.
func Simulate(applicants []model.Applicant, quotas quota.Set, reservePercent int) (*SimulationResult, error) {
	rankings, err := BuildRankings(applicants, quotas)
	if err != nil {
		return nil, err
	}

	result := &SimulationResult{
		Programs: make(map[string]ProgramSimulation, len(rankings.Programs)),
		Unranked: rankings.Unranked,
	}

	for _, program := range rankings.ProgramCodes() {
		sim := simulateProgram(program, quotas[program], reservePercent, rankings.Programs[program])
		result.Programs[program] = sim

		result.Summary.Applicants += sim.Applicants
		result.Summary.Accepted += sim.Accepted
		result.Summary.Waitlisted += sim.Waitlisted
		result.Summary.Rejected += sim.Rejected
		result.Summary.TotalQuota += sim.Quota
	}

	if result.Summary.TotalQuota > 0 {
		result.Summary.Utilization = roundScore(float64(result.Summary.Accepted) / float64(result.Summary.TotalQuota) * 100)
	}

	return result, nil
}

func simulateProgram(program string, seats, reservePercent int, entries []RankEntry) ProgramSimulation {
	sim := ProgramSimulation{
		Program:    program,
		Quota:      seats,
		Reserve:    quota.Reserve(seats, reservePercent),
		Applicants: len(entries),
		Entries:    make([]SimulatedEntry, 0, len(entries)),
	}

	for _, entry := range entries {
		status := model.StatusRejected
		switch {
		case entry.Rank <= seats:
			status = model.StatusApproved
			sim.Accepted++
			sim.CutoffScore = entry.Score
		case entry.Rank <= seats+sim.Reserve:
			status = model.StatusWaitlisted
			sim.Waitlisted++
			sim.WaitlistCutoffScore = entry.Score
		default:
			sim.Rejected++
		}

		sim.Entries = append(sim.Entries, SimulatedEntry{
			Rank:        entry.Rank,
			ApplicantID: entry.ApplicantID,
			FullName:    entry.FullName,
			Score:       entry.Score,
			Status:      status,
		})
	}

	return sim
}
