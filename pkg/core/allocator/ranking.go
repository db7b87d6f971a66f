package allocator

import (
	"fmt"
	"sort"

	"github.com/jakechorley/admissions-allocator/pkg/core/model"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
)

// RankEntry is one applicant's position within their program's sorted list
type RankEntry struct {
	// Rank is the 1-based position after sorting by score
	Rank int

	ApplicantID string
	NISN        string
	FullName    string
	Program     string
	Score       float64

	// QuotaStatus is approved when Rank <= quota, rejected otherwise
	QuotaStatus model.Status

	// PersistedStatus is the status stored on the applicant record (empty when absent)
	PersistedStatus model.Status

	// EffectiveStatus and Consistent are filled in by the reconciler.
	// BuildRankings initialises them as if no override existed.
	EffectiveStatus model.Status
	Consistent      bool
}

// UnrankedApplicant is an applicant whose chosen program is not one being ranked
type UnrankedApplicant struct {
	ApplicantID string
	Program     string
	Reason      string
}

// Rankings is the full ranking set for one snapshot
type Rankings struct {
	// Programs maps every defined program code to its entries in rank order.
	// A program with no applicants maps to an empty slice.
	Programs map[string][]RankEntry

	// Quotas used to derive QuotaStatus
	Quotas quota.Set

	// Unranked applicants, in input order
	Unranked []UnrankedApplicant
}

// ProgramCodes returns the ranked program codes in sorted order
func (r *Rankings) ProgramCodes() []string {
	return r.Quotas.Programs()
}

// Entries returns every entry in program code order, then rank order
func (r *Rankings) Entries() []RankEntry {
	var entries []RankEntry
	for _, program := range r.ProgramCodes() {
		entries = append(entries, r.Programs[program]...)
	}
	return entries
}

// BuildRankings partitions applicants by program, sorts every partition by composite score
// and assigns ranks and quota-derived statuses. The programs being ranked are the keys of
// quotas. Ties are broken by applicant ID, then NISN, so the result never depends on input order.
func BuildRankings(applicants []model.Applicant, quotas quota.Set) (*Rankings, error) {
	rankings := &Rankings{
		Programs: make(map[string][]RankEntry, len(quotas)),
		Quotas:   quotas.Clone(),
		Unranked: []UnrankedApplicant{},
	}
	for program, seats := range quotas {
		if err := quota.Validate(program, seats); err != nil {
			return nil, err
		}
		rankings.Programs[program] = []RankEntry{}
	}

	seen := make(map[string]bool, len(applicants))
	for _, a := range applicants {
		if err := ValidateApplicant(a); err != nil {
			return nil, err
		}
		if seen[a.ID] {
			return nil, &model.ValidationError{Subject: a.ID, Field: "id", Reason: "duplicate applicant id"}
		}
		seen[a.ID] = true

		if _, ok := quotas[a.Program]; !ok {
			reason := fmt.Sprintf("program %q is not being ranked", a.Program)
			if a.Program == "" {
				reason = "no program chosen"
			}
			rankings.Unranked = append(rankings.Unranked, UnrankedApplicant{
				ApplicantID: a.ID,
				Program:     a.Program,
				Reason:      reason,
			})
			continue
		}

		rankings.Programs[a.Program] = append(rankings.Programs[a.Program], RankEntry{
			ApplicantID:     a.ID,
			NISN:            a.NISN,
			FullName:        a.FullName,
			Program:         a.Program,
			Score:           ComputeScore(a),
			PersistedStatus: a.PersistedStatus,
		})
	}

	for program, entries := range rankings.Programs {
		rankProgram(entries, quotas[program])
	}

	return rankings, nil
}

// rankProgram sorts one partition in place and assigns rank and quota status
func rankProgram(entries []RankEntry, seats int) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].ApplicantID != entries[j].ApplicantID {
			return entries[i].ApplicantID < entries[j].ApplicantID
		}
		return entries[i].NISN < entries[j].NISN
	})

	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].QuotaStatus = model.StatusRejected
		if entries[i].Rank <= seats {
			entries[i].QuotaStatus = model.StatusApproved
		}
		entries[i].EffectiveStatus = entries[i].QuotaStatus
		entries[i].Consistent = true
	}
}
