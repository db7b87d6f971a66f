package allocator

import (
	"context"
	"fmt"

	"github.com/jakechorley/admissions-allocator/pkg/core/model"
)

// StatusWriter persists one applicant status. Implemented by the record stores.
type StatusWriter interface {
	UpdateApplicantStatus(ctx context.Context, applicantID string, status string, runID string) error
}

// ApplyFilter restricts which ranked applicants a bulk apply considers.
// Zero values mean no restriction.
type ApplyFilter struct {
	Program      string
	MinRank      int
	MaxRank      int
	ApplicantIDs []string
}

// match reports whether entry is eligible, and if not, why
func (f ApplyFilter) match(entry RankEntry) (bool, string) {
	if f.Program != "" && entry.Program != f.Program {
		return false, fmt.Sprintf("program %s excluded by filter", entry.Program)
	}
	if f.MinRank > 0 && entry.Rank < f.MinRank {
		return false, fmt.Sprintf("rank %d below minimum %d", entry.Rank, f.MinRank)
	}
	if f.MaxRank > 0 && entry.Rank > f.MaxRank {
		return false, fmt.Sprintf("rank %d above maximum %d", entry.Rank, f.MaxRank)
	}
	if len(f.ApplicantIDs) > 0 {
		for _, id := range f.ApplicantIDs {
			if id == entry.ApplicantID {
				return true, ""
			}
		}
		return false, "applicant not selected"
	}
	return true, ""
}

// Outcome is what happened to one applicant in a bulk apply
type Outcome string

const (
	OutcomeUpdated     Outcome = "updated"
	OutcomeWouldUpdate Outcome = "would_update"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeFailed      Outcome = "failed"
)

// StagedChange is a status write a bulk apply intends to make
type StagedChange struct {
	ApplicantID string
	FullName    string
	Program     string
	Rank        int
	From        model.Status
	To          model.Status
	Forced      bool
}

// ApplicantResult is the per-applicant line of a bulk apply report
type ApplicantResult struct {
	ApplicantID string
	FullName    string
	Program     string
	Rank        int
	From        model.Status
	To          model.Status
	Outcome     Outcome
	Reason      string
	Error       string
}

// BulkPlan is the set of staged changes and skipped entries for a ranking set
type BulkPlan struct {
	Changes []StagedChange
	Skipped []ApplicantResult
}

// PlanBulk decides, without side effects, which entries need a status write.
// An entry is staged when its effective status differs from the persisted one (absent counts
// as pending) or when force is set.
func PlanBulk(rankings *Rankings, filter ApplyFilter, force bool) BulkPlan {
	plan := BulkPlan{Changes: []StagedChange{}, Skipped: []ApplicantResult{}}

	for _, entry := range rankings.Entries() {
		persisted := entry.PersistedStatus
		if persisted == "" {
			persisted = model.StatusPending
		}
		effective, _ := Reconcile(entry, entry.PersistedStatus)

		if ok, reason := filter.match(entry); !ok {
			plan.Skipped = append(plan.Skipped, skippedResult(entry, persisted, effective, reason))
			continue
		}

		if effective == persisted && !force {
			plan.Skipped = append(plan.Skipped, skippedResult(entry, persisted, effective, "no change"))
			continue
		}

		plan.Changes = append(plan.Changes, StagedChange{
			ApplicantID: entry.ApplicantID,
			FullName:    entry.FullName,
			Program:     entry.Program,
			Rank:        entry.Rank,
			From:        persisted,
			To:          effective,
			Forced:      effective == persisted,
		})
	}

	return plan
}

func skippedResult(entry RankEntry, from, to model.Status, reason string) ApplicantResult {
	return ApplicantResult{
		ApplicantID: entry.ApplicantID,
		FullName:    entry.FullName,
		Program:     entry.Program,
		Rank:        entry.Rank,
		From:        from,
		To:          to,
		Outcome:     OutcomeSkipped,
		Reason:      reason,
	}
}

// ApplyOptions controls a bulk apply
type ApplyOptions struct {
	Filter ApplyFilter
	Force  bool
	DryRun bool

	// RunID is recorded with every write for auditing
	RunID string
}

// BulkResult reports the outcome of a bulk apply.
// Processed counts successful writes (or, in dry run, writes that would be made).
type BulkResult struct {
	DryRun    bool
	Processed int
	Skipped   int
	Errors    int
	Results   []ApplicantResult

	// NotFound lists filter IDs that matched no ranked applicant
	NotFound []string
}

// Merge adds the counts and results of other to r
func (r *BulkResult) Merge(other BulkResult) {
	r.Processed += other.Processed
	r.Skipped += other.Skipped
	r.Errors += other.Errors
	r.Results = append(r.Results, other.Results...)
	r.NotFound = append(r.NotFound, other.NotFound...)
}

// ReportUnmatched records every id with no result as skipped with reason "applicant not found".
// Call it once on the combined result of every program the filter covered.
func (r *BulkResult) ReportUnmatched(ids []string) {
	seen := make(map[string]bool, len(r.Results))
	for _, res := range r.Results {
		seen[res.ApplicantID] = true
	}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		r.Skipped++
		r.NotFound = append(r.NotFound, id)
		r.Results = append(r.Results, ApplicantResult{
			ApplicantID: id,
			Outcome:     OutcomeSkipped,
			Reason:      "applicant not found",
		})
	}
}

// ApplyBulk writes the reconciled status of every staged entry through writer.
// In dry run nothing is written. A failed write is recorded against its applicant and the
// remaining writes still run.
func ApplyBulk(ctx context.Context, rankings *Rankings, writer StatusWriter, opts ApplyOptions) BulkResult {
	plan := PlanBulk(rankings, opts.Filter, opts.Force)

	result := BulkResult{
		DryRun:  opts.DryRun,
		Skipped: len(plan.Skipped),
		Results: make([]ApplicantResult, 0, len(plan.Changes)+len(plan.Skipped)),
	}

	for _, change := range plan.Changes {
		res := ApplicantResult{
			ApplicantID: change.ApplicantID,
			FullName:    change.FullName,
			Program:     change.Program,
			Rank:        change.Rank,
			From:        change.From,
			To:          change.To,
		}
		if change.Forced {
			res.Reason = "forced"
		}

		if opts.DryRun {
			res.Outcome = OutcomeWouldUpdate
			result.Processed++
			result.Results = append(result.Results, res)
			continue
		}

		if err := writer.UpdateApplicantStatus(ctx, change.ApplicantID, string(change.To), opts.RunID); err != nil {
			res.Outcome = OutcomeFailed
			res.Error = err.Error()
			result.Errors++
			result.Results = append(result.Results, res)
			continue
		}

		res.Outcome = OutcomeUpdated
		result.Processed++
		result.Results = append(result.Results, res)
	}

	result.Results = append(result.Results, plan.Skipped...)

	return result
}
