package allocator

import (
	"fmt"

	"github.com/jakechorley/admissions-allocator/pkg/core/model"
)

// ReconciliationAlert reports an applicant whose persisted status disagrees with the quota
type ReconciliationAlert struct {
	ApplicantID     string
	FullName        string
	Program         string
	Rank            int
	QuotaStatus     model.Status
	PersistedStatus model.Status
}

func (a ReconciliationAlert) String() string {
	return fmt.Sprintf("applicant %s (%s) rank %d in %s: quota gives %s but status is %s",
		a.ApplicantID, a.FullName, a.Rank, a.Program, a.QuotaStatus, a.PersistedStatus)
}

// Reconcile merges the persisted status with the quota-derived one.
// An explicit administrative decision always wins. consistent is true when there is no
// decision or when the decision matches what the quota would give.
func Reconcile(entry RankEntry, persisted model.Status) (effective model.Status, consistent bool) {
	if !persisted.IsOverride() {
		return entry.QuotaStatus, true
	}
	return persisted, persisted == entry.QuotaStatus
}

// ReconcileRankings reconciles every entry in place and returns one alert per inconsistent
// entry, in program code order then rank order.
func ReconcileRankings(rankings *Rankings) []ReconciliationAlert {
	alerts := []ReconciliationAlert{}

	for _, program := range rankings.ProgramCodes() {
		entries := rankings.Programs[program]
		for i := range entries {
			entry := &entries[i]
			entry.EffectiveStatus, entry.Consistent = Reconcile(*entry, entry.PersistedStatus)
			if entry.Consistent {
				continue
			}
			alerts = append(alerts, ReconciliationAlert{
				ApplicantID:     entry.ApplicantID,
				FullName:        entry.FullName,
				Program:         entry.Program,
				Rank:            entry.Rank,
				QuotaStatus:     entry.QuotaStatus,
				PersistedStatus: entry.PersistedStatus,
			})
		}
	}

	return alerts
}
