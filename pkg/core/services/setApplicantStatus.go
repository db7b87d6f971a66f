package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/internal/config"
	"github.com/jakechorley/admissions-allocator/pkg/core/allocator"
	"github.com/jakechorley/admissions-allocator/pkg/core/model"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
	"github.com/jakechorley/admissions-allocator/pkg/db"
)

// SetStatusResult describes a manual status change and how it compares with the applicant's rank
type SetStatusResult struct {
	ApplicantID string
	FullName    string
	Program     string

	From model.Status
	To   model.Status

	// Rank and QuotaStatus are zero when the applicant's program is not ranked
	Rank        int
	QuotaStatus model.Status

	EffectiveStatus model.Status
	Consistent      bool
}

// SetApplicantStatus records an administrative override for one applicant.
// Any transition is allowed, including a reset back to pending, which hands the decision
// back to the quota cutoff. The write happens under the applicant's program lock.
func SetApplicantStatus(ctx context.Context, store db.Database, cfg *config.Config, logger *zap.Logger, applicantID string, rawStatus string) (*SetStatusResult, error) {
	status, err := model.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	policy := retryPolicy(cfg)

	var records []db.ApplicantRecord
	err = db.WithRetry(ctx, policy, logger, "load applicants", func(ctx context.Context) error {
		var err error
		records, err = store.GetApplicants(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get applicants: %w", err)
	}

	var target *db.ApplicantRecord
	for i := range records {
		if records[i].ID == applicantID {
			target = &records[i]
			break
		}
	}
	if target == nil {
		return nil, &model.ValidationError{Subject: applicantID, Field: "id", Reason: "applicant not found"}
	}

	logger.Debug("Setting applicant status",
		zap.String("applicant_id", applicantID),
		zap.String("program", target.Program),
		zap.String("status", string(status)))

	if checkProgram(cfg, target.Program) != nil || target.Program == "" {
		// Not ranked, so there is no program pool to serialize against
		from, _ := model.ParseStatus(target.Status)
		err := db.WithRetry(ctx, policy, logger, "update status "+applicantID, func(ctx context.Context) error {
			return store.UpdateApplicantStatus(ctx, applicantID, string(status), "")
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update status: %w", err)
		}
		return &SetStatusResult{
			ApplicantID:     applicantID,
			FullName:        target.FullName,
			Program:         target.Program,
			From:            from,
			To:              status,
			EffectiveStatus: status,
			Consistent:      !status.IsOverride(),
		}, nil
	}

	var result *SetStatusResult
	err = db.WithRetry(ctx, policy, logger, "set status "+applicantID, func(ctx context.Context) error {
		return store.WithProgramLock(ctx, target.Program, func(tx db.ProgramTx) error {
			res, err := setStatusLocked(ctx, tx, cfg, target.Program, applicantID, status)
			result = res
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	if !result.Consistent {
		logger.Warn("Status override disagrees with rank",
			zap.String("applicant_id", applicantID),
			zap.Int("rank", result.Rank),
			zap.String("quota_status", string(result.QuotaStatus)),
			zap.String("status", string(result.To)))
	}
	logger.Info("Applicant status updated",
		zap.String("applicant_id", applicantID),
		zap.String("from", string(result.From)),
		zap.String("to", string(result.To)))

	return result, nil
}

func setStatusLocked(ctx context.Context, tx db.ProgramTx, cfg *config.Config, program, applicantID string, status model.Status) (*SetStatusResult, error) {
	records, err := tx.GetApplicantsByProgram(ctx, program)
	if err != nil {
		return nil, fmt.Errorf("failed to read applicants: %w", err)
	}
	applicants, err := db.ToApplicants(records)
	if err != nil {
		return nil, err
	}

	var from model.Status = model.StatusPending
	found := false
	for i := range applicants {
		if applicants[i].ID == applicantID {
			if applicants[i].PersistedStatus != "" {
				from = applicants[i].PersistedStatus
			}
			applicants[i].PersistedStatus = status
			found = true
		}
	}
	if !found {
		// Moved to another program since it was looked up
		return nil, fmt.Errorf("applicant %s is no longer in program %s", applicantID, program)
	}

	seats, ok, err := tx.GetQuota(ctx, program)
	if err != nil {
		return nil, fmt.Errorf("failed to read quota: %w", err)
	}
	if !ok {
		seats = quota.Resolve([]model.Program{{Code: program}}, nil, cfg.SeedQuotas(), quotaFallback(cfg))[program]
	}

	if err := tx.UpdateApplicantStatus(ctx, applicantID, string(status), ""); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	rankings, err := allocator.BuildRankings(applicants, quota.Set{program: seats})
	if err != nil {
		return nil, err
	}
	allocator.ReconcileRankings(rankings)

	for _, entry := range rankings.Programs[program] {
		if entry.ApplicantID != applicantID {
			continue
		}
		return &SetStatusResult{
			ApplicantID:     applicantID,
			FullName:        entry.FullName,
			Program:         program,
			From:            from,
			To:              status,
			Rank:            entry.Rank,
			QuotaStatus:     entry.QuotaStatus,
			EffectiveStatus: entry.EffectiveStatus,
			Consistent:      entry.Consistent,
		}, nil
	}

	return nil, fmt.Errorf("applicant %s missing from ranking", applicantID)
}

// StatusHistory returns the audit trail of one applicant's persisted status, oldest first
func StatusHistory(ctx context.Context, store db.ApplicantStore, cfg *config.Config, logger *zap.Logger, applicantID string) ([]db.StatusChange, error) {
	logger.Debug("Fetching status history", zap.String("applicant_id", applicantID))

	var changes []db.StatusChange
	err := db.WithRetry(ctx, retryPolicy(cfg), logger, "load status changes", func(ctx context.Context) error {
		var err error
		changes, err = store.GetStatusChanges(ctx, applicantID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get status changes: %w", err)
	}

	return changes, nil
}
