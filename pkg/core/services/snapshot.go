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

// SnapshotStore defines the read operations needed to rank the whole pool
type SnapshotStore interface {
	db.ApplicantStore
	db.QuotaStore
}

// snapshot is the ranked view built from one applicant read followed by one quota read.
// The two reads are separate store calls, not a single transaction.
type snapshot struct {
	Applicants []model.Applicant
	Quotas     quota.Set
	Rankings   *allocator.Rankings
	Alerts     []allocator.ReconciliationAlert
}

func retryPolicy(cfg *config.Config) db.RetryPolicy {
	policy := db.DefaultRetryPolicy
	if cfg.StoreTimeout > 0 {
		policy.Timeout = cfg.StoreTimeout
	}
	return policy
}

func quotaFallback(cfg *config.Config) int {
	if cfg.DefaultQuota > 0 {
		return cfg.DefaultQuota
	}
	return quota.DefaultSeats
}

func reservePercent(cfg *config.Config) int {
	if cfg.ReservePercent > 0 {
		return cfg.ReservePercent
	}
	return quota.DefaultReservePercent
}

// loadSnapshot reads applicants and quotas, then ranks and reconciles every configured program.
// Store failures are reported as db.ErrSnapshotUnavailable; nothing is ranked from partial data.
func loadSnapshot(ctx context.Context, store SnapshotStore, cfg *config.Config, logger *zap.Logger) (*snapshot, error) {
	logger.Debug("Loading snapshot")
	records, quotaRecords, err := db.LoadSnapshot(ctx, store, retryPolicy(cfg), logger)
	if err != nil {
		return nil, err
	}

	applicants, err := db.ToApplicants(records)
	if err != nil {
		return nil, fmt.Errorf("failed to convert applicant records: %w", err)
	}

	quotas := quota.Resolve(cfg.ProgramList(), db.QuotaMap(quotaRecords), cfg.SeedQuotas(), quotaFallback(cfg))
	logger.Debug("Snapshot loaded",
		zap.Int("applicants", len(applicants)),
		zap.Int("programs", len(quotas)))

	rankings, err := allocator.BuildRankings(applicants, quotas)
	if err != nil {
		return nil, fmt.Errorf("failed to build rankings: %w", err)
	}
	alerts := allocator.ReconcileRankings(rankings)

	for _, u := range rankings.Unranked {
		logger.Warn("Applicant not ranked",
			zap.String("applicant_id", u.ApplicantID),
			zap.String("program", u.Program),
			zap.String("reason", u.Reason))
	}
	for _, a := range alerts {
		logger.Debug("Reconciliation alert",
			zap.String("applicant_id", a.ApplicantID),
			zap.String("program", a.Program),
			zap.Int("rank", a.Rank),
			zap.String("quota_status", string(a.QuotaStatus)),
			zap.String("persisted_status", string(a.PersistedStatus)))
	}

	return &snapshot{
		Applicants: applicants,
		Quotas:     quotas,
		Rankings:   rankings,
		Alerts:     alerts,
	}, nil
}

// checkProgram returns a validation error when program is set but not configured
func checkProgram(cfg *config.Config, program string) error {
	if program == "" {
		return nil
	}
	for _, p := range cfg.Programs {
		if p.Code == program {
			return nil
		}
	}
	return &model.ValidationError{Subject: program, Field: "program", Reason: "unknown program code"}
}
