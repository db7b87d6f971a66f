package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/internal/config"
	"github.com/jakechorley/admissions-allocator/pkg/core/allocator"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
)

// NewQuotaStore creates the quota store for the configured programs
func NewQuotaStore(backend quota.Backend, cfg *config.Config, logger *zap.Logger) *quota.Store {
	return quota.NewStore(backend, cfg.ProgramList(), quotaFallback(cfg), logger).
		WithSeeds(cfg.SeedQuotas()).
		WithRetryPolicy(retryPolicy(cfg))
}

// ListQuotas returns the current quota of every configured program
func ListQuotas(ctx context.Context, backend quota.Backend, cfg *config.Config, logger *zap.Logger) (quota.Set, error) {
	return NewQuotaStore(backend, cfg, logger).All(ctx)
}

// UpdateQuotas applies quota changes best-effort. Each program is updated under its program
// lock; a failing program keeps its prior value and is reported in the result.
func UpdateQuotas(ctx context.Context, backend quota.Backend, cfg *config.Config, logger *zap.Logger, updates map[string]int) *quota.UpdateManyResult {
	logger.Debug("Updating quotas", zap.Int("programs", len(updates)))

	result := NewQuotaStore(backend, cfg, logger).UpdateMany(ctx, updates)

	logger.Info("Quota update complete",
		zap.Int("updated", len(result.Updated)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("warnings", len(result.Warnings)))

	return &result
}

// RecommendResult contains advisory quota changes and the demand they were derived from
type RecommendResult struct {
	Demand          []quota.Demand
	Recommendations []quota.Recommendation
}

// RecommendQuotas derives quota suggestions from the reconciled ranking of the current snapshot.
// Nothing is applied.
func RecommendQuotas(ctx context.Context, store SnapshotStore, cfg *config.Config, logger *zap.Logger) (*RecommendResult, error) {
	snap, err := loadSnapshot(ctx, store, cfg, logger)
	if err != nil {
		return nil, err
	}

	perProgram, _ := allocator.Aggregate(snap.Rankings)

	demand := make([]quota.Demand, 0, len(perProgram))
	for _, program := range snap.Rankings.ProgramCodes() {
		stats := perProgram[program]
		demand = append(demand, quota.Demand{
			Program:    program,
			Quota:      stats.Quota,
			Applicants: stats.Applicants,
			Accepted:   stats.Accepted,
		})
	}

	recommendations := quota.Recommend(demand)
	logger.Info("Quota recommendations computed", zap.Int("count", len(recommendations)))

	return &RecommendResult{
		Demand:          demand,
		Recommendations: recommendations,
	}, nil
}
