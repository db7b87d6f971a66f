package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/internal/config"
	"github.com/jakechorley/admissions-allocator/pkg/core/allocator"
)

// StatisticsResult contains the aggregated statistics of the current snapshot
type StatisticsResult struct {
	PerProgram map[string]allocator.ProgramStats
	Overall    allocator.OverallStats
	Alerts     []allocator.ReconciliationAlert

	// Programs in code order
	Programs []string
}

// ViewStatistics ranks the current snapshot and aggregates per-program and overall statistics
func ViewStatistics(ctx context.Context, store SnapshotStore, cfg *config.Config, logger *zap.Logger) (*StatisticsResult, error) {
	snap, err := loadSnapshot(ctx, store, cfg, logger)
	if err != nil {
		return nil, err
	}

	perProgram, overall := allocator.Aggregate(snap.Rankings)

	logger.Info("Statistics computed",
		zap.Int("applicants", overall.Applicants),
		zap.Int("accepted", overall.Accepted),
		zap.Int("inconsistent", overall.Inconsistent))

	return &StatisticsResult{
		PerProgram: perProgram,
		Overall:    overall,
		Alerts:     snap.Alerts,
		Programs:   snap.Rankings.ProgramCodes(),
	}, nil
}
