package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/internal/config"
	"github.com/jakechorley/admissions-allocator/pkg/core/allocator"
)

// RankResult contains the reconciled ranking of every configured program
type RankResult struct {
	Rankings *allocator.Rankings
	Alerts   []allocator.ReconciliationAlert

	// Programs lists what the caller asked to see, in code order
	Programs []string
}

// RankPrograms recomputes the ranking of the whole pool from the current snapshot.
// program restricts the programs reported, not the computation.
func RankPrograms(ctx context.Context, store SnapshotStore, cfg *config.Config, logger *zap.Logger, program string) (*RankResult, error) {
	if err := checkProgram(cfg, program); err != nil {
		return nil, err
	}

	snap, err := loadSnapshot(ctx, store, cfg, logger)
	if err != nil {
		return nil, err
	}

	programs := snap.Rankings.ProgramCodes()
	if program != "" {
		programs = []string{program}
	}

	logger.Info("Rankings computed",
		zap.Int("programs", len(programs)),
		zap.Int("alerts", len(snap.Alerts)),
		zap.Int("unranked", len(snap.Rankings.Unranked)))

	return &RankResult{
		Rankings: snap.Rankings,
		Alerts:   snap.Alerts,
		Programs: programs,
	}, nil
}
