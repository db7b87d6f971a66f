package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/internal/config"
	"github.com/jakechorley/admissions-allocator/pkg/core/allocator"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
)

// ProgramDelta compares a program's simulated outcome with the outcome under live quotas
type ProgramDelta struct {
	Program           string
	LiveQuota         int
	SimulatedQuota    int
	LiveAccepted      int
	SimulatedAccepted int
}

// AcceptedChange is the simulated accepted count minus the live one
func (d ProgramDelta) AcceptedChange() int {
	return d.SimulatedAccepted - d.LiveAccepted
}

// SimulateResult contains a what-if run and how it differs from the live quotas
type SimulateResult struct {
	Simulation      *allocator.SimulationResult
	LiveQuotas      quota.Set
	SimulatedQuotas quota.Set
	Deltas          []ProgramDelta
}

// SimulateAllocation replays the allocation with overrides laid over the live quotas.
// Overrides are validated like real quota updates but never stored, and no status is written.
func SimulateAllocation(ctx context.Context, store SnapshotStore, cfg *config.Config, logger *zap.Logger, overrides map[string]int) (*SimulateResult, error) {
	for _, program := range quota.Set(overrides).Programs() {
		if err := checkProgram(cfg, program); err != nil {
			return nil, err
		}
		if err := quota.Validate(program, overrides[program]); err != nil {
			return nil, err
		}
	}

	snap, err := loadSnapshot(ctx, store, cfg, logger)
	if err != nil {
		return nil, err
	}

	simulated := snap.Quotas.Clone()
	for program, seats := range overrides {
		simulated[program] = seats
	}

	reserve := reservePercent(cfg)
	live, err := allocator.Simulate(snap.Applicants, snap.Quotas, reserve)
	if err != nil {
		return nil, fmt.Errorf("failed to simulate live quotas: %w", err)
	}
	result, err := allocator.Simulate(snap.Applicants, simulated, reserve)
	if err != nil {
		return nil, fmt.Errorf("failed to simulate quotas: %w", err)
	}

	deltas := make([]ProgramDelta, 0, len(simulated))
	for _, program := range simulated.Programs() {
		deltas = append(deltas, ProgramDelta{
			Program:           program,
			LiveQuota:         snap.Quotas[program],
			SimulatedQuota:    simulated[program],
			LiveAccepted:      live.Programs[program].Accepted,
			SimulatedAccepted: result.Programs[program].Accepted,
		})
	}

	logger.Info("Simulation complete",
		zap.Int("overrides", len(overrides)),
		zap.Int("accepted", result.Summary.Accepted),
		zap.Int("waitlisted", result.Summary.Waitlisted),
		zap.Float64("utilization", result.Summary.Utilization))

	return &SimulateResult{
		Simulation:      result,
		LiveQuotas:      snap.Quotas,
		SimulatedQuotas: simulated,
		Deltas:          deltas,
	}, nil
}
