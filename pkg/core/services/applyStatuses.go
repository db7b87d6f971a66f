package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/admissions-allocator/internal/config"
	"github.com/jakechorley/admissions-allocator/pkg/core/allocator"
	"github.com/jakechorley/admissions-allocator/pkg/core/model"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
	"github.com/jakechorley/admissions-allocator/pkg/db"
)

// ApplyStatusesOptions controls a bulk status apply
type ApplyStatusesOptions struct {
	Filter allocator.ApplyFilter
	Force  bool
	DryRun bool
}

// ApplyStatusesResult contains the outcome of a bulk apply across programs
type ApplyStatusesResult struct {
	// RunID is recorded on every status change written by this run
	RunID string

	Total      allocator.BulkResult
	PerProgram map[string]allocator.BulkResult

	// Programs processed, in code order
	Programs []string
}

// ApplyStatuses persists the reconciled status of the selected applicants.
// Every program is re-read, re-ranked and written inside its own program lock, so writes
// always match the ranking observed in the same unit. Programs run in parallel up to
// cfg.MaxParallelPrograms. A store failure on any program aborts the request; per-applicant
// write failures are reported in the result.
func ApplyStatuses(ctx context.Context, store db.ProgramLocker, cfg *config.Config, logger *zap.Logger, opts ApplyStatusesOptions) (*ApplyStatusesResult, error) {
	if err := checkProgram(cfg, opts.Filter.Program); err != nil {
		return nil, err
	}
	if opts.Filter.MinRank > 0 && opts.Filter.MaxRank > 0 && opts.Filter.MinRank > opts.Filter.MaxRank {
		return nil, fmt.Errorf("invalid rank range: min %d is greater than max %d", opts.Filter.MinRank, opts.Filter.MaxRank)
	}

	programs := make([]string, 0, len(cfg.Programs))
	for _, p := range cfg.ProgramList() {
		if opts.Filter.Program == "" || p.Code == opts.Filter.Program {
			programs = append(programs, p.Code)
		}
	}
	sort.Strings(programs)

	runID := uuid.New().String()
	logger.Debug("Starting bulk apply",
		zap.String("run_id", runID),
		zap.Strings("programs", programs),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("force", opts.Force))

	seeds := cfg.SeedQuotas()
	fallback := quotaFallback(cfg)
	policy := retryPolicy(cfg)

	var mu sync.Mutex
	perProgram := make(map[string]allocator.BulkResult, len(programs))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MaxParallelPrograms > 0 {
		g.SetLimit(cfg.MaxParallelPrograms)
	}

	for _, program := range programs {
		g.Go(func() error {
			var result allocator.BulkResult
			err := db.WithRetry(gctx, policy, logger, "apply "+program, func(ctx context.Context) error {
				return store.WithProgramLock(ctx, program, func(tx db.ProgramTx) error {
					var err error
					result, err = applyProgram(ctx, tx, program, seeds, fallback, runID, opts)
					return err
				})
			})
			if err != nil {
				return fmt.Errorf("failed to apply statuses for %s: %w", program, err)
			}

			logger.Debug("Program applied",
				zap.String("program", program),
				zap.Int("processed", result.Processed),
				zap.Int("skipped", result.Skipped),
				zap.Int("errors", result.Errors))

			mu.Lock()
			perProgram[program] = result
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := allocator.BulkResult{DryRun: opts.DryRun}
	for _, program := range programs {
		total.Merge(perProgram[program])
	}
	total.ReportUnmatched(opts.Filter.ApplicantIDs)
	for _, id := range total.NotFound {
		logger.Warn("Applicant not found", zap.String("applicant_id", id))
	}

	logger.Info("Bulk apply complete",
		zap.String("run_id", runID),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("processed", total.Processed),
		zap.Int("skipped", total.Skipped),
		zap.Int("errors", total.Errors))

	return &ApplyStatusesResult{
		RunID:      runID,
		Total:      total,
		PerProgram: perProgram,
		Programs:   programs,
	}, nil
}

// applyProgram ranks one program from the locked view and writes through the same view
func applyProgram(ctx context.Context, tx db.ProgramTx, program string, seeds map[string]int, fallback int, runID string, opts ApplyStatusesOptions) (allocator.BulkResult, error) {
	records, err := tx.GetApplicantsByProgram(ctx, program)
	if err != nil {
		return allocator.BulkResult{}, fmt.Errorf("failed to read applicants: %w", err)
	}
	applicants, err := db.ToApplicants(records)
	if err != nil {
		return allocator.BulkResult{}, err
	}

	seats, ok, err := tx.GetQuota(ctx, program)
	if err != nil {
		return allocator.BulkResult{}, fmt.Errorf("failed to read quota: %w", err)
	}
	if !ok {
		seats = quota.Resolve([]model.Program{{Code: program}}, nil, seeds, fallback)[program]
	}

	rankings, err := allocator.BuildRankings(applicants, quota.Set{program: seats})
	if err != nil {
		return allocator.BulkResult{}, err
	}
	allocator.ReconcileRankings(rankings)

	return allocator.ApplyBulk(ctx, rankings, tx, allocator.ApplyOptions{
		Filter: opts.Filter,
		Force:  opts.Force,
		DryRun: opts.DryRun,
		RunID:  runID,
	}), nil
}
