package services

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/internal/config"
	"github.com/jakechorley/admissions-allocator/pkg/core/allocator"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
	"github.com/jakechorley/admissions-allocator/pkg/export"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ExportResult summarizes a written export
type ExportResult struct {
	Format string
	Rows   int
}

// ExportRanking writes the reconciled ranking in format to w.
// A non-empty program limits the export to that program.
func ExportRanking(ctx context.Context, store SnapshotStore, cfg *config.Config, logger *zap.Logger, format string, w io.Writer, program string) (*ExportResult, error) {
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err := checkProgram(cfg, program); err != nil {
		return nil, err
	}

	snap, err := loadSnapshot(ctx, store, cfg, logger)
	if err != nil {
		return nil, err
	}

	rankings := snap.Rankings
	if program != "" {
		rankings = &allocator.Rankings{
			Programs: map[string][]allocator.RankEntry{program: snap.Rankings.Programs[program]},
			Quotas:   quota.Set{program: snap.Quotas[program]},
		}
	}

	names := export.ProgramNames(cfg.ProgramNames())
	switch format {
	case FormatCSV:
		err = export.WriteRankingCSV(w, rankings, names)
	case FormatXLSX:
		err = export.WriteRankingXLSX(w, rankings, names)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write %s export: %w", format, err)
	}

	rows := len(rankings.Entries())
	logger.Info("Ranking exported", zap.String("format", format), zap.Int("rows", rows))

	return &ExportResult{Format: format, Rows: rows}, nil
}
