package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jakechorley/admissions-allocator/pkg/core/allocator"
)

const (
	defaultSheet = "Sheet1"
	emptySheet   = "Ranking"

	// builtin number format "0.00"
	twoDecimalFormat = 2
)

var columnWidths = []float64{10, 32, 32, 12, 16}

// WriteRankingXLSX writes one sheet per program, named by program code, with the same
// columns as the CSV export
func WriteRankingXLSX(w io.Writer, rankings *allocator.Rankings, names ProgramNames) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	scoreStyle, err := f.NewStyle(&excelize.Style{NumFmt: twoDecimalFormat})
	if err != nil {
		return fmt.Errorf("failed to create score style: %w", err)
	}

	programs := rankings.ProgramCodes()
	if len(programs) == 0 {
		if err := f.SetSheetName(defaultSheet, emptySheet); err != nil {
			return fmt.Errorf("failed to rename sheet: %w", err)
		}
		if err := writeHeader(f, emptySheet, headerStyle); err != nil {
			return err
		}
		return writeFile(f, w)
	}

	for _, program := range programs {
		if _, err := f.NewSheet(program); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", program, err)
		}

		if err := writeHeader(f, program, headerStyle); err != nil {
			return err
		}

		for r, entry := range rankings.Programs[program] {
			rowNum := r + 2
			values := []interface{}{
				entry.Rank,
				entry.FullName,
				names.name(entry.Program),
				entry.Score,
				entry.EffectiveStatus.Label(),
			}
			start, _ := excelize.CoordinatesToCellName(1, rowNum)
			if err := f.SetSheetRow(program, start, &values); err != nil {
				return fmt.Errorf("failed to write row for %s: %w", entry.ApplicantID, err)
			}
			scoreCell, _ := excelize.CoordinatesToCellName(4, rowNum)
			if err := f.SetCellStyle(program, scoreCell, scoreCell, scoreStyle); err != nil {
				return fmt.Errorf("failed to style score cell: %w", err)
			}
		}
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(programs[0]); err == nil {
		f.SetActiveSheet(idx)
	}

	return writeFile(f, w)
}

func writeHeader(f *excelize.File, sheet string, style int) error {
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", sheet, err)
	}

	last, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header on %s: %w", sheet, err)
	}

	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width on %s: %w", sheet, err)
		}
	}
	return nil
}

func writeFile(f *excelize.File, w io.Writer) error {
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
