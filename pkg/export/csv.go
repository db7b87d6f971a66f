package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jakechorley/admissions-allocator/pkg/core/allocator"
)

// WriteRankingCSV writes the header followed by one row per ranked applicant,
// in program code order then rank order
func WriteRankingCSV(w io.Writer, rankings *allocator.Rankings, names ProgramNames) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, entry := range rankings.Entries() {
		if err := writer.Write(row(entry, names)); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", entry.ApplicantID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
