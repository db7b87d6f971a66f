package export

import (
	"strconv"

	"github.com/jakechorley/admissions-allocator/pkg/core/allocator"
)

// Header is the column layout downstream tooling depends on
var Header = []string{"Ranking", "Nama Lengkap", "Jurusan", "Total Skor", "Status"}

// ProgramNames maps program codes to the display name written in the Jurusan column.
// Codes without a name are written as-is.
type ProgramNames map[string]string

func (n ProgramNames) name(code string) string {
	if name, ok := n[code]; ok && name != "" {
		return name
	}
	return code
}

// row renders one entry. The status is the localized label of the effective status.
func row(entry allocator.RankEntry, names ProgramNames) []string {
	return []string{
		strconv.Itoa(entry.Rank),
		entry.FullName,
		names.name(entry.Program),
		FormatScore(entry.Score),
		entry.EffectiveStatus.Label(),
	}
}

// FormatScore formats a composite score with exactly two decimals
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}
