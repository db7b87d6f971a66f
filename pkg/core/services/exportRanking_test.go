package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/pkg/db"
)

func TestExportRanking_CSV(t *testing.T) {
	var buf bytes.Buffer

	result, err := ExportRanking(context.Background(), threeInTKJ(), testConfig(), zap.NewNop(), FormatCSV, &buf, "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Rows)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Ranking,Nama Lengkap,Jurusan,Total Skor,Status", lines[0])
	assert.Equal(t, "1,Applicant a1,Teknik Komputer dan Jaringan,90.00,Diterima", lines[1])
	assert.Equal(t, "3,Applicant a3,Teknik Komputer dan Jaringan,70.00,Tidak Diterima", lines[3])
}

func TestExportRanking_XLSXSingleProgram(t *testing.T) {
	store := db.NewMemoryDB(db.Snapshot{
		Applicants: []db.ApplicantRecord{
			record("a1", "TKJ", 90, ""),
			record("b1", "RPL", 60, ""),
		},
	})
	var buf bytes.Buffer

	result, err := ExportRanking(context.Background(), store, testConfig(), zap.NewNop(), FormatXLSX, &buf, "RPL")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"RPL"}, f.GetSheetList())
}

func TestExportRanking_Invalid(t *testing.T) {
	var buf bytes.Buffer

	_, err := ExportRanking(context.Background(), threeInTKJ(), testConfig(), zap.NewNop(), "pdf", &buf, "")
	assert.Error(t, err)

	_, err = ExportRanking(context.Background(), threeInTKJ(), testConfig(), zap.NewNop(), FormatCSV, &buf, "AKL")
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}
