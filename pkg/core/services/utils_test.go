package services

import (
	"context"
	"errors"
	"testing"

	"github.com/jakechorley/admissions-allocator/internal/config"
	"github.com/jakechorley/admissions-allocator/pkg/db"
)

// testConfig returns a config ranking TKJ and RPL. TKJ is seeded with 2 seats.
func testConfig() *config.Config {
	seats := 2
	return &config.Config{
		Store:               config.StoreFile,
		DefaultQuota:        36,
		ReservePercent:      10,
		MaxParallelPrograms: 2,
		Programs: []config.ProgramConfig{
			{Code: "TKJ", Name: "Teknik Komputer dan Jaringan", Quota: &seats},
			{Code: "RPL", Name: "Rekayasa Perangkat Lunak"},
		},
	}
}

// record builds an applicant whose composite score equals score
func record(id, program string, score float64, status string) db.ApplicantRecord {
	return db.ApplicantRecord{
		ID:         id,
		NISN:       "00" + id,
		FullName:   "Applicant " + id,
		Program:    program,
		Math:       score,
		Indonesian: score,
		English:    score,
		Science:    score,
		Status:     status,
	}
}

// threeInTKJ is the classic pool: scores 90, 85, 70 in TKJ with no persisted status
func threeInTKJ() *db.FileDB {
	return db.NewMemoryDB(db.Snapshot{
		Applicants: []db.ApplicantRecord{
			record("a3", "TKJ", 70, ""),
			record("a1", "TKJ", 90, ""),
			record("a2", "TKJ", 85, ""),
		},
	})
}

func statusOf(t testing.TB, store *db.FileDB, id string) string {
	t.Helper()
	for _, r := range store.Snapshot().Applicants {
		if r.ID == id {
			return r.Status
		}
	}
	return "<missing>"
}

// mockSnapshotStore implements SnapshotStore and Database with injectable failures
type mockSnapshotStore struct {
	*db.FileDB
	getApplicantsErr error
	getQuotasErr     error
	lockErr          error
}

func (m *mockSnapshotStore) GetApplicants(ctx context.Context) ([]db.ApplicantRecord, error) {
	if m.getApplicantsErr != nil {
		return nil, m.getApplicantsErr
	}
	return m.FileDB.GetApplicants(ctx)
}

func (m *mockSnapshotStore) GetQuotas(ctx context.Context) ([]db.QuotaRecord, error) {
	if m.getQuotasErr != nil {
		return nil, m.getQuotasErr
	}
	return m.FileDB.GetQuotas(ctx)
}

func (m *mockSnapshotStore) WithProgramLock(ctx context.Context, program string, fn func(tx db.ProgramTx) error) error {
	if m.lockErr != nil {
		return m.lockErr
	}
	return m.FileDB.WithProgramLock(ctx, program, fn)
}

var errStoreDown = errors.New("store down")

// flakyStore fails the first call of each kind with a transient error, then heals
type flakyStore struct {
	*db.FileDB
	quotaFailures  int
	lockFailures   int
	updateFailures int
}

var errConnReset = errors.New("connection reset")

func (f *flakyStore) GetQuotas(ctx context.Context) ([]db.QuotaRecord, error) {
	if f.quotaFailures > 0 {
		f.quotaFailures--
		return nil, db.MarkTransient(errConnReset)
	}
	return f.FileDB.GetQuotas(ctx)
}

func (f *flakyStore) WithProgramLock(ctx context.Context, program string, fn func(tx db.ProgramTx) error) error {
	if f.lockFailures > 0 {
		f.lockFailures--
		return db.MarkTransient(errConnReset)
	}
	return f.FileDB.WithProgramLock(ctx, program, fn)
}

func (f *flakyStore) UpdateApplicantStatus(ctx context.Context, id, status, reason string) error {
	if f.updateFailures > 0 {
		f.updateFailures--
		return db.MarkTransient(errConnReset)
	}
	return f.FileDB.UpdateApplicantStatus(ctx, id, status, reason)
}
