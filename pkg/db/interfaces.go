package db

import "context"

// ApplicantStore defines the read/write operations on applicant records
type ApplicantStore interface {
	GetApplicants(ctx context.Context) ([]ApplicantRecord, error)
	UpdateApplicantStatus(ctx context.Context, applicantID string, status string, runID string) error
	GetStatusChanges(ctx context.Context, applicantID string) ([]StatusChange, error)
}

// QuotaStore defines the read operations on quota records.
// Quota writes happen inside a program lock, see ProgramTx.
type QuotaStore interface {
	GetQuotas(ctx context.Context) ([]QuotaRecord, error)
}

// ProgramTx is the view of the store available inside a program lock.
// Every read and write made through it belongs to one logically atomic unit.
type ProgramTx interface {
	GetApplicantsByProgram(ctx context.Context, program string) ([]ApplicantRecord, error)
	GetQuota(ctx context.Context, program string) (seats int, ok bool, err error)
	SetQuota(ctx context.Context, program string, seats int) error
	UpdateApplicantStatus(ctx context.Context, applicantID string, status string, runID string) error
}

// ProgramLocker serializes status and quota writes per program
type ProgramLocker interface {
	WithProgramLock(ctx context.Context, program string, fn func(tx ProgramTx) error) error
}

// Database defines the interface for all record store operations.
// Both the YAML-backed db.FileDB and postgres.DB implement this interface.
type Database interface {
	ApplicantStore
	QuotaStore
	ProgramLocker
	Close()
}
