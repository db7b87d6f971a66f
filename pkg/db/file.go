package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Snapshot is the on-disk layout of a FileDB
type Snapshot struct {
	Applicants    []ApplicantRecord `yaml:"applicants"`
	Quotas        []QuotaRecord     `yaml:"quotas,omitempty"`
	StatusChanges []StatusChange    `yaml:"statusChanges,omitempty"`
}

// FileDB provides database operations backed by a YAML snapshot file.
// With an empty path it is purely in memory, which is what the tests use.
type FileDB struct {
	path string

	mu   sync.Mutex
	data Snapshot

	locksMu      sync.Mutex
	programLocks map[string]*sync.Mutex

	now func() time.Time
}

// NewFileDB loads the snapshot at path. A missing file starts an empty store.
func NewFileDB(path string) (*FileDB, error) {
	db := newFileDB(path, Snapshot{})

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return db, nil
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	if err := yaml.Unmarshal(content, &db.data); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot file: %w", err)
	}

	return db, nil
}

// NewMemoryDB creates a FileDB that never touches disk
func NewMemoryDB(snapshot Snapshot) *FileDB {
	return newFileDB("", snapshot)
}

func newFileDB(path string, snapshot Snapshot) *FileDB {
	return &FileDB{
		path:         path,
		data:         snapshot,
		programLocks: make(map[string]*sync.Mutex),
		now:          time.Now,
	}
}

// Close is a no-op; every write is flushed immediately
func (db *FileDB) Close() {}

// Snapshot returns a copy of the current contents
func (db *FileDB) Snapshot() Snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()

	return Snapshot{
		Applicants:    append([]ApplicantRecord(nil), db.data.Applicants...),
		Quotas:        append([]QuotaRecord(nil), db.data.Quotas...),
		StatusChanges: append([]StatusChange(nil), db.data.StatusChanges...),
	}
}

// GetApplicants retrieves all applicant records
func (db *FileDB) GetApplicants(ctx context.Context) ([]ApplicantRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	return append([]ApplicantRecord(nil), db.data.Applicants...), nil
}

// GetQuotas retrieves all quota records
func (db *FileDB) GetQuotas(ctx context.Context) ([]QuotaRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	return append([]QuotaRecord(nil), db.data.Quotas...), nil
}

// GetStatusChanges retrieves the status audit trail for one applicant, oldest first
func (db *FileDB) GetStatusChanges(ctx context.Context, applicantID string) ([]StatusChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	var changes []StatusChange
	for _, c := range db.data.StatusChanges {
		if c.ApplicantID == applicantID {
			changes = append(changes, c)
		}
	}
	return changes, nil
}

// UpdateApplicantStatus persists a new status outside of any program lock
func (db *FileDB) UpdateApplicantStatus(ctx context.Context, applicantID string, status string, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.updateStatusLocked(applicantID, status, runID)
}

// WithProgramLock runs fn while holding the lock for program.
// Bulk status applies and quota changes for the same program never interleave.
func (db *FileDB) WithProgramLock(ctx context.Context, program string, fn func(tx ProgramTx) error) error {
	lock := db.programLock(program)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(&fileTx{db: db})
}

func (db *FileDB) programLock(program string) *sync.Mutex {
	db.locksMu.Lock()
	defer db.locksMu.Unlock()

	lock, ok := db.programLocks[program]
	if !ok {
		lock = &sync.Mutex{}
		db.programLocks[program] = lock
	}
	return lock
}

func (db *FileDB) updateStatusLocked(applicantID string, status string, runID string) error {
	for i := range db.data.Applicants {
		record := &db.data.Applicants[i]
		if record.ID != applicantID {
			continue
		}

		previous := record.Status
		record.Status = status
		db.data.StatusChanges = append(db.data.StatusChanges, StatusChange{
			ID:          uuid.New().String(),
			ApplicantID: applicantID,
			FromStatus:  previous,
			ToStatus:    status,
			RunID:       runID,
			ChangedAt:   db.now().UTC().Format(time.RFC3339),
		})

		if err := db.saveLocked(); err != nil {
			// Keep memory consistent with disk
			record.Status = previous
			db.data.StatusChanges = db.data.StatusChanges[:len(db.data.StatusChanges)-1]
			return err
		}
		return nil
	}

	return fmt.Errorf("applicant %s not found", applicantID)
}

func (db *FileDB) setQuotaLocked(program string, seats int) error {
	updatedAt := db.now().UTC().Format(time.RFC3339)

	previous := append([]QuotaRecord(nil), db.data.Quotas...)
	found := false
	for i := range db.data.Quotas {
		if db.data.Quotas[i].Program == program {
			db.data.Quotas[i].Seats = seats
			db.data.Quotas[i].UpdatedAt = updatedAt
			found = true
			break
		}
	}
	if !found {
		db.data.Quotas = append(db.data.Quotas, QuotaRecord{Program: program, Seats: seats, UpdatedAt: updatedAt})
		sort.Slice(db.data.Quotas, func(i, j int) bool {
			return db.data.Quotas[i].Program < db.data.Quotas[j].Program
		})
	}

	if err := db.saveLocked(); err != nil {
		db.data.Quotas = previous
		return err
	}
	return nil
}

// saveLocked writes the snapshot to a temp file and renames it into place
func (db *FileDB) saveLocked() error {
	if db.path == "" {
		return nil
	}

	content, err := yaml.Marshal(&db.data)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(db.path), ".snapshot-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, db.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return nil
}

// fileTx is the ProgramTx handed out by FileDB.WithProgramLock
type fileTx struct {
	db *FileDB
}

func (tx *fileTx) GetApplicantsByProgram(ctx context.Context, program string) ([]ApplicantRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()

	var records []ApplicantRecord
	for _, r := range tx.db.data.Applicants {
		if r.Program == program {
			records = append(records, r)
		}
	}
	return records, nil
}

func (tx *fileTx) GetQuota(ctx context.Context, program string) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()

	for _, q := range tx.db.data.Quotas {
		if q.Program == program {
			return q.Seats, true, nil
		}
	}
	return 0, false, nil
}

func (tx *fileTx) SetQuota(ctx context.Context, program string, seats int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()

	return tx.db.setQuotaLocked(program, seats)
}

func (tx *fileTx) UpdateApplicantStatus(ctx context.Context, applicantID string, status string, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()

	return tx.db.updateStatusLocked(applicantID, status, runID)
}
