package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/admissions-allocator/pkg/db"
)

var applicantColumns = []string{
	"id", "nisn", "full_name", "program",
	"math", "indonesian", "english", "science",
	"academic_level", "non_academic_level", "certificate_level",
	"accreditation", "status",
}

func applicantSelect() sq.SelectBuilder {
	return psql.Select(applicantColumns...).From("applicant").OrderBy("id")
}

func queryApplicants(ctx context.Context, q querier, builder sq.SelectBuilder) ([]db.ApplicantRecord, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build applicant query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applicants: %w", classify(err))
	}
	defer rows.Close()

	var applicants []db.ApplicantRecord
	for rows.Next() {
		var a db.ApplicantRecord
		if err := rows.Scan(
			&a.ID, &a.NISN, &a.FullName, &a.Program,
			&a.Math, &a.Indonesian, &a.English, &a.Science,
			&a.AcademicLevel, &a.NonAcademicLevel, &a.CertificateLevel,
			&a.Accreditation, &a.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan applicant: %w", err)
		}
		applicants = append(applicants, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applicants: %w", classify(err))
	}

	return applicants, nil
}

// GetApplicants retrieves all applicant records
func (d *DB) GetApplicants(ctx context.Context) ([]db.ApplicantRecord, error) {
	return queryApplicants(ctx, d.pool, applicantSelect())
}

// UpdateApplicantStatus persists a status change outside of any program lock
func (d *DB) UpdateApplicantStatus(ctx context.Context, applicantID string, status string, runID string) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer tx.Rollback(ctx)

	if err := writeStatus(ctx, tx, applicantID, status, runID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

// writeStatus updates one applicant and appends the audit row
func writeStatus(ctx context.Context, q querier, applicantID string, status string, runID string) error {
	var previous string
	err := q.QueryRow(ctx, `SELECT status FROM applicant WHERE id = $1 FOR UPDATE`, applicantID).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("applicant %s not found", applicantID)
	}
	if err != nil {
		return fmt.Errorf("failed to read status of %s: %w", applicantID, classify(err))
	}

	if _, err := q.Exec(ctx, `UPDATE applicant SET status = $2, updated_at = NOW() WHERE id = $1`, applicantID, status); err != nil {
		return fmt.Errorf("failed to update status of %s: %w", applicantID, classify(err))
	}

	var run *string
	if runID != "" {
		run = &runID
	}
	_, err = q.Exec(ctx, `
		INSERT INTO status_change (id, applicant_id, from_status, to_status, run_id)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New().String(), applicantID, previous, status, run)
	if err != nil {
		return fmt.Errorf("failed to record status change of %s: %w", applicantID, classify(err))
	}

	return nil
}

// GetStatusChanges retrieves the status audit trail for one applicant, oldest first
func (d *DB) GetStatusChanges(ctx context.Context, applicantID string) ([]db.StatusChange, error) {
	query, args, err := psql.
		Select("id::text", "applicant_id", "from_status", "to_status", "COALESCE(run_id, '')", "changed_at").
		From("status_change").
		Where(sq.Eq{"applicant_id": applicantID}).
		OrderBy("changed_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build status change query: %w", err)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query status changes: %w", classify(err))
	}
	defer rows.Close()

	var changes []db.StatusChange
	for rows.Next() {
		var c db.StatusChange
		var changedAt time.Time
		if err := rows.Scan(&c.ID, &c.ApplicantID, &c.FromStatus, &c.ToStatus, &c.RunID, &changedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status change: %w", err)
		}
		c.ChangedAt = changedAt.UTC().Format(time.RFC3339)
		changes = append(changes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status changes: %w", classify(err))
	}

	return changes, nil
}
