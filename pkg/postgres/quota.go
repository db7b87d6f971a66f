package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/admissions-allocator/pkg/db"
)

// GetQuotas retrieves all quota records ordered by program
func (d *DB) GetQuotas(ctx context.Context) ([]db.QuotaRecord, error) {
	rows, err := d.pool.Query(ctx, `SELECT program, seats, updated_at FROM quota ORDER BY program`)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotas: %w", classify(err))
	}
	defer rows.Close()

	var quotas []db.QuotaRecord
	for rows.Next() {
		var q db.QuotaRecord
		var updatedAt time.Time
		if err := rows.Scan(&q.Program, &q.Seats, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quota: %w", err)
		}
		q.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
		quotas = append(quotas, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quotas: %w", classify(err))
	}

	return quotas, nil
}

func getQuota(ctx context.Context, q querier, program string) (int, bool, error) {
	var seats int
	err := q.QueryRow(ctx, `SELECT seats FROM quota WHERE program = $1`, program).Scan(&seats)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query quota for %s: %w", program, classify(err))
	}
	return seats, true, nil
}

func setQuota(ctx context.Context, q querier, program string, seats int) error {
	_, err := q.Exec(ctx, `
		INSERT INTO quota (program, seats, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (program) DO UPDATE SET seats = EXCLUDED.seats, updated_at = EXCLUDED.updated_at
	`, program, seats)
	if err != nil {
		return fmt.Errorf("failed to upsert quota for %s: %w", program, classify(err))
	}
	return nil
}
