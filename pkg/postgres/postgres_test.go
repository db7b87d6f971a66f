package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/admissions-allocator/pkg/db"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_indexes.sql": {Data: []byte("-- 2")},
		"migrations/001_init.sql":    {Data: []byte("-- 1")},
		"migrations/003_seed.sql":    {Data: []byte("-- 3")},
		"migrations/README.md":       {Data: []byte("notes")},
	}

	pending, err := pendingMigrations(fsys, map[string]bool{"001_init.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_indexes.sql", "003_seed.sql"}, pending)
}

func TestPendingMigrations_EmbeddedInitIsFirst(t *testing.T) {
	pending, err := pendingMigrations(migrationsFS, map[string]bool{})
	require.NoError(t, err)
	require.NotEmpty(t, pending)
	assert.Equal(t, "001_init.sql", pending[0])
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, db.IsTransient(classify(tt.err)))
		})
	}

	assert.NoError(t, classify(nil))
}

func TestApplicantQueries(t *testing.T) {
	query, args, err := applicantSelect().Where(sq.Eq{"program": "TKJ"}).Suffix("FOR UPDATE").ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, nisn, full_name, program, math, indonesian, english, science, "+
		"academic_level, non_academic_level, certificate_level, accreditation, status "+
		"FROM applicant WHERE program = $1 ORDER BY id FOR UPDATE", query)
	assert.Equal(t, []interface{}{"TKJ"}, args)
}
