//go:build integration

package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notekeep/notekeep/internal/testutil"
)

// migratedDB migrates through pgx, then hands back an independent lib/pq
// connection so the schema is inspected by a second driver.
func migratedDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}

	pool := testutil.NewPool(t)
	testutil.LockDB(t, pool)
	require.NoError(t, Migrate(context.Background(), pool))

	db, err := sql.Open("postgres", testutil.RequireEnv(t, "DATABASE_URL"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func columnsOf(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query(`
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	require.NoError(t, err)
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		require.NoError(t, rows.Scan(&c))
		cols = append(cols, c)
	}
	require.NoError(t, rows.Err())
	return cols
}

func TestIntegrationMigration_Schema(t *testing.T) {
	db := migratedDB(t)

	assert.Equal(t, []string{"id", "username", "password_hash", "created_at"}, columnsOf(t, db, "users"))
	assert.Equal(t,
		[]string{"id", "user_id", "title", "content", "file_url", "created_at", "updated_at"},
		columnsOf(t, db, "notes"))
	assert.NotEmpty(t, columnsOf(t, db, "goose_db_version"))
}

func TestIntegrationMigration_Constraints(t *testing.T) {
	db := migratedDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash) VALUES ('u-mig', 'u-mig', 'x')
		ON CONFLICT DO NOTHING`)
	require.NoError(t, err)

	tests := []struct {
		name     string
		stmt     string
		wantCode pq.ErrorCode
	}{
		{"unknown owner", `INSERT INTO notes (id, user_id, title, content) VALUES ('n-fk', 'nobody', 't', 'c')`, "23503"},
		{"empty title", `INSERT INTO notes (id, user_id, title, content) VALUES ('n-t', 'u-mig', '', 'c')`, "23514"},
		{"empty content", `INSERT INTO notes (id, user_id, title, content) VALUES ('n-c', 'u-mig', 't', '')`, "23514"},
		{"duplicate username", `INSERT INTO users (id, username, password_hash) VALUES ('u-mig-2', 'u-mig', 'x')`, "23505"},
		{"empty username", `INSERT INTO users (id, username, password_hash) VALUES ('u-mig-3', '', 'x')`, "23514"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.ExecContext(ctx, tt.stmt)

			var pqErr *pq.Error
			require.True(t, errors.As(err, &pqErr), "got %v", err)
			assert.Equal(t, tt.wantCode, pqErr.Code)
		})
	}
}

func TestIntegrationMigration_RerunIsNoop(t *testing.T) {
	migratedDB(t)
	require.NoError(t, Migrate(context.Background(), testutil.NewPool(t)))
}
