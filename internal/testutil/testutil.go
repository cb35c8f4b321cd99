// Package testutil holds helpers shared by package tests. Helpers that need
// Postgres or Redis skip the test when DATABASE_URL or REDIS_URL is unset.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/notekeep/notekeep/internal/model"
)

// RequireEnv returns the value of key or skips the test.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("%s not set", key)
	}
	return v
}

// NewPool connects to DATABASE_URL. The pool is closed when the test ends.
func NewPool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), RequireEnv(t, "DATABASE_URL"))
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// NewRedis connects to REDIS_URL and empties the selected database.
func NewRedis(t testing.TB) *redis.Client {
	t.Helper()
	opts, err := redis.ParseURL(RequireEnv(t, "REDIS_URL"))
	if err != nil {
		t.Fatalf("parse REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return client
}

// dbLockKey is the advisory lock that serializes packages sharing one
// test database.
const dbLockKey int64 = 0x6e6f746573

// LockDB holds a session advisory lock on a dedicated connection until the
// test ends.
func LockDB(t testing.TB, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", dbLockKey); err != nil {
		conn.Release()
		t.Fatalf("advisory lock: %v", err)
	}

	t.Cleanup(func() {
		_, _ = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", dbLockKey)
		conn.Release()
	})
}

// Truncate empties every application table.
func Truncate(t testing.TB, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), "TRUNCATE notes, users"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

var seq atomic.Uint64

// Username returns a username no other test in the run will use.
func Username(base string) string {
	return fmt.Sprintf("%s-%d", base, seq.Add(1))
}

// NewUser returns an unsaved user with a placeholder password hash.
func NewUser(username string) *model.User {
	return &model.User{
		ID:           ulid.Make().String(),
		Username:     username,
		PasswordHash: "hash-" + username,
		CreatedAt:    now(),
	}
}

// NewNote returns an unsaved note owned by ownerID.
func NewNote(ownerID string) *model.Note {
	ts := now()
	return &model.Note{
		ID:        ulid.Make().String(),
		Title:     "Groceries",
		Content:   "milk, eggs",
		OwnerID:   ownerID,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// now matches the microsecond precision of timestamptz.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
