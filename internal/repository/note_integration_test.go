//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/notekeep/notekeep/internal/model"
	"github.com/notekeep/notekeep/internal/testutil"
)

// ============================================================================
// Note Repository Integration Tests
// ============================================================================

func TestIntegrationNoteRepository_CreateAndList(t *testing.T) {
	ctx, repo := newNoteTestEnv(t)

	owner := createTestUser(t, ctx, repo)
	other := createTestUser(t, ctx, repo)

	base := time.Now().UTC().Truncate(time.Microsecond)
	first := testutil.NewNote(owner.ID)
	first.CreatedAt, first.UpdatedAt = base, base
	second := testutil.NewNote(owner.ID)
	second.CreatedAt, second.UpdatedAt = base.Add(time.Second), base.Add(time.Second)
	foreign := testutil.NewNote(other.ID)

	for _, n := range []*model.Note{second, first, foreign} {
		if err := repo.CreateNote(ctx, n); err != nil {
			t.Fatalf("CreateNote failed: %v", err)
		}
	}

	notes, err := repo.ListNotesByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListNotesByOwner failed: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].ID != first.ID || notes[1].ID != second.ID {
		t.Errorf("expected creation order [%s %s], got [%s %s]", first.ID, second.ID, notes[0].ID, notes[1].ID)
	}
	for _, n := range notes {
		if n.OwnerID != owner.ID {
			t.Errorf("listed note %s belongs to %s", n.ID, n.OwnerID)
		}
	}

	empty, err := repo.ListNotesByOwner(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListNotesByOwner failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestIntegrationNoteRepository_UpdateForOwner(t *testing.T) {
	ctx, repo := newNoteTestEnv(t)

	owner := createTestUser(t, ctx, repo)
	note := testutil.NewNote(owner.ID)
	ref := "/uploads/old.png"
	note.FileURL = &ref
	if err := repo.CreateNote(ctx, note); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	title := "Renamed"
	updatedAt := note.UpdatedAt.Add(time.Minute)
	got, prev, err := repo.UpdateNoteForOwner(ctx, note.ID, owner.ID, model.NoteUpdate{
		Title:     &title,
		UpdatedAt: updatedAt,
	})
	if err != nil {
		t.Fatalf("UpdateNoteForOwner failed: %v", err)
	}
	if prev == nil || *prev != ref {
		t.Errorf("previous reference = %v, want %q", prev, ref)
	}
	if got.Title != "Renamed" || got.Content != note.Content {
		t.Errorf("unexpected fields after update: %+v", got)
	}
	if got.FileURL == nil || *got.FileURL != ref {
		t.Errorf("attachment should be unchanged, got %v", got.FileURL)
	}
	if !got.UpdatedAt.Equal(updatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, updatedAt)
	}

	got, prev, err = repo.UpdateNoteForOwner(ctx, note.ID, owner.ID, model.NoteUpdate{
		RemoveFile: true,
		UpdatedAt:  updatedAt.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("UpdateNoteForOwner (remove file) failed: %v", err)
	}
	if got.FileURL != nil {
		t.Errorf("expected attachment cleared, got %q", *got.FileURL)
	}
	if prev == nil || *prev != ref {
		t.Errorf("previous reference after removal = %v, want %q", prev, ref)
	}

	replacement := "/uploads/new.pdf"
	got, prev, err = repo.UpdateNoteForOwner(ctx, note.ID, owner.ID, model.NoteUpdate{
		FileURL:   &replacement,
		UpdatedAt: updatedAt.Add(2 * time.Minute),
	})
	if err != nil {
		t.Fatalf("UpdateNoteForOwner (new file) failed: %v", err)
	}
	if got.FileURL == nil || *got.FileURL != replacement || prev != nil {
		t.Errorf("file = %v, previous = %v; want %q and nil", got.FileURL, prev, replacement)
	}
}

func TestIntegrationNoteRepository_OwnerIsolation(t *testing.T) {
	ctx, repo := newNoteTestEnv(t)

	owner := createTestUser(t, ctx, repo)
	intruder := createTestUser(t, ctx, repo)

	note := testutil.NewNote(owner.ID)
	if err := repo.CreateNote(ctx, note); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	title := "hijacked"
	_, _, err := repo.UpdateNoteForOwner(ctx, note.ID, intruder.ID, model.NoteUpdate{Title: &title, UpdatedAt: time.Now()})
	if !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("cross-owner update: expected ErrNoteNotFound, got %v", err)
	}

	_, err = repo.DeleteNoteForOwner(ctx, note.ID, intruder.ID)
	if !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("cross-owner delete: expected ErrNoteNotFound, got %v", err)
	}

	stored, err := repo.ListNotesByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListNotesByOwner failed: %v", err)
	}
	if len(stored) != 1 || stored[0].Title != note.Title {
		t.Errorf("note modified by non-owner: %+v", stored)
	}
}

func TestIntegrationNoteRepository_DeleteTwice(t *testing.T) {
	ctx, repo := newNoteTestEnv(t)

	owner := createTestUser(t, ctx, repo)
	note := testutil.NewNote(owner.ID)
	if err := repo.CreateNote(ctx, note); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	deleted, err := repo.DeleteNoteForOwner(ctx, note.ID, owner.ID)
	if err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if deleted.ID != note.ID {
		t.Errorf("deleted id = %s, want %s", deleted.ID, note.ID)
	}

	for i := 0; i < 2; i++ {
		if _, err := repo.DeleteNoteForOwner(ctx, note.ID, owner.ID); !errors.Is(err, ErrNoteNotFound) {
			t.Errorf("repeat delete %d: expected ErrNoteNotFound, got %v", i, err)
		}
	}
}

func TestIntegrationUserRepository_UniqueUsername(t *testing.T) {
	ctx, repo := newNoteTestEnv(t)

	user := testutil.NewUser(testutil.Username("alice"))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	dup := testutil.NewUser(user.Username)
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("expected ErrUsernameExists, got %v", err)
	}

	got, err := repo.GetUserByUsername(ctx, user.Username)
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if got.ID != user.ID || got.PasswordHash != user.PasswordHash {
		t.Errorf("unexpected user: %+v", got)
	}

	// Usernames are case-sensitive.
	if _, err := repo.GetUserByUsername(ctx, "ALICE-"+user.Username); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newNoteTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	pool := testutil.NewPool(t)

	testutil.LockDB(t, pool)

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	testutil.Truncate(t, pool)

	return ctx, NewFromPool(pool)
}

func createTestUser(t *testing.T, ctx context.Context, repo *Repository) *model.User {
	t.Helper()
	user := testutil.NewUser(testutil.Username("user"))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}
