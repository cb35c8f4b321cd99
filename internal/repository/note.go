package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/notekeep/notekeep/internal/model"
)

// ErrNoteNotFound is returned when no note matches both id and owner.
var ErrNoteNotFound = errors.New("note not found")

var noteColumns = []string{"id", "user_id", "title", "content", "file_url", "created_at", "updated_at"}

// CreateNote inserts a new note.
func (r *Repository) CreateNote(ctx context.Context, note *model.Note) error {
	query, args, err := psql.
		Insert("notes").
		Columns(noteColumns...).
		Values(note.ID, note.OwnerID, note.Title, note.Content, note.FileURL, note.CreatedAt, note.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

// ListNotesByOwner returns every note owned by ownerID, oldest first.
func (r *Repository) ListNotesByOwner(ctx context.Context, ownerID string) ([]*model.Note, error) {
	query, args, err := psql.
		Select(noteColumns...).
		From("notes").
		Where(squirrel.Eq{"user_id": ownerID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*model.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}

	return notes, nil
}

// UpdateNoteForOwner applies upd to the note matching both id and ownerID in
// a single statement. It returns the updated row and the attachment
// reference the row held before the update. A note owned by someone else is
// indistinguishable from a missing one.
func (r *Repository) UpdateNoteForOwner(ctx context.Context, id, ownerID string, upd model.NoteUpdate) (*model.Note, *string, error) {
	// prev locks the matching row and exposes its old file_url to RETURNING.
	prev := psql.
		Select("id AS prev_id", "file_url AS prev_file_url").
		From("notes").
		Where(squirrel.Eq{"id": id, "user_id": ownerID}).
		Suffix("FOR UPDATE")

	builder := psql.
		Update("notes").
		Set("updated_at", upd.UpdatedAt)

	if upd.Title != nil {
		builder = builder.Set("title", *upd.Title)
	}
	if upd.Content != nil {
		builder = builder.Set("content", *upd.Content)
	}
	if upd.FileURL != nil {
		builder = builder.Set("file_url", *upd.FileURL)
	} else if upd.ClearsFile() {
		builder = builder.Set("file_url", nil)
	}

	query, args, err := builder.
		FromSelect(prev, "prev").
		Where("notes.id = prev.prev_id").
		Suffix("RETURNING " + qualified("notes", noteColumns) + ", prev.prev_file_url").
		ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build query: %w", err)
	}

	var previous *string
	note, err := scanNote(r.pool.QueryRow(ctx, query, args...), &previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNoteNotFound
		}
		return nil, nil, fmt.Errorf("failed to update note: %w", err)
	}
	return note, previous, nil
}

// DeleteNoteForOwner removes the note matching both id and ownerID and
// returns the deleted row.
func (r *Repository) DeleteNoteForOwner(ctx context.Context, id, ownerID string) (*model.Note, error) {
	query, args, err := psql.
		Delete("notes").
		Where(squirrel.Eq{"id": id, "user_id": ownerID}).
		Suffix(returningNote()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	note, err := scanNote(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to delete note: %w", err)
	}
	return note, nil
}

func returningNote() string {
	return "RETURNING " + strings.Join(noteColumns, ", ")
}

func qualified(table string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = table + "." + c
	}
	return strings.Join(out, ", ")
}

// scanNote scans a note row from pgx.Row. extra receives any columns
// selected after the note's own.
func scanNote(row pgx.Row, extra ...any) (*model.Note, error) {
	var note model.Note
	dest := append([]any{
		&note.ID,
		&note.OwnerID,
		&note.Title,
		&note.Content,
		&note.FileURL,
		&note.CreatedAt,
		&note.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &note, nil
}
