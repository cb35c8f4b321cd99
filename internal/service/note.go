// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/notekeep/notekeep/internal/metrics"
	"github.com/notekeep/notekeep/internal/model"
	"github.com/notekeep/notekeep/internal/repository"
	"github.com/notekeep/notekeep/internal/storage"
)

// Service errors.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrMissingOwner         = errors.New("missing owner")
	ErrNoteNotFound         = errors.New("note not found")
	ErrUnsupportedMediaType = errors.New("unsupported file type")
	ErrFileTooLarge         = errors.New("file too large")
)

// NoteStore is the owner-scoped persistence contract for notes.
// Update and Delete must match id and owner in a single operation.
// UpdateNoteForOwner also returns the attachment reference held before the
// update.
type NoteStore interface {
	CreateNote(ctx context.Context, note *model.Note) error
	ListNotesByOwner(ctx context.Context, ownerID string) ([]*model.Note, error)
	UpdateNoteForOwner(ctx context.Context, id, ownerID string, upd model.NoteUpdate) (*model.Note, *string, error)
	DeleteNoteForOwner(ctx context.Context, id, ownerID string) (*model.Note, error)
}

// AttachmentStore validates and persists uploaded files.
type AttachmentStore interface {
	Save(ctx context.Context, f storage.File) (*storage.Stored, error)
	Discard(ctx context.Context, s *storage.Stored) error
}

// NoteService handles note business logic.
type NoteService struct {
	notes   NoteStore
	files   AttachmentStore
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewNoteService creates a new NoteService.
func NewNoteService(notes NoteStore, files AttachmentStore, recorder metrics.Recorder, logger *slog.Logger) *NoteService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NoteService{
		notes:   notes,
		files:   files,
		metrics: recorder,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateNoteInput defines input for creating a note.
// OwnerID must come from the verified request identity.
type CreateNoteInput struct {
	OwnerID string
	Title   string
	Content string
	File    *storage.File
}

// UpdateNoteInput defines input for updating a note.
// Empty Title or Content keep the stored value. A File takes precedence
// over RemoveFile.
type UpdateNoteInput struct {
	ID         string
	OwnerID    string
	Title      string
	Content    string
	File       *storage.File
	RemoveFile bool
}

// ListNotes returns every note owned by ownerID.
func (s *NoteService) ListNotes(ctx context.Context, ownerID string) ([]*model.Note, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}

	notes, err := s.notes.ListNotesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

// CreateNote validates input, stores the attachment if any and persists
// the note. Either both the note and its attachment are stored or neither is.
func (s *NoteService) CreateNote(ctx context.Context, input CreateNoteInput) (*model.Note, error) {
	if input.OwnerID == "" {
		return nil, ErrMissingOwner
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Content) == "" {
		return nil, fmt.Errorf("%w: title and content are required", ErrInvalidInput)
	}

	stored, err := s.saveAttachment(ctx, input.File)
	if err != nil {
		return nil, err
	}

	now := s.now()
	note := &model.Note{
		ID:        ulid.Make().String(),
		Title:     input.Title,
		Content:   input.Content,
		OwnerID:   input.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if stored != nil {
		ref := stored.Ref
		note.FileURL = &ref
	}

	if err := s.notes.CreateNote(ctx, note); err != nil {
		s.discard(ctx, stored)
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	s.metrics.IncNoteCreated()
	return note, nil
}

// UpdateNote applies input to the note matching both ID and OwnerID.
// The previous attachment, if replaced or removed, is left in storage.
func (s *NoteService) UpdateNote(ctx context.Context, input UpdateNoteInput) (*model.Note, error) {
	if input.OwnerID == "" {
		return nil, ErrMissingOwner
	}
	if input.ID == "" {
		return nil, ErrNoteNotFound
	}

	stored, err := s.saveAttachment(ctx, input.File)
	if err != nil {
		return nil, err
	}

	upd := model.NoteUpdate{
		RemoveFile: input.RemoveFile,
		UpdatedAt:  s.now(),
	}
	if strings.TrimSpace(input.Title) != "" {
		upd.Title = &input.Title
	}
	if strings.TrimSpace(input.Content) != "" {
		upd.Content = &input.Content
	}
	if stored != nil {
		ref := stored.Ref
		upd.FileURL = &ref
	}

	note, previous, err := s.notes.UpdateNoteForOwner(ctx, input.ID, input.OwnerID, upd)
	if err != nil {
		s.discard(ctx, stored)
		if errors.Is(err, repository.ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	if (upd.FileURL != nil || upd.ClearsFile()) && previous != nil && *previous != "" {
		s.logger.Debug("attachment orphaned by update",
			"note_id", note.ID,
			"file_url", *previous,
		)
	}

	s.metrics.IncNoteUpdated()
	return note, nil
}

// DeleteNote removes the note matching both id and ownerID.
// Its attachment is not removed from storage.
func (s *NoteService) DeleteNote(ctx context.Context, id, ownerID string) error {
	if ownerID == "" {
		return ErrMissingOwner
	}
	if id == "" {
		return ErrNoteNotFound
	}

	note, err := s.notes.DeleteNoteForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return ErrNoteNotFound
		}
		return fmt.Errorf("failed to delete note: %w", err)
	}

	if note.HasAttachment() {
		s.logger.Debug("attachment orphaned by delete",
			"note_id", note.ID,
			"file_url", *note.FileURL,
		)
	}

	s.metrics.IncNoteDeleted()
	return nil
}

// saveAttachment stores f, mapping validation failures to service errors.
// A nil file yields a nil result.
func (s *NoteService) saveAttachment(ctx context.Context, f *storage.File) (*storage.Stored, error) {
	if f == nil {
		return nil, nil
	}

	stored, err := s.files.Save(ctx, *f)
	switch {
	case errors.Is(err, storage.ErrUnsupportedMediaType):
		s.metrics.IncAttachmentRejected(metrics.ReasonUnsupportedType)
		return nil, ErrUnsupportedMediaType
	case errors.Is(err, storage.ErrFileTooLarge):
		s.metrics.IncAttachmentRejected(metrics.ReasonTooLarge)
		return nil, ErrFileTooLarge
	case err != nil:
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	s.metrics.IncAttachmentStored()
	return stored, nil
}

// discard rolls back an attachment whose note write failed.
func (s *NoteService) discard(ctx context.Context, stored *storage.Stored) {
	if stored == nil {
		return
	}
	// The request context may already be canceled.
	ctx = context.WithoutCancel(ctx)
	if err := s.files.Discard(ctx, stored); err != nil {
		s.logger.Warn("failed to discard attachment",
			"name", stored.Name,
			"error", err,
		)
	}
}
