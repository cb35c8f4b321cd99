// Package memstore provides in-memory note and user stores with the same
// error contract as the Postgres repository.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/notekeep/notekeep/internal/model"
	"github.com/notekeep/notekeep/internal/repository"
)

// Notes is an in-memory owner-scoped note store.
type Notes struct {
	mu    sync.Mutex
	notes map[string]*model.Note

	// CreateErr, when set, is returned by CreateNote without storing anything.
	CreateErr error
	// UpdateErr, when set, is returned by UpdateNoteForOwner without applying the update.
	UpdateErr error
}

// NewNotes returns an empty store.
func NewNotes() *Notes {
	return &Notes{notes: make(map[string]*model.Note)}
}

// CreateNote stores a copy of note.
func (s *Notes) CreateNote(_ context.Context, note *model.Note) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[note.ID] = clone(note)
	return nil
}

// ListNotesByOwner returns ownerID's notes ordered by creation time then id.
func (s *Notes) ListNotesByOwner(_ context.Context, ownerID string) ([]*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Note, 0)
	for _, n := range s.notes {
		if n.OwnerID == ownerID {
			out = append(out, clone(n))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateNoteForOwner applies upd under the store lock and returns the
// attachment reference held before the update.
func (s *Notes) UpdateNoteForOwner(_ context.Context, id, ownerID string, upd model.NoteUpdate) (*model.Note, *string, error) {
	if s.UpdateErr != nil {
		return nil, nil, s.UpdateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		return nil, nil, repository.ErrNoteNotFound
	}
	previous := clone(n).FileURL

	if upd.Title != nil {
		n.Title = *upd.Title
	}
	if upd.Content != nil {
		n.Content = *upd.Content
	}
	if upd.FileURL != nil {
		ref := *upd.FileURL
		n.FileURL = &ref
	} else if upd.ClearsFile() {
		n.FileURL = nil
	}
	n.UpdatedAt = upd.UpdatedAt

	return clone(n), previous, nil
}

// DeleteNoteForOwner removes and returns the note when id and owner match.
func (s *Notes) DeleteNoteForOwner(_ context.Context, id, ownerID string) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		return nil, repository.ErrNoteNotFound
	}
	delete(s.notes, id)
	return n, nil
}

// Note returns a copy of the note with id regardless of owner.
func (s *Notes) Note(id string) (*model.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, false
	}
	return clone(n), true
}

// Len returns the number of stored notes across all owners.
func (s *Notes) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

func clone(n *model.Note) *model.Note {
	c := *n
	if n.FileURL != nil {
		ref := *n.FileURL
		c.FileURL = &ref
	}
	return &c
}

// Users is an in-memory credential store.
type Users struct {
	mu         sync.Mutex
	byUsername map[string]*model.User
}

// NewUsers returns an empty store.
func NewUsers() *Users {
	return &Users{byUsername: make(map[string]*model.User)}
}

// CreateUser stores user unless the username is taken.
func (s *Users) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[user.Username]; ok {
		return repository.ErrUsernameExists
	}
	u := *user
	s.byUsername[user.Username] = &u
	return nil
}

// GetUserByUsername looks a user up by exact username.
func (s *Users) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byUsername[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}
