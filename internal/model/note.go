// Package model defines domain entities for the application.
package model

import "time"

// Note is a text note owned by exactly one user.
// OwnerID is assigned at creation and never changes.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	FileURL   *string   `json:"file_url"` // Attachment reference, nil when absent
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAttachment reports whether the note references an uploaded file.
func (n *Note) HasAttachment() bool {
	return n.FileURL != nil && *n.FileURL != ""
}

// NoteUpdate describes the mutable fields of an owner-scoped update.
// Nil Title or Content keep the stored value. FileURL replaces the
// attachment reference; RemoveFile clears it when no new FileURL is given.
type NoteUpdate struct {
	Title      *string
	Content    *string
	FileURL    *string
	RemoveFile bool
	UpdatedAt  time.Time
}

// ClearsFile reports whether the update sets the attachment reference to null.
func (u NoteUpdate) ClearsFile() bool {
	return u.FileURL == nil && u.RemoveFile
}
