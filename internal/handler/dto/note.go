// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/notekeep/notekeep/internal/model"
)

// NoteRequest is the JSON body accepted by create and update.
type NoteRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	RemoveImage Flag   `json:"removeImage,omitempty"`
}

// Flag is a boolean that also accepts the string forms sent by HTML forms.
// Only true and "true" set it.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = false
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*f = Flag(s == "true")
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Flag(v)
	return nil
}

// NoteResponse represents a note in API responses.
type NoteResponse struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	FileURL   *string   `json:"fileUrl"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToNoteResponse converts a model.Note to its wire form.
func ToNoteResponse(n *model.Note) NoteResponse {
	return NoteResponse{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		FileURL:   n.FileURL,
		User:      n.OwnerID,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// ToNoteListResponse converts notes, always yielding a non-nil slice.
func ToNoteListResponse(notes []*model.Note) []NoteResponse {
	out := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, ToNoteResponse(n))
	}
	return out
}

// MessageResponse carries a human-readable message. Errors use it too.
type MessageResponse struct {
	Message string `json:"message"`
}
