package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

// allowedTypes maps accepted lower-case extensions to the content type
// recorded with the stored object.
var allowedTypes = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// File is a single uploaded file part.
type File struct {
	Filename string // client-supplied, used only for its extension
	Size     int64
	Content  io.ReadSeeker
}

// Stored describes a persisted attachment.
type Stored struct {
	Name string // generated storage name
	Ref  string // reference saved on the note
}

// Attachments validates uploads and writes them to a Backend.
type Attachments struct {
	backend Backend
	maxSize int64
	newName func(ext string) string
}

// NewAttachments creates an attachment handler. maxSize <= 0 disables the size check.
func NewAttachments(backend Backend, maxSize int64) *Attachments {
	return &Attachments{
		backend: backend,
		maxSize: maxSize,
		newName: generateName,
	}
}

// Extension returns the normalized extension of filename if it is on the
// allow-list, or ErrUnsupportedMediaType.
func Extension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedTypes[ext]; !ok {
		return "", ErrUnsupportedMediaType
	}
	return ext, nil
}

// Save validates f and persists it under a fresh name.
// The client filename never becomes part of the storage name.
func (a *Attachments) Save(ctx context.Context, f File) (*Stored, error) {
	ext, err := Extension(f.Filename)
	if err != nil {
		return nil, err
	}
	if a.maxSize > 0 && f.Size > a.maxSize {
		return nil, ErrFileTooLarge
	}

	name := a.newName(ext)
	ref, err := a.backend.Put(ctx, name, f.Content, f.Size, allowedTypes[ext])
	if err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	return &Stored{Name: name, Ref: ref}, nil
}

// Discard removes an attachment written by Save. Used to roll back when
// the note write that would have referenced it fails.
func (a *Attachments) Discard(ctx context.Context, s *Stored) error {
	if s == nil {
		return nil
	}
	return a.backend.Delete(ctx, s.Name)
}

// Ping checks the backend.
func (a *Attachments) Ping(ctx context.Context) error {
	return a.backend.Ping(ctx)
}

// generateName returns a ULID-based name. ULIDs sort by creation time and
// carry 80 bits of randomness, so concurrent uploads never collide.
func generateName(ext string) string {
	return strings.ToLower(ulid.Make().String()) + ext
}

// validName rejects anything that could escape the storage root.
func validName(name string) bool {
	return name != "" &&
		name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) &&
		filepath.Base(name) == name
}
