// Package storage validates, names and persists note attachments.
package storage

import (
	"context"
	"errors"
	"io"
)

// Storage errors.
var (
	ErrUnsupportedMediaType = errors.New("unsupported attachment type")
	ErrFileTooLarge         = errors.New("attachment exceeds maximum size")
	ErrInvalidName          = errors.New("invalid storage name")
)

// Backend persists attachment bytes under a server-generated name and
// returns the reference clients use to fetch them.
type Backend interface {
	Put(ctx context.Context, name string, content io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}
