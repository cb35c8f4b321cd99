package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemBackend() *memBackend {
	return &memBackend{objects: make(map[string][]byte)}
}

func (m *memBackend) Put(_ context.Context, name string, content io.Reader, _ int64, _ string) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	b, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = b
	return "/uploads/" + name, nil
}

func (m *memBackend) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *memBackend) Ping(context.Context) error { return nil }

func fileOf(name, body string) File {
	return File{Filename: name, Size: int64(len(body)), Content: strings.NewReader(body)}
}

func TestExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     string
		wantErr  bool
	}{
		{"photo.jpeg", ".jpeg", false},
		{"photo.JPG", ".jpg", false},
		{"scan.Png", ".png", false},
		{"anim.gif", ".gif", false},
		{"report.PDF", ".pdf", false},
		{"archive.tar.gz", "", true},
		{"virus.exe", "", true},
		{"noextension", "", true},
		{"", "", true},
		{"photo.jpg.exe", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()

			got, err := Extension(tt.filename)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedMediaType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttachments_Save(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	a := NewAttachments(backend, 1024)

	stored, err := a.Save(context.Background(), fileOf("../../etc/Passwd.PNG", "png-bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(stored.Name, ".png"), "name keeps normalized extension: %s", stored.Name)
	assert.NotContains(t, stored.Name, "passwd")
	assert.NotContains(t, stored.Name, "/")
	assert.Equal(t, "/uploads/"+stored.Name, stored.Ref)
	assert.Equal(t, []byte("png-bytes"), backend.objects[stored.Name])
}

func TestAttachments_SaveRejectsBeforeWriting(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	a := NewAttachments(backend, 4)

	_, err := a.Save(context.Background(), fileOf("tool.exe", "MZ"))
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)

	_, err = a.Save(context.Background(), fileOf("big.pdf", "0123456789"))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	assert.Empty(t, backend.objects)
}

func TestAttachments_UniqueNames(t *testing.T) {
	t.Parallel()

	a := NewAttachments(newMemBackend(), 0)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		s, err := a.Save(context.Background(), fileOf("same.jpg", "x"))
		require.NoError(t, err)
		require.False(t, seen[s.Name], "duplicate name %s", s.Name)
		seen[s.Name] = true
	}
}

func TestAttachments_BackendError(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	backend.putErr = errors.New("disk full")
	a := NewAttachments(backend, 0)

	_, err := a.Save(context.Background(), fileOf("a.gif", "GIF89a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestAttachments_Discard(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	a := NewAttachments(backend, 0)

	s, err := a.Save(context.Background(), fileOf("a.jpeg", "jpeg"))
	require.NoError(t, err)
	require.Len(t, backend.objects, 1)

	require.NoError(t, a.Discard(context.Background(), s))
	assert.Empty(t, backend.objects)

	assert.NoError(t, a.Discard(context.Background(), nil))
}

func TestValidName(t *testing.T) {
	t.Parallel()

	assert.True(t, validName("01j9z.png"))
	for _, bad := range []string{"", ".", "..", "a/b.png", `a\b.png`, "../x.png"} {
		assert.False(t, validName(bad), bad)
	}
}

