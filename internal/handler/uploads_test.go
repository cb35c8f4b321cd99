package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestUploads(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "01abc.png"), []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	h := Uploads("/uploads/", dir)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"file", "/uploads/01abc.png", http.StatusOK, "png-bytes"},
		{"missing", "/uploads/nope.png", http.StatusNotFound, ""},
		{"root listing", "/uploads/", http.StatusNotFound, ""},
		{"subdir listing", "/uploads/sub/", http.StatusNotFound, ""},
		{"traversal", "/uploads/../go.mod", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("GET %s: expected status %d, got %d", tt.path, tt.wantStatus, rec.Code)
			}
			if tt.wantBody != "" {
				body, _ := io.ReadAll(rec.Body)
				if string(body) != tt.wantBody {
					t.Errorf("unexpected body %q", body)
				}
			}
		})
	}
}
