package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notekeep/notekeep/internal/auth"
	"github.com/notekeep/notekeep/internal/config"
	"github.com/notekeep/notekeep/internal/handler"
	"github.com/notekeep/notekeep/internal/metrics"
	"github.com/notekeep/notekeep/internal/service"
	"github.com/notekeep/notekeep/internal/storage"
	"github.com/notekeep/notekeep/internal/testutil/memstore"
)

var testParams = auth.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type appEnv struct {
	router   http.Handler
	recorder *metrics.InMemoryRecorder
}

func newAppEnv(t *testing.T) *appEnv {
	t.Helper()

	cfg := &config.Config{
		AppEnv:             "development",
		JWTSecret:          "router-test-secret-0123",
		TokenTTL:           time.Hour,
		MaxRequestBodySize: 1 << 20,
		MaxUploadSize:      1 << 20,
		StorageBackend:     config.StorageLocal,
		UploadURLPrefix:    "/uploads",
	}

	backend, err := storage.NewLocalBackend(t.TempDir(), cfg.UploadURLPrefix)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := metrics.NewInMemory()
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	attachments := storage.NewAttachments(backend, cfg.MaxUploadSize)

	notes := service.NewNoteService(memstore.NewNotes(), attachments, recorder, logger)
	accounts := service.NewAuthService(memstore.NewUsers(), tokens, recorder).WithPasswordParams(testParams)

	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "metrics")
	})

	router := newRouter(routerDeps{
		cfg:        cfg,
		logger:     logger,
		verifier:   tokens,
		recorder:   recorder,
		metrics:    metricsHandler,
		health:     handler.NewHealthHandler(nil, nil, attachments),
		notes:      handler.NewNoteHandler(notes, logger),
		accounts:   handler.NewAuthHandler(accounts, logger),
		uploadsDir: backend.Dir(),
	})

	return &appEnv{router: router, recorder: recorder}
}

func (e *appEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *appEnv) postJSON(t *testing.T, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(t, req)
}

// login registers username and returns a bearer token for it.
func (e *appEnv) login(t *testing.T, username string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": "pw-" + username}

	rec := e.postJSON(t, "/api/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.postJSON(t, "/api/auth/login", "", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, username, resp.Username)
	return resp.Token
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var m struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&m))
	return m.Message
}

func TestRouter_AuthorizerStatuses(t *testing.T) {
	env := newAppEnv(t)
	token := env.login(t, "alice")

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{"missing header", "", http.StatusUnauthorized, "No token provided"},
		{"bearer without token", "Bearer ", http.StatusUnauthorized, "No token provided"},
		{"wrong scheme", "Basic " + token, http.StatusForbidden, "Invalid token"},
		{"garbage token", "Bearer not-a-jwt", http.StatusForbidden, "Invalid token"},
		{"valid", "Bearer " + token, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := env.do(t, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, message(t, rec))
			}
		})
	}
}

func TestRouter_NoteLifecycleWithUpload(t *testing.T) {
	env := newAppEnv(t)
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Trip"))
	require.NoError(t, mw.WriteField("content", "tickets"))
	fw, err := mw.CreateFormFile("image", "ticket.pdf")
	require.NoError(t, err)
	_, err = io.WriteString(fw, "%PDF-1.7")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/notes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice)
	rec := env.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID      string  `json:"_id"`
		FileURL *string `json:"fileUrl"`
		User    string  `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotNil(t, created.FileURL)

	// The reference is served by the static route.
	file := env.do(t, httptest.NewRequest(http.MethodGet, *created.FileURL, nil))
	require.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, "%PDF-1.7", file.Body.String())
	assert.Equal(t, "private, max-age=3600", file.Header().Get("Cache-Control"))

	// Bob sees nothing and cannot delete Alice's note.
	list := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	list.Header.Set("Authorization", "Bearer "+bob)
	rec = env.do(t, list)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	del := httptest.NewRequest(http.MethodDelete, "/api/notes/"+created.ID, nil)
	del.Header.Set("Authorization", "Bearer "+bob)
	assert.Equal(t, http.StatusNotFound, env.do(t, del).Code)

	del = httptest.NewRequest(http.MethodDelete, "/api/notes/"+created.ID, nil)
	del.Header.Set("Authorization", "Bearer "+alice)
	rec = env.do(t, del)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Note deleted", message(t, rec))

	snap := env.recorder.Snapshot()
	assert.Equal(t, uint64(1), snap.NotesCreated)
	assert.Equal(t, uint64(1), snap.NotesDeleted)
	assert.Equal(t, uint64(1), snap.AttachmentsStored)
}

func TestRouter_RejectsUnsupportedContentType(t *testing.T) {
	env := newAppEnv(t)
	token := env.login(t, "carol")

	req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)

	rec := env.do(t, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	env := newAppEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "metrics", rec.Body.String())

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Resource not found", message(t, rec))

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"postgres://user:secret@db:5432/notes", "postgres://user@db:5432/notes"},
		{"redis://:secret@cache:6379/0", "redis://redacted@cache:6379/0"},
		{"postgres://db/notes", "postgres://db/notes"},
	}

	for _, tt := range tests {
		if got := redactURL(tt.in); got != tt.want {
			t.Errorf("redactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://user:secret@db:5432/notes"
	err := errors.New("dial " + dsn + " failed: password=hunter2")

	got := sanitizeError(err, dsn)
	assert.NotContains(t, got, "secret")
	assert.NotContains(t, got, "hunter2")
	assert.Contains(t, got, "postgres://user@db:5432/notes")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}
