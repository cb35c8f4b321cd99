package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notekeep/notekeep/internal/auth"
	"github.com/notekeep/notekeep/internal/handler/dto"
	"github.com/notekeep/notekeep/internal/service"
	"github.com/notekeep/notekeep/internal/storage"
)

const (
	// fileField is the multipart part carrying the attachment.
	fileField = "image"
	// removeField is the update flag that clears the attachment.
	removeField = "removeImage"

	// multipartMemory is how much of a form is buffered before spilling to disk.
	multipartMemory = 1 << 20
)

// NoteHandler handles HTTP requests for note operations.
// Every operation is scoped to the user bound to the request by the
// auth middleware.
type NoteHandler struct {
	svc    *service.NoteService
	logger *slog.Logger
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(svc *service.NoteService, logger *slog.Logger) *NoteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoteHandler{
		svc:    svc,
		logger: logger,
	}
}

// noteRequest is a create or update request decoded from either JSON or
// multipart form data.
type noteRequest struct {
	title       string
	content     string
	removeImage bool
	file        *storage.File
}

// requestError is a client error detected while decoding a request.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

// List handles GET /api/notes.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	notes, err := h.svc.ListNotes(r.Context(), ownerID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToNoteListResponse(notes))
}

// Create handles POST /api/notes.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	req, cleanup, err := h.decode(r)
	defer cleanup()
	if err != nil {
		h.writeRequestError(w, err)
		return
	}

	note, err := h.svc.CreateNote(r.Context(), service.CreateNoteInput{
		OwnerID: ownerID,
		Title:   req.title,
		Content: req.content,
		File:    req.file,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("note_created",
		"note_id", note.ID,
		"has_attachment", note.HasAttachment(),
	)

	writeJSON(w, http.StatusCreated, dto.ToNoteResponse(note))
}

// Update handles PUT /api/notes/{id}.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	id := chi.URLParam(r, "id")

	req, cleanup, err := h.decode(r)
	defer cleanup()
	if err != nil {
		h.writeRequestError(w, err)
		return
	}

	note, err := h.svc.UpdateNote(r.Context(), service.UpdateNoteInput{
		ID:         id,
		OwnerID:    ownerID,
		Title:      req.title,
		Content:    req.content,
		File:       req.file,
		RemoveFile: req.removeImage,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("note_updated",
		"note_id", note.ID,
		"replaced_attachment", req.file != nil,
		"removed_attachment", req.removeImage && req.file == nil,
	)

	writeJSON(w, http.StatusOK, dto.ToNoteResponse(note))
}

// Delete handles DELETE /api/notes/{id}.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteNote(r.Context(), id, ownerID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("note_deleted", "note_id", id)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Note deleted"})
}

// decode reads a note request from JSON or multipart form data.
// The returned cleanup must always be called.
func (h *NoteHandler) decode(r *http.Request) (*noteRequest, func(), error) {
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.decodeMultipart(r)
	}

	req := &noteRequest{}
	if r.ContentLength == 0 {
		return req, noop, nil
	}

	var body dto.NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, noop, &requestError{http.StatusRequestEntityTooLarge, "Request body too large"}
		}
		return nil, noop, &requestError{http.StatusBadRequest, "Invalid request body"}
	}

	req.title = body.Title
	req.content = body.Content
	req.removeImage = bool(body.RemoveImage)
	return req, noop, nil
}

func (h *NoteHandler) decodeMultipart(r *http.Request) (*noteRequest, func(), error) {
	noop := func() {}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, noop, &requestError{http.StatusRequestEntityTooLarge, "File too large"}
		}
		return nil, noop, &requestError{http.StatusBadRequest, "Invalid form data"}
	}

	form := r.MultipartForm
	var opened multipart.File
	cleanup := func() {
		if opened != nil {
			_ = opened.Close()
		}
		if err := form.RemoveAll(); err != nil {
			h.logger.Debug("failed to remove multipart temp files", "error", err)
		}
	}

	req := &noteRequest{
		title:       r.FormValue("title"),
		content:     r.FormValue("content"),
		removeImage: r.FormValue(removeField) == "true",
	}

	headers := form.File[fileField]
	switch len(headers) {
	case 0:
		return req, cleanup, nil
	case 1:
	default:
		return nil, cleanup, &requestError{http.StatusBadRequest, "Only one file may be attached"}
	}

	f, err := headers[0].Open()
	if err != nil {
		return nil, cleanup, &requestError{http.StatusBadRequest, "Invalid form data"}
	}
	opened = f

	req.file = &storage.File{
		Filename: headers[0].Filename,
		Size:     headers[0].Size,
		Content:  f,
	}
	return req, cleanup, nil
}

func (h *NoteHandler) writeRequestError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeError(w, reqErr.status, reqErr.message)
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid request")
}

// handleServiceError maps service errors to HTTP responses.
func (h *NoteHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNoteNotFound):
		writeError(w, http.StatusNotFound, "Note not found")
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Title and content are required")
	case errors.Is(err, service.ErrUnsupportedMediaType):
		writeError(w, http.StatusUnsupportedMediaType, "Only image and PDF files are allowed")
	case errors.Is(err, service.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, service.ErrMissingOwner):
		writeError(w, http.StatusUnauthorized, "No token provided")
	default:
		h.logger.ErrorContext(r.Context(), "internal_error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
