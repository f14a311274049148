package server

import (
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/rs/zerolog"

	"github.com/knowledgequest/quiz-engine/internal/material"
	"github.com/knowledgequest/quiz-engine/internal/storage"
	httperrors "github.com/knowledgequest/quiz-engine/pkg/http/errors"
)

// MaterialHandlers stores and extracts study material per user.
type MaterialHandlers struct {
	registry  *material.Registry
	store     storage.Store
	workers   int
	maxUpload int64
	logger    zerolog.Logger
}

func NewMaterialHandlers(registry *material.Registry, store storage.Store, workers int, maxUpload int64, logger zerolog.Logger) *MaterialHandlers {
	if store == nil {
		store = storage.Nop{}
	}
	return &MaterialHandlers{
		registry:  registry,
		store:     store,
		workers:   workers,
		maxUpload: maxUpload,
		logger:    logger.With().Str("component", "materials_http").Logger(),
	}
}

func (h *MaterialHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/materials/{user}", h.List)
	mux.HandleFunc("PUT /v1/materials/{user}", h.Put)
	mux.HandleFunc("POST /v1/materials/{user}/upload", h.Upload)
}

// UploadResponse lists what was extracted and stored.
type UploadResponse struct {
	Sources []string `json:"sources"`
	Failed  []string `json:"failed,omitempty"`
	// Text is the combined extraction, ready to paste into a quiz start.
	Text string `json:"text"`
}

// List handles GET /v1/materials/{user}
func (h *MaterialHandlers) List(w http.ResponseWriter, r *http.Request) {
	user := storage.SanitizeKey(r.PathValue("user"))
	if user == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidUser, "user is required")
		return
	}
	lib, err := h.store.LoadAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load materials")
		httperrors.RespondError(w, http.StatusServiceUnavailable, httperrors.ErrCodeStorageFailed, "materials are unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user, "sources": lib.Sources(user)})
}

// Put handles PUT /v1/materials/{user} with a {name: text} body.
func (h *MaterialHandlers) Put(w http.ResponseWriter, r *http.Request) {
	var docs map[string]string
	if !decodeBody(w, r, &docs) {
		return
	}
	lib, ok := h.merge(w, r, docs)
	if !ok {
		return
	}
	user := storage.SanitizeKey(r.PathValue("user"))
	respondJSON(w, http.StatusOK, map[string]any{"user": user, "sources": lib.Sources(user)})
}

// Upload handles POST /v1/materials/{user}/upload with multipart "files".
func (h *MaterialHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httperrors.RespondError(w, http.StatusRequestEntityTooLarge, httperrors.ErrCodePayloadTooLarge, "upload too large")
			return
		}
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "no files uploaded")
		return
	}
	files := make([]material.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "could not read "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "could not read "+fh.Filename)
			return
		}
		files = append(files, material.File{Name: fh.Filename, Data: data})
	}

	results := h.registry.ExtractAll(r.Context(), files, h.workers)
	docs := make(map[string]string, len(results))
	for _, res := range results {
		if res.Err == nil {
			docs[res.Name] = res.Text
		}
	}
	failed := material.Failed(results)
	if len(docs) == 0 {
		httperrors.RespondErrorWithDetails(w, http.StatusUnprocessableEntity, httperrors.ErrCodeNothingExtracted,
			"no text could be extracted from the uploaded files", map[string]any{"failed": failed})
		return
	}
	if _, ok := h.merge(w, r, docs); !ok {
		return
	}

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, storage.SanitizeKey(name))
	}
	sort.Strings(names)
	h.logger.Info().Int("stored", len(names)).Int("failed", len(failed)).Msg("materials uploaded")
	respondJSON(w, http.StatusOK, UploadResponse{
		Sources: names,
		Failed:  failed,
		Text:    material.Combine(results),
	})
}

func (h *MaterialHandlers) merge(w http.ResponseWriter, r *http.Request, docs map[string]string) (storage.Library, bool) {
	lib, err := storage.Merge(r.Context(), h.store, r.PathValue("user"), docs)
	switch {
	case err == nil:
		return lib, true
	case errors.Is(err, storage.ErrEmptyKey):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidUser, "user is required")
	case lib != nil:
		h.logger.Error().Err(err).Msg("failed to save materials")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeStorageFailed, "materials could not be saved")
	default:
		h.logger.Error().Err(err).Msg("failed to load materials")
		httperrors.RespondError(w, http.StatusServiceUnavailable, httperrors.ErrCodeStorageFailed, "materials are unavailable")
	}
	return nil, false
}
