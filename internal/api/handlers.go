package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"clipforge/internal/editor"
	"clipforge/internal/export"
	"clipforge/internal/media"
	"clipforge/internal/providers"
	"clipforge/internal/providers/images"
	"clipforge/internal/storage"
	"clipforge/internal/streaming"
	"clipforge/internal/timeline"
)

const Version = "0.1.0"

const (
	defaultHistoryLimit = 50
	multipartMemory     = 32 << 20
)

type Handler struct {
	editor    *editor.Editor
	streamer  *streaming.Handler
	scanner   *media.Scanner
	settings  Settings
	maxUpload int64
	logger    zerolog.Logger
}

func NewHandler(ed *editor.Editor, streamer *streaming.Handler, logger zerolog.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		editor:    ed,
		streamer:  streamer,
		maxUpload: maxUploadBytes,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

func (h *Handler) SetScanner(scanner *media.Scanner) {
	h.scanner = scanner
}

func (h *Handler) SetSettings(s Settings) {
	h.settings = s
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: Version})
}

func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings)
}

func (h *Handler) CaptionStyles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CaptionStylesResponse{Styles: timeline.CaptionStyles()})
}

// Style profiles

func (h *Handler) ListStyles(w http.ResponseWriter, r *http.Request) {
	styles, err := h.editor.Styles()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if styles == nil {
		styles = []storage.StyleProfile{}
	}
	writeJSON(w, http.StatusOK, StyleProfilesResponse{Styles: styles})
}

func (h *Handler) SaveStyle(w http.ResponseWriter, r *http.Request) {
	var sp storage.StyleProfile
	if err := json.NewDecoder(r.Body).Decode(&sp); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if err := h.editor.SaveStyle(&sp); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

func (h *Handler) GetStyle(w http.ResponseWriter, r *http.Request) {
	sp, err := h.editor.Style(chi.URLParam(r, "styleId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (h *Handler) DeleteStyle(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.DeleteStyle(chi.URLParam(r, "styleId")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ApplyStyle(w http.ResponseWriter, r *http.Request) {
	out, err := h.editor.ApplyStyle(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "styleId"), editor.SourceUI)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Projects

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req editor.NewProject
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	p, err := h.editor.CreateProject(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.editor.Projects()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if projects == nil {
		projects = []storage.Project{}
	}
	writeJSON(w, http.StatusOK, ProjectsResponse{Projects: projects})
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.editor.Project(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if _, err := h.editor.Project(projectID); err != nil {
		h.fail(w, r, err)
		return
	}
	limit := queryInt(r, "limit", defaultHistoryLimit)
	entries, err := h.editor.Storage.ListActionLog(projectID, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []storage.ActionLogEntry{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

// Library

// UploadFiles imports every part named "file" of a multipart body.
func (h *Handler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", `No "file" parts in form`)
		return
	}

	files := make([]storage.LibraryFile, 0, len(headers))
	for _, fh := range headers {
		body, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Cannot read "+fh.Filename)
			return
		}
		f, err := h.editor.Import(r.Context(), media.ImportRequest{
			ProjectID: projectID,
			Name:      fh.Filename,
			MIMEType:  fh.Header.Get("Content-Type"),
			Body:      body,
		})
		body.Close()
		if err != nil {
			h.fail(w, r, err)
			return
		}
		files = append(files, *f)
	}
	writeJSON(w, http.StatusCreated, FilesResponse{Files: files})
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.editor.Library(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if files == nil {
		files = []storage.LibraryFile{}
	}
	writeJSON(w, http.StatusOK, FilesResponse{Files: files})
}

func (h *Handler) FileContent(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileId")
	f, err := h.editor.Storage.GetLibraryFile(fileID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, "FILE_NOT_FOUND", "File not found")
		return
	}
	h.streamer.ServeFile(w, r, f)
}

// ScanDirectory imports a server-side directory into the project in the
// background.
func (h *Handler) ScanDirectory(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Scanner not initialized")
		return
	}
	projectID := chi.URLParam(r, "id")
	if _, err := h.editor.Project(projectID); err != nil {
		h.fail(w, r, err)
		return
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "path is required")
		return
	}
	if h.scanner.IsScanning() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "in_progress"})
		return
	}

	go func() {
		files, err := h.scanner.ScanDir(context.Background(), projectID, req.Path)
		if err != nil {
			h.logger.Error().Err(err).Str("path", req.Path).Msg("scan failed")
			return
		}
		h.logger.Info().Str("project", projectID).Int("files", len(files)).Msg("scan finished")
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// Editing

func (h *Handler) ApplyActions(w http.ResponseWriter, r *http.Request) {
	var req ActionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if len(req.Actions) == 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "actions must not be empty")
		return
	}

	res, err := h.editor.Dispatch(r.Context(), chi.URLParam(r, "id"), editor.SourceUI, req.Actions)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "message is required")
		return
	}

	reply, err := h.editor.Chat(r.Context(), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	clipIndex, err := strconv.Atoi(chi.URLParam(r, "clipIndex"))
	if err != nil || clipIndex < 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "clipIndex must be a non-negative integer")
		return
	}
	force := r.URL.Query().Get("force") == "true"

	t, res, err := h.editor.TranscribeClip(r.Context(), chi.URLParam(r, "id"), clipIndex, force)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o := res.Outcomes[0]
	if o.Failed() {
		writeError(w, outcomeStatus(o.Code), o.Code, o.Message)
		return
	}
	writeJSON(w, http.StatusOK, TranscriptResponse{Transcript: t, Outcome: o})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	q := r.URL.Query()
	out, err := h.editor.Export(chi.URLParam(r, "id"), format, export.RenderOptions{
		Resolution: q.Get("resolution"),
		Quality:    q.Get("quality"),
		Output:     q.Get("output"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Body)
}

func (h *Handler) SearchImages(w http.ResponseWriter, r *http.Request) {
	if h.editor.Images == nil {
		writeError(w, http.StatusServiceUnavailable, editor.CodeProviderUnavailable, "Image search not configured")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "q is required")
		return
	}
	count := min(max(queryInt(r, "count", timeline.DefaultImageCount), 1), timeline.MaxImageCount)

	results, err := h.editor.Images.Search(r.Context(), query, count)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if results == nil {
		results = []images.Result{}
	}
	writeJSON(w, http.StatusOK, ImageSearchResponse{Query: query, Results: results})
}

// fail maps an error to its HTTP status and error code.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *providers.StatusError
	switch {
	case errors.Is(err, editor.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found")
	case errors.Is(err, editor.ErrStyleNotFound):
		writeError(w, http.StatusNotFound, "STYLE_NOT_FOUND", "Style profile not found")
	case errors.Is(err, editor.ErrInvalidProject), errors.Is(err, editor.ErrInvalidStyle), errors.Is(err, timeline.ErrInvalidParams):
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	case errors.Is(err, providers.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, editor.CodeProviderUnavailable, err.Error())
	case errors.As(err, &statusErr):
		writeError(w, http.StatusBadGateway, editor.CodeProviderError, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "CANCELLED", "Request cancelled")
	default:
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
	}
}

func outcomeStatus(code string) int {
	switch code {
	case timeline.CodeIndexOutOfRange, timeline.CodeInvalidParams, timeline.CodeUnsupportedAction:
		return http.StatusBadRequest
	case editor.CodeProviderUnavailable:
		return http.StatusServiceUnavailable
	case editor.CodeProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
