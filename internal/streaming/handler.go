package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"clipforge/internal/blob"
	"clipforge/internal/media"
	"clipforge/internal/storage"
)

// Handler streams library blobs. Seekable blobs get Range support through
// http.ServeContent; others are copied through with their known size.
type Handler struct {
	blobs  blob.Store
	logger zerolog.Logger
}

func NewHandler(blobs blob.Store, logger zerolog.Logger) *Handler {
	return &Handler{blobs: blobs, logger: logger}
}

// ServeFile writes the content of a library file.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request, f *storage.LibraryFile) {
	key := blob.Key(f.ProjectID, f.ID, f.Name)
	rc, err := h.blobs.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("failed to open blob")
		http.Error(w, "Cannot read file", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	contentType := f.MIMEType
	if contentType == "" {
		contentType = media.ContentType(f.Name)
	}
	w.Header().Set("Content-Type", contentType)

	if rs, ok := rc.(io.ReadSeeker); ok {
		w.Header().Set("Accept-Ranges", "bytes")
		http.ServeContent(w, r, f.Name, f.CreatedAt, rs)
		return
	}

	if f.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Debug().Err(err).Str("key", key).Msg("stream interrupted")
	}
}
