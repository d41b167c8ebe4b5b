package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clipforge/internal/blob"
	"clipforge/internal/storage"
	"clipforge/internal/timeline"
)

type ImportRequest struct {
	ProjectID string
	Name      string
	MIMEType  string
	Source    string
	SourceURL string
	Body      io.Reader
}

// Importer stores uploaded binaries and records them in a project library
// with whatever metadata ffprobe can read.
type Importer struct {
	blobs   blob.Store
	prober  Prober
	storage *storage.SQLiteStorage
	logger  zerolog.Logger
	newID   func() string

	processing   map[string]bool
	processingMu sync.Mutex
}

func NewImporter(blobs blob.Store, prober Prober, store *storage.SQLiteStorage, logger zerolog.Logger) *Importer {
	return &Importer{
		blobs:      blobs,
		prober:     prober,
		storage:    store,
		logger:     logger.With().Str("component", "importer").Logger(),
		newID:      uuid.NewString,
		processing: make(map[string]bool),
	}
}

func (i *Importer) Import(ctx context.Context, req ImportRequest) (*storage.LibraryFile, error) {
	if req.Name == "" {
		return nil, errors.New("file name is required")
	}
	if req.Source == "" {
		req.Source = storage.SourceUpload
	}

	mimeType, typ := Classify(req.MIMEType, req.Name)
	f := &storage.LibraryFile{
		ID:        i.newID(),
		ProjectID: req.ProjectID,
		Name:      req.Name,
		MIMEType:  mimeType,
		Type:      typ,
		Source:    req.Source,
		SourceURL: req.SourceURL,
	}

	key := blob.Key(f.ProjectID, f.ID, f.Name)
	n, err := i.blobs.Put(ctx, key, req.Body, mimeType)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", req.Name, err)
	}
	f.Size = n

	i.probe(ctx, f)

	if err := i.storage.AddLibraryFile(f); err != nil {
		i.blobs.Delete(ctx, key)
		return nil, err
	}

	i.logger.Info().
		Str("project", f.ProjectID).
		Str("file", f.ID).
		Str("name", f.Name).
		Str("type", string(f.Type)).
		Int64("size", f.Size).
		Msg("file imported")
	return f, nil
}

// Reprobe refreshes the metadata of a stored file. Concurrent calls for the
// same file collapse into one.
func (i *Importer) Reprobe(ctx context.Context, f *storage.LibraryFile) error {
	i.processingMu.Lock()
	if i.processing[f.ID] {
		i.processingMu.Unlock()
		return nil
	}
	i.processing[f.ID] = true
	i.processingMu.Unlock()

	defer func() {
		i.processingMu.Lock()
		delete(i.processing, f.ID)
		i.processingMu.Unlock()
	}()

	i.probe(ctx, f)
	return i.storage.AddLibraryFile(f)
}

// probe fills duration and dimensions. Failures leave them unset.
func (i *Importer) probe(ctx context.Context, f *storage.LibraryFile) {
	if i.prober == nil {
		return
	}

	key := blob.Key(f.ProjectID, f.ID, f.Name)
	path, cleanup, err := blob.Materialize(ctx, i.blobs, key)
	if err != nil {
		i.logger.Warn().Err(err).Str("file", f.ID).Msg("cannot read blob for probing")
		return
	}
	defer cleanup()

	meta, err := i.prober.Probe(ctx, path)
	if err != nil {
		i.logger.Debug().Err(err).Str("file", f.ID).Msg("probe failed")
		return
	}

	if meta.Width > 0 && meta.Height > 0 {
		f.Width, f.Height = &meta.Width, &meta.Height
	}
	if f.Type != timeline.MediaImage && meta.Duration > 0 {
		f.Duration = &meta.Duration
	}

	i.logger.Debug().
		Str("file", f.ID).
		Float64("duration", meta.Duration).
		Int("width", meta.Width).
		Int("height", meta.Height).
		Msg("metadata extracted")
}
