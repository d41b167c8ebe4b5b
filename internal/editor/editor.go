// Package editor runs action batches against stored projects. It resolves
// the I/O each action needs (library lookups, transcripts, image downloads)
// and then commits through the timeline executor, one batch per project at
// a time.
package editor

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"clipforge/internal/blob"
	"clipforge/internal/cache"
	"clipforge/internal/media"
	"clipforge/internal/providers/images"
	"clipforge/internal/providers/llm"
	"clipforge/internal/storage"
	"clipforge/internal/timeline"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrInvalidProject  = errors.New("invalid project")
)

type AudioExtractor interface {
	Extract(ctx context.Context, src string) (string, error)
}

type Transcriber interface {
	Available() bool
	Transcribe(ctx context.Context, audioPath string) (*timeline.Transcript, error)
}

type ImageSearcher interface {
	Search(ctx context.Context, query string, count int) ([]images.Result, error)
}

type ImageDownloader interface {
	DownloadAll(ctx context.Context, results []images.Result) []images.Downloaded
}

type Oracle interface {
	Available() bool
	Chat(ctx context.Context, history []llm.Message, summary string) (*llm.Reply, error)
}

// Deps wires the editor. Provider fields may be nil; actions that need a
// missing provider fail with PROVIDER_UNAVAILABLE.
type Deps struct {
	Storage     *storage.SQLiteStorage
	Blobs       blob.Store
	Importer    *media.Importer
	Executor    *timeline.Executor
	Transcripts *cache.TranscriptCache

	Audio       AudioExtractor
	Transcriber Transcriber
	Images      ImageSearcher
	Downloader  ImageDownloader
	Oracle      Oracle

	MaxWordsPerLine int
}

type Editor struct {
	Deps
	logger zerolog.Logger

	mu       sync.Mutex
	queues   map[string]chan struct{}
	sessions map[string]*session

	historyMu sync.Mutex
	history   map[string][]llm.Message

	flight singleflight.Group
}

func New(d Deps, logger zerolog.Logger) *Editor {
	if d.MaxWordsPerLine <= 0 {
		d.MaxWordsPerLine = timeline.DefaultMaxWordsPerLine
	}
	return &Editor{
		Deps:     d,
		logger:   logger.With().Str("component", "editor").Logger(),
		queues:   make(map[string]chan struct{}),
		sessions: make(map[string]*session),
		history:  make(map[string][]llm.Message),
	}
}

// acquire takes the project's dispatch slot. Waiters are served in arrival
// order as far as the runtime's channel queue allows.
func (e *Editor) acquire(ctx context.Context, projectID string) (func(), error) {
	e.mu.Lock()
	q, ok := e.queues[projectID]
	if !ok {
		q = make(chan struct{}, 1)
		e.queues[projectID] = q
	}
	e.mu.Unlock()

	select {
	case q <- struct{}{}:
		return func() { <-q }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// session is the in-memory timeline of a project being edited. saved is the
// stored version the snapshot corresponds to.
type session struct {
	store *timeline.Store
	saved int64
}

// snapshot returns the working timeline for p, reloading it from p when the
// stored version moved on without this editor. Callers hold the project slot.
func (e *Editor) snapshot(p *storage.Project) (*session, timeline.Timeline) {
	e.mu.Lock()
	s, ok := e.sessions[p.ID]
	if !ok || s.saved != p.Version {
		s = &session{store: timeline.NewStore(p.Timeline), saved: p.Version}
		e.sessions[p.ID] = s
	}
	e.mu.Unlock()
	return s, s.store.Snapshot()
}

// commit publishes tl as the session's timeline after it was saved at
// version.
func (e *Editor) commit(s *session, tl timeline.Timeline, version int64) {
	s.store.Replace(tl)
	e.mu.Lock()
	s.saved = version
	e.mu.Unlock()
}

type NewProject struct {
	Name      string  `json:"name"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frameRate"`
}

func (e *Editor) CreateProject(np NewProject) (*storage.Project, error) {
	np.Name = strings.TrimSpace(np.Name)
	if np.Name == "" {
		return nil, errors.Join(ErrInvalidProject, errors.New("name is required"))
	}
	if np.Width <= 0 {
		np.Width = timeline.CanvasWidth
	}
	if np.Height <= 0 {
		np.Height = timeline.CanvasHeight
	}
	if np.FrameRate <= 0 {
		np.FrameRate = 30
	}

	p := &storage.Project{
		ID:        uuid.NewString(),
		Name:      np.Name,
		Width:     np.Width,
		Height:    np.Height,
		FrameRate: np.FrameRate,
		Timeline:  timeline.Timeline{Media: []timeline.MediaElement{}, Texts: []timeline.TextElement{}},
	}
	if err := e.Storage.CreateProject(p); err != nil {
		return nil, err
	}
	e.logger.Info().Str("project", p.ID).Str("name", p.Name).Msg("project created")
	return p, nil
}

func (e *Editor) Project(id string) (*storage.Project, error) {
	p, err := e.Storage.GetProject(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

func (e *Editor) Projects() ([]storage.Project, error) {
	return e.Storage.ListProjects()
}

// DeleteProject removes the project row and its blobs. Blob cleanup is best
// effort.
func (e *Editor) DeleteProject(ctx context.Context, id string) error {
	unlock, err := e.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	files, err := e.Storage.ListLibraryFiles(id)
	if err != nil {
		return err
	}
	if err := e.Storage.DeleteProject(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrProjectNotFound
		}
		return err
	}
	for _, f := range files {
		if e.Transcripts != nil {
			e.Transcripts.Delete(ctx, f.ID)
		}
		if err := e.Blobs.Delete(ctx, blob.Key(f.ProjectID, f.ID, f.Name)); err != nil {
			e.logger.Warn().Err(err).Str("file", f.ID).Msg("failed to delete blob")
		}
	}

	e.mu.Lock()
	delete(e.sessions, id)
	e.mu.Unlock()

	e.historyMu.Lock()
	delete(e.history, id)
	e.historyMu.Unlock()

	e.logger.Info().Str("project", id).Int("files", len(files)).Msg("project deleted")
	return nil
}

// Import adds a file to the project library.
func (e *Editor) Import(ctx context.Context, req media.ImportRequest) (*storage.LibraryFile, error) {
	if _, err := e.Project(req.ProjectID); err != nil {
		return nil, err
	}
	return e.Importer.Import(ctx, req)
}

func (e *Editor) Library(projectID string) ([]storage.LibraryFile, error) {
	if _, err := e.Project(projectID); err != nil {
		return nil, err
	}
	return e.Storage.ListLibraryFiles(projectID)
}
