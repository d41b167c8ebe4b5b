package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"clipforge/internal/api"
	"clipforge/internal/blob"
	"clipforge/internal/cache"
	"clipforge/internal/config"
	"clipforge/internal/editor"
	"clipforge/internal/media"
	"clipforge/internal/providers/images"
	"clipforge/internal/providers/llm"
	"clipforge/internal/providers/transcribe"
	"clipforge/internal/storage"
	"clipforge/internal/timeline"
)

const maxCachedBlob = 8 << 20

var errDatabaseLocked = errors.New("database is in use by another clipforge process")

// app holds everything a command needs. The database lock is held until
// Close so the server and CLI never write concurrently.
type app struct {
	cfg         *config.Config
	logger      zerolog.Logger
	lock        *flock.Flock
	store       *storage.SQLiteStorage
	blobs       blob.Store
	transcripts *cache.TranscriptCache
	importer    *media.Importer
	editor      *editor.Editor
	images      *images.Chain
	llm         *llm.Client
	whisper     *transcribe.Client
}

// openApp wires every component. On failure whatever was already opened,
// including the database lock, is released before returning.
func openApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	lock := flock.New(cfg.Database.Path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", errDatabaseLocked, cfg.Database.Path)
	}
	a.lock = lock

	a.store, err = storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	backing, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	a.blobs = blob.NewCached(backing, cache.NewBlobCache(cfg.Cache.BlobCapacity, cfg.Cache.BlobMaxSize), maxCachedBlob)

	a.transcripts, err = cache.NewTranscriptCache(cache.TranscriptCacheConfig{
		Capacity:      cfg.Cache.TranscriptCapacity,
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
		RedisTTL:      cfg.Cache.RedisTTL,
	}, logger)
	if err != nil {
		return fmt.Errorf("open transcript cache: %w", err)
	}

	probe := media.NewFFProbe(cfg.Providers.Timeout, logger)
	if probe.IsAvailable() {
		logger.Debug().Msg("ffprobe available - metadata extraction enabled")
	} else {
		logger.Warn().Msg("ffprobe not found - durations will be missing")
	}
	audio := media.NewAudioExtractor(filepath.Join(os.TempDir(), "clipforge-audio"), logger)
	if !audio.IsAvailable() {
		logger.Warn().Msg("ffmpeg not found - transcription will upload original files")
	}
	a.importer = media.NewImporter(a.blobs, probe, a.store, logger)

	httpClient := &http.Client{Timeout: cfg.Providers.Timeout}
	a.images = images.NewChain(logger, images.FromKeys(
		cfg.Providers.PexelsKey,
		cfg.Providers.UnsplashKey,
		cfg.Providers.PixabayKey,
		httpClient,
	)...)
	a.llm = llm.NewClient(llm.Config{
		APIKey:  cfg.Providers.OpenAIKey,
		BaseURL: cfg.Providers.OpenAIBaseURL,
		Model:   cfg.Providers.ChatModel,
		Timeout: cfg.Providers.Timeout,
	})
	a.whisper = transcribe.NewClient(transcribe.Config{
		APIKey:  cfg.Providers.OpenAIKey,
		BaseURL: cfg.Providers.OpenAIBaseURL,
		Timeout: cfg.Providers.Timeout,
	})

	a.editor = editor.New(editor.Deps{
		Storage:     a.store,
		Blobs:       a.blobs,
		Importer:    a.importer,
		Executor:    timeline.NewExecutor(timeline.Config{ImageDuration: cfg.Timeline.ImageDuration, ImportImageDuration: cfg.Timeline.ImportImageDuration, NewID: uuid.NewString}, logger),
		Transcripts: a.transcripts,
		Audio:       audio,
		Transcriber: a.whisper,
		Images:      a.images,
		Downloader:  images.NewDownloader(httpClient, 0),
		Oracle:      a.llm,

		MaxWordsPerLine: cfg.Timeline.MaxWordsPerLine,
	}, logger)

	return nil
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (blob.Store, error) {
	switch cfg.Backend {
	case "s3":
		return blob.NewS3(ctx, blob.S3Config{
			Bucket:       cfg.S3.Bucket,
			Prefix:       cfg.S3.Prefix,
			Region:       cfg.S3.Region,
			Profile:      cfg.S3.Profile,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	case "local", "":
		return blob.NewLocal(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// settings reports provider availability with masked credentials.
func (a *app) settings() api.Settings {
	p := a.cfg.Providers
	s := api.Settings{
		Providers: []api.ProviderSetting{
			{Name: "openai", Key: config.MaskKey(p.OpenAIKey), Available: a.llm.Available()},
			{Name: "pexels", Key: config.MaskKey(p.PexelsKey), Available: p.PexelsKey != ""},
			{Name: "unsplash", Key: config.MaskKey(p.UnsplashKey), Available: p.UnsplashKey != ""},
			{Name: "pixabay", Key: config.MaskKey(p.PixabayKey), Available: p.PixabayKey != ""},
			{Name: "picsum", Available: true},
		},
		Storage: a.cfg.Storage.Backend,
		Cache:   "memory",
	}
	if a.cfg.Cache.RedisAddr != "" {
		s.Cache = "memory+redis"
	}
	return s
}

func (a *app) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.transcripts != nil {
		errs = append(errs, a.transcripts.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.lock != nil {
		errs = append(errs, a.lock.Unlock())
	}
	return errors.Join(errs...)
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if prettyOutput(cfg.Pretty, out) {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Logger()
}

func prettyOutput(mode string, out io.Writer) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "true", "yes", "1":
		return true
	case "false", "no", "0":
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
