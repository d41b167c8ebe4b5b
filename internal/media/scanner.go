package media

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"clipforge/internal/storage"
)

var ErrScanInProgress = errors.New("a scan is already running")

// Scanner bulk-imports a directory tree of media into a project.
type Scanner struct {
	importer *Importer
	logger   zerolog.Logger
	scanning bool
	mu       sync.Mutex
}

func NewScanner(importer *Importer, logger zerolog.Logger) *Scanner {
	return &Scanner{
		importer: importer,
		logger:   logger,
	}
}

func (s *Scanner) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// ScanDir imports every supported file under dir in lexical order. Hidden
// entries are skipped. Files that fail to import are logged and skipped.
func (s *Scanner) ScanDir(ctx context.Context, projectID, dir string) ([]storage.LibraryFile, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, ErrScanInProgress
	}
	s.scanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New(dir + " is not a directory")
	}

	dir = filepath.Clean(dir)
	s.logger.Info().Str("path", dir).Str("project", projectID).Msg("scanning directory")

	var imported []storage.LibraryFile
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsSupported(d.Name()) {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("failed to open file")
			return nil
		}
		defer f.Close()

		lf, err := s.importer.Import(ctx, ImportRequest{
			ProjectID: projectID,
			Name:      d.Name(),
			Body:      f,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("failed to import file")
			return nil
		}
		imported = append(imported, *lf)
		return nil
	})

	s.logger.Info().Int("files", len(imported)).Msg("scan completed")
	return imported, err
}
