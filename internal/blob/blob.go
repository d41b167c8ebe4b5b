// Package blob stores the binary content of library files.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

var (
	ErrNotFound = errors.New("blob not found")
	ErrNotLocal = errors.New("blob store is not on local disk")
)

// Store is a flat key/value store for media binaries.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	// Open returns the content of key. The reader may also implement
	// io.ReadSeeker, which lets HTTP handlers serve ranges.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Localizer is implemented by stores that keep blobs on the local disk.
type Localizer interface {
	LocalPath(key string) (string, error)
}

// Key builds the blob key of a library file.
func Key(projectID, fileID, name string) string {
	ext := strings.ToLower(path.Ext(name))
	return projectID + "/" + fileID + ext
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid blob key %q", key)
		}
	}
	return nil
}

// Materialize returns a local path holding the content of key. For local
// stores that is the blob itself; otherwise the content is copied into a
// temp file which cleanup removes.
func Materialize(ctx context.Context, s Store, key string) (string, func(), error) {
	if l, ok := s.(Localizer); ok {
		p, err := l.LocalPath(key)
		if !errors.Is(err, ErrNotLocal) {
			return p, func() {}, err
		}
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	f, err := os.CreateTemp("", "clipforge-*"+path.Ext(key))
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.Remove(f.Name()) }

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}
