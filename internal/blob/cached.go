package blob

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"clipforge/internal/cache"
)

// Cached keeps small blobs in memory in front of a slower store. It is used
// for image thumbnails and stills that the editor UI fetches repeatedly.
type Cached struct {
	Store
	cache   *cache.BlobCache
	maxItem int64
}

func NewCached(s Store, c *cache.BlobCache, maxItemBytes int64) *Cached {
	return &Cached{Store: s, cache: c, maxItem: maxItemBytes}
}

func (c *Cached) Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	c.cache.Delete(key)
	return c.Store.Put(ctx, key, r, contentType)
}

// streamed keys are never cached; video and audio are served with Range
// requests and reading their head would only be thrown away.
var streamed = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true, ".mkv": true, ".avi": true, ".m4v": true,
	".mp3": true, ".wav": true, ".m4a": true, ".aac": true, ".ogg": true, ".flac": true,
}

func isStreamed(key string) bool {
	return streamed[strings.ToLower(path.Ext(key))]
}

func (c *Cached) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if isStreamed(key) {
		return c.Store.Open(ctx, key)
	}
	if data, ok := c.cache.Get(key); ok {
		return nopSeekCloser{bytes.NewReader(data)}, nil
	}

	rc, err := c.Store.Open(ctx, key)
	if err != nil {
		return nil, err
	}

	head, err := io.ReadAll(io.LimitReader(rc, c.maxItem+1))
	if err != nil {
		rc.Close()
		return nil, err
	}
	if int64(len(head)) <= c.maxItem {
		rc.Close()
		c.cache.Set(key, head)
		return nopSeekCloser{bytes.NewReader(head)}, nil
	}

	// too large to cache; rewind seekable blobs so Range requests keep working
	if rs, ok := rc.(io.ReadSeeker); ok {
		if _, err := rs.Seek(0, io.SeekStart); err == nil {
			return rc, nil
		}
	}
	return &joinedReadCloser{Reader: io.MultiReader(bytes.NewReader(head), rc), closer: rc}, nil
}

func (c *Cached) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return c.Store.Delete(ctx, key)
}

// LocalPath passes through when the underlying store is on disk.
func (c *Cached) LocalPath(key string) (string, error) {
	if l, ok := c.Store.(Localizer); ok {
		return l.LocalPath(key)
	}
	return "", ErrNotLocal
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

type joinedReadCloser struct {
	io.Reader
	closer io.Closer
}

func (j *joinedReadCloser) Close() error { return j.closer.Close() }
