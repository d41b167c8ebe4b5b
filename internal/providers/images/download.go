package images

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"clipforge/internal/providers"
)

const (
	maxImageBytes       = 20 << 20
	defaultDownloadPool = 4
)

type Downloaded struct {
	Result      Result
	Data        []byte
	ContentType string
	Err         error
}

// Ext guesses a file extension from the content type.
func (d Downloaded) Ext() string {
	switch d.ContentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

type Downloader struct {
	client *http.Client
	limit  int
}

func NewDownloader(client *http.Client, limit int) *Downloader {
	if limit <= 0 {
		limit = defaultDownloadPool
	}
	return &Downloader{client: httpClientOrDefault(client), limit: limit}
}

// DownloadAll fetches every result concurrently. The output keeps the input
// order; a failed download sets Err on its entry and does not affect the
// others.
func (d *Downloader) DownloadAll(ctx context.Context, results []Result) []Downloaded {
	out := make([]Downloaded, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.limit)

	for i, r := range results {
		g.Go(func() error {
			data, ct, err := d.fetch(gctx, r.URL)
			out[i] = Downloaded{Result: r, Data: data, ContentType: ct, Err: err}
			return nil
		})
	}
	g.Wait()
	return out
}

func (d *Downloader) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", providers.NewStatusError("image download", resp, body)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("download %s: image larger than %d bytes", rawURL, maxImageBytes)
	}

	ct, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, "", fmt.Errorf("download %s: not an image (%s)", rawURL, ct)
	}
	return data, ct, nil
}
