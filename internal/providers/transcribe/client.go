// Package transcribe turns clip audio into word-timed transcripts using an
// OpenAI-compatible Whisper endpoint.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/providers"
	"clipforge/internal/timeline"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
	defaultTimeout = 5 * time.Minute
	// Whisper rejects uploads above 25 MB.
	maxUploadBytes = 25 << 20
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      providers.Retry
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithRetry(r providers.Retry) Option {
	return func(c *Client) {
		c.retry = r
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      providers.DefaultRetry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Available() bool {
	return c.cfg.APIKey != ""
}

type verboseResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

// Transcribe uploads the audio file at path and returns its transcript with
// word and segment timestamps relative to the start of the audio.
func (c *Client) Transcribe(ctx context.Context, path string) (*timeline.Transcript, error) {
	if !c.Available() {
		return nil, fmt.Errorf("transcribe: %w", providers.ErrUnavailable)
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(audio) > maxUploadBytes {
		return nil, fmt.Errorf("transcribe: audio is %d bytes, limit is %d", len(audio), maxUploadBytes)
	}

	var out verboseResponse
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		return c.sendOnce(ctx, filepath.Base(path), audio, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	t := &timeline.Transcript{
		Text:     strings.TrimSpace(out.Text),
		Language: out.Language,
	}
	for _, w := range out.Words {
		t.Words = append(t.Words, timeline.Word{Word: strings.TrimSpace(w.Word), Start: w.Start, End: w.End})
	}
	for _, s := range out.Segments {
		t.Segments = append(t.Segments, timeline.Segment{Text: strings.TrimSpace(s.Text), Start: s.Start, End: s.End})
	}
	return t, nil
}

func (c *Client) sendOnce(ctx context.Context, filename string, audio []byte, out *verboseResponse) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
		{"timestamp_granularities[]", "segment"},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := fw.Write(audio); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "audio", "transcriptions")
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return providers.NewStatusError("transcribe", resp, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
