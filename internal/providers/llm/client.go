package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipforge/internal/providers"
	"clipforge/internal/timeline"
)

const (
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 60 * time.Second
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o"
	maxHistory         = 20
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to an OpenAI-compatible chat completion endpoint and turns
// user requests into timeline actions.
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
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
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

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the oracle's answer to one user turn.
type Reply struct {
	Message         string               `json:"message"`
	Actions         []timeline.RawAction `json:"actions"`
	NeedsUserChoice bool                 `json:"needsUserChoice"`
}

// Chat sends the conversation plus a summary of the current timeline and
// returns the decoded reply.
func (c *Client) Chat(ctx context.Context, history []Message, summary string) (*Reply, error) {
	if !c.Available() {
		return nil, fmt.Errorf("llm chat: %w", providers.ErrUnavailable)
	}
	if len(history) == 0 || strings.TrimSpace(history[len(history)-1].Content) == "" {
		return nil, errors.New("llm chat: user message required")
	}
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: SystemPrompt})
	if summary != "" {
		messages = append(messages, Message{Role: "system", Content: "Current timeline:\n" + summary})
	}
	messages = append(messages, history...)

	content, err := c.CompleteJSON(ctx, messages)
	if err != nil {
		return nil, err
	}

	var reply Reply
	if err := DecodeJSON(content, &reply); err != nil {
		return nil, fmt.Errorf("llm chat: parse reply: %w", err)
	}
	reply.Message = strings.TrimSpace(reply.Message)
	if reply.Message == "" && len(reply.Actions) == 0 {
		return nil, errors.New("llm chat: empty reply")
	}
	return &reply, nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CompleteJSON issues a JSON-mode completion and returns the raw content.
func (c *Client) CompleteJSON(ctx context.Context, messages []Message) (string, error) {
	payload := chatCompletionRequest{
		Model:          c.cfg.Model,
		Messages:       messages,
		Temperature:    0.2,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}

	var content string
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		content, err = c.sendOnce(ctx, payload)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}
	return content, nil
}

func (c *Client) sendOnce(ctx context.Context, payload chatCompletionRequest) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "chat", "completions")
	if err != nil {
		return "", fmt.Errorf("build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", providers.NewStatusError("llm", resp, body)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
		if choice.Message.Refusal != "" {
			return "", fmt.Errorf("model refused: %s", choice.Message.Refusal)
		}
	}
	return "", errors.New("empty completion")
}

// DecodeJSON decodes a model reply, tolerating code fences and prose
// around the JSON object.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitize(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return directErr
	}
	return json.Unmarshal([]byte(sanitized), target)
}

func sanitize(content string) string {
	trimmed := content
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimLeft(trimmed[3:], " \t\r\n")
		if len(trimmed) >= 4 && strings.EqualFold(trimmed[:4], "json") {
			trimmed = trimmed[4:]
		}
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return trimmed[start : end+1]
		}
	}
	return trimmed
}
