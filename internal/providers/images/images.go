// Package images searches stock photo APIs and downloads the results.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"clipforge/internal/providers"
)

type Result struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Thumbnail    string `json:"thumbnail"`
	Source       string `json:"source"`
	Photographer string `json:"photographer,omitempty"`
	Alt          string `json:"alt"`
}

type Provider interface {
	Name() string
	Search(ctx context.Context, query string, count int) ([]Result, error)
}

// Chain queries providers in order until it has count results. A failing
// provider is logged and skipped. The last provider is expected to never
// run dry.
type Chain struct {
	providers []Provider
	logger    zerolog.Logger
}

func NewChain(logger zerolog.Logger, ps ...Provider) *Chain {
	return &Chain{
		providers: ps,
		logger:    logger.With().Str("component", "image-search").Logger(),
	}
}

func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

func (c *Chain) Search(ctx context.Context, query string, count int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("image search: empty query")
	}
	if count <= 0 {
		return nil, nil
	}

	var results []Result
	for _, p := range c.providers {
		need := count - len(results)
		if need <= 0 {
			break
		}
		found, err := p.Search(ctx, query, need)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			c.logger.Warn().Err(err).Str("provider", p.Name()).Str("query", query).Msg("image search failed")
			continue
		}
		if len(found) > need {
			found = found[:need]
		}
		results = append(results, found...)
	}

	c.logger.Debug().Str("query", query).Int("found", len(results)).Msg("image search finished")
	return results, nil
}

// FromKeys builds the provider chain for the configured keys. Providers
// without a key are left out; picsum needs none.
func FromKeys(pexelsKey, unsplashKey, pixabayKey string, client *http.Client) []Provider {
	var ps []Provider
	if pexelsKey != "" {
		ps = append(ps, NewPexels(pexelsKey, client))
	}
	if unsplashKey != "" {
		ps = append(ps, NewUnsplash(unsplashKey, client))
	}
	if pixabayKey != "" {
		ps = append(ps, NewPixabay(pixabayKey, client))
	}
	return append(ps, NewPicsum())
}

func getJSON(ctx context.Context, client *http.Client, provider, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: http request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return providers.NewStatusError(provider, resp, body)
	}
	return json.Unmarshal(body, out)
}
