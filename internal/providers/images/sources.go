package images

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultTimeout = 15 * time.Second

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: defaultTimeout}
}

type Pexels struct {
	key     string
	baseURL string
	client  *http.Client
}

func NewPexels(key string, client *http.Client) *Pexels {
	return &Pexels{key: key, baseURL: "https://api.pexels.com/v1", client: httpClientOrDefault(client)}
}

func (p *Pexels) Name() string { return "pexels" }

func (p *Pexels) Search(ctx context.Context, query string, count int) ([]Result, error) {
	q := url.Values{"query": {query}, "per_page": {strconv.Itoa(count)}}
	var out struct {
		Photos []struct {
			ID           int64  `json:"id"`
			Alt          string `json:"alt"`
			Photographer string `json:"photographer"`
			Src          struct {
				Large  string `json:"large"`
				Medium string `json:"medium"`
			} `json:"src"`
		} `json:"photos"`
	}
	err := getJSON(ctx, p.client, p.Name(), p.baseURL+"/search?"+q.Encode(), http.Header{"Authorization": {p.key}}, &out)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(out.Photos))
	for _, ph := range out.Photos {
		results = append(results, Result{
			ID:           fmt.Sprintf("pexels-%d", ph.ID),
			URL:          ph.Src.Large,
			Thumbnail:    ph.Src.Medium,
			Source:       p.Name(),
			Photographer: ph.Photographer,
			Alt:          orDefault(ph.Alt, query),
		})
	}
	return results, nil
}

type Unsplash struct {
	key     string
	baseURL string
	client  *http.Client
}

func NewUnsplash(key string, client *http.Client) *Unsplash {
	return &Unsplash{key: key, baseURL: "https://api.unsplash.com", client: httpClientOrDefault(client)}
}

func (u *Unsplash) Name() string { return "unsplash" }

func (u *Unsplash) Search(ctx context.Context, query string, count int) ([]Result, error) {
	q := url.Values{"query": {query}, "per_page": {strconv.Itoa(count)}}
	var out struct {
		Results []struct {
			ID             string `json:"id"`
			AltDescription string `json:"alt_description"`
			URLs           struct {
				Regular string `json:"regular"`
				Small   string `json:"small"`
			} `json:"urls"`
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"results"`
	}
	err := getJSON(ctx, u.client, u.Name(), u.baseURL+"/search/photos?"+q.Encode(), http.Header{"Authorization": {"Client-ID " + u.key}}, &out)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(out.Results))
	for _, ph := range out.Results {
		results = append(results, Result{
			ID:           "unsplash-" + ph.ID,
			URL:          ph.URLs.Regular,
			Thumbnail:    ph.URLs.Small,
			Source:       u.Name(),
			Photographer: ph.User.Name,
			Alt:          orDefault(ph.AltDescription, query),
		})
	}
	return results, nil
}

type Pixabay struct {
	key     string
	baseURL string
	client  *http.Client
}

func NewPixabay(key string, client *http.Client) *Pixabay {
	return &Pixabay{key: key, baseURL: "https://pixabay.com/api/", client: httpClientOrDefault(client)}
}

func (p *Pixabay) Name() string { return "pixabay" }

func (p *Pixabay) Search(ctx context.Context, query string, count int) ([]Result, error) {
	// pixabay rejects per_page below 3
	perPage := max(count, 3)
	q := url.Values{
		"key":        {p.key},
		"q":          {query},
		"per_page":   {strconv.Itoa(perPage)},
		"image_type": {"photo"},
	}
	var out struct {
		Hits []struct {
			ID            int64  `json:"id"`
			Tags          string `json:"tags"`
			User          string `json:"user"`
			LargeImageURL string `json:"largeImageURL"`
			WebformatURL  string `json:"webformatURL"`
		} `json:"hits"`
	}
	if err := getJSON(ctx, p.client, p.Name(), p.baseURL+"?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(out.Hits))
	for _, h := range out.Hits {
		results = append(results, Result{
			ID:           fmt.Sprintf("pixabay-%d", h.ID),
			URL:          h.LargeImageURL,
			Thumbnail:    h.WebformatURL,
			Source:       p.Name(),
			Photographer: h.User,
			Alt:          orDefault(h.Tags, query),
		})
	}
	if len(results) > count {
		results = results[:count]
	}
	return results, nil
}

// Picsum returns random placeholder photos. It needs no key and never
// fails, which makes it the end of every chain.
type Picsum struct {
	baseURL string
	randN   func(int) int
}

func NewPicsum() *Picsum {
	return &Picsum{baseURL: "https://picsum.photos", randN: rand.IntN}
}

func (p *Picsum) Name() string { return "picsum" }

func (p *Picsum) Search(_ context.Context, query string, count int) ([]Result, error) {
	results := make([]Result, 0, count)
	for i := 0; i < count; i++ {
		id := p.randN(1000)
		results = append(results, Result{
			ID:        fmt.Sprintf("picsum-%d-%d", id, i),
			URL:       fmt.Sprintf("%s/id/%d/1920/1080", p.baseURL, id),
			Thumbnail: fmt.Sprintf("%s/id/%d/400/300", p.baseURL, id),
			Source:    p.Name(),
			Alt:       "Image related to " + query,
		})
	}
	return results, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
