package api

import (
	"clipforge/internal/providers/images"
	"clipforge/internal/storage"
	"clipforge/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ProjectsResponse struct {
	Projects []storage.Project `json:"projects"`
}

type FilesResponse struct {
	Files []storage.LibraryFile `json:"files"`
}

type ActionsRequest struct {
	Actions []timeline.RawAction `json:"actions"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type TranscriptResponse struct {
	Transcript *timeline.Transcript `json:"transcript,omitempty"`
	Outcome    timeline.Outcome     `json:"outcome"`
}

type ImageSearchResponse struct {
	Query   string          `json:"query"`
	Results []images.Result `json:"results"`
}

type HistoryResponse struct {
	Entries []storage.ActionLogEntry `json:"entries"`
}

type CaptionStylesResponse struct {
	Styles []timeline.CaptionStyle `json:"styles"`
}

type StyleProfilesResponse struct {
	Styles []storage.StyleProfile `json:"styles"`
}

// Settings reports which providers are configured. Keys are masked.
type Settings struct {
	Providers []ProviderSetting `json:"providers"`
	Storage   string            `json:"storage"`
	Cache     string            `json:"cache"`
}

type ProviderSetting struct {
	Name      string `json:"name"`
	Key       string `json:"key,omitempty"`
	Available bool   `json:"available"`
}
