package storage

import (
	"time"

	"clipforge/internal/timeline"
)

type Project struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	FrameRate float64           `json:"frame_rate"`
	Timeline  timeline.Timeline `json:"timeline"`
	Version   int64             `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// LibraryFile is a binary imported into a project, either uploaded or
// downloaded from an image provider.
type LibraryFile struct {
	ID        string             `json:"id"`
	ProjectID string             `json:"project_id"`
	Name      string             `json:"name"`
	MIMEType  string             `json:"mime_type"`
	Type      timeline.MediaType `json:"type"`
	Size      int64              `json:"size"`
	Duration  *float64           `json:"duration,omitempty"` // seconds
	Width     *int               `json:"width,omitempty"`
	Height    *int               `json:"height,omitempty"`
	Source    string             `json:"source"` // upload, pexels, unsplash, pixabay, picsum
	SourceURL string             `json:"source_url,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

const SourceUpload = "upload"

// Searched reports whether the file was imported from an image provider
// rather than uploaded.
func (f LibraryFile) Searched() bool {
	return f.Source != "" && f.Source != SourceUpload
}

// Resolved converts the row into the executor's library reference.
func (f LibraryFile) Resolved() *timeline.LibraryFile {
	var d float64
	if f.Duration != nil {
		d = *f.Duration
	}
	return &timeline.LibraryFile{
		FileID:   f.ID,
		Name:     f.Name,
		MIMEType: f.MIMEType,
		Duration: d,
	}
}

// ActionLogEntry records one applied batch.
type ActionLogEntry struct {
	ID        int64                `json:"id"`
	ProjectID string               `json:"project_id"`
	Source    string               `json:"source"` // ui, chat, cli
	Actions   []timeline.RawAction `json:"actions"`
	Outcomes  []timeline.Outcome   `json:"outcomes"`
	Version   int64                `json:"version"`
	CreatedAt time.Time            `json:"created_at"`
}

// StyleProfile is a saved editing style. Only the caption settings are
// applied to a timeline; pacing, visual and audio describe the reference
// video for the assistant.
type StyleProfile struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Source    StyleSource   `json:"source"`
	Pacing    StylePacing   `json:"pacing"`
	Captions  StyleCaptions `json:"captions"`
	Visual    StyleVisual   `json:"visual"`
	Audio     StyleAudio    `json:"audio"`
	CreatedAt time.Time     `json:"created_at"`
}

type StyleSource struct {
	Type     string `json:"type"` // youtube, local
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type StylePacing struct {
	AverageShotDuration float64 `json:"average_shot_duration"` // seconds
	CutsPerMinute       float64 `json:"cuts_per_minute"`
	FastPacedPercentage float64 `json:"fast_paced_percentage"` // share of shots under 1s
}

type StyleCaptions struct {
	Enabled         bool    `json:"enabled"`
	FontSize        float64 `json:"font_size"`
	Position        string  `json:"position"` // top, center, bottom
	Color           string  `json:"color"`
	BackgroundColor string  `json:"background_color,omitempty"`
	FontFamily      string  `json:"font_family,omitempty"`
	Animation       string  `json:"animation,omitempty"`
	TextTransform   string  `json:"text_transform,omitempty"`
	StrokeColor     string  `json:"stroke_color,omitempty"`
	StrokeWidth     float64 `json:"stroke_width,omitempty"`
}

type StyleVisual struct {
	ColorGrading    string  `json:"color_grading,omitempty"`
	ZoomFrequency   float64 `json:"zoom_frequency"` // per minute
	TransitionStyle string  `json:"transition_style,omitempty"`
	OverlayUsage    float64 `json:"overlay_usage"`
}

type StyleAudio struct {
	MusicPresent          bool    `json:"music_present"`
	SoundEffectsFrequency float64 `json:"sound_effects_frequency"` // per minute
	VoiceoverStyle        string  `json:"voiceover_style,omitempty"`
}
