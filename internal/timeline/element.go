package timeline

import (
	"mime"
	"path/filepath"
	"strings"
)

// MinDuration is the shortest source window or placement an element may have, in seconds.
const MinDuration = 0.01

const (
	CanvasWidth  = 1920
	CanvasHeight = 1080
)

type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaImage MediaType = "image"
)

// MediaTypeFromMIME maps a MIME type (or a file name when the MIME type is
// empty) to the element type. Unknown types fall back to video.
func MediaTypeFromMIME(mimeType, filename string) MediaType {
	if mimeType == "" && filename != "" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return MediaImage
	case strings.HasPrefix(mimeType, "audio/"):
		return MediaAudio
	default:
		return MediaVideo
	}
}

// Tracks
const (
	TrackVideo   = 0
	TrackAudio   = 1
	TrackOverlay = 2
)

// Window is a source interval in seconds.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (w Window) Duration() float64 {
	return w.End - w.Start
}

type Transition struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
}

type MediaElement struct {
	ID     string    `json:"id"`
	FileID string    `json:"fileId"`
	Name   string    `json:"name,omitempty"`
	Type   MediaType `json:"type"`

	StartTime      float64 `json:"startTime"`
	EndTime        float64 `json:"endTime"`
	SourceDuration float64 `json:"sourceDuration,omitempty"`
	// Original is the source window before the first mutation. Nil until then, never rewritten.
	Original      *Window `json:"original,omitempty"`
	PlaybackSpeed float64 `json:"playbackSpeed"`

	PositionStart  float64 `json:"positionStart"`
	PositionEnd    float64 `json:"positionEnd"`
	ZIndex         int     `json:"zIndex"`
	TrackID        int     `json:"trackId"`
	IncludeInMerge bool    `json:"includeInMerge"`

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
	Volume   float64 `json:"volume"`

	Transition *Transition `json:"transition,omitempty"`
}

// NewMediaElement builds an element covering the whole source with the
// default full-canvas placement.
func NewMediaElement(id, fileID string, typ MediaType, sourceDuration float64) MediaElement {
	m := MediaElement{
		ID:             id,
		FileID:         fileID,
		Type:           typ,
		StartTime:      0,
		EndTime:        sourceDuration,
		SourceDuration: sourceDuration,
		PlaybackSpeed:  1,
		IncludeInMerge: true,
		Width:          CanvasWidth,
		Height:         CanvasHeight,
		Opacity:        100,
		Volume:         100,
	}
	if typ == MediaAudio {
		m.TrackID = TrackAudio
	}
	m.PositionEnd = m.Duration()
	return m
}

func (m MediaElement) Window() Window {
	return Window{Start: m.StartTime, End: m.EndTime}
}

// Duration is the on-timeline length derived from the source window and speed.
func (m MediaElement) Duration() float64 {
	speed := m.PlaybackSpeed
	if speed <= 0 {
		speed = 1
	}
	return (m.EndTime - m.StartTime) / speed
}

// OriginalWindow returns the recorded original window, or the current one
// when the element has never been mutated.
func (m MediaElement) OriginalWindow() Window {
	if m.Original != nil {
		return *m.Original
	}
	return m.Window()
}

func (m MediaElement) OriginalDuration() float64 {
	return m.OriginalWindow().Duration()
}

// recordOriginal captures the current window once.
func (m *MediaElement) recordOriginal() {
	if m.Original != nil {
		return
	}
	w := m.Window()
	m.Original = &w
}

// setWindow applies a new source window and re-derives placement end.
func (m *MediaElement) setWindow(start, end float64) {
	m.recordOriginal()
	m.StartTime = start
	m.EndTime = end
	m.PositionEnd = m.PositionStart + m.Duration()
}

// upperBound is the furthest source time a trim may reach.
func (m MediaElement) upperBound() float64 {
	bound := m.OriginalWindow().End
	if m.EndTime > bound {
		bound = m.EndTime
	}
	if m.SourceDuration > bound {
		bound = m.SourceDuration
	}
	return bound
}

func (m MediaElement) IsOverlay() bool {
	return m.TrackID == TrackOverlay
}

type TextElement struct {
	ID   string `json:"id"`
	Text string `json:"text"`

	PositionStart  float64 `json:"positionStart"`
	PositionEnd    float64 `json:"positionEnd"`
	ZIndex         int     `json:"zIndex"`
	IncludeInMerge bool    `json:"includeInMerge"`

	FontSize        float64 `json:"fontSize"`
	Font            string  `json:"font"`
	FontWeight      string  `json:"fontWeight,omitempty"`
	Color           string  `json:"color"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`
	StrokeColor     string  `json:"strokeColor,omitempty"`
	StrokeWidth     float64 `json:"strokeWidth,omitempty"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Opacity         float64 `json:"opacity"`
}

func (t TextElement) Duration() float64 {
	return t.PositionEnd - t.PositionStart
}

// TextStyle is the styling subset accepted by add_text.
type TextStyle struct {
	FontSize        float64  `json:"fontSize,omitempty"`
	Font            string   `json:"font,omitempty"`
	FontWeight      string   `json:"fontWeight,omitempty"`
	Color           string   `json:"color,omitempty"`
	BackgroundColor string   `json:"backgroundColor,omitempty"`
	StrokeColor     string   `json:"strokeColor,omitempty"`
	StrokeWidth     float64  `json:"strokeWidth,omitempty"`
	X               *float64 `json:"x,omitempty"`
	Y               *float64 `json:"y,omitempty"`
	Opacity         *float64 `json:"opacity,omitempty"`
}

// DefaultTextStyle is used for fields add_text leaves empty.
var DefaultTextStyle = TextStyle{
	FontSize: 48,
	Font:     "Arial",
	Color:    "#FFFFFF",
}

func (s TextStyle) apply(t *TextElement) {
	t.FontSize = DefaultTextStyle.FontSize
	t.Font = DefaultTextStyle.Font
	t.Color = DefaultTextStyle.Color
	t.X = CanvasWidth / 2
	t.Y = CanvasHeight / 2
	t.Opacity = 100

	if s.FontSize > 0 {
		t.FontSize = s.FontSize
	}
	if s.Font != "" {
		t.Font = s.Font
	}
	if s.Color != "" {
		t.Color = s.Color
	}
	t.FontWeight = s.FontWeight
	t.BackgroundColor = s.BackgroundColor
	t.StrokeColor = s.StrokeColor
	t.StrokeWidth = s.StrokeWidth
	if s.X != nil {
		t.X = *s.X
	}
	if s.Y != nil {
		t.Y = *s.Y
	}
	if s.Opacity != nil {
		t.Opacity = *s.Opacity
	}
}
