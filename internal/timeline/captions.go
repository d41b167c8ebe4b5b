package timeline

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultCaptionStyle    = "hormozi"
	DefaultMaxWordsPerLine = 3
)

// Vertical caption anchors in canvas space.
const (
	CaptionTop    = 10
	CaptionCenter = 540
	CaptionBottom = 1000
)

type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the output of a transcription provider for one clip. Times
// are in source-file seconds.
type Transcript struct {
	ClipID   string    `json:"clipId"`
	FileID   string    `json:"fileId"`
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Words    []Word    `json:"words,omitempty"`
	Segments []Segment `json:"segments"`
}

// CaptionSegment is one on-screen caption line in source-file seconds.
type CaptionSegment = Segment

type CaptionStyle struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Font            string  `json:"font"`
	FontSize        float64 `json:"fontSize"`
	FontWeight      string  `json:"fontWeight"`
	Color           string  `json:"color"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`
	StrokeColor     string  `json:"strokeColor,omitempty"`
	StrokeWidth     float64 `json:"strokeWidth,omitempty"`
	Uppercase       bool    `json:"uppercase"`
	Y               float64 `json:"y"`
}

var captionStyles = []CaptionStyle{
	{ID: "mrbeast", Name: "MrBeast", Font: "Impact, sans-serif", FontSize: 72, FontWeight: "bold", Color: "#FFFF00", StrokeColor: "#000000", StrokeWidth: 8, Uppercase: true, Y: CaptionCenter},
	{ID: "hormozi", Name: "Hormozi", Font: "Arial, sans-serif", FontSize: 64, FontWeight: "bold", Color: "#FFFFFF", StrokeColor: "#000000", StrokeWidth: 6, Y: CaptionBottom},
	{ID: "viral_tiktok", Name: "Viral TikTok", Font: "Montserrat, sans-serif", FontSize: 56, FontWeight: "bold", Color: "#FFFFFF", BackgroundColor: "#000000", Uppercase: true, Y: CaptionCenter},
	{ID: "ali_abdaal", Name: "Ali Abdaal", Font: "Helvetica, sans-serif", FontSize: 48, FontWeight: "bold", Color: "#FFD700", BackgroundColor: "rgba(0,0,0,0.5)", Y: CaptionBottom},
	{ID: "vsauce", Name: "Vsauce", Font: "Arial, sans-serif", FontSize: 40, FontWeight: "normal", Color: "#FFFFFF", BackgroundColor: "rgba(0,0,0,0.8)", Y: CaptionBottom},
	{ID: "gaming", Name: "Gaming", Font: "Impact, sans-serif", FontSize: 64, FontWeight: "bold", Color: "#00FF00", StrokeColor: "#000000", StrokeWidth: 4, Uppercase: true, Y: CaptionTop},
}

func CaptionStyles() []CaptionStyle {
	out := make([]CaptionStyle, len(captionStyles))
	copy(out, captionStyles)
	return out
}

func LookupCaptionStyle(id string) (CaptionStyle, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, s := range captionStyles {
		if s.ID == id {
			return s, true
		}
	}
	return CaptionStyle{}, false
}

// PositionY maps a named vertical anchor to canvas y.
func PositionY(anchor string) (float64, bool) {
	switch strings.ToLower(anchor) {
	case "top":
		return CaptionTop, true
	case "center", "middle":
		return CaptionCenter, true
	case "bottom":
		return CaptionBottom, true
	}
	return 0, false
}

// GroupWords packs consecutive words into caption lines of at most
// maxWords words. A line spans from its first word's start to its last
// word's end.
func GroupWords(words []Word, maxWords int) []CaptionSegment {
	if maxWords <= 0 {
		maxWords = DefaultMaxWordsPerLine
	}
	var out []CaptionSegment
	for i := 0; i < len(words); i += maxWords {
		end := i + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunk := words[i:end]
		parts := make([]string, 0, len(chunk))
		for _, w := range chunk {
			if t := strings.TrimSpace(w.Word); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, CaptionSegment{
			Text:  strings.Join(parts, " "),
			Start: chunk[0].Start,
			End:   chunk[len(chunk)-1].End,
		})
	}
	return out
}

// CaptionSegments prefers word-level grouping and falls back to the
// provider's own segments when no word timings are present.
func (t Transcript) CaptionSegments(maxWords int) []CaptionSegment {
	if len(t.Words) > 0 {
		return GroupWords(t.Words, maxWords)
	}
	out := make([]CaptionSegment, 0, len(t.Segments))
	for _, s := range t.Segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		out = append(out, CaptionSegment{Text: strings.TrimSpace(s.Text), Start: s.Start, End: s.End})
	}
	return out
}

// BuildCaptions maps source-time caption lines of clip onto the timeline and
// styles them. Lines outside the clip's source window are dropped and lines
// crossing its edges are cut to it.
func BuildCaptions(clip MediaElement, segments []CaptionSegment, style CaptionStyle, newID func() string) []TextElement {
	upper := cases.Upper(language.Und)
	speed := clip.PlaybackSpeed
	if speed <= 0 {
		speed = 1
	}

	sorted := make([]CaptionSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []TextElement
	for _, seg := range sorted {
		start := max(seg.Start, clip.StartTime)
		end := min(seg.End, clip.EndTime)
		if end-start < MinDuration {
			continue
		}
		text := strings.TrimSpace(seg.Text)
		if style.Uppercase {
			text = upper.String(text)
		}
		out = append(out, TextElement{
			ID:              newID(),
			Text:            text,
			PositionStart:   clip.PositionStart + (start-clip.StartTime)/speed,
			PositionEnd:     clip.PositionStart + (end-clip.StartTime)/speed,
			IncludeInMerge:  true,
			FontSize:        style.FontSize,
			Font:            style.Font,
			FontWeight:      style.FontWeight,
			Color:           style.Color,
			BackgroundColor: style.BackgroundColor,
			StrokeColor:     style.StrokeColor,
			StrokeWidth:     style.StrokeWidth,
			X:               CanvasWidth / 2,
			Y:               style.Y,
			Opacity:         100,
		})
	}
	return out
}
