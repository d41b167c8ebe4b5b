// Package export renders a timeline into interchange formats: SRT captions,
// a CMX3600 edit decision list and an ffmpeg render plan.
package export

import (
	"fmt"
	"strings"
	"unicode"
)

type Format string

const (
	FormatSRT    Format = "srt"
	FormatEDL    Format = "edl"
	FormatRender Format = "render"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSRT, FormatEDL, FormatRender:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatSRT:
		return "application/x-subrip; charset=utf-8"
	case FormatRender:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// FileName is the download name for a project export.
func FileName(projectName string, f Format) string {
	base := SanitizeName(projectName, 64)
	if base == "" {
		base = "timeline"
	}
	ext := string(f)
	if f == FormatRender {
		ext = "render.json"
	}
	return base + "." + ext
}

// SanitizeName replaces characters that are unsafe in file names and EDL
// titles with underscores.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" -_.,()", r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if runes := []rune(cleaned); maxLen > 0 && len(runes) > maxLen {
		cleaned = string(runes[:maxLen])
	}
	return cleaned
}
