package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"clipforge/internal/timeline"
)

// EDLClip is one event of an edit decision list. Times are in seconds.
type EDLClip struct {
	Name      string
	MediaPath string
	Track     string // V or A
	SrcIn     float64
	SrcOut    float64
	RecIn     float64
	RecOut    float64
	// Dissolve is the length of the dissolve into this event, 0 for a cut.
	Dissolve float64
}

// Clips lists the included, non-overlay media of tl as EDL events in record
// order. names maps file IDs to display names; paths maps them to media
// paths. A transition on a clip becomes a dissolve into the next clip on
// the same track.
func Clips(tl timeline.Timeline, names, paths map[string]string) []EDLClip {
	media := make([]timeline.MediaElement, 0, len(tl.Media))
	for _, m := range tl.Media {
		if m.IncludeInMerge && !m.IsOverlay() {
			media = append(media, m)
		}
	}
	sort.SliceStable(media, func(i, j int) bool {
		if media[i].TrackID != media[j].TrackID {
			return media[i].TrackID < media[j].TrackID
		}
		return media[i].PositionStart < media[j].PositionStart
	})

	clips := make([]EDLClip, 0, len(media))
	pending := map[string]float64{}
	for _, m := range media {
		track := "V"
		if m.Type == timeline.MediaAudio {
			track = "A"
		}
		name := names[m.FileID]
		if name == "" {
			name = m.Name
		}

		srcIn, srcOut := m.StartTime, m.EndTime
		if m.Type == timeline.MediaImage {
			srcIn, srcOut = 0, m.Duration()
		}

		clips = append(clips, EDLClip{
			Name:      name,
			MediaPath: paths[m.FileID],
			Track:     track,
			SrcIn:     srcIn,
			SrcOut:    srcOut,
			RecIn:     m.PositionStart,
			RecOut:    m.PositionEnd,
			Dissolve:  pending[track],
		})
		pending[track] = 0
		if m.Transition != nil {
			pending[track] = m.Transition.Duration
		}
	}
	return clips
}

// GenerateEDL writes clips as a CMX3600 list.
func GenerateEDL(clips []EDLClip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}
	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", SanitizeName(title, 70))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	for i, c := range clips {
		edit := "C       "
		if c.Dissolve > 0 {
			edit = fmt.Sprintf("D    %03d", int(math.Round(c.Dissolve*float64(fps))))
		}
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s %s %s %s %s %s", i+1, "AX", c.Track, edit,
				timecode(c.SrcIn, fps), timecode(c.SrcOut, fps), timecode(c.RecIn, fps), timecode(c.RecOut, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", c.Name),
		)
		if c.MediaPath != "" {
			lines = append(lines, fmt.Sprintf("* MEDIA PATH:  %s", c.MediaPath))
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func timecode(sec float64, fps int) string {
	totalFrames := int(math.Round(math.Max(sec, 0) * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
