package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"clipforge/internal/timeline"
)

// SRT writes the included text elements as SubRip cues ordered by start
// time. Empty texts are skipped.
func SRT(tl timeline.Timeline) string {
	texts := make([]timeline.TextElement, 0, len(tl.Texts))
	for _, t := range tl.Texts {
		if t.IncludeInMerge && strings.TrimSpace(t.Text) != "" && t.PositionEnd > t.PositionStart {
			texts = append(texts, t)
		}
	}
	sort.SliceStable(texts, func(i, j int) bool {
		return texts[i].PositionStart < texts[j].PositionStart
	})

	var b strings.Builder
	for i, t := range texts {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(t.PositionStart), srtTimestamp(t.PositionEnd), strings.TrimSpace(t.Text))
	}
	return b.String()
}

func srtTimestamp(sec float64) string {
	ms := int64(math.Round(math.Max(sec, 0) * 1000))
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
