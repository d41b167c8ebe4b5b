package timeline

// Cascade returns a copy of media in which every sequential element after
// index k starts where the previous sequential element ends. Durations are
// derived from each element's source window and speed. Overlay-track
// elements keep their placement and do not move the cursor.
func Cascade(media []MediaElement, k int) []MediaElement {
	out := make([]MediaElement, len(media))
	copy(out, media)
	if k < 0 || k >= len(out) || out[k].IsOverlay() {
		return out
	}

	cursor := out[k].PositionEnd
	for i := k + 1; i < len(out); i++ {
		if out[i].IsOverlay() {
			continue
		}
		out[i] = placeAt(out[i], cursor)
		cursor = out[i].PositionEnd
	}
	return out
}

// Layout places all elements back to back from zero in collection order.
func Layout(media []MediaElement) []MediaElement {
	out := make([]MediaElement, len(media))
	var cursor float64
	for i, m := range media {
		out[i] = placeAt(m, cursor)
		cursor = out[i].PositionEnd
	}
	return out
}

func placeAt(m MediaElement, start float64) MediaElement {
	m.PositionStart = start
	m.PositionEnd = start + m.Duration()
	return m
}
