package timeline

// Overlay images are laid out on a 2-column grid of half-canvas cells.
const (
	gridColumns = 2
	gridRows    = 2
	cellWidth   = CanvasWidth / gridColumns
	cellHeight  = CanvasHeight / gridRows
)

func (e *Executor) removeImages(tl Timeline, a *RemoveImages) (Timeline, error) {
	next := tl.Clone()
	if a.All {
		kept := make([]MediaElement, 0, len(next.Media))
		for _, m := range next.Media {
			if m.Type != MediaImage {
				kept = append(kept, m)
			}
		}
		next.Media = kept
		return next, nil
	}

	images := tl.Images()
	if *a.Index >= len(images) {
		return tl, outOfRange("image", *a.Index, len(images))
	}
	id := images[*a.Index].ID

	kept := make([]MediaElement, 0, len(next.Media))
	for _, m := range next.Media {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	next.Media = kept
	return next, nil
}

func (e *Executor) adjustAllImages(tl Timeline, a *AdjustAllImages) Timeline {
	next := tl.Clone()
	for i := range next.Media {
		m := &next.Media[i]
		if m.Type != MediaImage {
			continue
		}
		if a.X != nil {
			m.X = *a.X
		}
		if a.Y != nil {
			m.Y = *a.Y
		}
		if a.Width != nil {
			m.Width = *a.Width
		}
		if a.Height != nil {
			m.Height = *a.Height
		}
		if a.Opacity != nil {
			m.Opacity = *a.Opacity
		}
	}
	return next
}

// searchAndAddImages commits already downloaded images as overlays. Image i
// goes to keyword i's timestamp when one exists, otherwise to an even share
// of the video duration.
func (e *Executor) searchAndAddImages(tl Timeline, a *SearchAndAddImages) Timeline {
	if len(a.Images) == 0 {
		return tl
	}

	imageDuration := e.cfg.ImageDuration
	videoDuration := tl.VideoDuration()
	if videoDuration == 0 {
		videoDuration = tl.Duration()
	}
	latest := max(0, videoDuration-imageDuration)
	spacing := videoDuration / float64(len(a.Images))
	z := overlayZ(tl.Media)

	next := tl.Clone()
	for i, img := range a.Images {
		start := float64(i) * spacing
		if i < len(a.Keywords) {
			start = a.Keywords[i].Timestamp
		}
		start = min(max(start, 0), latest)

		m := NewMediaElement(e.cfg.NewID(), img.FileID, MediaImage, imageDuration)
		m.Name = img.Alt
		m.SourceDuration = 0
		m.TrackID = TrackOverlay
		m.ZIndex = z
		m.Volume = 0
		m.X = float64((i % gridColumns) * cellWidth)
		m.Y = float64(((i / gridColumns) % gridRows) * cellHeight)
		m.Width = cellWidth
		m.Height = cellHeight
		next.Media = append(next.Media, placeAt(m, start))
	}
	return next
}

// overlayZ is one above the highest non-image layer.
func overlayZ(media []MediaElement) int {
	top := 0
	for _, m := range media {
		if m.Type != MediaImage && m.ZIndex > top {
			top = m.ZIndex
		}
	}
	return top + 1
}
