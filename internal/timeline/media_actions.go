package timeline

import "math"

// Slack for float comparisons against source bounds.
const boundEpsilon = 1e-9

func (e *Executor) addAllMedia(tl Timeline, a *AddAllMedia) Timeline {
	next := tl.Clone()
	for i := range a.Pending {
		m, err := e.libraryElement(&a.Pending[i])
		if err != nil {
			e.logger.Warn().Err(err).Str("file", a.Pending[i].FileID).Msg("skipping library file")
			continue
		}
		next.Media = append(next.Media, m)
	}
	for i := range next.Media {
		m := &next.Media[i]
		m.IncludeInMerge = true
		if m.Type == MediaAudio {
			m.TrackID = TrackAudio
		} else {
			m.TrackID = TrackVideo
		}
	}
	next.Media = Layout(next.Media)
	return next
}

func (e *Executor) addMedia(tl Timeline, a *AddMedia) (Timeline, error) {
	if a.File == nil {
		return tl, invalidf("library file %d was not resolved", a.Index)
	}
	m, err := e.libraryElement(a.File)
	if err != nil {
		return tl, err
	}

	var start float64
	for _, other := range tl.Media {
		if other.Type == m.Type && other.PositionEnd > start {
			start = other.PositionEnd
		}
	}

	next := tl.Clone()
	next.Media = append(next.Media, placeAt(m, start))
	return next, nil
}

// libraryElement builds an unplaced element for an imported file. Stills
// get the import duration and no source bound.
func (e *Executor) libraryElement(f *LibraryFile) (MediaElement, error) {
	typ := MediaTypeFromMIME(f.MIMEType, f.Name)
	duration := f.Duration
	if typ == MediaImage && duration <= 0 {
		duration = e.cfg.ImportImageDuration
	}
	if duration < MinDuration {
		return MediaElement{}, invalidf("file %s has unknown duration", f.FileID)
	}

	m := NewMediaElement(e.cfg.NewID(), f.FileID, typ, duration)
	m.Name = f.Name
	if typ == MediaImage {
		m.SourceDuration = 0
	}
	return m, nil
}

func (e *Executor) clearTimeline(tl Timeline) Timeline {
	next := tl.Clone()
	next.Media = []MediaElement{}
	return next
}

// changeSpeed rescales the source window of clip index by multiplier, so a
// multiplier of 2 halves the window.
func (e *Executor) changeSpeed(tl Timeline, index int, multiplier float64) (Timeline, error) {
	if index < 0 || index >= len(tl.Media) {
		return tl, outOfRange("clip", index, len(tl.Media))
	}

	next := tl.Clone()
	m := &next.Media[index]
	end := m.StartTime + (m.EndTime-m.StartTime)/multiplier
	if end-m.StartTime < MinDuration {
		return tl, invalidf("speed change leaves clip %d shorter than %v", index, MinDuration)
	}
	if m.Type != MediaImage && m.SourceDuration > 0 && end > m.SourceDuration+boundEpsilon {
		return tl, invalidf("speed change extends clip %d to %.3fs past its %.3fs source", index, end, m.SourceDuration)
	}

	m.setWindow(m.StartTime, end)
	next.Media = Cascade(next.Media, index)
	return next, nil
}

// trimClip resolves the trim mode in precedence order: restore, range,
// start only, end only, new duration.
func (e *Executor) trimClip(tl Timeline, a *TrimClip) (Timeline, error) {
	if a.ClipIndex < 0 || a.ClipIndex >= len(tl.Media) {
		return tl, outOfRange("clip", a.ClipIndex, len(tl.Media))
	}

	next := tl.Clone()
	m := &next.Media[a.ClipIndex]

	if a.Restore {
		if m.Original == nil {
			return tl, nil
		}
		m.StartTime = m.Original.Start
		m.EndTime = m.Original.End
		m.PositionEnd = m.PositionStart + m.Duration()
		next.Media = Cascade(next.Media, a.ClipIndex)
		return next, nil
	}

	start, end := m.StartTime, m.EndTime
	switch {
	case a.StartTrim != nil && a.EndTrim != nil:
		start = m.StartTime + *a.StartTrim
		end = m.StartTime + *a.EndTrim
	case a.StartTrim != nil:
		start = m.StartTime + *a.StartTrim
	case a.EndTrim != nil:
		end = m.StartTime + *a.EndTrim
	default:
		end = m.StartTime + *a.NewDuration
	}

	if end-start < MinDuration {
		return tl, invalidf("trim leaves clip %d with window %.3f-%.3f", a.ClipIndex, start, end)
	}
	if bound := trimBound(*m); end > bound+boundEpsilon {
		return tl, invalidf("trim end %.3fs is past the %.3fs source bound of clip %d", end, bound, a.ClipIndex)
	}

	m.setWindow(start, end)
	next.Media = Cascade(next.Media, a.ClipIndex)
	return next, nil
}

func trimBound(m MediaElement) float64 {
	if m.Type == MediaImage {
		return math.Inf(1)
	}
	return m.upperBound()
}

func (e *Executor) addTransition(tl Timeline, a *AddTransition) (Timeline, error) {
	next := tl.Clone()
	set := func(i int) error {
		m := &next.Media[i]
		if a.Duration > m.Duration() {
			return invalidf("transition of %.2fs is longer than clip %d", a.Duration, i)
		}
		m.Transition = &Transition{Type: a.Kind, Duration: a.Duration}
		return nil
	}

	if a.ClipIndex != nil {
		if *a.ClipIndex >= len(tl.Media) {
			return tl, outOfRange("clip", *a.ClipIndex, len(tl.Media))
		}
		if err := set(*a.ClipIndex); err != nil {
			return tl, err
		}
		return next, nil
	}

	var seq []int
	for i, m := range next.Media {
		if !m.IsOverlay() {
			seq = append(seq, i)
		}
	}
	if len(seq) < 2 {
		return tl, invalidf("need at least two clips for transitions, have %d", len(seq))
	}
	for _, i := range seq[:len(seq)-1] {
		if err := set(i); err != nil {
			return tl, err
		}
	}
	return next, nil
}
