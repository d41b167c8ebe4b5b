package timeline

func (e *Executor) addText(tl Timeline, a *AddText) Timeline {
	t := TextElement{
		ID:             e.cfg.NewID(),
		Text:           a.Text,
		PositionStart:  a.Start,
		PositionEnd:    a.Start + a.Duration,
		IncludeInMerge: true,
	}
	a.Style.apply(&t)

	next := tl.Clone()
	next.Texts = append(next.Texts, t)
	return next
}

// addMultipleText appends all elements in a single replace. Elements without
// an id get one.
func (e *Executor) addMultipleText(tl Timeline, elements []TextElement) Timeline {
	next := tl.Clone()
	added := make([]TextElement, len(elements))
	copy(added, elements)
	for i := range added {
		if added[i].ID == "" {
			added[i].ID = e.cfg.NewID()
		}
	}
	next.Texts = append(next.Texts, added...)
	return next
}

func (e *Executor) adjustAllCaptions(tl Timeline, a *AdjustAllCaptions) Timeline {
	next := tl.Clone()
	for i := range next.Texts {
		t := &next.Texts[i]
		if a.FontSize != nil {
			t.FontSize = *a.FontSize
		}
		if a.Y != nil {
			t.Y = *a.Y
		}
		if a.Color != nil {
			t.Color = *a.Color
		}
		if a.BackgroundColor != nil {
			t.BackgroundColor = *a.BackgroundColor
		}
	}
	return next
}

func (e *Executor) removeAllCaptions(tl Timeline) Timeline {
	next := tl.Clone()
	next.Texts = []TextElement{}
	return next
}

func (e *Executor) addCaptions(tl Timeline, a *AddCaptions) (Timeline, error) {
	if a.ClipIndex >= len(tl.Media) {
		return tl, outOfRange("clip", a.ClipIndex, len(tl.Media))
	}
	style, ok := LookupCaptionStyle(a.StyleID)
	if !ok {
		return tl, invalidf("unknown caption style %q", a.StyleID)
	}
	captions := BuildCaptions(tl.Media[a.ClipIndex], a.Segments, style, e.cfg.NewID)
	if len(captions) == 0 {
		return tl, nil
	}
	return e.addMultipleText(tl, captions), nil
}
