package timeline

import "sync"

// Timeline is an immutable-by-convention snapshot of a project's elements.
// Executor functions never modify the slices they receive.
type Timeline struct {
	Media []MediaElement `json:"media"`
	Texts []TextElement  `json:"texts"`
}

// Clone returns a deep copy.
func (t Timeline) Clone() Timeline {
	out := Timeline{
		Media: make([]MediaElement, len(t.Media)),
		Texts: make([]TextElement, len(t.Texts)),
	}
	copy(out.Media, t.Media)
	copy(out.Texts, t.Texts)
	for i := range out.Media {
		if w := out.Media[i].Original; w != nil {
			cp := *w
			out.Media[i].Original = &cp
		}
		if tr := out.Media[i].Transition; tr != nil {
			cp := *tr
			out.Media[i].Transition = &cp
		}
	}
	return out
}

// Duration is the end of the furthest element on the timeline.
func (t Timeline) Duration() float64 {
	var end float64
	for _, m := range t.Media {
		if m.PositionEnd > end {
			end = m.PositionEnd
		}
	}
	for _, x := range t.Texts {
		if x.PositionEnd > end {
			end = x.PositionEnd
		}
	}
	return end
}

// VideoDuration is the end of the furthest video element.
func (t Timeline) VideoDuration() float64 {
	var end float64
	for _, m := range t.Media {
		if m.Type == MediaVideo && m.PositionEnd > end {
			end = m.PositionEnd
		}
	}
	return end
}

// Images returns the image elements in collection order.
func (t Timeline) Images() []MediaElement {
	var out []MediaElement
	for _, m := range t.Media {
		if m.Type == MediaImage {
			out = append(out, m)
		}
	}
	return out
}

// Store holds the current timeline of one editing session. Readers always get
// a full snapshot; writers replace the whole collection at once.
type Store struct {
	current Timeline
	version uint64
	mu      sync.RWMutex
}

func NewStore(initial Timeline) *Store {
	return &Store{current: initial.Clone()}
}

func (s *Store) Snapshot() Timeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Replace swaps in next and returns the new version.
func (s *Store) Replace(next Timeline) uint64 {
	next = next.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
	s.version++
	return s.version
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
