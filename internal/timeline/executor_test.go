package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func testExecutor() *Executor {
	n := 0
	return NewExecutor(Config{
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}, zerolog.Nop())
}

func clip(id string, typ MediaType, dur float64) MediaElement {
	return NewMediaElement(id, "file-"+id, typ, dur)
}

func ptr[T any](v T) *T { return &v }

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func mustApply(t *testing.T, e *Executor, tl Timeline, a Action) Timeline {
	t.Helper()
	next, err := e.Apply(tl, a)
	if err != nil {
		t.Fatalf("Apply(%s) error = %v", a.Type(), err)
	}
	return next
}

func laidOut(t *testing.T, e *Executor, media ...MediaElement) Timeline {
	t.Helper()
	return mustApply(t, e, Timeline{Media: media}, &AddAllMedia{})
}

func TestAddAllMedia_Scenario(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e,
		clip("a", MediaVideo, 10),
		clip("b", MediaVideo, 5),
		clip("c", MediaVideo, 8),
	)

	want := [][2]float64{{0, 10}, {10, 15}, {15, 23}}
	for i, w := range want {
		m := tl.Media[i]
		if !approx(m.PositionStart, w[0]) || !approx(m.PositionEnd, w[1]) {
			t.Errorf("media[%d] = [%v,%v), want [%v,%v)", i, m.PositionStart, m.PositionEnd, w[0], w[1])
		}
	}
}

func TestAddAllMedia_NoGaps(t *testing.T) {
	e := testExecutor()
	a := clip("a", MediaVideo, 12)
	a.PlaybackSpeed = 2
	b := clip("b", MediaAudio, 7)
	b.PositionStart, b.PositionEnd = 100, 107
	b.IncludeInMerge = false
	c := clip("c", MediaImage, 4)
	c.TrackID = TrackOverlay

	tl := laidOut(t, e, a, b, c)

	if tl.Media[0].PositionStart != 0 {
		t.Fatalf("first positionStart = %v, want 0", tl.Media[0].PositionStart)
	}
	var total float64
	for i, m := range tl.Media {
		if i > 0 && tl.Media[i].PositionStart != tl.Media[i-1].PositionEnd {
			t.Errorf("gap between %d and %d: %v != %v", i-1, i, tl.Media[i].PositionStart, tl.Media[i-1].PositionEnd)
		}
		if !m.IncludeInMerge {
			t.Errorf("media[%d].IncludeInMerge = false, want true", i)
		}
		total += m.Duration()
	}
	if !approx(tl.Duration(), total) {
		t.Errorf("Duration() = %v, want %v", tl.Duration(), total)
	}
	if tl.Media[0].PositionEnd != 6 {
		t.Errorf("speed-adjusted clip ends at %v, want 6", tl.Media[0].PositionEnd)
	}
	if tl.Media[1].TrackID != TrackAudio || tl.Media[2].TrackID != TrackVideo {
		t.Errorf("track ids = %d,%d, want %d,%d", tl.Media[1].TrackID, tl.Media[2].TrackID, TrackAudio, TrackVideo)
	}
}

func TestAddAllMedia_AppendsPendingLibraryFiles(t *testing.T) {
	e := testExecutor()
	tl := Timeline{Media: []MediaElement{clip("a", MediaVideo, 4)}}

	next := mustApply(t, e, tl, &AddAllMedia{Pending: []LibraryFile{
		{FileID: "f-song", Name: "song.mp3", MIMEType: "audio/mpeg", Duration: 6},
		{FileID: "f-still", Name: "still.png", MIMEType: "image/png"},
		{FileID: "f-unknown", Name: "broken.mp4", MIMEType: "video/mp4"},
	}})

	if len(next.Media) != 3 {
		t.Fatalf("len(media) = %d, want 3 (unknown duration skipped)", len(next.Media))
	}
	song, still := next.Media[1], next.Media[2]
	if song.TrackID != TrackAudio || !approx(song.PositionStart, 4) || !approx(song.PositionEnd, 10) {
		t.Errorf("song = %+v", song)
	}
	if still.SourceDuration != 0 || !approx(still.Duration(), DefaultImportImageDuration) || !approx(still.PositionStart, 10) {
		t.Errorf("still = %+v", still)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e, clip("a", MediaVideo, 10), clip("b", MediaVideo, 10))
	before := tl.Clone()

	_ = mustApply(t, e, tl, &TrimClip{ClipIndex: 0, NewDuration: ptr(4.0)})

	if tl.Media[0].EndTime != before.Media[0].EndTime || tl.Media[0].Original != nil {
		t.Fatalf("input timeline was modified: %+v", tl.Media[0])
	}
	if tl.Media[1].PositionStart != before.Media[1].PositionStart {
		t.Fatalf("input cascade leaked: %v", tl.Media[1].PositionStart)
	}
}

func TestClearTimeline_KeepsTexts(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e, clip("a", MediaVideo, 10))
	tl = mustApply(t, e, tl, &AddText{Text: "hello", Start: 1, Duration: 2})
	tl = mustApply(t, e, tl, &ClearTimeline{})

	if len(tl.Media) != 0 {
		t.Errorf("len(Media) = %d, want 0", len(tl.Media))
	}
	if len(tl.Texts) != 1 {
		t.Errorf("len(Texts) = %d, want 1", len(tl.Texts))
	}
}

func TestSpeedChange(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		wantEnd float64
	}{
		{"speed up halves window", &SpeedUp{ClipIndex: 0, Speed: 2}, 5},
		{"slow down doubles window", &SlowDown{ClipIndex: 0, Speed: 2}, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testExecutor()
			long := clip("a", MediaVideo, 10)
			long.SourceDuration = 60
			tl := laidOut(t, e, long, clip("b", MediaVideo, 5), clip("c", MediaVideo, 8))

			got := mustApply(t, e, tl, tt.action)

			m := got.Media[0]
			if !approx(m.EndTime, tt.wantEnd) {
				t.Errorf("EndTime = %v, want %v", m.EndTime, tt.wantEnd)
			}
			if !approx(m.PositionEnd-m.PositionStart, m.Duration()) {
				t.Errorf("placement %v does not match derived duration %v", m.PositionEnd-m.PositionStart, m.Duration())
			}
			assertCascade(t, tl, got, 0)
		})
	}
}

func TestSpeedChange_Errors(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e, clip("a", MediaVideo, 10))

	tests := []struct {
		name   string
		action Action
		want   error
	}{
		{"index past end", &SpeedUp{ClipIndex: 3, Speed: 2}, ErrIndexOutOfRange},
		{"negative index", &SlowDown{ClipIndex: -1, Speed: 2}, ErrIndexOutOfRange},
		{"past source", &SlowDown{ClipIndex: 0, Speed: 2}, ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Apply(tl, tt.action)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if got.Media[0].EndTime != 10 {
				t.Errorf("timeline changed on error: EndTime = %v", got.Media[0].EndTime)
			}
		})
	}
}

// assertCascade checks that every element after k is contiguous and keeps
// the duration it had before the action.
func assertCascade(t *testing.T, before, after Timeline, k int) {
	t.Helper()
	for i := k + 1; i < len(after.Media); i++ {
		if !approx(after.Media[i].PositionStart, after.Media[i-1].PositionEnd) {
			t.Errorf("media[%d].PositionStart = %v, want %v", i, after.Media[i].PositionStart, after.Media[i-1].PositionEnd)
		}
		got := after.Media[i].PositionEnd - after.Media[i].PositionStart
		want := before.Media[i].PositionEnd - before.Media[i].PositionStart
		if !approx(got, want) {
			t.Errorf("media[%d] duration = %v, want %v", i, got, want)
		}
	}
}

func TestTrimClip_Scenario(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e, clip("a", MediaVideo, 30))

	tl = mustApply(t, e, tl, &TrimClip{ClipIndex: 0, NewDuration: ptr(10.0)})
	m := tl.Media[0]
	if m.EndTime != 10 || m.OriginalDuration() != 30 {
		t.Fatalf("after newDuration: end=%v original=%v, want 10 and 30", m.EndTime, m.OriginalDuration())
	}

	tl = mustApply(t, e, tl, &TrimClip{ClipIndex: 0, StartTrim: ptr(2.0), EndTrim: ptr(6.0)})
	m = tl.Media[0]
	if m.StartTime != 2 || m.EndTime != 6 || m.OriginalDuration() != 30 {
		t.Fatalf("after range: window=%v-%v original=%v, want 2-6 and 30", m.StartTime, m.EndTime, m.OriginalDuration())
	}
	if !approx(m.PositionEnd, 4) {
		t.Errorf("PositionEnd = %v, want 4", m.PositionEnd)
	}

	tl = mustApply(t, e, tl, &TrimClip{ClipIndex: 0, Restore: true})
	m = tl.Media[0]
	if m.StartTime != 0 || m.EndTime != 30 {
		t.Fatalf("after restore: window=%v-%v, want 0-30", m.StartTime, m.EndTime)
	}
}

func TestTrimClip_Modes(t *testing.T) {
	tests := []struct {
		name      string
		action    *TrimClip
		wantStart float64
		wantEnd   float64
	}{
		{"start only", &TrimClip{StartTrim: ptr(3.0)}, 13, 30},
		{"end only", &TrimClip{EndTrim: ptr(4.0)}, 10, 14},
		{"range", &TrimClip{StartTrim: ptr(1.0), EndTrim: ptr(5.0)}, 11, 15},
		{"new duration", &TrimClip{NewDuration: ptr(7.0)}, 10, 17},
		{"range wins over new duration", &TrimClip{StartTrim: ptr(1.0), EndTrim: ptr(2.0), NewDuration: ptr(9.0)}, 11, 12},
		{"restore wins over everything", &TrimClip{Restore: true, NewDuration: ptr(1.0)}, 10, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testExecutor()
			src := clip("a", MediaVideo, 40)
			src.StartTime = 10
			src.EndTime = 30
			tl := laidOut(t, e, src, clip("b", MediaVideo, 5))

			got := mustApply(t, e, tl, tt.action)

			m := got.Media[0]
			if m.StartTime != tt.wantStart || m.EndTime != tt.wantEnd {
				t.Errorf("window = %v-%v, want %v-%v", m.StartTime, m.EndTime, tt.wantStart, tt.wantEnd)
			}
			assertCascade(t, tl, got, 0)
		})
	}
}

func TestTrimClip_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		action *TrimClip
		want   error
	}{
		{"bad index", &TrimClip{ClipIndex: 5, NewDuration: ptr(1.0)}, ErrIndexOutOfRange},
		{"past source bound", &TrimClip{NewDuration: ptr(31.0)}, ErrInvalidParams},
		{"range past bound", &TrimClip{StartTrim: ptr(1.0), EndTrim: ptr(45.0)}, ErrInvalidParams},
		{"start trim eats window", &TrimClip{StartTrim: ptr(30.0)}, ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testExecutor()
			tl := laidOut(t, e, clip("a", MediaVideo, 30))

			got, err := e.Apply(tl, tt.action)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if got.Media[0].EndTime != 30 || got.Media[0].Original != nil {
				t.Errorf("timeline changed on rejected trim: %+v", got.Media[0])
			}
		})
	}
}

func TestTrimClip_ExtendWithinOriginal(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e, clip("a", MediaVideo, 30))
	tl = mustApply(t, e, tl, &TrimClip{NewDuration: ptr(10.0)})
	tl = mustApply(t, e, tl, &TrimClip{NewDuration: ptr(25.0)})

	if tl.Media[0].EndTime != 25 {
		t.Errorf("EndTime = %v, want 25", tl.Media[0].EndTime)
	}
}

func TestTrimClip_RestoreIdempotent(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e, clip("a", MediaVideo, 30), clip("b", MediaVideo, 4))
	tl = mustApply(t, e, tl, &TrimClip{NewDuration: ptr(12.0)})

	first := mustApply(t, e, tl, &TrimClip{Restore: true})
	second := mustApply(t, e, first, &TrimClip{Restore: true})

	if first.Media[0].Window() != second.Media[0].Window() {
		t.Errorf("restore not idempotent: %v then %v", first.Media[0].Window(), second.Media[0].Window())
	}
	if second.Media[1].PositionStart != 30 {
		t.Errorf("next clip starts at %v, want 30", second.Media[1].PositionStart)
	}
}

func TestTrimClip_RestoreWithoutTrimIsNoop(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e, clip("a", MediaVideo, 30))

	got := mustApply(t, e, tl, &TrimClip{Restore: true})

	if got.Media[0].Window() != tl.Media[0].Window() || got.Media[0].Original != nil {
		t.Errorf("restore on untrimmed clip changed it: %+v", got.Media[0])
	}
}

func TestTrimClip_OriginalNeverStacks(t *testing.T) {
	trims := []*TrimClip{
		{NewDuration: ptr(20.0)},
		{StartTrim: ptr(5.0)},
		{EndTrim: ptr(8.0)},
		{StartTrim: ptr(1.0), EndTrim: ptr(3.0)},
	}

	for n := 1; n <= len(trims); n++ {
		t.Run(fmt.Sprintf("%d trims", n), func(t *testing.T) {
			e := testExecutor()
			tl := laidOut(t, e, clip("a", MediaVideo, 30))
			for _, tr := range trims[:n] {
				tl = mustApply(t, e, tl, tr)
				if tl.Media[0].OriginalDuration() != 30 {
					t.Fatalf("original duration changed to %v", tl.Media[0].OriginalDuration())
				}
			}
			tl = mustApply(t, e, tl, &TrimClip{Restore: true})
			if d := tl.Media[0].EndTime - tl.Media[0].StartTime; d != 30 {
				t.Errorf("restored window = %v, want 30", d)
			}
		})
	}
}

func TestTrimClip_CascadeSkipsOverlays(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e, clip("a", MediaVideo, 10), clip("b", MediaVideo, 10))
	overlay := clip("img", MediaImage, 3)
	overlay.TrackID = TrackOverlay
	overlay.PositionStart, overlay.PositionEnd = 12, 15
	tl.Media = append(tl.Media[:1], overlay, tl.Media[1])

	got := mustApply(t, e, tl, &TrimClip{ClipIndex: 0, NewDuration: ptr(4.0)})

	if got.Media[1].PositionStart != 12 {
		t.Errorf("overlay moved to %v, want 12", got.Media[1].PositionStart)
	}
	if got.Media[2].PositionStart != 4 {
		t.Errorf("sequential clip starts at %v, want 4", got.Media[2].PositionStart)
	}
}

func TestAddMedia_AppendsAfterSameType(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e, clip("a", MediaVideo, 10), clip("b", MediaAudio, 4))

	got := mustApply(t, e, tl, &AddMedia{File: &LibraryFile{FileID: "f1", Name: "song.mp3", MIMEType: "audio/mpeg", Duration: 6}})

	m := got.Media[len(got.Media)-1]
	if m.Type != MediaAudio || m.TrackID != TrackAudio {
		t.Fatalf("type = %s track = %d, want audio on audio track", m.Type, m.TrackID)
	}
	if m.PositionStart != 14 || m.PositionEnd != 20 {
		t.Errorf("placement = [%v,%v), want [14,20)", m.PositionStart, m.PositionEnd)
	}
	if m.Width != CanvasWidth || m.Opacity != 100 || m.Volume != 100 || m.PlaybackSpeed != 1 {
		t.Errorf("defaults not applied: %+v", m)
	}
}

func TestAddMedia_Unresolved(t *testing.T) {
	e := testExecutor()
	if _, err := e.Apply(Timeline{}, &AddMedia{Index: 0}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("error = %v, want ErrInvalidParams", err)
	}
}

func TestAddTransition(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e, clip("a", MediaVideo, 10), clip("b", MediaVideo, 10), clip("c", MediaVideo, 10))

	got := mustApply(t, e, tl, &AddTransition{Kind: "dissolve", Duration: 1})
	for i, m := range got.Media {
		if i == len(got.Media)-1 {
			if m.Transition != nil {
				t.Errorf("last clip has transition %+v", m.Transition)
			}
			continue
		}
		if m.Transition == nil || m.Transition.Type != "dissolve" {
			t.Errorf("media[%d].Transition = %+v, want dissolve", i, m.Transition)
		}
	}
	if got.Media[1].PositionStart != 10 {
		t.Errorf("transition moved placement to %v", got.Media[1].PositionStart)
	}
}

func TestAddText(t *testing.T) {
	e := testExecutor()
	got := mustApply(t, e, Timeline{}, &AddText{
		Text:     "Subscribe",
		Start:    2,
		Duration: 3,
		Style:    TextStyle{Color: "#FF0000", Y: ptr(100.0)},
	})

	if len(got.Texts) != 1 {
		t.Fatalf("len(Texts) = %d, want 1", len(got.Texts))
	}
	tx := got.Texts[0]
	if tx.PositionStart != 2 || tx.PositionEnd != 5 {
		t.Errorf("placement = [%v,%v), want [2,5)", tx.PositionStart, tx.PositionEnd)
	}
	if tx.Color != "#FF0000" || tx.Y != 100 || tx.FontSize != DefaultTextStyle.FontSize {
		t.Errorf("style = %+v", tx)
	}
}

func TestAddMultipleText_AssignsIDs(t *testing.T) {
	e := testExecutor()
	got := mustApply(t, e, Timeline{}, &AddMultipleText{Elements: []TextElement{
		{Text: "one", PositionStart: 0, PositionEnd: 1},
		{ID: "keep", Text: "two", PositionStart: 1, PositionEnd: 2},
	}})

	if len(got.Texts) != 2 {
		t.Fatalf("len(Texts) = %d, want 2", len(got.Texts))
	}
	if got.Texts[0].ID == "" || got.Texts[1].ID != "keep" {
		t.Errorf("ids = %q, %q", got.Texts[0].ID, got.Texts[1].ID)
	}
}

func TestAdjustAllCaptions_PartialUpdate(t *testing.T) {
	e := testExecutor()
	tl := Timeline{Texts: []TextElement{
		{ID: "1", FontSize: 30, Color: "#111111", Y: 100, BackgroundColor: "#000000", PositionEnd: 1},
		{ID: "2", FontSize: 40, Color: "#222222", Y: 900, BackgroundColor: "", PositionEnd: 1},
	}}

	got := mustApply(t, e, tl, &AdjustAllCaptions{FontSize: ptr(64.0)})

	for i, tx := range got.Texts {
		if tx.FontSize != 64 {
			t.Errorf("texts[%d].FontSize = %v, want 64", i, tx.FontSize)
		}
		orig := tl.Texts[i]
		if tx.Color != orig.Color || tx.Y != orig.Y || tx.BackgroundColor != orig.BackgroundColor {
			t.Errorf("texts[%d] untouched fields changed: %+v", i, tx)
		}
	}
}

func TestRemoveAllCaptions(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e, clip("a", MediaVideo, 10))
	tl.Texts = []TextElement{{ID: "1", PositionEnd: 1}}

	got := mustApply(t, e, tl, &RemoveAllCaptions{})
	if len(got.Texts) != 0 || len(got.Media) != 1 {
		t.Errorf("texts=%d media=%d, want 0 and 1", len(got.Texts), len(got.Media))
	}
}

func TestAddCaptions(t *testing.T) {
	e := testExecutor()
	src := clip("a", MediaVideo, 20)
	src.StartTime = 5
	src.EndTime = 15
	tl := laidOut(t, e, clip("intro", MediaVideo, 4), src)

	got := mustApply(t, e, tl, &AddCaptions{
		ClipIndex: 1,
		StyleID:   "mrbeast",
		Segments: []CaptionSegment{
			{Text: "too early", Start: 0, End: 4},
			{Text: "hello there", Start: 6, End: 8},
			{Text: "edge", Start: 14, End: 17},
		},
	})

	if len(got.Texts) != 2 {
		t.Fatalf("len(Texts) = %d, want 2", len(got.Texts))
	}
	first := got.Texts[0]
	if first.Text != "HELLO THERE" {
		t.Errorf("Text = %q, want uppercase", first.Text)
	}
	if first.PositionStart != 5 || first.PositionEnd != 7 {
		t.Errorf("placement = [%v,%v), want [5,7)", first.PositionStart, first.PositionEnd)
	}
	if got.Texts[1].PositionEnd != 14 {
		t.Errorf("edge caption ends at %v, want 14", got.Texts[1].PositionEnd)
	}
}

func TestRemoveImages_Scenario(t *testing.T) {
	e := testExecutor()
	tl := Timeline{Media: []MediaElement{
		clip("img0", MediaImage, 3),
		clip("vid0", MediaVideo, 10),
		clip("img1", MediaImage, 3),
		clip("vid1", MediaVideo, 10),
		clip("img2", MediaImage, 3),
	}}

	got := mustApply(t, e, tl, &RemoveImages{Index: ptr(1)})

	want := []string{"img0", "vid0", "vid1", "img2"}
	if len(got.Media) != len(want) {
		t.Fatalf("len(Media) = %d, want %d", len(got.Media), len(want))
	}
	for i, id := range want {
		if got.Media[i].ID != id {
			t.Errorf("media[%d] = %s, want %s", i, got.Media[i].ID, id)
		}
	}
}

func TestRemoveImages(t *testing.T) {
	e := testExecutor()
	tl := Timeline{Media: []MediaElement{
		clip("img0", MediaImage, 3),
		clip("vid0", MediaVideo, 10),
		clip("img1", MediaImage, 3),
	}}

	got := mustApply(t, e, tl, &RemoveImages{All: true})
	if len(got.Media) != 1 || got.Media[0].ID != "vid0" {
		t.Errorf("remaining = %+v, want only vid0", got.Media)
	}

	if _, err := e.Apply(tl, &RemoveImages{Index: ptr(2)}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestAdjustAllImages(t *testing.T) {
	e := testExecutor()
	tl := Timeline{Media: []MediaElement{clip("img0", MediaImage, 3), clip("vid0", MediaVideo, 10)}}

	got := mustApply(t, e, tl, &AdjustAllImages{Width: ptr(400.0), Opacity: ptr(50.0)})

	if got.Media[0].Width != 400 || got.Media[0].Opacity != 50 || got.Media[0].Height != CanvasHeight {
		t.Errorf("image = %+v", got.Media[0])
	}
	if got.Media[1].Width != CanvasWidth || got.Media[1].Opacity != 100 {
		t.Errorf("video changed: %+v", got.Media[1])
	}
}

func TestSearchAndAddImages(t *testing.T) {
	e := testExecutor()
	tl := laidOut(t, e, clip("v", MediaVideo, 30))
	images := []ResolvedImage{{FileID: "a"}, {FileID: "b"}, {FileID: "c"}}

	t.Run("even spacing", func(t *testing.T) {
		got := mustApply(t, e, tl, &SearchAndAddImages{Query: "cats", Count: 3, Images: images})
		added := got.Media[1:]
		if len(added) != 3 {
			t.Fatalf("added %d images, want 3", len(added))
		}
		wantStart := []float64{0, 10, 20}
		wantX := []float64{0, 960, 0}
		wantY := []float64{0, 0, 540}
		for i, m := range added {
			if m.PositionStart != wantStart[i] || m.PositionEnd != wantStart[i]+DefaultImageDuration {
				t.Errorf("image %d placement = [%v,%v)", i, m.PositionStart, m.PositionEnd)
			}
			if m.X != wantX[i] || m.Y != wantY[i] {
				t.Errorf("image %d at (%v,%v), want (%v,%v)", i, m.X, m.Y, wantX[i], wantY[i])
			}
			if m.ZIndex <= got.Media[0].ZIndex || m.TrackID != TrackOverlay || m.Type != MediaImage {
				t.Errorf("image %d layer = z%d track %d type %s", i, m.ZIndex, m.TrackID, m.Type)
			}
		}
	})

	t.Run("keyword timestamps clamp", func(t *testing.T) {
		got := mustApply(t, e, tl, &SearchAndAddImages{
			Query:    "cats",
			Count:    2,
			Keywords: []KeywordTimestamp{{Keyword: "cat", Timestamp: 12.5}, {Keyword: "dog", Timestamp: 29}},
			Images:   images[:2],
		})
		if got.Media[1].PositionStart != 12.5 {
			t.Errorf("first image at %v, want 12.5", got.Media[1].PositionStart)
		}
		if got.Media[2].PositionStart != 27 {
			t.Errorf("second image at %v, want clamped 27", got.Media[2].PositionStart)
		}
	})

	t.Run("zero results is a no-op", func(t *testing.T) {
		got := mustApply(t, e, tl, &SearchAndAddImages{Query: "cats", Count: 3})
		if len(got.Media) != 1 {
			t.Errorf("len(Media) = %d, want 1", len(got.Media))
		}
	})
}

func TestStep_BatchContinuesAfterFailures(t *testing.T) {
	e := testExecutor()
	tl := Timeline{Media: []MediaElement{clip("a", MediaVideo, 10), clip("b", MediaVideo, 10)}}

	batch := []RawAction{
		{Type: "add_all_media"},
		{Type: "explode_timeline"},
		{Type: "speed_up", Params: json.RawMessage(`{"clipIndex": 9, "speed": 2}`)},
		{Type: "trim_clip", Params: json.RawMessage(`{"clipIndex": 0, "startTrim": 5, "endTrim": 2}`)},
		{Type: "trim_clip", Params: json.RawMessage(`{"clipIndex": 0, "newDuration": 4}`)},
	}

	got := tl
	var outcomes []Outcome
	for i, raw := range batch {
		a, err := Decode(raw)
		if err != nil {
			outcomes = append(outcomes, Outcome{Index: i, Status: StatusFailed, Code: Code(err)})
			continue
		}
		var o Outcome
		got, o = e.Step(got, i, a)
		outcomes = append(outcomes, o)
	}

	wantCodes := []string{"", CodeUnsupportedAction, CodeIndexOutOfRange, CodeInvalidParams, ""}
	if len(outcomes) != len(wantCodes) {
		t.Fatalf("len(outcomes) = %d, want %d", len(outcomes), len(wantCodes))
	}
	for i, code := range wantCodes {
		if outcomes[i].Code != code {
			t.Errorf("outcomes[%d].Code = %q, want %q", i, outcomes[i].Code, code)
		}
		if outcomes[i].Index != i {
			t.Errorf("outcomes[%d].Index = %d", i, outcomes[i].Index)
		}
	}
	if got.Media[0].EndTime != 4 || got.Media[1].PositionStart != 4 {
		t.Errorf("final timeline = %+v", got.Media)
	}
}

type panicAction struct{}

func (panicAction) Type() ActionType { return "panic" }
func (panicAction) Validate() error  { return nil }

func TestStep_IsolatesUnknownActions(t *testing.T) {
	e := testExecutor()
	tl := Timeline{Media: []MediaElement{clip("a", MediaVideo, 10)}}

	var outcomes []Outcome
	for i, a := range []Action{panicAction{}, nil, &AddAllMedia{}} {
		var o Outcome
		tl, o = e.Step(tl, i, a)
		outcomes = append(outcomes, o)
	}

	if outcomes[0].Code != CodeUnsupportedAction || outcomes[1].Code != CodeUnsupportedAction {
		t.Errorf("codes = %q, %q", outcomes[0].Code, outcomes[1].Code)
	}
	if outcomes[2].Failed() {
		t.Errorf("add_all_media failed: %+v", outcomes[2])
	}
}

func TestApply_RecoversPanics(t *testing.T) {
	e := testExecutor()
	var trim *TrimClip

	_, err := e.Apply(Timeline{Media: []MediaElement{clip("a", MediaVideo, 10)}}, trim)
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("error = %v, want ErrInternal", err)
	}
}

func TestDescribe(t *testing.T) {
	got := Describe(&InstructManual{Feature: "Export", Steps: []string{"Open menu", "Click export"}})
	want := "Export\n1. Open menu\n2. Click export"
	if got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}
