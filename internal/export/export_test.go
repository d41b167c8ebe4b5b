package export

import (
	"reflect"
	"strings"
	"testing"

	"clipforge/internal/timeline"
)

func sampleTimeline() timeline.Timeline {
	a := timeline.NewMediaElement("m1", "f1", timeline.MediaVideo, 10)
	a.Transition = &timeline.Transition{Type: "fade", Duration: 0.5}
	b := timeline.NewMediaElement("m2", "f2", timeline.MediaVideo, 5)
	b.StartTime, b.EndTime = 2, 4
	b.PositionStart, b.PositionEnd = 10, 12

	img := timeline.NewMediaElement("m3", "f3", timeline.MediaImage, 3)
	img.TrackID = timeline.TrackOverlay
	img.ZIndex = 1
	img.PositionStart, img.PositionEnd = 1, 4
	img.X, img.Y, img.Width, img.Height = 960, 0, 960, 540
	img.Volume = 0

	hidden := timeline.NewMediaElement("m4", "f4", timeline.MediaVideo, 5)
	hidden.IncludeInMerge = false

	return timeline.Timeline{
		Media: []timeline.MediaElement{a, b, img, hidden},
		Texts: []timeline.TextElement{
			{ID: "t2", Text: "second", PositionStart: 3725.5, PositionEnd: 3726, IncludeInMerge: true, X: 960, Y: 1000, Color: "#FFFFFF", Opacity: 100},
			{ID: "t1", Text: " first ", PositionStart: 0, PositionEnd: 1.25, IncludeInMerge: true, X: 960, Y: 1000, Color: "#FFFF00", BackgroundColor: "rgba(0,0,0,0.5)", Opacity: 100},
			{ID: "t3", Text: "   ", PositionStart: 2, PositionEnd: 3, IncludeInMerge: true},
		},
	}
}

func TestSRT(t *testing.T) {
	got := SRT(sampleTimeline())
	want := "1\n00:00:00,000 --> 00:00:01,250\nfirst\n\n" +
		"2\n01:02:05,500 --> 01:02:06,000\nsecond\n\n"
	if got != want {
		t.Errorf("SRT() =\n%q\nwant\n%q", got, want)
	}
}

func TestClips(t *testing.T) {
	clips := Clips(sampleTimeline(), map[string]string{"f1": "intro.mp4"}, map[string]string{"f2": "/media/b.mp4"})
	if len(clips) != 2 {
		t.Fatalf("clips = %+v", clips)
	}
	want := EDLClip{Name: "intro.mp4", Track: "V", SrcIn: 0, SrcOut: 10, RecIn: 0, RecOut: 10}
	if clips[0] != want {
		t.Errorf("clips[0] = %+v", clips[0])
	}
	if clips[1].SrcIn != 2 || clips[1].RecIn != 10 || clips[1].Dissolve != 0.5 || clips[1].MediaPath != "/media/b.mp4" {
		t.Errorf("clips[1] = %+v", clips[1])
	}
}

func TestGenerateEDL(t *testing.T) {
	edl := GenerateEDL(Clips(sampleTimeline(), nil, nil), "My/Project", 30)

	for _, line := range []string{
		"TITLE: My_Project",
		"FCM: NON-DROP FRAME",
		"001  AX       V     C        00:00:00:00 00:00:10:00 00:00:00:00 00:00:10:00",
		"002  AX       V     D    015 00:00:02:00 00:00:04:00 00:00:10:00 00:00:12:00",
	} {
		if !strings.Contains(edl, line) {
			t.Errorf("missing %q in\n%s", line, edl)
		}
	}
	if strings.Contains(edl, "MEDIA PATH") {
		t.Error("media path written without a path")
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	if edl := GenerateEDL(nil, "x", 29.97); !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Errorf("edl = %q", edl)
	}
}

func TestTimecode(t *testing.T) {
	tests := []struct {
		sec  float64
		fps  int
		want string
	}{
		{0, 30, "00:00:00:00"},
		{1.5, 30, "00:00:01:15"},
		{3661, 25, "01:01:01:00"},
		{-1, 30, "00:00:00:00"},
	}
	for _, tt := range tests {
		if got := timecode(tt.sec, tt.fps); got != tt.want {
			t.Errorf("timecode(%v, %d) = %s, want %s", tt.sec, tt.fps, got, tt.want)
		}
	}
}

func TestPlan(t *testing.T) {
	plan, err := Plan(sampleTimeline(), RenderOptions{
		Resolution: "720p",
		Quality:    "ultra",
		Output:     "out.mp4",
		Sources:    map[string]string{"f1": "a.mp4", "f2": "b.mp4", "f3": "c.png"},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Width != 1280 || plan.Height != 720 || plan.Inputs != 3 || plan.Quality.CRF != 18 {
		t.Errorf("plan = %+v", plan)
	}

	args := strings.Join(plan.Args, " ")
	for _, want := range []string{
		"-f lavfi -i color=c=black:s=1280x720",
		"-loop 1",
		"-i c.png",
		"-filter_complex",
		"overlay",
		"drawtext",
		"amix",
		"-crf 18",
		"-b:v 8M",
		"-b:a 256k",
		"out.mp4",
		"-y",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q:\n%s", want, args)
		}
	}
}

func TestPlan_Errors(t *testing.T) {
	tl := sampleTimeline()
	if _, err := Plan(tl, RenderOptions{Sources: map[string]string{"f1": "a"}}); err == nil {
		t.Error("missing source accepted")
	}
	if _, err := Plan(tl, RenderOptions{Quality: "best"}); err == nil {
		t.Error("unknown quality accepted")
	}
	if _, err := Plan(timeline.Timeline{}, RenderOptions{}); err == nil {
		t.Error("empty timeline accepted")
	}
}

func TestAtempoChain(t *testing.T) {
	tests := []struct {
		speed float64
		want  []float64
	}{
		{1, nil},
		{1.5, []float64{1.5}},
		{4, []float64{2, 2}},
		{0.25, []float64{0.5, 0.5}},
	}
	for _, tt := range tests {
		if got := atempoChain(tt.speed); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("atempoChain(%v) = %v, want %v", tt.speed, got, tt.want)
		}
	}
}

func TestFFColor(t *testing.T) {
	tests := map[string]string{
		"#ffd700":         "0xFFD700@1",
		"rgba(0,0,0,0.5)": "0x000000@0.5",
		"rgb(255, 10, 0)": "0xFF0A00@1",
		"":                "white",
		"red":             "red",
		"rgba(1,2":        "rgba(1,2",
	}
	for in, want := range tests {
		if got := ffColor(in, 100); got != want {
			t.Errorf("ffColor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseFormatAndFileName(t *testing.T) {
	f, err := ParseFormat(" EDL ")
	if err != nil || f != FormatEDL {
		t.Errorf("ParseFormat = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("xml accepted")
	}
	if got := FileName("Trip: Day 1", FormatRender); got != "Trip_ Day 1.render.json" {
		t.Errorf("FileName = %q", got)
	}
}
