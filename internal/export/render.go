package export

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"clipforge/internal/timeline"
)

type Quality struct {
	Name         string `json:"name"`
	CRF          int    `json:"crf"`
	Preset       string `json:"preset"`
	VideoBitrate string `json:"videoBitrate"`
	AudioBitrate string `json:"audioBitrate"`
}

var qualities = map[string]Quality{
	"medium": {Name: "medium", CRF: 28, Preset: "ultrafast", VideoBitrate: "2M", AudioBitrate: "128k"},
	"high":   {Name: "high", CRF: 23, Preset: "ultrafast", VideoBitrate: "4M", AudioBitrate: "192k"},
	"ultra":  {Name: "ultra", CRF: 18, Preset: "veryfast", VideoBitrate: "8M", AudioBitrate: "256k"},
}

var resolutions = map[string][2]int{
	"480p":  {854, 480},
	"720p":  {1280, 720},
	"1080p": {1920, 1080},
	"2K":    {2048, 1080},
	"4K":    {3840, 2160},
}

type RenderOptions struct {
	Resolution string
	Quality    string
	FrameRate  float64
	Output     string
	// Sources maps file IDs to the paths ffmpeg reads them from.
	Sources map[string]string
}

type RenderPlan struct {
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	FrameRate float64  `json:"frameRate"`
	Duration  float64  `json:"duration"`
	Quality   Quality  `json:"quality"`
	Output    string   `json:"output"`
	Inputs    int      `json:"inputs"`
	Args      []string `json:"args"`
}

// Plan builds the ffmpeg invocation that renders tl. Visual elements are
// overlaid on a black canvas in z order during their placement, audio is
// delayed to its placement and mixed, and texts are drawn last.
func Plan(tl timeline.Timeline, opts RenderOptions) (*RenderPlan, error) {
	q, ok := qualities[opts.Quality]
	if opts.Quality == "" {
		q, ok = qualities["high"], true
	}
	if !ok {
		return nil, fmt.Errorf("unknown quality %q", opts.Quality)
	}
	size, ok := resolutions[opts.Resolution]
	if opts.Resolution == "" {
		size, ok = resolutions["1080p"], true
	}
	if !ok {
		return nil, fmt.Errorf("unknown resolution %q", opts.Resolution)
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	if opts.Output == "" {
		opts.Output = "output.mp4"
	}

	duration := tl.Duration()
	if duration <= 0 {
		return nil, fmt.Errorf("timeline is empty")
	}

	c := compositor{
		sx: float64(size[0]) / timeline.CanvasWidth,
		sy: float64(size[1]) / timeline.CanvasHeight,
	}
	video := ffmpeg.Input(fmt.Sprintf("color=c=black:s=%dx%d:r=%s:d=%s", size[0], size[1], num(opts.FrameRate), num(duration)),
		ffmpeg.KwArgs{"f": "lavfi"})
	var audio []*ffmpeg.Stream
	inputs := 0

	media := make([]timeline.MediaElement, 0, len(tl.Media))
	for _, m := range tl.Media {
		if m.IncludeInMerge && m.Duration() > 0 {
			media = append(media, m)
		}
	}
	sort.SliceStable(media, func(i, j int) bool {
		if media[i].ZIndex != media[j].ZIndex {
			return media[i].ZIndex < media[j].ZIndex
		}
		return media[i].TrackID < media[j].TrackID
	})

	for _, m := range media {
		path, ok := opts.Sources[m.FileID]
		if !ok {
			return nil, fmt.Errorf("no source for file %s", m.FileID)
		}
		inputs++

		in := c.input(path, m)
		if m.Type != timeline.MediaAudio {
			video = c.overlay(video, in, m)
		}
		if m.Type != timeline.MediaImage && m.Volume > 0 {
			audio = append(audio, c.audio(in, m))
		}
	}

	for _, t := range tl.Texts {
		if t.IncludeInMerge && strings.TrimSpace(t.Text) != "" {
			video = c.drawText(video, t)
		}
	}

	streams := []*ffmpeg.Stream{video}
	kw := ffmpeg.KwArgs{
		"c:v":      "libx264",
		"preset":   q.Preset,
		"crf":      q.CRF,
		"b:v":      q.VideoBitrate,
		"pix_fmt":  "yuv420p",
		"r":        num(opts.FrameRate),
		"t":        num(duration),
		"movflags": "+faststart",
	}
	switch len(audio) {
	case 0:
		kw["an"] = ""
	case 1:
		streams = append(streams, audio[0])
	default:
		streams = append(streams, ffmpeg.Filter(audio, "amix", ffmpeg.Args{},
			ffmpeg.KwArgs{"inputs": len(audio), "duration": "longest", "normalize": 0}))
	}
	if len(audio) > 0 {
		kw["c:a"] = "aac"
		kw["b:a"] = q.AudioBitrate
	}

	cmd := ffmpeg.Output(streams, opts.Output, kw).OverWriteOutput().Compile()
	return &RenderPlan{
		Width:     size[0],
		Height:    size[1],
		FrameRate: opts.FrameRate,
		Duration:  duration,
		Quality:   q,
		Output:    opts.Output,
		Inputs:    inputs,
		Args:      cmd.Args[1:],
	}, nil
}

type compositor struct {
	sx, sy float64
}

func (c compositor) input(path string, m timeline.MediaElement) *ffmpeg.Stream {
	if m.Type == timeline.MediaImage {
		return ffmpeg.Input(path, ffmpeg.KwArgs{"loop": 1, "t": num(m.Duration())})
	}
	return ffmpeg.Input(path, ffmpeg.KwArgs{"ss": num(m.StartTime), "t": num(m.EndTime - m.StartTime)})
}

func (c compositor) overlay(base, in *ffmpeg.Stream, m timeline.MediaElement) *ffmpeg.Stream {
	v := in.Video().
		Filter("setpts", ffmpeg.Args{fmt.Sprintf("(PTS-STARTPTS)/%s+%s/TB", num(speed(m)), num(m.PositionStart))}).
		Filter("scale", ffmpeg.Args{fmt.Sprintf("%d:%d", c.px(m.Width, c.sx), c.px(m.Height, c.sy))})
	if m.Rotation != 0 {
		v = v.Filter("rotate", ffmpeg.Args{fmt.Sprintf("%s*PI/180", num(m.Rotation))}, ffmpeg.KwArgs{"fillcolor": "none"})
	}
	if m.Opacity < 100 {
		v = v.Filter("format", ffmpeg.Args{"rgba"}).
			Filter("colorchannelmixer", ffmpeg.Args{}, ffmpeg.KwArgs{"aa": num(m.Opacity / 100)})
	}
	return ffmpeg.Filter([]*ffmpeg.Stream{base, v}, "overlay", ffmpeg.Args{}, ffmpeg.KwArgs{
		"x":          c.px(m.X, c.sx),
		"y":          c.px(m.Y, c.sy),
		"enable":     between(m.PositionStart, m.PositionEnd),
		"eof_action": "pass",
	})
}

func (c compositor) audio(in *ffmpeg.Stream, m timeline.MediaElement) *ffmpeg.Stream {
	a := in.Audio()
	for _, tempo := range atempoChain(speed(m)) {
		a = a.Filter("atempo", ffmpeg.Args{num(tempo)})
	}
	if m.Volume != 100 {
		a = a.Filter("volume", ffmpeg.Args{num(m.Volume / 100)})
	}
	delay := strconv.Itoa(int(math.Round(m.PositionStart * 1000)))
	return a.Filter("adelay", ffmpeg.Args{delay}, ffmpeg.KwArgs{"all": 1})
}

func (c compositor) drawText(base *ffmpeg.Stream, t timeline.TextElement) *ffmpeg.Stream {
	size := t.FontSize
	if size <= 0 {
		size = timeline.DefaultTextStyle.FontSize
	}
	kw := ffmpeg.KwArgs{
		"text":      t.Text,
		"fontsize":  c.px(size, c.sy),
		"fontcolor": ffColor(t.Color, t.Opacity),
		"x":         fmt.Sprintf("%d-text_w/2", c.px(t.X, c.sx)),
		"y":         fmt.Sprintf("%d-text_h/2", c.px(t.Y, c.sy)),
		"enable":    between(t.PositionStart, t.PositionEnd),
	}
	if t.BackgroundColor != "" {
		kw["box"] = 1
		kw["boxcolor"] = ffColor(t.BackgroundColor, 100)
		kw["boxborderw"] = 10
	}
	if t.StrokeWidth > 0 && t.StrokeColor != "" {
		kw["borderw"] = c.px(t.StrokeWidth, c.sy)
		kw["bordercolor"] = ffColor(t.StrokeColor, 100)
	}
	return base.Filter("drawtext", ffmpeg.Args{}, kw)
}

func (c compositor) px(v, scale float64) int {
	return int(math.Round(v * scale))
}

func speed(m timeline.MediaElement) float64 {
	if m.PlaybackSpeed <= 0 {
		return 1
	}
	return m.PlaybackSpeed
}

// atempoChain splits a speed factor into steps within atempo's 0.5..2 range.
func atempoChain(s float64) []float64 {
	if math.Abs(s-1) < 1e-9 {
		return nil
	}
	var chain []float64
	for s > 2 {
		chain = append(chain, 2)
		s /= 2
	}
	for s < 0.5 {
		chain = append(chain, 0.5)
		s /= 0.5
	}
	return append(chain, s)
}

func between(start, end float64) string {
	return fmt.Sprintf("between(t,%s,%s)", num(start), num(end))
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// ffColor converts #RRGGBB and rgba(r,g,b,a) into ffmpeg's 0xRRGGBB@alpha
// form, scaling alpha by opacity percent.
func ffColor(css string, opacity float64) string {
	if opacity <= 0 || opacity > 100 {
		opacity = 100
	}
	alpha := opacity / 100
	css = strings.TrimSpace(css)

	switch {
	case strings.HasPrefix(css, "#") && len(css) == 7:
		return fmt.Sprintf("0x%s@%s", strings.ToUpper(css[1:]), num(alpha))
	case (strings.HasPrefix(css, "rgba(") || strings.HasPrefix(css, "rgb(")) && strings.HasSuffix(css, ")"):
		inner := css[strings.IndexByte(css, '(')+1 : len(css)-1]
		parts := strings.Split(inner, ",")
		if len(parts) < 3 {
			break
		}
		var rgb [3]int
		for i := range rgb {
			n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
			if err != nil {
				return "white"
			}
			rgb[i] = min(max(n, 0), 255)
		}
		if len(parts) == 4 {
			if a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64); err == nil {
				alpha *= a
			}
		}
		return fmt.Sprintf("0x%02X%02X%02X@%s", rgb[0], rgb[1], rgb[2], num(alpha))
	case css == "":
		return "white"
	}
	return css
}
