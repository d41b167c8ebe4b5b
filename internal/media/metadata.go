package media

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var ErrToolMissing = errors.New("ffmpeg tools not installed")

type Metadata struct {
	Duration   float64 // seconds, 0 for stills
	Width      int
	Height     int
	VideoCodec string
	AudioCodec string
	HasAudio   bool
}

// Prober reads stream metadata from a local media file.
type Prober interface {
	Probe(ctx context.Context, path string) (*Metadata, error)
}

type FFProbe struct {
	timeout time.Duration
	logger  zerolog.Logger
}

func NewFFProbe(timeout time.Duration, logger zerolog.Logger) *FFProbe {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFProbe{timeout: timeout, logger: logger}
}

func (p *FFProbe) IsAvailable() bool {
	_, err := exec.LookPath("ffprobe")
	return err == nil
}

func (p *FFProbe) Probe(ctx context.Context, path string) (*Metadata, error) {
	if !p.IsAvailable() {
		return nil, ErrToolMissing
	}

	timeout := p.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}

	out, err := ffmpeg.ProbeWithTimeout(path, timeout, ffmpeg.KwArgs{})
	if err != nil {
		p.logger.Debug().Err(err).Str("file", path).Msg("ffprobe failed")
		return nil, err
	}
	return parseProbe([]byte(out))
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

func parseProbe(output []byte) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, err
	}

	meta := &Metadata{}
	if probe.Format.Duration != "" {
		if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			meta.Duration = dur
		}
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if meta.VideoCodec == "" {
				meta.VideoCodec = strings.ToUpper(stream.CodecName)
				meta.Width = stream.Width
				meta.Height = stream.Height
			}
			if meta.Duration == 0 && stream.Duration != "" {
				if dur, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
					meta.Duration = dur
				}
			}
		case "audio":
			if meta.AudioCodec == "" {
				meta.AudioCodec = strings.ToUpper(stream.CodecName)
				meta.HasAudio = true
			}
		}
	}

	return meta, nil
}
