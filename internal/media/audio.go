package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// AudioExtractor pulls a compact mono audio track out of a clip for speech
// recognition uploads.
type AudioExtractor struct {
	workDir string
	logger  zerolog.Logger
}

func NewAudioExtractor(workDir string, logger zerolog.Logger) *AudioExtractor {
	if workDir == "" {
		workDir = os.TempDir()
	}
	os.MkdirAll(workDir, 0755)
	return &AudioExtractor{workDir: workDir, logger: logger}
}

func (a *AudioExtractor) IsAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// ExtractArgs returns the ffmpeg argument list used to extract audio.
func ExtractArgs(src, dst string) []string {
	cmd := ffmpeg.Input(src).
		Output(dst, ffmpeg.KwArgs{
			"vn":  "",
			"ac":  1,
			"ar":  16000,
			"c:a": "libmp3lame",
			"b:a": "64k",
		}).
		OverWriteOutput().
		Compile()
	return cmd.Args[1:]
}

// Extract writes the audio of src to a temp mp3 and returns its path.
// The caller removes the file.
func (a *AudioExtractor) Extract(ctx context.Context, src string) (string, error) {
	if !a.IsAvailable() {
		return "", ErrToolMissing
	}

	out, err := os.CreateTemp(a.workDir, "audio-*.mp3")
	if err != nil {
		return "", err
	}
	out.Close()
	dst := out.Name()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", ExtractArgs(src, dst)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(dst)
		a.logger.Debug().
			Err(err).
			Str("src", src).
			Str("output", stderr.String()).
			Msg("ffmpeg audio extraction failed")
		return "", fmt.Errorf("ffmpeg failed: %w", err)
	}

	if st, err := os.Stat(dst); err != nil || st.Size() == 0 {
		os.Remove(dst)
		return "", fmt.Errorf("no audio extracted from %s", filepath.Base(src))
	}

	a.logger.Debug().Str("src", src).Str("audio", dst).Msg("audio extracted")
	return dst, nil
}
