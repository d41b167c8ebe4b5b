package editor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"clipforge/internal/blob"
	"clipforge/internal/media"
	"clipforge/internal/providers"
	"clipforge/internal/timeline"
)

// Transcript returns the stored transcript of a library file without
// calling the provider. It returns nil when none exists.
func (e *Editor) Transcript(ctx context.Context, fileID string) (*timeline.Transcript, error) {
	if e.Transcripts != nil {
		if t, ok := e.Transcripts.Get(ctx, fileID); ok {
			return t, nil
		}
	}
	t, err := e.Storage.GetTranscriptByFile(fileID)
	if err != nil || t == nil {
		return t, err
	}
	if e.Transcripts != nil {
		e.Transcripts.Put(ctx, t)
	}
	return t, nil
}

// transcriptFor returns the transcript of a clip's source file, asking the
// provider only when none is stored or force is set. Concurrent requests
// for the same file share one provider call.
func (e *Editor) transcriptFor(ctx context.Context, clip timeline.MediaElement, force bool) (*timeline.Transcript, error) {
	if clip.Type == timeline.MediaImage {
		return nil, fmt.Errorf("%w: clip %s is an image", timeline.ErrInvalidParams, clip.ID)
	}
	if !force {
		t, err := e.Transcript(ctx, clip.FileID)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
	}
	if e.Transcriber == nil || !e.Transcriber.Available() {
		return nil, fmt.Errorf("transcription: %w", providers.ErrUnavailable)
	}

	v, err, shared := e.flight.Do(clip.FileID, func() (any, error) {
		return e.transcribe(ctx, clip)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.logger.Debug().Str("file", clip.FileID).Msg("joined in-flight transcription")
	}
	return v.(*timeline.Transcript), nil
}

func (e *Editor) transcribe(ctx context.Context, clip timeline.MediaElement) (*timeline.Transcript, error) {
	f, err := e.Storage.GetLibraryFile(clip.FileID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: library file %s is gone", timeline.ErrInvalidParams, clip.FileID)
	}

	src, cleanup, err := blob.Materialize(ctx, e.Blobs, blob.Key(f.ProjectID, f.ID, f.Name))
	if err != nil {
		return nil, err
	}
	defer cleanup()

	audio := src
	if f.Type != timeline.MediaAudio && e.Audio != nil {
		out, err := e.Audio.Extract(ctx, src)
		switch {
		case err == nil:
			audio = out
			defer os.Remove(out)
		case errors.Is(err, media.ErrToolMissing):
			e.logger.Warn().Str("file", f.ID).Msg("ffmpeg not found, uploading original file")
		default:
			return nil, fmt.Errorf("extract audio: %w", err)
		}
	}

	t, err := e.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}
	t.FileID = f.ID
	t.ClipID = clip.ID

	if err := e.Storage.SaveTranscript(t); err != nil {
		return nil, fmt.Errorf("save transcript: %w", err)
	}
	if e.Transcripts != nil {
		e.Transcripts.Put(ctx, t)
	}

	e.logger.Info().
		Str("file", f.ID).
		Int("words", len(t.Words)).
		Int("segments", len(t.Segments)).
		Msg("transcript stored")
	return t, nil
}
