package editor

import (
	"context"
	"encoding/json"
	"fmt"

	"clipforge/internal/blob"
	"clipforge/internal/export"
	"clipforge/internal/timeline"
)

type Export struct {
	Name        string
	ContentType string
	Body        []byte
}

// Export renders the project's current timeline. Render plans reference
// local paths when the blob store has them and storage keys otherwise.
func (e *Editor) Export(projectID string, f export.Format, ro export.RenderOptions) (*Export, error) {
	p, err := e.Project(projectID)
	if err != nil {
		return nil, err
	}
	files, err := e.Storage.ListLibraryFiles(projectID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(files))
	paths := make(map[string]string, len(files))
	local, _ := e.Blobs.(blob.Localizer)
	for _, file := range files {
		key := blob.Key(file.ProjectID, file.ID, file.Name)
		names[file.ID] = file.Name
		paths[file.ID] = key
		if local != nil {
			if path, err := local.LocalPath(key); err == nil {
				paths[file.ID] = path
			}
		}
	}

	out := &Export{Name: export.FileName(p.Name, f), ContentType: f.ContentType()}
	switch f {
	case export.FormatSRT:
		out.Body = []byte(export.SRT(p.Timeline))
	case export.FormatEDL:
		out.Body = []byte(export.GenerateEDL(export.Clips(p.Timeline, names, paths), p.Name, p.FrameRate))
	case export.FormatRender:
		if ro.FrameRate == 0 {
			ro.FrameRate = p.FrameRate
		}
		ro.Sources = paths
		plan, err := export.Plan(p.Timeline, ro)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProject, err)
		}
		out.Body, err = json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}

	e.logger.Info().Str("project", p.ID).Str("format", string(f)).Int("bytes", len(out.Body)).Msg("timeline exported")
	return out, nil
}

// TranscribeClip runs transcribe_video for one clip and returns the stored
// transcript together with the action outcome.
func (e *Editor) TranscribeClip(ctx context.Context, projectID string, clipIndex int, force bool) (*timeline.Transcript, *Result, error) {
	params, err := json.Marshal(timeline.TranscribeVideo{ClipIndex: clipIndex, Force: force})
	if err != nil {
		return nil, nil, err
	}
	res, err := e.Dispatch(ctx, projectID, SourceUI, []timeline.RawAction{{
		Type:   string(timeline.TypeTranscribeVideo),
		Params: params,
	}})
	if err != nil {
		return nil, nil, err
	}
	if res.Outcomes[0].Failed() {
		return nil, res, nil
	}

	t, err := e.Transcript(ctx, res.Timeline.Media[clipIndex].FileID)
	if err != nil {
		return nil, nil, err
	}
	return t, res, nil
}
