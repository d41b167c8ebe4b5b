package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"clipforge/internal/media"
	"clipforge/internal/providers"
	"clipforge/internal/storage"
	"clipforge/internal/timeline"
)

// Outcome codes added on top of the executor's.
const (
	CodeProviderError       = "PROVIDER_ERROR"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
)

// Batch sources recorded in the action log.
const (
	SourceUI   = "ui"
	SourceChat = "chat"
	SourceCLI  = "cli"
)

type Result struct {
	ProjectID string             `json:"projectId"`
	Version   int64              `json:"version"`
	Timeline  timeline.Timeline  `json:"timeline"`
	Outcomes  []timeline.Outcome `json:"outcomes"`
}

// Applied reports how many actions succeeded.
func (r *Result) Applied() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Failed() {
			n++
		}
	}
	return n
}

// batch carries per-dispatch state shared by the resolvers.
type batch struct {
	project *storage.Project
	files   []storage.LibraryFile
	loaded  bool
}

// library loads the project library once per batch. Audio and video files
// imported while ffprobe was unavailable are probed again so placement
// knows their length.
func (e *Editor) library(ctx context.Context, b *batch) ([]storage.LibraryFile, error) {
	if b.loaded {
		return b.files, nil
	}
	files, err := e.Storage.ListLibraryFiles(b.project.ID)
	if err != nil {
		return nil, err
	}
	for i := range files {
		f := &files[i]
		if f.Type == timeline.MediaImage || f.Duration != nil || e.Importer == nil {
			continue
		}
		if err := e.Importer.Reprobe(ctx, f); err != nil {
			e.logger.Warn().Err(err).Str("file", f.ID).Msg("reprobe failed")
		}
	}
	b.files, b.loaded = files, true
	return files, nil
}

// Dispatch runs a batch against the project's stored timeline. Actions are
// applied in order; a failed action is reported and skipped. The timeline is
// saved once at the end if anything changed, and the batch is always
// recorded in the action log.
func (e *Editor) Dispatch(ctx context.Context, projectID, source string, raws []timeline.RawAction) (*Result, error) {
	unlock, err := e.acquire(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := e.Project(projectID)
	if err != nil {
		return nil, err
	}

	b := &batch{project: p}
	sess, tl := e.snapshot(p)
	outcomes := make([]timeline.Outcome, 0, len(raws))
	changed := false

	for i, raw := range raws {
		a, err := timeline.Decode(raw)
		if err != nil {
			outcomes = append(outcomes, e.failed(i, timeline.ActionType(raw.Type), err))
			continue
		}

		note, err := e.resolve(ctx, b, tl, a)
		if err != nil {
			outcomes = append(outcomes, e.failed(i, a.Type(), err))
			continue
		}

		next, o := e.Executor.Step(tl, i, a)
		if !o.Failed() {
			tl = next
			if mutates(a) {
				changed = true
			}
			if note != "" {
				o.Message = note
			}
		}
		outcomes = append(outcomes, o)
	}

	version := p.Version
	if changed {
		version, err = e.Storage.SaveTimeline(p.ID, tl)
		if err != nil {
			return nil, fmt.Errorf("save timeline: %w", err)
		}
		e.commit(sess, tl, version)
	}

	entry := &storage.ActionLogEntry{
		ProjectID: p.ID,
		Source:    source,
		Actions:   raws,
		Outcomes:  outcomes,
		Version:   version,
	}
	if err := e.Storage.AppendActionLog(entry); err != nil {
		e.logger.Warn().Err(err).Str("project", p.ID).Msg("failed to record action log")
	}

	res := &Result{ProjectID: p.ID, Version: version, Timeline: tl, Outcomes: outcomes}
	e.logger.Info().
		Str("project", p.ID).
		Str("source", source).
		Int("actions", len(raws)).
		Int("applied", res.Applied()).
		Int64("version", version).
		Msg("batch dispatched")
	return res, nil
}

func mutates(a timeline.Action) bool {
	switch act := a.(type) {
	case *timeline.TranscribeVideo, *timeline.AskImageSource, *timeline.InstructManual:
		return false
	case *timeline.SearchAndAddImages:
		return len(act.Images) > 0
	}
	return true
}

// failed builds the outcome for an action that never reached the executor.
// Errors from outside the timeline package are provider failures.
func (e *Editor) failed(i int, typ timeline.ActionType, err error) timeline.Outcome {
	code := timeline.Code(err)
	switch {
	case errors.Is(err, providers.ErrUnavailable):
		code = CodeProviderUnavailable
	case code == timeline.CodeInternal && !errors.Is(err, timeline.ErrInternal):
		code = CodeProviderError
	}
	e.logger.Warn().Err(err).Int("index", i).Str("type", string(typ)).Str("code", code).Msg("action failed")
	return timeline.Outcome{
		Index:   i,
		Type:    typ,
		Status:  timeline.StatusFailed,
		Code:    code,
		Message: err.Error(),
	}
}

// resolve performs the I/O an action depends on and stores the results on
// the action. The returned note replaces the outcome message when set.
func (e *Editor) resolve(ctx context.Context, b *batch, tl timeline.Timeline, a timeline.Action) (string, error) {
	switch act := a.(type) {
	case *timeline.AddAllMedia:
		return "", e.resolveAllMedia(ctx, b, tl, act)
	case *timeline.AddMedia:
		files, err := e.library(ctx, b)
		if err != nil {
			return "", err
		}
		if act.Index >= len(files) {
			return "", fmt.Errorf("%w: library file %d (have %d)", timeline.ErrIndexOutOfRange, act.Index, len(files))
		}
		act.File = files[act.Index].Resolved()
		return "", nil
	case *timeline.AddCaptions:
		return e.resolveCaptions(ctx, tl, act)
	case *timeline.TranscribeVideo:
		if act.ClipIndex >= len(tl.Media) {
			return "", nil
		}
		t, err := e.transcriptFor(ctx, tl.Media[act.ClipIndex], act.Force)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("transcribed %d words", len(t.Words)), nil
	case *timeline.SearchAndAddImages:
		return e.resolveImages(ctx, b, act)
	}
	return "", nil
}

func (e *Editor) resolveAllMedia(ctx context.Context, b *batch, tl timeline.Timeline, act *timeline.AddAllMedia) error {
	files, err := e.library(ctx, b)
	if err != nil {
		return err
	}
	placed := make(map[string]bool, len(tl.Media))
	for _, m := range tl.Media {
		placed[m.FileID] = true
	}
	act.Pending = act.Pending[:0]
	for _, f := range files {
		// searched images are placed by search_and_add_images only
		if !placed[f.ID] && !f.Searched() {
			act.Pending = append(act.Pending, *f.Resolved())
		}
	}
	return nil
}

func (e *Editor) resolveCaptions(ctx context.Context, tl timeline.Timeline, act *timeline.AddCaptions) (string, error) {
	if act.ClipIndex >= len(tl.Media) {
		return "", nil
	}
	t, err := e.transcriptFor(ctx, tl.Media[act.ClipIndex], false)
	if err != nil {
		return "", err
	}
	words := act.MaxWordsPerLine
	if words == 0 {
		words = e.MaxWordsPerLine
	}
	act.Segments = t.CaptionSegments(words)
	return fmt.Sprintf("added %d captions", len(act.Segments)), nil
}

// resolveImages searches, downloads and imports images. Images that fail to
// download are dropped together with their keyword so placements stay
// aligned.
func (e *Editor) resolveImages(ctx context.Context, b *batch, act *timeline.SearchAndAddImages) (string, error) {
	if e.Images == nil || e.Downloader == nil {
		return "", fmt.Errorf("image search: %w", providers.ErrUnavailable)
	}

	results, err := e.Images.Search(ctx, act.Query, act.Count)
	if err != nil {
		return "", fmt.Errorf("image search: %w", err)
	}
	if len(results) == 0 {
		return "no images found", nil
	}

	downloads := e.Downloader.DownloadAll(ctx, results)
	var (
		resolved []timeline.ResolvedImage
		keywords []timeline.KeywordTimestamp
		lastErr  error
	)
	for i, d := range downloads {
		if d.Err != nil {
			lastErr = d.Err
			e.logger.Warn().Err(d.Err).Str("image", d.Result.ID).Msg("image download failed")
			continue
		}
		f, err := e.Importer.Import(ctx, media.ImportRequest{
			ProjectID: b.project.ID,
			Name:      d.Result.ID + d.Ext(),
			MIMEType:  d.ContentType,
			Source:    d.Result.Source,
			SourceURL: d.Result.URL,
			Body:      bytes.NewReader(d.Data),
		})
		if err != nil {
			lastErr = err
			e.logger.Warn().Err(err).Str("image", d.Result.ID).Msg("image import failed")
			continue
		}
		b.loaded = false

		resolved = append(resolved, timeline.ResolvedImage{
			FileID: f.ID,
			URL:    d.Result.URL,
			Alt:    d.Result.Alt,
			Source: d.Result.Source,
		})
		if i < len(act.Keywords) {
			keywords = append(keywords, act.Keywords[i])
		}
	}

	if len(resolved) == 0 {
		return "", fmt.Errorf("all %d image downloads failed: %w", len(downloads), lastErr)
	}
	act.Images = resolved
	act.Keywords = keywords
	return fmt.Sprintf("added %d of %d images", len(resolved), len(results)), nil
}
