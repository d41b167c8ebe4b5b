package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/storage"
	"clipforge/internal/timeline"
)

var (
	ErrStyleNotFound = errors.New("style profile not found")
	ErrInvalidStyle  = errors.New("invalid style profile")
)

// StyleResult is the outcome of applying a style profile. Result is nil when
// the profile had nothing to apply to the timeline.
type StyleResult struct {
	Style   storage.StyleProfile `json:"style"`
	Message string               `json:"message"`
	Result  *Result              `json:"result,omitempty"`
}

// SaveStyle validates and stores a profile, assigning an ID to new ones.
func (e *Editor) SaveStyle(sp *storage.StyleProfile) error {
	sp.Name = strings.TrimSpace(sp.Name)
	if sp.Name == "" {
		return errors.Join(ErrInvalidStyle, errors.New("name is required"))
	}
	if sp.Captions.Position == "" {
		sp.Captions.Position = "bottom"
	}
	if _, err := captionAdjustment(sp); err != nil {
		return errors.Join(ErrInvalidStyle, err)
	}
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	if err := e.Storage.SaveStyleProfile(sp); err != nil {
		return err
	}
	e.logger.Info().Str("style", sp.ID).Str("name", sp.Name).Msg("style profile saved")
	return nil
}

func (e *Editor) Styles() ([]storage.StyleProfile, error) {
	return e.Storage.ListStyleProfiles()
}

func (e *Editor) Style(id string) (*storage.StyleProfile, error) {
	sp, err := e.Storage.GetStyleProfile(id)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, ErrStyleNotFound
	}
	return sp, nil
}

func (e *Editor) DeleteStyle(id string) error {
	err := e.Storage.DeleteStyleProfile(id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrStyleNotFound
	}
	return err
}

// ApplyStyle turns the profile's caption settings into an
// adjust_all_captions action and dispatches it. Timelines without text
// elements are left alone.
func (e *Editor) ApplyStyle(ctx context.Context, projectID, styleID, source string) (*StyleResult, error) {
	sp, err := e.Style(styleID)
	if err != nil {
		return nil, err
	}
	p, err := e.Project(projectID)
	if err != nil {
		return nil, err
	}

	out := &StyleResult{Style: *sp, Message: StyleMessage(sp)}
	adjust, err := captionAdjustment(sp)
	if err != nil {
		return nil, errors.Join(ErrInvalidStyle, err)
	}
	if adjust == nil || len(p.Timeline.Texts) == 0 {
		return out, nil
	}

	raw, err := timeline.Encode(adjust)
	if err != nil {
		return nil, err
	}
	out.Result, err = e.Dispatch(ctx, projectID, source, []timeline.RawAction{raw})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// captionAdjustment returns the action a profile applies, or nil when its
// captions are disabled.
func captionAdjustment(sp *storage.StyleProfile) (*timeline.AdjustAllCaptions, error) {
	c := sp.Captions
	if !c.Enabled {
		return nil, nil
	}
	a := &timeline.AdjustAllCaptions{}
	if c.FontSize != 0 {
		a.FontSize = &c.FontSize
	}
	if c.Position != "" {
		y, ok := timeline.PositionY(c.Position)
		if !ok {
			return nil, fmt.Errorf("unknown caption position %q", c.Position)
		}
		a.Y = &y
	}
	if c.Color != "" {
		a.Color = &c.Color
	}
	if c.BackgroundColor != "" {
		a.BackgroundColor = &c.BackgroundColor
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// StyleMessage describes what applying sp does, for the user.
func StyleMessage(sp *storage.StyleProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s style applied.\n", sp.Name)
	fmt.Fprintf(&b, "Pacing: %.1f cuts/min (%g%% fast-paced)\n", sp.Pacing.CutsPerMinute, sp.Pacing.FastPacedPercentage)
	if sp.Captions.Enabled {
		fmt.Fprintf(&b, "Captions: %gpx %s\n", sp.Captions.FontSize, sp.Captions.Position)
	} else {
		b.WriteString("Captions: disabled\n")
	}
	fmt.Fprintf(&b, "Visual: %s, %g zooms/min\n", orNone(sp.Visual.ColorGrading), sp.Visual.ZoomFrequency)
	music := "no music"
	if sp.Audio.MusicPresent {
		music = "music"
	}
	fmt.Fprintf(&b, "Audio: %s, %g SFX/min\n", music, sp.Audio.SoundEffectsFrequency)
	b.WriteString("Only caption settings are applied to the timeline.")
	return b.String()
}

// StyleSummary is the short form of sp given to the oracle.
func StyleSummary(sp *storage.StyleProfile) string {
	fast := "no"
	if sp.Pacing.FastPacedPercentage > 50 {
		fast = "yes"
	}
	return fmt.Sprintf("Style %q (id %s): %g cuts/min, avg shot %gs; captions %gpx at %s, %s; visual %s, %s transitions; fast-paced %s",
		sp.Name, sp.ID, sp.Pacing.CutsPerMinute, sp.Pacing.AverageShotDuration,
		sp.Captions.FontSize, orNone(sp.Captions.Position), orNone(sp.Captions.Color),
		orNone(sp.Visual.ColorGrading), orNone(sp.Visual.TransitionStyle), fast)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
