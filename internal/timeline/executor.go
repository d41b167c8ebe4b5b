package timeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultImageDuration       = 3.0
	DefaultImportImageDuration = 30.0
)

type Config struct {
	// ImageDuration is the on-timeline length of images added by search.
	ImageDuration float64
	// ImportImageDuration is the length given to imported stills.
	ImportImageDuration float64
	NewID               func() string
}

type Status string

const (
	StatusApplied Status = "applied"
	StatusFailed  Status = "failed"
)

// Outcome reports what happened to one action of a batch.
type Outcome struct {
	Index   int        `json:"index"`
	Type    ActionType `json:"type"`
	Status  Status     `json:"status"`
	Code    string     `json:"code,omitempty"`
	Message string     `json:"message,omitempty"`
}

func (o Outcome) Failed() bool {
	return o.Status == StatusFailed
}

// Executor applies actions to timeline snapshots. It performs no I/O and
// never modifies the snapshot it is given.
type Executor struct {
	cfg    Config
	logger zerolog.Logger
}

func NewExecutor(cfg Config, logger zerolog.Logger) *Executor {
	if cfg.ImageDuration <= 0 {
		cfg.ImageDuration = DefaultImageDuration
	}
	if cfg.ImportImageDuration <= 0 {
		cfg.ImportImageDuration = DefaultImportImageDuration
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Executor{
		cfg:    cfg,
		logger: logger.With().Str("component", "executor").Logger(),
	}
}

// Apply runs a single action. On error the returned timeline is tl.
func (e *Executor) Apply(tl Timeline, a Action) (next Timeline, err error) {
	if a == nil {
		return tl, fmt.Errorf("%w: nil action", ErrUnsupportedAction)
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("type", string(a.Type())).Msg("action panicked")
			next, err = tl, fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	switch act := a.(type) {
	case *AddAllMedia:
		return e.addAllMedia(tl, act), nil
	case *AddMedia:
		return e.addMedia(tl, act)
	case *ClearTimeline:
		return e.clearTimeline(tl), nil
	case *SpeedUp:
		return e.changeSpeed(tl, act.ClipIndex, act.Speed)
	case *SlowDown:
		return e.changeSpeed(tl, act.ClipIndex, 1/act.Speed)
	case *TrimClip:
		return e.trimClip(tl, act)
	case *AddTransition:
		return e.addTransition(tl, act)
	case *AddText:
		return e.addText(tl, act), nil
	case *AddMultipleText:
		return e.addMultipleText(tl, act.Elements), nil
	case *AdjustAllCaptions:
		return e.adjustAllCaptions(tl, act), nil
	case *RemoveAllCaptions:
		return e.removeAllCaptions(tl), nil
	case *AddCaptions:
		return e.addCaptions(tl, act)
	case *RemoveImages:
		return e.removeImages(tl, act)
	case *AdjustAllImages:
		return e.adjustAllImages(tl, act), nil
	case *SearchAndAddImages:
		return e.searchAndAddImages(tl, act), nil
	case *TranscribeVideo:
		if act.ClipIndex >= len(tl.Media) {
			return tl, outOfRange("clip", act.ClipIndex, len(tl.Media))
		}
		return tl, nil
	case *AskImageSource, *InstructManual:
		return tl, nil
	default:
		return tl, fmt.Errorf("%w: %s", ErrUnsupportedAction, a.Type())
	}
}

// Step applies action i of a batch and reports its outcome. On failure tl is
// returned unchanged.
func (e *Executor) Step(tl Timeline, i int, a Action) (Timeline, Outcome) {
	if a == nil {
		return tl, e.failure(i, "", fmt.Errorf("%w: nil action", ErrUnsupportedAction))
	}
	next, err := e.Apply(tl, a)
	if err != nil {
		return tl, e.failure(i, a.Type(), err)
	}
	e.logger.Debug().Int("index", i).Str("type", string(a.Type())).Msg("action applied")
	return next, Outcome{Index: i, Type: a.Type(), Status: StatusApplied, Message: Describe(a)}
}

func (e *Executor) failure(i int, typ ActionType, err error) Outcome {
	e.logger.Warn().Err(err).Int("index", i).Str("type", string(typ)).Msg("action failed")
	return Outcome{
		Index:   i,
		Type:    typ,
		Status:  StatusFailed,
		Code:    Code(err),
		Message: err.Error(),
	}
}

// Describe returns the user-facing text carried by conversational actions.
func Describe(a Action) string {
	switch act := a.(type) {
	case *AskImageSource:
		return act.Context
	case *InstructManual:
		if len(act.Steps) == 0 {
			return act.Feature
		}
		var b strings.Builder
		b.WriteString(act.Feature)
		for i, s := range act.Steps {
			fmt.Fprintf(&b, "\n%d. %s", i+1, s)
		}
		return b.String()
	}
	return ""
}
