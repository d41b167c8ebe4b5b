package timeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type ActionType string

const (
	TypeAddAllMedia        ActionType = "add_all_media"
	TypeAddMedia           ActionType = "add_media"
	TypeClearTimeline      ActionType = "clear_timeline"
	TypeSpeedUp            ActionType = "speed_up"
	TypeSlowDown           ActionType = "slow_down"
	TypeTrimClip           ActionType = "trim_clip"
	TypeAddTransition      ActionType = "add_transition"
	TypeAddText            ActionType = "add_text"
	TypeAddMultipleText    ActionType = "add_multiple_text"
	TypeAdjustAllCaptions  ActionType = "adjust_all_captions"
	TypeRemoveAllCaptions  ActionType = "remove_all_captions"
	TypeAddCaptions        ActionType = "add_captions"
	TypeTranscribeVideo    ActionType = "transcribe_video"
	TypeRemoveImages       ActionType = "remove_images"
	TypeAdjustAllImages    ActionType = "adjust_all_images"
	TypeSearchAndAddImages ActionType = "search_and_add_images"
	TypeAskImageSource     ActionType = "ask_image_source"
	TypeInstructManual     ActionType = "instruct_manual"
)

const (
	DefaultImageCount = 3
	MaxImageCount     = 10

	DefaultTransitionType     = "fade"
	DefaultTransitionDuration = 0.5
)

var transitionTypes = map[string]bool{
	"fade":     true,
	"dissolve": true,
	"wipe":     true,
	"slide":    true,
}

// RawAction is the wire form of an action as produced by the UI or the LLM.
type RawAction struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Action is one member of the closed edit vocabulary. Values are produced by
// Decode and are always valid with respect to their own parameters.
type Action interface {
	Type() ActionType
	Validate() error
}

// AddAllMedia lays out every media element back to back. Pending holds
// library files not yet on the timeline; the caller fills it in and they are
// appended before layout.
type AddAllMedia struct {
	Pending []LibraryFile `json:"-"`
}

// AddMedia places the Index-th library file on the timeline. File is filled
// in by the caller before commit.
type AddMedia struct {
	Index int          `json:"index"`
	File  *LibraryFile `json:"-"`
}

// LibraryFile is a resolved reference to an imported binary.
type LibraryFile struct {
	FileID   string
	Name     string
	MIMEType string
	Duration float64
}

type ClearTimeline struct{}

type SpeedUp struct {
	ClipIndex int     `json:"clipIndex"`
	Speed     float64 `json:"speed"`
}

type SlowDown struct {
	ClipIndex int     `json:"clipIndex"`
	Speed     float64 `json:"speed"`
}

type TrimClip struct {
	ClipIndex   int      `json:"clipIndex"`
	Restore     bool     `json:"restore,omitempty"`
	StartTrim   *float64 `json:"startTrim,omitempty"`
	EndTrim     *float64 `json:"endTrim,omitempty"`
	NewDuration *float64 `json:"newDuration,omitempty"`
}

// AddTransition marks ClipIndex (or every clip but the last when nil) with a
// transition into the following clip.
type AddTransition struct {
	ClipIndex *int    `json:"clipIndex,omitempty"`
	Kind      string  `json:"type"`
	Duration  float64 `json:"duration,omitempty"`
}

type AddText struct {
	Text     string    `json:"text"`
	Start    float64   `json:"start"`
	Duration float64   `json:"duration"`
	Style    TextStyle `json:"style"`
}

type AddMultipleText struct {
	Elements []TextElement `json:"elements"`
}

type AdjustAllCaptions struct {
	FontSize        *float64 `json:"fontSize,omitempty"`
	Y               *float64 `json:"y,omitempty"`
	Color           *string  `json:"color,omitempty"`
	BackgroundColor *string  `json:"backgroundColor,omitempty"`
}

type RemoveAllCaptions struct{}

// AddCaptions turns the transcript of a clip into styled captions. Segments
// are supplied by the caller before commit.
type AddCaptions struct {
	ClipIndex       int              `json:"clipIndex"`
	StyleID         string           `json:"styleId,omitempty"`
	MaxWordsPerLine int              `json:"maxWordsPerLine,omitempty"`
	Segments        []CaptionSegment `json:"-"`
}

type TranscribeVideo struct {
	ClipIndex int  `json:"clipIndex"`
	Force     bool `json:"force,omitempty"`
}

type RemoveImages struct {
	All   bool `json:"all,omitempty"`
	Index *int `json:"index,omitempty"`
}

type AdjustAllImages struct {
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	Width   *float64 `json:"width,omitempty"`
	Height  *float64 `json:"height,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
}

type KeywordTimestamp struct {
	Keyword   string  `json:"keyword"`
	Timestamp float64 `json:"timestamp"`
}

// ResolvedImage is an image that has already been downloaded into binary storage.
type ResolvedImage struct {
	FileID string
	URL    string
	Alt    string
	Source string
}

type SearchAndAddImages struct {
	Query    string             `json:"query"`
	Count    int                `json:"count,omitempty"`
	Keywords []KeywordTimestamp `json:"keywords,omitempty"`
	Images   []ResolvedImage    `json:"-"`
}

type AskImageSource struct {
	Context string `json:"context"`
}

type InstructManual struct {
	Feature string   `json:"feature"`
	Steps   []string `json:"steps"`
}

func (*AddAllMedia) Type() ActionType        { return TypeAddAllMedia }
func (*AddMedia) Type() ActionType           { return TypeAddMedia }
func (*ClearTimeline) Type() ActionType      { return TypeClearTimeline }
func (*SpeedUp) Type() ActionType            { return TypeSpeedUp }
func (*SlowDown) Type() ActionType           { return TypeSlowDown }
func (*TrimClip) Type() ActionType           { return TypeTrimClip }
func (*AddTransition) Type() ActionType      { return TypeAddTransition }
func (*AddText) Type() ActionType            { return TypeAddText }
func (*AddMultipleText) Type() ActionType    { return TypeAddMultipleText }
func (*AdjustAllCaptions) Type() ActionType  { return TypeAdjustAllCaptions }
func (*RemoveAllCaptions) Type() ActionType  { return TypeRemoveAllCaptions }
func (*AddCaptions) Type() ActionType        { return TypeAddCaptions }
func (*TranscribeVideo) Type() ActionType    { return TypeTranscribeVideo }
func (*RemoveImages) Type() ActionType       { return TypeRemoveImages }
func (*AdjustAllImages) Type() ActionType    { return TypeAdjustAllImages }
func (*SearchAndAddImages) Type() ActionType { return TypeSearchAndAddImages }
func (*AskImageSource) Type() ActionType     { return TypeAskImageSource }
func (*InstructManual) Type() ActionType     { return TypeInstructManual }

func (*AddAllMedia) Validate() error       { return nil }
func (*ClearTimeline) Validate() error     { return nil }
func (*RemoveAllCaptions) Validate() error { return nil }
func (*AskImageSource) Validate() error    { return nil }
func (*InstructManual) Validate() error    { return nil }

func (a *AddMedia) Validate() error {
	if a.Index < 0 {
		return outOfRange("library index", a.Index, 0)
	}
	return nil
}

func (a *SpeedUp) Validate() error  { return validateSpeed(a.Speed) }
func (a *SlowDown) Validate() error { return validateSpeed(a.Speed) }

func validateSpeed(speed float64) error {
	if !finite(speed) || speed <= 0 {
		return invalidf("speed must be positive, got %v", speed)
	}
	return nil
}

func (a *TrimClip) Validate() error {
	if a.Restore {
		return nil
	}
	if a.StartTrim == nil && a.EndTrim == nil && a.NewDuration == nil {
		return invalidf("trim_clip needs restore, startTrim, endTrim or newDuration")
	}
	for name, v := range map[string]*float64{
		"startTrim":   a.StartTrim,
		"endTrim":     a.EndTrim,
		"newDuration": a.NewDuration,
	} {
		if v != nil && (!finite(*v) || *v < 0) {
			return invalidf("%s must be a non-negative number, got %v", name, *v)
		}
	}
	if a.StartTrim != nil && a.EndTrim != nil && *a.EndTrim <= *a.StartTrim {
		return invalidf("endTrim %v must be greater than startTrim %v", *a.EndTrim, *a.StartTrim)
	}
	if a.StartTrim == nil && a.EndTrim != nil && *a.EndTrim < MinDuration {
		return invalidf("endTrim %v is shorter than %v", *a.EndTrim, MinDuration)
	}
	if a.StartTrim == nil && a.EndTrim == nil && *a.NewDuration < MinDuration {
		return invalidf("newDuration %v is shorter than %v", *a.NewDuration, MinDuration)
	}
	return nil
}

func (a *AddTransition) Validate() error {
	if a.Kind == "" {
		a.Kind = DefaultTransitionType
	}
	a.Kind = strings.ToLower(a.Kind)
	if !transitionTypes[a.Kind] {
		return invalidf("unknown transition type %q", a.Kind)
	}
	if a.Duration == 0 {
		a.Duration = DefaultTransitionDuration
	}
	if !finite(a.Duration) || a.Duration < 0 {
		return invalidf("transition duration must be positive, got %v", a.Duration)
	}
	if a.ClipIndex != nil && *a.ClipIndex < 0 {
		return outOfRange("clip", *a.ClipIndex, 0)
	}
	return nil
}

func (a *AddText) Validate() error {
	if strings.TrimSpace(a.Text) == "" {
		return invalidf("text is required")
	}
	if !finite(a.Start) || a.Start < 0 {
		return invalidf("start must be non-negative, got %v", a.Start)
	}
	if !finite(a.Duration) || a.Duration < MinDuration {
		return invalidf("duration must be at least %v, got %v", MinDuration, a.Duration)
	}
	return nil
}

func (a *AddMultipleText) Validate() error {
	for i, el := range a.Elements {
		if el.Duration() < MinDuration {
			return invalidf("element %d has duration %v", i, el.Duration())
		}
	}
	return nil
}

func (a *AdjustAllCaptions) Validate() error {
	if a.FontSize != nil && (!finite(*a.FontSize) || *a.FontSize <= 0) {
		return invalidf("fontSize must be positive, got %v", *a.FontSize)
	}
	return nil
}

func (a *AddCaptions) Validate() error {
	if a.ClipIndex < 0 {
		return outOfRange("clip", a.ClipIndex, 0)
	}
	if a.StyleID == "" {
		a.StyleID = DefaultCaptionStyle
	}
	if _, ok := LookupCaptionStyle(a.StyleID); !ok {
		return invalidf("unknown caption style %q", a.StyleID)
	}
	if a.MaxWordsPerLine < 0 {
		return invalidf("maxWordsPerLine must be positive, got %d", a.MaxWordsPerLine)
	}
	return nil
}

func (a *TranscribeVideo) Validate() error {
	if a.ClipIndex < 0 {
		return outOfRange("clip", a.ClipIndex, 0)
	}
	return nil
}

func (a *RemoveImages) Validate() error {
	if !a.All && a.Index == nil {
		return invalidf("remove_images needs all or index")
	}
	if !a.All && *a.Index < 0 {
		return outOfRange("image", *a.Index, 0)
	}
	return nil
}

func (a *AdjustAllImages) Validate() error {
	for name, v := range map[string]*float64{"width": a.Width, "height": a.Height} {
		if v != nil && (!finite(*v) || *v <= 0) {
			return invalidf("%s must be positive, got %v", name, *v)
		}
	}
	return nil
}

func (a *SearchAndAddImages) Validate() error {
	if strings.TrimSpace(a.Query) == "" {
		return invalidf("query is required")
	}
	if a.Count == 0 {
		a.Count = DefaultImageCount
	}
	if a.Count < 0 || a.Count > MaxImageCount {
		return invalidf("count must be between 1 and %d, got %d", MaxImageCount, a.Count)
	}
	for i, k := range a.Keywords {
		if !finite(k.Timestamp) || k.Timestamp < 0 {
			return invalidf("keyword %d has negative timestamp %v", i, k.Timestamp)
		}
	}
	return nil
}

// Decode validates a wire action and returns its typed form.
func Decode(raw RawAction) (Action, error) {
	var a Action
	switch ActionType(raw.Type) {
	case TypeAddAllMedia:
		a = &AddAllMedia{}
	case TypeAddMedia:
		a = &AddMedia{}
	case TypeClearTimeline:
		a = &ClearTimeline{}
	case TypeSpeedUp:
		a = &SpeedUp{}
	case TypeSlowDown:
		a = &SlowDown{}
	case TypeTrimClip:
		a = &TrimClip{}
	case TypeAddTransition:
		a = &AddTransition{}
	case TypeAddText:
		a = &AddText{}
	case TypeAddMultipleText:
		a = &AddMultipleText{}
	case TypeAdjustAllCaptions:
		a = &AdjustAllCaptions{}
	case TypeRemoveAllCaptions:
		a = &RemoveAllCaptions{}
	case TypeAddCaptions:
		a = &AddCaptions{}
	case TypeTranscribeVideo:
		a = &TranscribeVideo{}
	case TypeRemoveImages:
		a = &RemoveImages{}
	case TypeAdjustAllImages:
		a = &AdjustAllImages{}
	case TypeSearchAndAddImages:
		a = &SearchAndAddImages{}
	case TypeAskImageSource:
		a = &AskImageSource{}
	case TypeInstructManual:
		a = &InstructManual{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, raw.Type)
	}

	if len(raw.Params) > 0 && string(raw.Params) != "null" {
		if err := json.Unmarshal(raw.Params, a); err != nil {
			return nil, invalidf("%s: %v", raw.Type, err)
		}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Encode is the inverse of Decode.
func Encode(a Action) (RawAction, error) {
	params, err := json.Marshal(a)
	if err != nil {
		return RawAction{}, err
	}
	return RawAction{Type: string(a.Type()), Params: params}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
