package timeline

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawAction
		want    ActionType
		wantErr error
	}{
		{"no params", RawAction{Type: "add_all_media"}, TypeAddAllMedia, nil},
		{"null params", RawAction{Type: "clear_timeline", Params: json.RawMessage(`null`)}, TypeClearTimeline, nil},
		{"speed", RawAction{Type: "speed_up", Params: json.RawMessage(`{"clipIndex":1,"speed":1.5}`)}, TypeSpeedUp, nil},
		{"zero speed", RawAction{Type: "slow_down", Params: json.RawMessage(`{"clipIndex":1,"speed":0}`)}, "", ErrInvalidParams},
		{"restore", RawAction{Type: "trim_clip", Params: json.RawMessage(`{"clipIndex":0,"restore":true}`)}, TypeTrimClip, nil},
		{"empty trim", RawAction{Type: "trim_clip", Params: json.RawMessage(`{"clipIndex":0}`)}, "", ErrInvalidParams},
		{"negative trim", RawAction{Type: "trim_clip", Params: json.RawMessage(`{"clipIndex":0,"startTrim":-1}`)}, "", ErrInvalidParams},
		{"wrong field type", RawAction{Type: "speed_up", Params: json.RawMessage(`{"clipIndex":"two"}`)}, "", ErrInvalidParams},
		{"unknown", RawAction{Type: "make_it_pop"}, "", ErrUnsupportedAction},
		{"remove images needs target", RawAction{Type: "remove_images", Params: json.RawMessage(`{}`)}, "", ErrInvalidParams},
		{"negative image index", RawAction{Type: "remove_images", Params: json.RawMessage(`{"index":-1}`)}, "", ErrIndexOutOfRange},
		{"empty text", RawAction{Type: "add_text", Params: json.RawMessage(`{"text":" ","start":0,"duration":2}`)}, "", ErrInvalidParams},
		{"unknown caption style", RawAction{Type: "add_captions", Params: json.RawMessage(`{"clipIndex":0,"styleId":"comic_sans"}`)}, "", ErrInvalidParams},
		{"too many images", RawAction{Type: "search_and_add_images", Params: json.RawMessage(`{"query":"sunset","count":50}`)}, "", ErrInvalidParams},
		{"bad transition", RawAction{Type: "add_transition", Params: json.RawMessage(`{"type":"spin"}`)}, "", ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Type() != tt.want {
				t.Errorf("Type() = %q, want %q", got.Type(), tt.want)
			}
		})
	}
}

func TestDecode_Defaults(t *testing.T) {
	a, err := Decode(RawAction{Type: "search_and_add_images", Params: json.RawMessage(`{"query":"mountains"}`)})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := a.(*SearchAndAddImages).Count; got != DefaultImageCount {
		t.Errorf("Count = %d, want %d", got, DefaultImageCount)
	}

	a, err = Decode(RawAction{Type: "add_captions", Params: json.RawMessage(`{"clipIndex":0}`)})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := a.(*AddCaptions).StyleID; got != DefaultCaptionStyle {
		t.Errorf("StyleID = %q, want %q", got, DefaultCaptionStyle)
	}

	a, err = Decode(RawAction{Type: "add_transition", Params: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	tr := a.(*AddTransition)
	if tr.Kind != DefaultTransitionType || tr.Duration != DefaultTransitionDuration {
		t.Errorf("transition = %+v", tr)
	}
}

func TestDecode_TrimPointersDistinguishZero(t *testing.T) {
	a, err := Decode(RawAction{Type: "trim_clip", Params: json.RawMessage(`{"clipIndex":0,"startTrim":0,"endTrim":4}`)})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	trim := a.(*TrimClip)
	if trim.StartTrim == nil || *trim.StartTrim != 0 {
		t.Errorf("StartTrim = %v, want explicit zero", trim.StartTrim)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	raw, err := Encode(&TrimClip{ClipIndex: 2, NewDuration: ptr(5.0)})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	a, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	trim := a.(*TrimClip)
	if trim.ClipIndex != 2 || trim.NewDuration == nil || *trim.NewDuration != 5 {
		t.Errorf("decoded = %+v", trim)
	}
}

func TestMediaTypeFromMIME(t *testing.T) {
	tests := []struct {
		mime, name string
		want       MediaType
	}{
		{"image/png", "", MediaImage},
		{"audio/mpeg", "", MediaAudio},
		{"video/mp4", "", MediaVideo},
		{"", "photo.JPG", MediaImage},
		{"", "clip.mov", MediaVideo},
		{"application/octet-stream", "", MediaVideo},
	}
	for _, tt := range tests {
		if got := MediaTypeFromMIME(tt.mime, tt.name); got != tt.want {
			t.Errorf("MediaTypeFromMIME(%q, %q) = %s, want %s", tt.mime, tt.name, got, tt.want)
		}
	}
}
