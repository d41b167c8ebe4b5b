package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"clipforge/internal/api"
	"clipforge/internal/blob"
	"clipforge/internal/cache"
	"clipforge/internal/config"
	"clipforge/internal/editor"
	"clipforge/internal/media"
	"clipforge/internal/storage"
	"clipforge/internal/streaming"
	"clipforge/internal/timeline"
)

type fixedProber struct{}

func (fixedProber) Probe(context.Context, string) (*media.Metadata, error) {
	return &media.Metadata{Duration: 10, Width: 1920, Height: 1080}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	blobs, err := blob.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	transcripts, err := cache.NewTranscriptCache(cache.TranscriptCacheConfig{Capacity: 8}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ed := editor.New(editor.Deps{
		Storage:     store,
		Blobs:       blobs,
		Importer:    media.NewImporter(blobs, fixedProber{}, store, zerolog.Nop()),
		Executor:    timeline.NewExecutor(timeline.Config{}, zerolog.Nop()),
		Transcripts: transcripts,
	}, zerolog.Nop())

	h := api.NewHandler(ed, streaming.NewHandler(blobs, zerolog.Nop()), zerolog.Nop(), 1<<20)
	h.SetSettings(api.Settings{Storage: "local", Cache: "memory"})

	ts := httptest.NewServer(New(config.Default(), zerolog.Nop(), h).Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func createProject(t *testing.T, base string) storage.Project {
	t.Helper()
	var p storage.Project
	if code := doJSON(t, http.MethodPost, base+"/api/v1/projects", map[string]string{"name": "demo"}, &p); code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	return p
}

func upload(t *testing.T, base, projectID string, names ...string) api.FilesResponse {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		fw, err := mw.CreateFormFile("file", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte("content of " + name))
	}
	mw.Close()

	resp, err := http.Post(base+"/api/v1/projects/"+projectID+"/files", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status = %d: %s", resp.StatusCode, b)
	}
	var out api.FilesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var h api.HealthResponse
	json.NewDecoder(resp.Body).Decode(&h)
	if resp.StatusCode != http.StatusOK || h.Status != "ok" || h.Version != api.Version {
		t.Errorf("health = %d %+v", resp.StatusCode, h)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestProjectLifecycle(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/v1/projects"

	var errResp api.ErrorResponse
	if code := doJSON(t, http.MethodPost, base, map[string]string{"name": "  "}, &errResp); code != http.StatusBadRequest {
		t.Errorf("blank name status = %d", code)
	}

	p := createProject(t, ts.URL)
	if p.Width != 1920 || p.Height != 1080 || p.Version != 0 {
		t.Errorf("project = %+v", p)
	}

	var list api.ProjectsResponse
	doJSON(t, http.MethodGet, base, nil, &list)
	if len(list.Projects) != 1 || list.Projects[0].ID != p.ID {
		t.Errorf("list = %+v", list)
	}

	if code := doJSON(t, http.MethodDelete, base+"/"+p.ID, nil, nil); code != http.StatusNoContent {
		t.Errorf("delete status = %d", code)
	}
	if code := doJSON(t, http.MethodGet, base+"/"+p.ID, nil, &errResp); code != http.StatusNotFound || errResp.Error.Code != "PROJECT_NOT_FOUND" {
		t.Errorf("get deleted = %d %+v", code, errResp)
	}
}

func TestUploadAndStream(t *testing.T) {
	ts := newTestServer(t)
	p := createProject(t, ts.URL)

	files := upload(t, ts.URL, p.ID, "a.mp4", "b.mp3")
	if len(files.Files) != 2 {
		t.Fatalf("files = %+v", files)
	}
	if files.Files[0].Type != timeline.MediaVideo || files.Files[1].Type != timeline.MediaAudio {
		t.Errorf("types = %s, %s", files.Files[0].Type, files.Files[1].Type)
	}

	var listed api.FilesResponse
	doJSON(t, http.MethodGet, ts.URL+"/api/v1/projects/"+p.ID+"/files", nil, &listed)
	if len(listed.Files) != 2 {
		t.Errorf("listed = %+v", listed)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/files/"+files.Files[0].ID+"/content", nil)
	req.Header.Set("Range", "bytes=0-6")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusPartialContent || string(body) != "content" {
		t.Errorf("range = %d %q", resp.StatusCode, body)
	}

	if code := doJSON(t, http.MethodGet, ts.URL+"/api/v1/files/missing/content", nil, nil); code != http.StatusNotFound {
		t.Errorf("missing file status = %d", code)
	}
}

func TestApplyActions(t *testing.T) {
	ts := newTestServer(t)
	p := createProject(t, ts.URL)
	upload(t, ts.URL, p.ID, "a.mp4")
	url := ts.URL + "/api/v1/projects/" + p.ID + "/actions"

	var res editor.Result
	code := doJSON(t, http.MethodPost, url, api.ActionsRequest{Actions: []timeline.RawAction{
		{Type: "add_all_media"},
		{Type: "explode"},
		{Type: "speed_up", Params: json.RawMessage(`{"clipIndex":7,"speed":2}`)},
	}}, &res)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if res.Version != 1 || len(res.Timeline.Media) != 1 || res.Applied() != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.Outcomes[1].Code != timeline.CodeUnsupportedAction || res.Outcomes[2].Code != timeline.CodeIndexOutOfRange {
		t.Errorf("outcomes = %+v", res.Outcomes)
	}

	var errResp api.ErrorResponse
	if code := doJSON(t, http.MethodPost, url, api.ActionsRequest{}, &errResp); code != http.StatusBadRequest {
		t.Errorf("empty batch status = %d", code)
	}

	var history api.HistoryResponse
	doJSON(t, http.MethodGet, ts.URL+"/api/v1/projects/"+p.ID+"/history", nil, &history)
	if len(history.Entries) != 1 || history.Entries[0].Source != editor.SourceUI {
		t.Errorf("history = %+v", history)
	}
}

func TestTranscribeWithoutProvider(t *testing.T) {
	ts := newTestServer(t)
	p := createProject(t, ts.URL)
	upload(t, ts.URL, p.ID, "a.mp4")
	doJSON(t, http.MethodPost, ts.URL+"/api/v1/projects/"+p.ID+"/actions",
		api.ActionsRequest{Actions: []timeline.RawAction{{Type: "add_all_media"}}}, nil)

	tests := []struct {
		path string
		code int
	}{
		{"/transcripts/0?force=true", http.StatusServiceUnavailable},
		{"/transcripts/3", http.StatusBadRequest},
		{"/transcripts/x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var errResp api.ErrorResponse
			if code := doJSON(t, http.MethodPost, ts.URL+"/api/v1/projects/"+p.ID+tt.path, nil, &errResp); code != tt.code {
				t.Errorf("status = %d, want %d (%+v)", code, tt.code, errResp)
			}
		})
	}
}

func TestExportSRT(t *testing.T) {
	ts := newTestServer(t)
	p := createProject(t, ts.URL)
	doJSON(t, http.MethodPost, ts.URL+"/api/v1/projects/"+p.ID+"/actions",
		api.ActionsRequest{Actions: []timeline.RawAction{{
			Type:   "add_text",
			Params: json.RawMessage(`{"text":"hello","start":0,"duration":2}`),
		}}}, nil)

	resp, err := http.Get(ts.URL + "/api/v1/projects/" + p.ID + "/export/srt")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "hello") {
		t.Errorf("export = %d %q", resp.StatusCode, body)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "demo.srt") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	if code := doJSON(t, http.MethodGet, ts.URL+"/api/v1/projects/"+p.ID+"/export/xml", nil, nil); code != http.StatusBadRequest {
		t.Errorf("xml status = %d", code)
	}
}

func TestProvidersUnavailable(t *testing.T) {
	ts := newTestServer(t)
	p := createProject(t, ts.URL)

	var errResp api.ErrorResponse
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/v1/projects/"+p.ID+"/chat", api.ChatRequest{Message: "hi"}, &errResp); code != http.StatusServiceUnavailable {
		t.Errorf("chat status = %d", code)
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/v1/images/search?q=cats", nil, &errResp); code != http.StatusServiceUnavailable {
		t.Errorf("search status = %d", code)
	}
}

func TestCaptionStylesAndSettings(t *testing.T) {
	ts := newTestServer(t)

	var styles api.CaptionStylesResponse
	doJSON(t, http.MethodGet, ts.URL+"/api/v1/caption-styles", nil, &styles)
	if len(styles.Styles) != len(timeline.CaptionStyles()) {
		t.Errorf("styles = %d", len(styles.Styles))
	}

	var s api.Settings
	doJSON(t, http.MethodGet, ts.URL+"/api/v1/settings", nil, &s)
	if s.Storage != "local" {
		t.Errorf("settings = %+v", s)
	}
}

func TestStyleProfiles(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/v1/styles"

	var errResp api.ErrorResponse
	if code := doJSON(t, http.MethodPost, base, map[string]any{"name": ""}, &errResp); code != http.StatusBadRequest {
		t.Errorf("blank name status = %d", code)
	}

	var sp storage.StyleProfile
	code := doJSON(t, http.MethodPost, base, storage.StyleProfile{
		Name:     "Bold",
		Captions: storage.StyleCaptions{Enabled: true, FontSize: 72, Position: "center", Color: "#FFFFFF"},
	}, &sp)
	if code != http.StatusCreated || sp.ID == "" {
		t.Fatalf("save status = %d, style = %+v", code, sp)
	}

	var list api.StyleProfilesResponse
	if code := doJSON(t, http.MethodGet, base, nil, &list); code != http.StatusOK || len(list.Styles) != 1 {
		t.Errorf("list = %d, %+v", code, list)
	}
	errResp = api.ErrorResponse{}
	if code := doJSON(t, http.MethodGet, base+"/nope", nil, &errResp); code != http.StatusNotFound || errResp.Error.Code != "STYLE_NOT_FOUND" {
		t.Errorf("missing style = %d, %+v", code, errResp)
	}

	p := createProject(t, ts.URL)
	doJSON(t, http.MethodPost, ts.URL+"/api/v1/projects/"+p.ID+"/actions", api.ActionsRequest{Actions: []timeline.RawAction{
		{Type: "add_text", Params: json.RawMessage(`{"text":"hi","start":0,"duration":2}`)},
	}}, nil)

	var applied editor.StyleResult
	code = doJSON(t, http.MethodPost, ts.URL+"/api/v1/projects/"+p.ID+"/styles/"+sp.ID+"/apply", nil, &applied)
	if code != http.StatusOK || applied.Result == nil {
		t.Fatalf("apply status = %d, result = %+v", code, applied)
	}
	if txt := applied.Result.Timeline.Texts[0]; txt.FontSize != 72 || txt.Y != timeline.CaptionCenter {
		t.Errorf("styled text = %+v", txt)
	}

	if code := doJSON(t, http.MethodPost, ts.URL+"/api/v1/projects/nope/styles/"+sp.ID+"/apply", nil, nil); code != http.StatusNotFound {
		t.Errorf("apply to missing project = %d", code)
	}
	if code := doJSON(t, http.MethodDelete, base+"/"+sp.ID, nil, nil); code != http.StatusNoContent {
		t.Errorf("delete status = %d", code)
	}
}
