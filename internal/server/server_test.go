package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"clipforge/internal/archive"
	"clipforge/internal/assets"
	"clipforge/internal/jobs"
	"clipforge/internal/presets"
	"clipforge/internal/server"
	"clipforge/internal/storage"
	"clipforge/internal/transform"
)

// fakeEngine records specs and plays back scripted results.
type fakeEngine struct {
	mu            sync.Mutex
	streamed      []transform.Spec
	ran           []transform.Spec
	streamPayload []byte
	streamErr     error
	runEvents     func(spec transform.Spec) []transform.Event
}

func (f *fakeEngine) Stream(ctx context.Context, spec transform.Spec, w io.Writer) error {
	f.mu.Lock()
	f.streamed = append(f.streamed, spec)
	f.mu.Unlock()
	if f.streamErr != nil {
		return f.streamErr
	}
	_, err := w.Write(f.streamPayload)
	return err
}

func (f *fakeEngine) Run(ctx context.Context, spec transform.Spec) <-chan transform.Event {
	f.mu.Lock()
	f.ran = append(f.ran, spec)
	f.mu.Unlock()

	events := make(chan transform.Event, 8)
	go func() {
		defer close(events)
		if f.runEvents == nil {
			events <- transform.Event{Kind: transform.EventCompleted, Percent: 100, OutputPath: spec.OutputPath}
			return
		}
		for _, event := range f.runEvents(spec) {
			events <- event
		}
	}()
	return events
}

// fakeExtractor materializes clip files without an engine.
type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, source string, r archive.Range, outputPath string) error {
	return os.WriteFile(outputPath, []byte("clip"), 0o644)
}

type testEnv struct {
	server  *server.Server
	engine  *fakeEngine
	tracker *jobs.Tracker
	uploads string
	bgm     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	base := t.TempDir()
	uploads := filepath.Join(base, "uploads")
	outputs := filepath.Join(base, "outputs")
	work := filepath.Join(base, "work")
	bgm := filepath.Join(base, "bgm")
	for _, dir := range []string{uploads, outputs, work, bgm} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	store, err := jobs.OpenStore(filepath.Join(base, "jobs.db"))
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	engine := &fakeEngine{streamPayload: []byte("mp4bytes")}
	tracker := jobs.NewTracker(store, nil)

	srv := server.New(server.Options{
		Bind:            "127.0.0.1:0",
		Uploads:         storage.NewUploadStore(uploads, nil),
		Outputs:         storage.NewOutputStore(outputs),
		Runner:          engine,
		Tracker:         tracker,
		Pipeline:        archive.NewPipeline(fakeExtractor{}, work, nil),
		Picker:          assets.NewPicker(bgm),
		Presets:         presets.NewStore(filepath.Join(base, "presets.json")),
		Inspect:         func(ctx context.Context, path string) (float64, error) { return 120, nil },
		PreviewDuration: 5,
	})
	return &testEnv{server: srv, engine: engine, tracker: tracker, uploads: uploads, bgm: bgm}
}

func (e *testEnv) upload(t *testing.T, name, content string) string {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if resp["id"] == "" {
		t.Fatal("upload returned empty id")
	}
	return resp["id"]
}

func TestUploadAndPreview(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, "holiday.mp4", "fake video")

	url := fmt.Sprintf("/api/preview?id=%s&start=10&brightness=0.2&noiseReduction=1", url.QueryEscape(id))
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("preview failed: %d %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("unexpected content type %q", got)
	}
	if rec.Body.String() != "mp4bytes" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}

	if len(env.engine.streamed) != 1 {
		t.Fatalf("expected one stream call, got %d", len(env.engine.streamed))
	}
	spec := env.engine.streamed[0]
	if spec.Mode != transform.ModePreview || spec.StartOffset != 10 || spec.Duration != 5 {
		t.Fatalf("unexpected preview spec: %+v", spec)
	}
	if spec.Graph.VideoFilter() != "eq=brightness=0.2" {
		t.Fatalf("options not applied: %q", spec.Graph.VideoFilter())
	}
}

func TestPreviewUnknownIDIs404(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/preview?id=nope.mp4", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPreviewBadOptionIs400(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, "clip.mp4", "x")
	req := httptest.NewRequest(http.MethodGet, "/api/preview?id="+url.QueryEscape(id)+"&contrast=loud", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExportRunsJobToCompletion(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, "clip.mp4", "x")

	env.engine.runEvents = func(spec transform.Spec) []transform.Event {
		return []transform.Event{
			{Kind: transform.EventProgress, Percent: 40},
			{Kind: transform.EventProgress, Percent: 80},
			{Kind: transform.EventCompleted, Percent: 100, OutputPath: spec.OutputPath},
		}
	}

	body, _ := json.Marshal(map[string]any{
		"id":      id,
		"options": map[string]any{"cropResize": true},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/export", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("export failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode export response: %v", err)
	}
	jobID := resp["jobId"]
	if jobID == "" {
		t.Fatal("export returned empty jobId")
	}

	snap := waitForTerminal(t, env, jobID)
	if snap.Status != jobs.StatusCompleted || snap.Percent != 100 {
		t.Fatalf("unexpected terminal snapshot: %+v", snap)
	}
	if !strings.HasPrefix(snap.DownloadURL, "/api/download/") {
		t.Fatalf("missing download url: %+v", snap)
	}

	if len(env.engine.ran) != 1 {
		t.Fatalf("expected one run call, got %d", len(env.engine.ran))
	}
	spec := env.engine.ran[0]
	if spec.Mode != transform.ModeExport || spec.SourceDuration != 120 {
		t.Fatalf("unexpected export spec: %+v", spec)
	}
}

func TestExportFailureReportsError(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, "clip.mp4", "x")

	env.engine.runEvents = func(spec transform.Spec) []transform.Event {
		return []transform.Event{
			{Kind: transform.EventProgress, Percent: 20},
			{Kind: transform.EventFailed, Err: fmt.Errorf("engine exited: moov atom not found")},
		}
	}

	body, _ := json.Marshal(map[string]any{"id": id, "options": map[string]any{}})
	req := httptest.NewRequest(http.MethodPost, "/api/export", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("export failed: %d", rec.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)

	snap := waitForTerminal(t, env, resp["jobId"])
	if snap.Status != jobs.StatusError {
		t.Fatalf("expected error status, got %+v", snap)
	}
	if !strings.Contains(snap.Error, "moov atom") {
		t.Fatalf("error detail lost: %+v", snap)
	}
	if snap.DownloadURL != "" {
		t.Fatalf("failed job must not expose a download: %+v", snap)
	}
}

func TestSplitReturnsDownloadURL(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, "clip.mp4", "x")

	body, _ := json.Marshal(map[string]any{
		"id": id,
		"ranges": []map[string]float64{
			{"start": 0, "end": 5},
			{"start": 10, "end": 12},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/split", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("split failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode split response: %v", err)
	}
	downloadURL := resp["downloadUrl"]
	if !strings.HasSuffix(downloadURL, ".zip") {
		t.Fatalf("unexpected download url %q", downloadURL)
	}

	dlReq := httptest.NewRequest(http.MethodGet, downloadURL, nil)
	dlRec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(dlRec, dlReq)
	if dlRec.Code != http.StatusOK {
		t.Fatalf("archive download failed: %d", dlRec.Code)
	}
}

func TestSplitInvalidRangeIs400(t *testing.T) {
	env := newTestEnv(t)
	id := env.upload(t, "clip.mp4", "x")

	body, _ := json.Marshal(map[string]any{
		"id":     id,
		"ranges": []map[string]float64{{"start": 9, "end": 3}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/split", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDownloadBlocksTraversal(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/download/..%2F..%2Fetc%2Fpasswd", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		t.Fatalf("traversal must not serve files, got %d", rec.Code)
	}
}

func TestJobSnapshotUnknownIDIsQueued(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/ghost", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var snap jobs.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Status != jobs.StatusQueued || snap.Percent != 0 {
		t.Fatalf("unexpected default snapshot: %+v", snap)
	}
}

func TestPresetsRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(map[string]any{
		"name":    "night footage",
		"options": map[string]any{"brightness": 0.15, "noiseReduction": true},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/presets", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create preset failed: %d %s", rec.Code, rec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/presets", nil)
	listRec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list presets failed: %d", listRec.Code)
	}
	var resp struct {
		Presets []presets.Preset `json:"presets"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode presets: %v", err)
	}
	if len(resp.Presets) != 1 || resp.Presets[0].Name != "night footage" {
		t.Fatalf("unexpected presets: %+v", resp.Presets)
	}
	if !resp.Presets[0].Options.NoiseReduction {
		t.Fatalf("options lost: %+v", resp.Presets[0].Options)
	}
}

func waitForTerminal(t *testing.T, env *testEnv, jobID string) jobs.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := env.tracker.Snapshot(context.Background(), jobID)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.Status.Terminal() {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return jobs.Snapshot{}
}
