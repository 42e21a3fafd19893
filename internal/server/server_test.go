package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/argusworks/argus/internal/imagestore"
	"github.com/argusworks/argus/internal/notify"
	"github.com/argusworks/argus/internal/turn"
	"github.com/argusworks/argus/pkg/audio"
	audiomock "github.com/argusworks/argus/pkg/audio/mock"
	"github.com/argusworks/argus/pkg/audio/wav"
)

// fakeRunner records Run calls and returns scripted results.
type fakeRunner struct {
	mu     sync.Mutex
	answer string
	err    error
	modes  []string
}

func (f *fakeRunner) Run(_ context.Context, mode string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, mode)
	return f.answer, f.err
}

// fakeSounds records one-shot sound plays.
type fakeSounds struct {
	mu     sync.Mutex
	played []string
}

func (f *fakeSounds) PlayOnce(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, id)
}

func newTestServer(t *testing.T) (*Server, *fakeRunner, *fakeSounds, *imagestore.Store) {
	t.Helper()
	images, err := imagestore.New(filepath.Join(t.TempDir(), "received_image.jpg"))
	if err != nil {
		t.Fatalf("imagestore.New: %v", err)
	}
	runner := &fakeRunner{answer: "Das ist ein Apfel."}
	sounds := &fakeSounds{}
	s, err := New(runner, images, sounds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, runner, sounds, images
}

// multipartUpload builds a multipart request body with the given form fields
// and an optional file part.
func multipartUpload(t *testing.T, status string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if status != "" {
		if err := mw.WriteField("status", status); err != nil {
			t.Fatal(err)
		}
	}
	if image != nil {
		fw, err := mw.CreateFormFile("file", "image.jpg")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(image); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestUpload_Success(t *testing.T) {
	s, runner, _, images := newTestServer(t)
	h := s.Handler()

	jpeg := []byte("\xff\xd8fake-jpeg")
	body, contentType := multipartUpload(t, "Analyze_Text", jpeg)
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decodeBody(t, rec)
	if resp["answer"] != "Das ist ein Apfel." {
		t.Errorf("answer = %q", resp["answer"])
	}

	if len(runner.modes) != 1 || runner.modes[0] != "Analyze_Text" {
		t.Errorf("runner modes = %v", runner.modes)
	}

	stored, err := images.Read()
	if err != nil {
		t.Fatalf("stored image: %v", err)
	}
	if !bytes.Equal(stored, jpeg) {
		t.Error("stored image does not match upload")
	}
}

func TestUpload_MissingStatus(t *testing.T) {
	s, runner, _, _ := newTestServer(t)
	h := s.Handler()

	body, contentType := multipartUpload(t, "", []byte("img"))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(runner.modes) != 0 {
		t.Error("runner must not be called without a status")
	}
}

func TestUpload_MissingFile(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	h := s.Handler()

	body, contentType := multipartUpload(t, "Chatbot", nil)
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	h := s.Handler()

	req := httptest.NewRequest("POST", "/upload", strings.NewReader("status=Chatbot"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpload_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"busy", turn.ErrBusy, http.StatusConflict},
		{"unknown mode", turn.ErrUnknownMode, http.StatusBadRequest},
		{"no image", imagestore.ErrNoImage, http.StatusNotFound},
		{"remote failure", &turn.RemoteError{Op: "completion", Err: errors.New("boom")}, http.StatusBadGateway},
		{"device failure", errors.New("sink write failed"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, runner, _, _ := newTestServer(t)
			runner.err = tc.err
			h := s.Handler()

			body, contentType := multipartUpload(t, "Analyze_Object", []byte("img"))
			req := httptest.NewRequest("POST", "/upload", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body)
			}
			resp := decodeBody(t, rec)
			if resp["status"] != "error" {
				t.Errorf("status field = %q", resp["status"])
			}
		})
	}
}

func TestViewImage(t *testing.T) {
	s, _, _, images := newTestServer(t)
	h := s.Handler()

	req := httptest.NewRequest("GET", "/view_image", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before any upload", rec.Code)
	}

	jpeg := []byte("\xff\xd8fake-jpeg")
	if err := images.Save(bytes.NewReader(jpeg)); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/view_image", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	got, _ := io.ReadAll(rec.Body)
	if !bytes.Equal(got, jpeg) {
		t.Error("served image does not match stored image")
	}
}

func TestMode(t *testing.T) {
	s, _, sounds, _ := newTestServer(t)
	h := s.Handler()

	form := url.Values{"mode": {"Chatbot"}}
	req := httptest.NewRequest("POST", "/mode", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if len(sounds.played) != 1 || sounds.played[0] != "Chatbot" {
		t.Errorf("played = %v", sounds.played)
	}
}

// TestMode_ResolvesSoundAsset drives /mode through a real notification
// controller over a mock device, pinning the asset naming: the handler passes
// the bare mode and the controller resolves System_<mode> on disk.
func TestMode_ResolvesSoundAsset(t *testing.T) {
	dir := t.TempDir()
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	w, err := wav.Create(filepath.Join(dir, "System_Idle.wav"), audio.Format{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}
	if err := w.Append(pcm); err != nil {
		t.Fatalf("append asset: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close asset: %v", err)
	}

	dev := &audiomock.OutputDevice{}
	ctrl, err := notify.New(dev, dir)
	if err != nil {
		t.Fatalf("notify.New: %v", err)
	}
	images, err := imagestore.New(filepath.Join(t.TempDir(), "received_image.jpg"))
	if err != nil {
		t.Fatalf("imagestore.New: %v", err)
	}
	s, err := New(&fakeRunner{}, images, ctrl)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h := s.Handler()

	form := url.Values{"mode": {"Idle"}}
	req := httptest.NewRequest("POST", "/mode", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	sinks := dev.SinkList()
	if len(sinks) != 1 {
		t.Fatalf("expected the mode cue to play once, got %d playbacks", len(sinks))
	}
	if got := sinks[0].Bytes(); !bytes.Equal(got, pcm) {
		t.Errorf("played PCM %v, want %v", got, pcm)
	}
}

func TestMode_Missing(t *testing.T) {
	s, _, sounds, _ := newTestServer(t)
	h := s.Handler()

	req := httptest.NewRequest("POST", "/mode", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(sounds.played) != 0 {
		t.Error("no sound should play for a bad request")
	}
}

func TestHealthzRoute(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, nil, nil); err == nil {
		t.Fatal("expected error for nil dependencies")
	}
}
