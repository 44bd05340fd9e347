package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/denniheim/notemaker/internal/config"
	"github.com/denniheim/notemaker/internal/pipeline"
	"github.com/denniheim/notemaker/internal/prompt"
	"github.com/denniheim/notemaker/internal/sandbox"
)

type stubConverter struct {
	lastReq pipeline.Request
	result  pipeline.Result
	fail    *pipeline.Failure
}

func (s *stubConverter) Convert(ctx context.Context, req pipeline.Request) (pipeline.Result, *pipeline.Failure) {
	s.lastReq = req
	return s.result, s.fail
}

func newTestServer(t *testing.T, conv *stubConverter) (*Server, string) {
	t.Helper()
	outDir := t.TempDir()
	box, err := sandbox.New(map[sandbox.Root]string{
		sandbox.RootInput:  t.TempDir(),
		sandbox.RootOutput: outDir,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := config.Config{
		Models:          []string{"gpt-5.1"},
		DefaultModel:    "gpt-5.1",
		DefaultLanguage: "nynorsk",
		MaxUploadBytes:  1 << 20,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(conv, box, prompt.Builtin(), log, cfg), outDir
}

func TestHandleOptions(t *testing.T) {
	srv, _ := newTestServer(t, &stubConverter{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/options", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Models          []string `json:"models"`
		DefaultModel    string   `json:"defaultModel"`
		DefaultLanguage string   `json:"defaultLanguage"`
		Languages       []struct {
			Key   string `json:"key"`
			Label string `json:"label"`
		} `json:"languages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.DefaultModel != "gpt-5.1" || body.DefaultLanguage != "nynorsk" {
		t.Errorf("unexpected defaults: %+v", body)
	}
	if len(body.Languages) != 3 {
		t.Errorf("expected 3 languages, got %d", len(body.Languages))
	}
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, fileBytes []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(fileBytes); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleGenerate_Upload(t *testing.T) {
	conv := &stubConverter{result: pipeline.Result{
		NotePath: "/out/Intro_nynorsk.md",
		NoteText: "# Notat",
	}}
	srv, _ := newTestServer(t, conv)

	body, contentType := multipartUpload(t, map[string]string{
		"language": "nynorsk",
		"copy":     "on",
	}, "Intro.pptx", []byte("deck bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if conv.lastReq.SourceName != "Intro.pptx" {
		t.Errorf("expected source name Intro.pptx, got %q", conv.lastReq.SourceName)
	}
	if conv.lastReq.Model != "gpt-5.1" {
		t.Errorf("expected default model, got %q", conv.lastReq.Model)
	}
	if !conv.lastReq.CopySource {
		t.Errorf("expected copy flag to be set")
	}
	if conv.lastReq.SourcePath == "" {
		t.Errorf("expected spooled source path")
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["noteName"] != "Intro_nynorsk.md" {
		t.Errorf("expected noteName Intro_nynorsk.md, got %v", resp["noteName"])
	}
	if resp["downloadUrl"] != "/api/notes/Intro_nynorsk.md" {
		t.Errorf("unexpected downloadUrl: %v", resp["downloadUrl"])
	}
}

func TestHandleGenerate_ExistingPath(t *testing.T) {
	conv := &stubConverter{result: pipeline.Result{NotePath: "/out/Intro_english.md", NoteText: "x"}}
	srv, _ := newTestServer(t, conv)

	body, contentType := multipartUpload(t, map[string]string{
		"path":     "lectures/Intro.pptx",
		"language": "english",
	}, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if conv.lastReq.InputPath != "lectures/Intro.pptx" {
		t.Errorf("expected input path, got %q", conv.lastReq.InputPath)
	}
	if conv.lastReq.SourceName != "Intro.pptx" {
		t.Errorf("expected source name Intro.pptx, got %q", conv.lastReq.SourceName)
	}
}

func TestHandleGenerate_MissingSource(t *testing.T) {
	srv, _ := newTestServer(t, &stubConverter{})

	body, contentType := multipartUpload(t, map[string]string{"language": "nynorsk"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleGenerate_FailurePayload(t *testing.T) {
	conv := &stubConverter{fail: &pipeline.Failure{
		Stage:   pipeline.StageInvoking,
		Kind:    pipeline.KindRateLimited,
		Message: "rate limited",
	}}
	srv, _ := newTestServer(t, conv)

	body, contentType := multipartUpload(t, nil, "Intro.pptx", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["stage"] != "invoking" || resp["kind"] != "rate_limited" {
		t.Errorf("unexpected failure payload: %v", resp)
	}
}

func TestHandleBrowse(t *testing.T) {
	srv, _ := newTestServer(t, &stubConverter{})
	inputDir, _ := srv.box.Dir(sandbox.RootInput)
	if err := os.WriteFile(filepath.Join(inputDir, "deck.pptx"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/browse?root=input", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var listing sandbox.Listing
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listing.Entries) != 1 || listing.Entries[0].Name != "deck.pptx" {
		t.Errorf("unexpected listing: %+v", listing)
	}
}

func TestHandleBrowse_MissingDirectory(t *testing.T) {
	srv, _ := newTestServer(t, &stubConverter{})
	inputDir, _ := srv.box.Dir(sandbox.RootInput)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/browse?root=input&path=no-such-dir", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if bytes.Contains(rec.Body.Bytes(), []byte(inputDir)) {
		t.Errorf("response leaks the host directory: %s", rec.Body.String())
	}
}

func TestHandleBrowse_UnknownRoot(t *testing.T) {
	srv, _ := newTestServer(t, &stubConverter{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/browse?root=secrets", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleNoteDownload(t *testing.T) {
	srv, outDir := newTestServer(t, &stubConverter{})
	if err := os.WriteFile(filepath.Join(outDir, "Intro_nynorsk.md"), []byte("# Notat"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notes/Intro_nynorsk.md", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "# Notat" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestHandleNoteDownload_TraversalRejected(t *testing.T) {
	srv, _ := newTestServer(t, &stubConverter{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notes/..%2Fsecret.md", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleNotePreview(t *testing.T) {
	srv, outDir := newTestServer(t, &stubConverter{})
	note := "# Heading\n\n| a | b |\n| --- | --- |\n| c | d |\n"
	if err := os.WriteFile(filepath.Join(outDir, "Intro_nynorsk.md"), []byte(note), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notes/Intro_nynorsk.md/preview", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	html := rec.Body.String()
	if !bytes.Contains([]byte(html), []byte("<h1")) {
		t.Errorf("expected rendered heading, got: %s", html)
	}
	if !bytes.Contains([]byte(html), []byte("<table")) {
		t.Errorf("expected rendered table, got: %s", html)
	}
}
