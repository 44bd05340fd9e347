package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/denniheim/notemaker/internal/pipeline"
	"github.com/denniheim/notemaker/internal/sandbox"
)

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	type languageInfo struct {
		Key   string `json:"key"`
		Label string `json:"label"`
	}
	languages := make([]languageInfo, 0, len(s.presets))
	for _, p := range s.presets {
		languages = append(languages, languageInfo{Key: p.Key, Label: p.Label})
	}

	paths := map[string]string{}
	for _, root := range []sandbox.Root{sandbox.RootInput, sandbox.RootOutput, sandbox.RootCopy} {
		if dir, ok := s.box.Dir(root); ok {
			paths[string(root)] = dir
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"models":          s.cfg.Models,
		"defaultModel":    s.cfg.DefaultModel,
		"languages":       languages,
		"defaultLanguage": s.cfg.DefaultLanguage,
		"paths":           paths,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := pipeline.Request{
		Model:      formOr(r, "model", s.cfg.DefaultModel),
		Language:   formOr(r, "language", s.cfg.DefaultLanguage),
		OutputDir:  r.FormValue("output_dir"),
		CopyDir:    r.FormValue("copy_dir"),
		CopySource: boolFromForm(r.FormValue("copy")),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		req.SourceName = sanitizeFilename(header.Filename)

		tmpPath, err := spoolUpload(file, req.SourceName, s.cfg.MaxUploadBytes)
		if err != nil {
			jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		defer os.Remove(tmpPath)
		req.SourcePath = tmpPath

	case r.FormValue("path") != "":
		req.InputPath = r.FormValue("path")
		req.SourceName = filepath.Base(req.InputPath)

	default:
		jsonError(w, "either a file upload or a path is required", http.StatusBadRequest)
		return
	}

	result, fail := s.conv.Convert(r.Context(), req)
	if fail != nil {
		writeJSON(w, statusForKind(fail.Kind), map[string]string{
			"stage": string(fail.Stage),
			"kind":  string(fail.Kind),
			"error": fail.Message,
		})
		return
	}

	noteName := filepath.Base(result.NotePath)
	resp := map[string]any{
		"noteName":    noteName,
		"notePath":    result.NotePath,
		"noteText":    result.NoteText,
		"downloadUrl": "/api/notes/" + noteName,
	}
	if result.CopiedPath != "" {
		resp["copiedPath"] = result.CopiedPath
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	root := sandbox.Root(r.URL.Query().Get("root"))
	switch root {
	case sandbox.RootInput, sandbox.RootOutput, sandbox.RootCopy:
	default:
		jsonError(w, "unknown root", http.StatusBadRequest)
		return
	}

	rel := r.URL.Query().Get("path")
	if rel == "" {
		rel = "."
	}

	listing, err := s.box.List(root, rel)
	if err != nil {
		jsonError(w, err.Error(), statusForListError(err))
		return
	}
	if listing.Entries == nil {
		listing.Entries = []sandbox.Entry{}
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleNoteDownload(w http.ResponseWriter, r *http.Request) {
	path, ok := s.resolveNote(w, chi.URLParam(r, "name"))
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	http.ServeFile(w, r, path)
}

func (s *Server) handleNotePreview(w http.ResponseWriter, r *http.Request) {
	path, ok := s.resolveNote(w, chi.URLParam(r, "name"))
	if !ok {
		return
	}

	source, err := os.ReadFile(path)
	if err != nil {
		jsonError(w, "read note", http.StatusInternalServerError)
		return
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(source, &buf); err != nil {
		jsonError(w, "render note", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// resolveNote maps a note name onto the output root, rejecting anything
// that is not a plain filename.
func (s *Server) resolveNote(w http.ResponseWriter, name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		jsonError(w, "invalid note name", http.StatusBadRequest)
		return "", false
	}
	path, err := s.box.Resolve(sandbox.RootOutput, name)
	if err != nil {
		jsonError(w, err.Error(), statusForListError(err))
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		jsonError(w, "note not found", http.StatusNotFound)
		return "", false
	}
	return path, true
}

// spoolUpload writes the uploaded file to a temp file so the extractor can
// read it by path. Keeps the original extension for kind detection.
func spoolUpload(file io.Reader, filename string, maxBytes int64) (string, error) {
	tmp, err := os.CreateTemp("", "notemaker-*"+filepath.Ext(filename))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, io.LimitReader(file, maxBytes+1))
	tmp.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("read upload: %w", err)
	}
	if n > maxBytes {
		os.Remove(tmpPath)
		return "", fmt.Errorf("file exceeds max size (%d bytes)", maxBytes)
	}
	return tmpPath, nil
}

func statusForKind(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindInvalidRequest, pipeline.KindUnsupportedFormat, pipeline.KindPathViolation:
		return http.StatusBadRequest
	case pipeline.KindExtractionFailed:
		return http.StatusUnprocessableEntity
	case pipeline.KindRootNotConfigured:
		return http.StatusServiceUnavailable
	case pipeline.KindRateLimited:
		return http.StatusTooManyRequests
	case pipeline.KindTimeout:
		return http.StatusGatewayTimeout
	case pipeline.KindAuthentication, pipeline.KindModelError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func statusForListError(err error) int {
	var (
		pathErr     *sandbox.PathViolationError
		rootErr     *sandbox.RootNotConfiguredError
		notFoundErr *sandbox.NotFoundError
	)
	switch {
	case errors.As(err, &pathErr):
		return http.StatusBadRequest
	case errors.As(err, &rootErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func formOr(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func boolFromForm(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
