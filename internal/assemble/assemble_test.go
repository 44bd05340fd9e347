package assemble

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/denniheim/notemaker/internal/sandbox"
)

func newTestBox(t *testing.T) (*sandbox.Box, string, string) {
	t.Helper()
	outDir := t.TempDir()
	copyDir := t.TempDir()
	box, err := sandbox.New(map[sandbox.Root]string{
		sandbox.RootOutput: outDir,
		sandbox.RootCopy:   copyDir,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return box, outDir, copyDir
}

func TestNoteFilename(t *testing.T) {
	cases := []struct {
		source, lang, want string
	}{
		{"Intro.pptx", "nynorsk", "Intro_nynorsk.md"},
		{"Lecture 3.pdf", "ENGLISH", "Lecture 3_english.md"},
		{"dir/Nested.pptx", "bokmal", "Nested_bokmal.md"},
	}
	for _, c := range cases {
		got := Assemble("x", c.source, c.lang).Filename()
		if got != c.want {
			t.Errorf("Filename(%q, %q): expected %q, got %q", c.source, c.lang, c.want, got)
		}
	}
}

func TestWriteNote_DeterministicOverwrite(t *testing.T) {
	box, outDir, _ := newTestBox(t)

	first, err := WriteNote(box, Assemble("first text", "Intro.pptx", "nynorsk"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := WriteNote(box, Assemble("second text", "Intro.pptx", "nynorsk"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("expected same path on repeat conversion, got %q then %q", first, second)
	}
	if want := filepath.Join(outDir, "Intro_nynorsk.md"); first != want {
		t.Errorf("expected %q, got %q", want, first)
	}
	data, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("read note: %v", err)
	}
	if string(data) != "second text" {
		t.Errorf("expected second run's text, got %q", string(data))
	}
}

func TestWriteNote_CreatesSubdirectory(t *testing.T) {
	box, outDir, _ := newTestBox(t)

	got, err := WriteNote(box, Assemble("t", "Intro.pptx", "english"), "notes/week1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(outDir, "notes", "week1", "Intro_english.md"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestWriteNote_EscapeRejected(t *testing.T) {
	box, _, _ := newTestBox(t)

	_, err := WriteNote(box, Assemble("t", "Intro.pptx", "nynorsk"), "../outside")
	var pv *sandbox.PathViolationError
	if !errors.As(err, &pv) {
		t.Fatalf("expected PathViolationError, got %v", err)
	}
}

func TestArchiveCopy_CollisionSuffixes(t *testing.T) {
	box, _, copyDir := newTestBox(t)

	src := filepath.Join(t.TempDir(), "Intro.pptx")
	if err := os.WriteFile(src, []byte("deck bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	first, err := ArchiveCopy(box, src, "Intro.pptx", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(copyDir, "Intro.pptx"); first != want {
		t.Errorf("expected %q, got %q", want, first)
	}

	second, err := ArchiveCopy(box, src, "Intro.pptx", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(copyDir, "Intro (1).pptx"); second != want {
		t.Errorf("expected %q, got %q", want, second)
	}

	third, err := ArchiveCopy(box, src, "Intro.pptx", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(copyDir, "Intro (2).pptx"); third != want {
		t.Errorf("expected %q, got %q", want, third)
	}

	// First copy must be untouched and byte-identical to the source.
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read first copy: %v", err)
	}
	if string(data) != "deck bytes" {
		t.Errorf("first copy modified: %q", string(data))
	}
}

func TestArchiveCopy_SkipsExistingSuffixes(t *testing.T) {
	box, _, copyDir := newTestBox(t)

	src := filepath.Join(t.TempDir(), "Intro.pptx")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	for _, name := range []string{"Intro.pptx", "Intro (1).pptx", "Intro (2).pptx"} {
		if err := os.WriteFile(filepath.Join(copyDir, name), []byte("old"), 0o644); err != nil {
			t.Fatalf("precreate %s: %v", name, err)
		}
	}

	got, err := ArchiveCopy(box, src, "Intro.pptx", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(copyDir, "Intro (3).pptx"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestArchiveCopy_NamingExhausted(t *testing.T) {
	box, _, copyDir := newTestBox(t)

	src := filepath.Join(t.TempDir(), "Intro.pptx")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	old := maxNameAttempts
	maxNameAttempts = 2
	defer func() { maxNameAttempts = old }()

	for _, name := range []string{"Intro.pptx", "Intro (1).pptx", "Intro (2).pptx"} {
		if err := os.WriteFile(filepath.Join(copyDir, name), []byte("old"), 0o644); err != nil {
			t.Fatalf("precreate %s: %v", name, err)
		}
	}

	_, err := ArchiveCopy(box, src, "Intro.pptx", "")
	var ne *NamingExhaustedError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NamingExhaustedError, got %v", err)
	}
	if ne.Name != "Intro.pptx" {
		t.Errorf("expected name Intro.pptx, got %q", ne.Name)
	}
}

func TestArchiveCopy_UnconfiguredCopyRoot(t *testing.T) {
	box, err := sandbox.New(map[sandbox.Root]string{sandbox.RootOutput: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = ArchiveCopy(box, "whatever", "Intro.pptx", "")
	var rnc *sandbox.RootNotConfiguredError
	if !errors.As(err, &rnc) {
		t.Fatalf("expected RootNotConfiguredError, got %v", err)
	}
}

func TestPlace_NoteAndCopy(t *testing.T) {
	box, outDir, copyDir := newTestBox(t)

	src := filepath.Join(t.TempDir(), "Intro.pptx")
	if err := os.WriteFile(src, []byte("deck"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	placement, err := Place(box, Assemble("note body", "Intro.pptx", "nynorsk"), PlaceOptions{
		CopySource: true,
		SourcePath: src,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(outDir, "Intro_nynorsk.md"); placement.NotePath != want {
		t.Errorf("expected note path %q, got %q", want, placement.NotePath)
	}
	if want := filepath.Join(copyDir, "Intro.pptx"); placement.CopiedPath != want {
		t.Errorf("expected copied path %q, got %q", want, placement.CopiedPath)
	}
	if placement.NoteText != "note body" {
		t.Errorf("expected note text passthrough, got %q", placement.NoteText)
	}
}

func TestPlace_WithoutCopy(t *testing.T) {
	box, _, _ := newTestBox(t)

	placement, err := Place(box, Assemble("note", "Intro.pdf", "english"), PlaceOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if placement.CopiedPath != "" {
		t.Errorf("expected no copied path, got %q", placement.CopiedPath)
	}
}
