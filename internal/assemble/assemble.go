// Package assemble turns model output into a placed Markdown note and
// optionally archives the source file, all through the path sandbox.
package assemble

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/denniheim/notemaker/internal/sandbox"
)

// Note is a generated study note before placement.
type Note struct {
	Text        string
	SourceName  string
	LanguageKey string
}

// Placement records the filesystem side effects actually committed.
type Placement struct {
	NotePath   string
	NoteText   string
	CopiedPath string
}

// NamingExhaustedError is returned when no free archive filename was found
// within the attempt cap.
type NamingExhaustedError struct {
	Name string
}

func (e *NamingExhaustedError) Error() string {
	return fmt.Sprintf("no free archive name found for %q", e.Name)
}

// Cap on the collision-avoidance search so a pathological directory cannot
// loop forever. A var so tests can lower it.
var maxNameAttempts = 10000

// Assemble wraps model output into a note tied to its source and language.
func Assemble(text, sourceName, languageKey string) Note {
	return Note{Text: text, SourceName: sourceName, LanguageKey: languageKey}
}

// Filename derives the note filename: source stem plus the lower-cased
// language key. Repeat conversions map to the same name on purpose.
func (n Note) Filename() string {
	stem := strings.TrimSuffix(filepath.Base(n.SourceName), filepath.Ext(n.SourceName))
	return fmt.Sprintf("%s_%s.md", stem, strings.ToLower(n.LanguageKey))
}

// PlaceOptions controls where a note and its archived source go.
type PlaceOptions struct {
	// OutputDir is relative to the output root.
	OutputDir string
	// CopySource archives the original file under the copy root.
	CopySource bool
	// CopyDir is relative to the copy root.
	CopyDir string
	// SourcePath is the absolute path of the original file to archive.
	SourcePath string
}

// Place writes the note under the output root (deterministic overwrite) and,
// when requested, copies the source under the copy root with a
// collision-avoiding name. Sandbox failures propagate unchanged.
func Place(box *sandbox.Box, note Note, opts PlaceOptions) (Placement, error) {
	notePath, err := WriteNote(box, note, opts.OutputDir)
	if err != nil {
		return Placement{}, err
	}

	placement := Placement{NotePath: notePath, NoteText: note.Text}
	if opts.CopySource {
		copied, err := ArchiveCopy(box, opts.SourcePath, note.SourceName, opts.CopyDir)
		if err != nil {
			return Placement{}, err
		}
		placement.CopiedPath = copied
	}
	return placement, nil
}

// WriteNote writes the note file through the sandbox. The write is a
// whole-file create; a repeat conversion overwrites the previous note.
func WriteNote(box *sandbox.Box, note Note, outputDir string) (string, error) {
	abs, err := box.Resolve(sandbox.RootOutput, path.Join(outputDir, note.Filename()))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(abs, []byte(note.Text), 0o644); err != nil {
		return "", fmt.Errorf("write note: %w", err)
	}
	return abs, nil
}

// ArchiveCopy copies the source file into the copy root under its original
// name, appending " (n)" before the extension until a free name is found.
// An existing archived copy is never overwritten.
func ArchiveCopy(box *sandbox.Box, sourcePath, originalName, copyDir string) (string, error) {
	base := filepath.Base(originalName)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for n := 0; n <= maxNameAttempts; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		abs, err := box.Resolve(sandbox.RootCopy, path.Join(copyDir, name))
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return "", fmt.Errorf("create copy directory: %w", err)
		}

		switch err := copyExclusive(sourcePath, abs); {
		case err == nil:
			return abs, nil
		case os.IsExist(err):
			continue
		default:
			return "", fmt.Errorf("archive copy: %w", err)
		}
	}
	return "", &NamingExhaustedError{Name: base}
}

// copyExclusive creates dst only if it does not exist yet, then copies src
// into it. O_EXCL keeps two concurrent archives from clobbering each other.
func copyExclusive(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
