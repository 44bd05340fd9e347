// Package extract reads presentation documents into ordered text segments.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/denniheim/notemaker/internal/content"
)

// Kind is the document format, resolved once from the file extension.
type Kind string

const (
	KindPDF       Kind = "pdf"
	KindSlideDeck Kind = "slidedeck"
)

// UnsupportedFormatError is returned when the file extension does not map
// to a known document kind.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file extension: %q", e.Ext)
}

// ExtractionError wraps any failure of the underlying reader (corrupt file,
// password-protected, no readable structure).
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// KindForFile resolves the document kind from a filename extension.
func KindForFile(filename string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return KindPDF, nil
	case ".pptx":
		return KindSlideDeck, nil
	default:
		return "", &UnsupportedFormatError{Ext: ext}
	}
}

// Extract reads the document at path into segments, one per page or slide,
// in source order. Empty pages and slides are retained so segment numbering
// stays faithful to the document.
func Extract(ctx context.Context, path string, kind Kind) (content.Content, error) {
	switch kind {
	case KindPDF:
		return extractPDF(ctx, path)
	case KindSlideDeck:
		return extractDeck(ctx, path)
	default:
		return content.Content{}, &UnsupportedFormatError{Ext: string(kind)}
	}
}
