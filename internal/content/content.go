// Package content holds the intermediate representation produced by
// document extraction and consumed by prompt composition.
package content

import "strings"

// Table is an ordered list of rows, each an ordered list of cell strings.
type Table [][]string

// Segment is one page or slide worth of extracted content. Index is
// 1-based and follows source order; empty segments are kept so numbering
// stays faithful to the document.
type Segment struct {
	Index   int
	Heading string
	Body    string
	Tables  []Table
}

// Empty reports whether the segment carries no text and no tables.
func (s Segment) Empty() bool {
	return strings.TrimSpace(s.Heading) == "" && strings.TrimSpace(s.Body) == "" && len(s.Tables) == 0
}

// Content is the full extraction result for one document.
type Content struct {
	Segments []Segment
}

// Empty reports whether every segment is empty.
func (c Content) Empty() bool {
	for _, s := range c.Segments {
		if !s.Empty() {
			return false
		}
	}
	return true
}
