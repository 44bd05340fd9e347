package extract

import (
	"context"
	"errors"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/denniheim/notemaker/internal/content"
)

// extractPDF produces one segment per page. The body is the page text in
// layout order; tables are detected best-effort from row geometry and the
// page degrades to plain text when nothing tabular is found.
func extractPDF(ctx context.Context, path string) (content.Content, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return content.Content{}, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	numPages := reader.NumPage()
	if numPages == 0 {
		return content.Content{}, &ExtractionError{Path: path, Err: errors.New("document has no pages")}
	}

	var c content.Content
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return content.Content{}, &ExtractionError{Path: path, Err: err}
		}

		seg := content.Segment{Index: i}
		page := reader.Page(i)
		if !page.V.IsNull() {
			if text, err := page.GetPlainText(nil); err == nil {
				seg.Body = strings.TrimSpace(text)
			}
			if rows, err := page.GetTextByRow(); err == nil {
				seg.Tables = detectTables(rows)
			}
		}
		c.Segments = append(c.Segments, seg)
	}
	return c, nil
}

// Horizontal gap (in text-space units) between runs that starts a new cell.
const cellGap = 14.0

// detectTables groups page rows into tables. Rows whose text runs are
// separated by wide horizontal gaps are split into cells; two or more
// consecutive rows with the same cell count form a table.
func detectTables(rows pdflib.Rows) []content.Table {
	var cellRows [][]string
	for _, row := range rows {
		if row == nil {
			continue
		}
		cellRows = append(cellRows, splitRowCells(row.Content))
	}
	return groupTables(cellRows)
}

// splitRowCells partitions one row's text runs into cells at wide gaps.
func splitRowCells(texts []pdflib.Text) []string {
	var cells []string
	var cell strings.Builder
	prevEnd := 0.0

	for i, t := range texts {
		if i > 0 && t.X-prevEnd > cellGap && strings.TrimSpace(cell.String()) != "" {
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		}
		cell.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	if strings.TrimSpace(cell.String()) != "" {
		cells = append(cells, strings.TrimSpace(cell.String()))
	}
	return cells
}

// groupTables collects runs of consecutive multi-cell rows with a matching
// cell count into tables. A lone multi-cell row is not a table.
func groupTables(rows [][]string) []content.Table {
	var tables []content.Table
	var current content.Table

	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, cells := range rows {
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(current) > 0 && len(current[len(current)-1]) != len(cells) {
			flush()
		}
		current = append(current, cells)
	}
	flush()
	return tables
}
