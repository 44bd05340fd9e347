package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/denniheim/notemaker/internal/content"
	"github.com/denniheim/notemaker/internal/llm"
)

// ErrNoContent is returned when the extracted document renders to nothing.
var ErrNoContent = errors.New("no text content found in document")

// Compose builds the model request for one conversion: the preset's system
// prompt plus the rendered document interpolated into its user template.
func Compose(c content.Content, preset Preset, model string) (llm.Request, error) {
	rendered := Render(c)
	if strings.TrimSpace(rendered) == "" {
		return llm.Request{}, ErrNoContent
	}
	return llm.Request{
		Model:  model,
		System: preset.SystemPrompt,
		User:   strings.ReplaceAll(preset.UserTemplate, ContentPlaceholder, rendered),
	}, nil
}

// Render turns extracted content into the structural blocks fed to the
// model. Empty segments are skipped, but numbering always reflects source
// position, so the remaining blocks keep their original indices.
func Render(c content.Content) string {
	var blocks []string
	for _, seg := range c.Segments {
		if seg.Empty() {
			continue
		}
		blocks = append(blocks, renderSegment(seg))
	}
	return strings.Join(blocks, "\n\n")
}

func renderSegment(seg content.Segment) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%d]", seg.Index))
	if seg.Heading != "" {
		sb.WriteString(" " + seg.Heading)
	}
	if seg.Body != "" {
		sb.WriteString("\n" + seg.Body)
	}
	for _, tbl := range seg.Tables {
		if rendered := renderTable(tbl); rendered != "" {
			sb.WriteString("\n" + rendered)
		}
	}
	return sb.String()
}

// renderTable emits a Markdown pipe table. The first row is treated as the
// header; short rows are padded so every line has the same width.
func renderTable(tbl content.Table) string {
	if len(tbl) == 0 {
		return ""
	}
	width := 0
	for _, row := range tbl {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return ""
	}

	var lines []string
	for i, row := range tbl {
		cells := make([]string, width)
		for j := range cells {
			if j < len(row) {
				cells[j] = strings.ReplaceAll(strings.TrimSpace(row[j]), "|", "\\|")
			}
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
		if i == 0 {
			sep := make([]string, width)
			for j := range sep {
				sep[j] = "---"
			}
			lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
		}
	}
	return strings.Join(lines, "\n")
}
