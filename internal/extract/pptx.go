package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/denniheim/notemaker/internal/content"
)

var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractDeck produces one segment per slide. The heading comes from the
// title placeholder, the body from the remaining text frames rendered as
// indented bullets, and table shapes become table entries with trimmed cells.
func extractDeck(ctx context.Context, path string) (content.Content, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return content.Content{}, &ExtractionError{Path: path, Err: err}
	}
	defer zr.Close()

	var slides []*zip.File
	hasPresentation := false
	for _, f := range zr.File {
		if f.Name == "ppt/presentation.xml" {
			hasPresentation = true
		}
		if slidePartRe.MatchString(f.Name) {
			slides = append(slides, f)
		}
	}
	if !hasPresentation {
		return content.Content{}, &ExtractionError{Path: path, Err: errors.New("not a slide deck: missing ppt/presentation.xml")}
	}

	slices.SortFunc(slides, func(a, b *zip.File) int {
		return slideNumber(a.Name) - slideNumber(b.Name)
	})

	var c content.Content
	for i, part := range slides {
		if err := ctx.Err(); err != nil {
			return content.Content{}, &ExtractionError{Path: path, Err: err}
		}

		seg, err := readSlide(part)
		if err != nil {
			return content.Content{}, &ExtractionError{Path: path, Err: fmt.Errorf("%s: %w", part.Name, err)}
		}
		seg.Index = i + 1
		c.Segments = append(c.Segments, seg)
	}
	return c, nil
}

func slideNumber(name string) int {
	m := slidePartRe.FindStringSubmatch(name)
	if len(m) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// Minimal views of the PresentationML slide part. encoding/xml matches on
// local names, so the p:/a: namespace prefixes are irrelevant here.
type slideXML struct {
	CSld struct {
		SpTree struct {
			Shapes []shapeXML        `xml:"sp"`
			Frames []graphicFrameXML `xml:"graphicFrame"`
		} `xml:"spTree"`
	} `xml:"cSld"`
}

type shapeXML struct {
	NvSpPr struct {
		NvPr struct {
			Ph *struct {
				Type string `xml:"type,attr"`
			} `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
	TxBody *txBodyXML `xml:"txBody"`
}

type txBodyXML struct {
	Paragraphs []paragraphXML `xml:"p"`
}

type paragraphXML struct {
	PPr *struct {
		Lvl int `xml:"lvl,attr"`
	} `xml:"pPr"`
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

type graphicFrameXML struct {
	Graphic struct {
		GraphicData struct {
			Tbl *tableXML `xml:"tbl"`
		} `xml:"graphicData"`
	} `xml:"graphic"`
}

type tableXML struct {
	Rows []struct {
		Cells []struct {
			TxBody *txBodyXML `xml:"txBody"`
		} `xml:"tc"`
	} `xml:"tr"`
}

func readSlide(part *zip.File) (content.Segment, error) {
	rc, err := part.Open()
	if err != nil {
		return content.Segment{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return content.Segment{}, err
	}

	var slide slideXML
	if err := xml.Unmarshal(data, &slide); err != nil {
		return content.Segment{}, fmt.Errorf("parse slide xml: %w", err)
	}

	var seg content.Segment
	var bodyLines []string

	for _, sp := range slide.CSld.SpTree.Shapes {
		if sp.TxBody == nil {
			continue
		}
		if isTitlePlaceholder(sp) {
			// Only the first title becomes the heading; further title
			// placeholders never become body text.
			if seg.Heading == "" {
				seg.Heading = strings.TrimSpace(textFrameText(sp.TxBody))
			}
			continue
		}
		bodyLines = append(bodyLines, bulletLines(sp.TxBody)...)
	}
	seg.Body = strings.Join(bodyLines, "\n")

	for _, frame := range slide.CSld.SpTree.Frames {
		tbl := frame.Graphic.GraphicData.Tbl
		if tbl == nil {
			continue
		}
		var rows content.Table
		for _, tr := range tbl.Rows {
			var cells []string
			for _, tc := range tr.Cells {
				cells = append(cells, strings.TrimSpace(textFrameText(tc.TxBody)))
			}
			rows = append(rows, cells)
		}
		if len(rows) > 0 {
			seg.Tables = append(seg.Tables, rows)
		}
	}

	return seg, nil
}

func isTitlePlaceholder(sp shapeXML) bool {
	ph := sp.NvSpPr.NvPr.Ph
	if ph == nil {
		return false
	}
	return ph.Type == "title" || ph.Type == "ctrTitle"
}

// textFrameText joins paragraph texts with newlines, mirroring how slide
// text frames are read by the desktop tools this feeds.
func textFrameText(body *txBodyXML) string {
	if body == nil {
		return ""
	}
	var lines []string
	for _, p := range body.Paragraphs {
		if t := paragraphText(p); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}

// bulletLines renders non-title paragraphs as bullets, two spaces of indent
// per outline level, preserving the slide's visual hierarchy.
func bulletLines(body *txBodyXML) []string {
	var lines []string
	for _, p := range body.Paragraphs {
		text := paragraphText(p)
		if text == "" {
			continue
		}
		level := 0
		if p.PPr != nil {
			level = p.PPr.Lvl
		}
		lines = append(lines, strings.Repeat("  ", level)+"- "+text)
	}
	return lines
}

func paragraphText(p paragraphXML) string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return strings.TrimSpace(sb.String())
}
