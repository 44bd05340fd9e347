// Package extracttest builds minimal synthetic .pptx files for tests.
package extracttest

import (
	"archive/zip"
	"fmt"
	"os"
	"strings"
)

// Slide describes one slide of a synthetic deck.
type Slide struct {
	Title string
	// ExtraTitle adds a second title placeholder to the same slide.
	ExtraTitle string
	Bullets    []string
	Table      [][]string
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>
</Types>`

const presentationXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"/>`

// WriteDeck writes a synthetic pptx containing the given slides to path.
func WriteDeck(path string, slides []Slide) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	parts := map[string]string{
		"[Content_Types].xml":  contentTypesXML,
		"ppt/presentation.xml": presentationXML,
	}
	for i, slide := range slides {
		parts[fmt.Sprintf("ppt/slides/slide%d.xml", i+1)] = slideXML(slide)
	}
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte(body)); err != nil {
			return err
		}
	}
	return zw.Close()
}

func slideXML(slide Slide) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	sb.WriteString(`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`)
	sb.WriteString(`<p:cSld><p:spTree>`)

	if slide.Title != "" {
		sb.WriteString(`<p:sp><p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>`)
		sb.WriteString(`<p:txBody>` + paragraph(slide.Title) + `</p:txBody></p:sp>`)
	}
	if slide.ExtraTitle != "" {
		sb.WriteString(`<p:sp><p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>`)
		sb.WriteString(`<p:txBody>` + paragraph(slide.ExtraTitle) + `</p:txBody></p:sp>`)
	}
	if len(slide.Bullets) > 0 {
		sb.WriteString(`<p:sp><p:nvSpPr><p:nvPr/></p:nvSpPr><p:txBody>`)
		for _, b := range slide.Bullets {
			sb.WriteString(paragraph(b))
		}
		sb.WriteString(`</p:txBody></p:sp>`)
	}
	if len(slide.Table) > 0 {
		sb.WriteString(`<p:graphicFrame><a:graphic><a:graphicData><a:tbl>`)
		for _, row := range slide.Table {
			sb.WriteString(`<a:tr>`)
			for _, cell := range row {
				sb.WriteString(`<a:tc><a:txBody>` + paragraph(cell) + `</a:txBody></a:tc>`)
			}
			sb.WriteString(`</a:tr>`)
		}
		sb.WriteString(`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`)
	}

	sb.WriteString(`</p:spTree></p:cSld></p:sld>`)
	return sb.String()
}

func paragraph(text string) string {
	return `<a:p><a:r><a:t>` + escapeXML(text) + `</a:t></a:r></a:p>`
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
