// Package render turns composed contracts into downloadable documents.
package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"ahlan-reserve/internal/contract"
	"ahlan-reserve/internal/domain"
)

const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

	rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

	stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:docDefaults>
<w:rPrDefault><w:rPr><w:rFonts w:ascii="Times New Roman" w:hAnsi="Times New Roman" w:cs="Times New Roman"/><w:sz w:val="24"/><w:szCs w:val="24"/></w:rPr></w:rPrDefault>
<w:pPrDefault><w:pPr><w:spacing w:after="0" w:line="276" w:lineRule="auto"/><w:jc w:val="both"/></w:pPr></w:pPrDefault>
</w:docDefaults>
</w:styles>`

	documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

	// A4 with 2cm margins.
	documentTail = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1134" w:right="850" w:bottom="1134" w:left="1134" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr></w:body></w:document>`
)

// paragraphStyle is the presentation of one block kind. Sizes are in
// half-points, spacing and indents in twips.
type paragraphStyle struct {
	center bool
	bold   bool
	size   int
	before int
	after  int
	indent int
}

var blockStyles = map[contract.BlockKind]paragraphStyle{
	contract.Heading:      {center: true, bold: true, size: 32},
	contract.SectionTitle: {bold: true, before: 240, after: 120},
	contract.Clause:       {indent: 360},
	contract.PartyLabel:   {bold: true, before: 360},
	contract.Body:         {},
}

// DOCX packages blocks as a WordprocessingML document, one paragraph per block.
func DOCX(blocks []contract.Block) ([]byte, error) {
	var body strings.Builder
	body.WriteString(documentHead)
	for _, b := range blocks {
		if err := writeParagraph(&body, b); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrContractRender, err)
		}
	}
	body.WriteString(documentTail)

	parts := []struct {
		name string
		data string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML},
		{"word/document.xml", body.String()},
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", domain.ErrContractRender, p.name, err)
		}
		if _, err := w.Write([]byte(p.data)); err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", domain.ErrContractRender, p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: close docx: %v", domain.ErrContractRender, err)
	}
	return buf.Bytes(), nil
}

func writeParagraph(sb *strings.Builder, b contract.Block) error {
	if b.Kind == contract.Blank {
		sb.WriteString("<w:p/>")
		return nil
	}

	style := blockStyles[b.Kind]

	sb.WriteString("<w:p><w:pPr>")
	if style.before > 0 || style.after > 0 {
		fmt.Fprintf(sb, `<w:spacing w:before="%d" w:after="%d"/>`, style.before, style.after)
	}
	if style.indent > 0 {
		fmt.Fprintf(sb, `<w:ind w:left="%d"/>`, style.indent)
	}
	if style.center {
		sb.WriteString(`<w:jc w:val="center"/>`)
	}
	sb.WriteString("</w:pPr><w:r>")

	if style.bold || style.size > 0 {
		sb.WriteString("<w:rPr>")
		if style.bold {
			sb.WriteString("<w:b/><w:bCs/>")
		}
		if style.size > 0 {
			fmt.Fprintf(sb, `<w:sz w:val="%d"/><w:szCs w:val="%d"/>`, style.size, style.size)
		}
		sb.WriteString("</w:rPr>")
	}

	sb.WriteString(`<w:t xml:space="preserve">`)
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(b.Text)); err != nil {
		return err
	}
	sb.Write(escaped.Bytes())
	sb.WriteString("</w:t></w:r></w:p>")
	return nil
}
