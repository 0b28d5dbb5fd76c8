package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractDocx reads a modern Word document: body paragraphs in document
// order, then table rows with cells joined by " | ".
func (e *Extractor) extractDocx(path string) string {
	text, err := readDocxFile(path)
	if err != nil {
		return fmt.Sprintf("[unsupported format: .docx] %v", err)
	}
	return text
}

// readDocxFile opens the file as an OOXML container and walks
// word/document.xml. Also used as the last method of the legacy .doc chain,
// since some .doc files are disguised containers.
func readDocxFile(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("not an OOXML container: %w", err)
	}
	defer zr.Close()

	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("open document part: %w", err)
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("container has no word/document.xml")
	}
	defer doc.Close()

	return parseDocumentXML(doc)
}

// parseDocumentXML walks WordprocessingML tokens. Body-level paragraphs come
// first; tables are collected separately and appended after, one line per
// row.
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		out       []string
		tableRows []string

		para     strings.Builder
		cell     strings.Builder
		row      []string
		inPara   bool
		tblDepth int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
			case "tr":
				if tblDepth > 0 {
					row = row[:0]
				}
			case "tc":
				if tblDepth > 0 {
					cell.Reset()
				}
			case "p":
				if tblDepth == 0 {
					inPara = true
					para.Reset()
				}
			case "t":
				var s string
				if err := dec.DecodeElement(&s, &t); err != nil {
					continue
				}
				if tblDepth > 0 {
					cell.WriteString(s)
				} else if inPara {
					para.WriteString(s)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if tblDepth > 0 {
					tblDepth--
				}
			case "tr":
				if tblDepth > 0 {
					tableRows = append(tableRows, strings.Join(row, " | "))
				}
			case "tc":
				if tblDepth > 0 {
					row = append(row, strings.TrimSpace(cell.String()))
				}
			case "p":
				if tblDepth == 0 && inPara {
					out = append(out, para.String())
					inPara = false
				}
			}
		}
	}

	out = append(out, tableRows...)
	return strings.Join(out, "\n"), nil
}
