package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const documentPart = "word/document.xml"

// extractDOCX reads word/document.xml and returns paragraph text in document
// order, one paragraph per line.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Reason: ReasonCorrupt, Err: err}
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", &ExtractionError{
			Format: FormatDOCX,
			Reason: ReasonUnsupported,
			Err:    fmt.Errorf("%s not found", documentPart),
		}
	}

	rc, err := part.Open()
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Reason: ReasonCorrupt, Err: err}
	}
	defer rc.Close()

	paragraphs, err := readParagraphs(rc)
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Reason: ReasonCorrupt, Err: err}
	}
	return strings.Join(paragraphs, "\n"), nil
}

// readParagraphs emits paragraphs in the order they open. A paragraph nested
// inside another (text boxes) gets its own line and does not end the outer
// one. mc:Fallback subtrees repeat the mc:Choice content and are skipped.
func readParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var (
		paragraphs []string
		open       []int
		builders   = map[int]*strings.Builder{}
		inText     bool
	)

	current := func() *strings.Builder {
		if len(open) == 0 {
			return nil
		}
		return builders[open[len(open)-1]]
	}

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Fallback":
				if err := decoder.Skip(); err != nil {
					return nil, err
				}
			case "p":
				open = append(open, len(paragraphs))
				builders[len(paragraphs)] = &strings.Builder{}
				paragraphs = append(paragraphs, "")
			case "t":
				inText = true
			case "tab":
				if b := current(); b != nil {
					b.WriteByte('\t')
				}
			case "br", "cr":
				if b := current(); b != nil {
					b.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if len(open) == 0 {
					continue
				}
				idx := open[len(open)-1]
				open = open[:len(open)-1]
				paragraphs[idx] = builders[idx].String()
				delete(builders, idx)
			case "t":
				inText = false
			}
		case xml.CharData:
			if b := current(); b != nil && inText {
				b.Write(t)
			}
		}
	}

	return paragraphs, nil
}
