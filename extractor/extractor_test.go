package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestDOCX builds a minimal DOCX package with one paragraph per entry.
func createTestDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body bytes.Buffer
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		body.WriteString(p)
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract_DOCXParagraphsInOrder(t *testing.T) {
	data := createTestDOCX(t, "Petition for Dr. Rivera", "Criterion: awards", "Patent X award 2019")

	text, err := New(time.Second).Extract(context.Background(), data, FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Petition for Dr. Rivera\nCriterion: awards\nPatent X award 2019", text)
}

func TestExtract_DOCXRunsJoinWithinParagraph(t *testing.T) {
	doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>Judge of </w:t></w:r><w:r><w:t>peers</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	text, err := New(0).Extract(context.Background(), buf.Bytes(), FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Judge of peers", text)
}

func zipDocument(t *testing.T, body string) []byte {
	t.Helper()
	doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006" ` +
		`xmlns:v="urn:schemas-microsoft-com:vml"><w:body>` + body + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract_DOCXTextBoxKeepsOuterParagraph(t *testing.T) {
	box := `<w:txbxContent><w:p><w:r><w:t>Box text.</w:t></w:r></w:p></w:txbxContent>`
	data := zipDocument(t,
		`<w:p><w:r><w:t xml:space="preserve">Before box. </w:t></w:r>`+
			`<w:r><mc:AlternateContent>`+
			`<mc:Choice Requires="wps"><w:drawing>`+box+`</w:drawing></mc:Choice>`+
			`<mc:Fallback><w:pict><v:textbox>`+box+`</v:textbox></w:pict></mc:Fallback>`+
			`</mc:AlternateContent></w:r>`+
			`<w:r><w:t>After box.</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Next paragraph</w:t></w:r></w:p>`)

	text, err := New(0).Extract(context.Background(), data, FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Before box. After box.\nBox text.\nNext paragraph", text)
}

func TestExtract_DOCXMissingDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = New(0).Extract(context.Background(), buf.Bytes(), FormatDOCX)

	var extractErr *ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, ReasonUnsupported, extractErr.Reason)
}

func TestExtract_CorruptInputs(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format Format
	}{
		{name: "pdf without xref", data: []byte("%PDF-1.4\nthis is not really a pdf"), format: FormatPDF},
		{name: "random bytes as pdf", data: []byte("hello"), format: FormatPDF},
		{name: "docx that is not a zip", data: []byte("plain words"), format: FormatDOCX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := New(time.Second).Extract(context.Background(), tt.data, tt.format)
			assert.Empty(t, text)

			var extractErr *ExtractionError
			require.True(t, errors.As(err, &extractErr))
			assert.Equal(t, ReasonCorrupt, extractErr.Reason)
			assert.Equal(t, tt.format, extractErr.Format)

			policyText, reason := TextOrEmpty(text, err)
			assert.Empty(t, policyText)
			assert.Equal(t, string(ReasonCorrupt), reason)
		})
	}
}

func TestExtract_TextDropsInvalidBytes(t *testing.T) {
	data := []byte("Award \xff\xfewinner 2019")

	text, err := New(0).Extract(context.Background(), data, FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Award winner 2019", text)
}

func TestExtract_TextUTF16WithBOM(t *testing.T) {
	le := []byte{0xFF, 0xFE, 'A', 0, 'w', 0, 'a', 0, 'r', 0, 'd', 0}
	be := []byte{0xFE, 0xFF, 0, 'A', 0, 'w', 0, 'a', 0, 'r', 0, 'd'}

	for name, data := range map[string][]byte{"little endian": le, "big endian": be} {
		t.Run(name, func(t *testing.T) {
			text, err := New(0).Extract(context.Background(), data, FormatText)
			require.NoError(t, err)
			assert.Equal(t, "Award", text)
		})
	}
}

func TestExtract_TextStripsNUL(t *testing.T) {
	text, err := New(0).Extract(context.Background(), []byte("A\x00w\x00ard\x00"), FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Award", text)
	assert.NotContains(t, text, "\x00")
}

func TestExtract_TextDropsUTF8BOM(t *testing.T) {
	text, err := New(0).Extract(context.Background(), []byte("\xEF\xBB\xBFAward"), FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Award", text)
}

// buildTestPDF writes a minimal PDF with one Helvetica text line per page
// and a correct xref table.
func buildTestPDF(t *testing.T, pages ...string) []byte {
	t.Helper()

	const fontObj = 3
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	var kids bytes.Buffer
	for i := range pages {
		fmt.Fprintf(&kids, "%d 0 R ", 4+2*i)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(pages)))
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontObj, 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtract_PDFPagesInOrder(t *testing.T) {
	data := buildTestPDF(t, "Patent X award 2019", "Judge of peers")

	text, err := extractPDF(data)
	require.NoError(t, err)
	assert.Equal(t, "Patent X award 2019\nJudge of peers", text)

	viaExtractor, err := New(time.Second).Extract(context.Background(), data, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, text, viaExtractor)
	assert.Equal(t, FormatPDF, DetectFormat("upload", data))
}

func TestExtract_UnknownFormat(t *testing.T) {
	_, err := New(0).Extract(context.Background(), []byte("x"), Format("rtf"))

	var extractErr *ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, ReasonUnsupported, extractErr.Reason)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatPDF, DetectFormat("petition.PDF", nil))
	assert.Equal(t, FormatDOCX, DetectFormat("petition.docx", nil))
	assert.Equal(t, FormatDOCX, DetectFormat("legacy.doc", nil))
	assert.Equal(t, FormatText, DetectFormat("notes.txt", []byte("%PDF-1.4")))
	assert.Equal(t, FormatPDF, DetectFormat("upload", []byte("%PDF-1.4\n%âãÏÓ\n")))
	assert.Equal(t, FormatText, DetectFormat("upload.rtf", []byte("just words")))
	assert.Equal(t, FormatText, DetectFormat("", []byte{}))
}

func TestTextOrEmpty_Success(t *testing.T) {
	text, reason := TextOrEmpty("content", nil)
	assert.Equal(t, "content", text)
	assert.Empty(t, reason)
}
