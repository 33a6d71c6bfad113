// Package extractor turns uploaded reference documents into plain text.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/unicode"
)

// Format is the document format an extraction is attempted with
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "text"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Reason classifies an extraction failure
type Reason string

const (
	ReasonCorrupt     Reason = "corrupt"
	ReasonUnsupported Reason = "unsupported"
	ReasonTimeout     Reason = "timeout"
)

// ExtractionError reports why a document produced no text.
type ExtractionError struct {
	Format Format
	Reason Reason
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %s: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("extract %s: %s: %v", e.Format, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor extracts text with a bounded duration per document.
type Extractor struct {
	timeout time.Duration
}

// New creates an extractor. A zero timeout disables the bound.
func New(timeout time.Duration) *Extractor {
	return &Extractor{timeout: timeout}
}

type extractResult struct {
	text string
	err  error
}

// Extract returns the plain text of data interpreted as format. Failures are
// returned as *ExtractionError; use TextOrEmpty to apply the ingestion policy.
func (e *Extractor) Extract(ctx context.Context, data []byte, format Format) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	done := make(chan extractResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- extractResult{err: &ExtractionError{
					Format: format,
					Reason: ReasonCorrupt,
					Err:    fmt.Errorf("parser panic: %v", r),
				}}
			}
		}()
		text, err := extract(data, format)
		done <- extractResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", &ExtractionError{Format: format, Reason: ReasonTimeout, Err: ctx.Err()}
	}
}

func extract(data []byte, format Format) (string, error) {
	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	case FormatText:
		text = extractText(data)
	default:
		return "", &ExtractionError{Format: format, Reason: ReasonUnsupported}
	}
	if err != nil {
		return "", err
	}
	// Postgres TEXT columns reject NUL
	return strings.ReplaceAll(text, "\x00", ""), nil
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// extractText decodes data as UTF-8, dropping undecodable bytes. Input with
// a UTF-16 byte order mark is transcoded first.
func extractText(data []byte) string {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data = data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err == nil {
			data = decoded
		}
	}
	return strings.ToValidUTF8(string(data), "")
}

// DetectFormat picks the extraction format from the filename extension,
// sniffing the content when the extension says nothing. Anything that is
// not recognisably PDF or DOCX is treated as text.
func DetectFormat(filename string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx", ".doc":
		return FormatDOCX
	case ".txt", ".text", ".md":
		return FormatText
	}

	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("application/pdf"):
		return FormatPDF
	case mtype.Is(docxMIME):
		return FormatDOCX
	default:
		return FormatText
	}
}

// TextOrEmpty applies the ingestion policy: any failure yields empty text.
// The returned reason is empty on success and meant for diagnostics only.
func TextOrEmpty(text string, err error) (string, string) {
	if err == nil {
		return text, ""
	}
	var extractErr *ExtractionError
	if errors.As(err, &extractErr) {
		return "", string(extractErr.Reason)
	}
	return "", err.Error()
}
