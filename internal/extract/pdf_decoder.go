package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrMalformedDocument is returned when the PDF parser gives up on a
// document it cannot make sense of.
var ErrMalformedDocument = errors.New("malformed document")

// permExtractText is bit 5 of the standard security handler's /P entry:
// "copy or otherwise extract text and graphics".
const permExtractText = 1 << 4

// PDFDecoder decodes PDF documents with github.com/ledongthuc/pdf.
type PDFDecoder struct{}

// Decode returns the plain text of every page, in page order.
func (PDFDecoder) Decode(payload []byte, password string) (text string, err error) {
	// The parser panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrMalformedDocument, r)
		}
	}()

	offered := false
	pw := func() string {
		if offered {
			return ""
		}
		offered = true
		return password
	}

	r, err := pdf.NewReaderEncrypted(bytes.NewReader(payload), int64(len(payload)), pw)
	if err != nil {
		return "", fmt.Errorf("failed to open document: %w", err)
	}

	if !extractionAllowed(r) {
		return "", ErrExtractionNotAllowed
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}

// extractionAllowed reads the permission flags of an encrypted document.
// Unencrypted documents always allow extraction.
func extractionAllowed(r *pdf.Reader) bool {
	encrypt := r.Trailer().Key("Encrypt")
	if encrypt.IsNull() {
		return true
	}
	perms := encrypt.Key("P")
	if perms.Kind() != pdf.Integer {
		return true
	}
	return perms.Int64()&permExtractText != 0
}
