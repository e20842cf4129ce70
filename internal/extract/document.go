package extract

import (
	"errors"
	"strings"

	spiderlog "github.com/nao1215/sitespider/internal/log"
	"github.com/nao1215/sitespider/internal/output"
)

// ErrExtractionNotAllowed is returned by a Decoder when the document's
// permissions forbid text extraction.
var ErrExtractionNotAllowed = errors.New("text extraction is not allowed")

// Decoder turns a document into page-ordered text.
type Decoder interface {
	Decode(payload []byte, password string) (string, error)
}

// DocumentOption configures a Document extractor.
type DocumentOption func(*Document)

// WithDecoder replaces the PDF decoder.
func WithDecoder(decoder Decoder) DocumentOption {
	return func(d *Document) {
		d.decoder = decoder
	}
}

// WithPassword sets the password tried on encrypted documents.
func WithPassword(password string) DocumentOption {
	return func(d *Document) {
		d.password = password
	}
}

// Document saves PDF documents: the raw bytes and, when allowed, the text.
type Document struct {
	channels *spiderlog.Channels
	decoder  Decoder
	password string
}

// NewDocument creates a Document extractor using PDFDecoder unless another
// decoder is given.
func NewDocument(channels *spiderlog.Channels, opts ...DocumentOption) *Document {
	if channels == nil {
		channels = spiderlog.NewDiscardChannels()
	}
	d := &Document{
		channels: channels,
		decoder:  PDFDecoder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Save writes payload to pdf/{id}.pdf and the decoded text to
// pdf2txt/{id}.txt. The raw bytes are always written first; decoding
// problems are logged and leave the text artifact out.
func (d *Document) Save(out *output.Layout, id string, payload []byte) error {
	if _, err := out.WriteFile(output.DirPDF, id+".pdf", payload); err != nil {
		return err
	}

	text, err := d.decoder.Decode(payload, d.password)
	switch {
	case errors.Is(err, ErrExtractionNotAllowed):
		d.channels.Errors.Warn("text extraction is not allowed", "id", id)
		return nil
	case err != nil:
		d.channels.Errors.Error("failed to decode document", "id", id, "error", err)
		return nil
	}

	if strings.TrimSpace(text) == "" {
		d.channels.Main.Debug("document has no extractable text", "id", id)
		return nil
	}

	return writeText(out, output.DirPDFText, id+".txt", text, d.channels.Errors)
}
