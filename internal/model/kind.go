package model

import (
	"path/filepath"
	"strings"
)

// Kind is the normalized classification of a resource. Dispatch to an
// extractor is keyed by Kind rather than by raw MIME strings.
type Kind int

const (
	// KindUnrecognized is any content no extractor handles.
	// The zero value is unrecognized so an unset Kind is never dispatched.
	KindUnrecognized Kind = iota

	// KindMarkup is an HTML page. Only markup contributes links to the crawl.
	KindMarkup

	// KindDocument is a PDF document.
	KindDocument

	// KindArchive is a zip archive.
	KindArchive

	// KindText is a plain text file. It only occurs as an archive member.
	KindText
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMarkup:
		return "markup"
	case KindDocument:
		return "document"
	case KindArchive:
		return "archive"
	case KindText:
		return "text"
	default:
		return "unrecognized"
	}
}

// Extension returns the file extension used for the raw artifact of the kind.
func (k Kind) Extension() string {
	switch k {
	case KindMarkup:
		return ".html"
	case KindDocument:
		return ".pdf"
	case KindArchive:
		return ".zip"
	case KindText:
		return ".txt"
	default:
		return ""
	}
}

// ParseKind converts a name produced by Kind.String back into a Kind.
// Unknown names map to KindUnrecognized.
func ParseKind(s string) Kind {
	switch s {
	case "markup":
		return KindMarkup
	case "document":
		return KindDocument
	case "archive":
		return KindArchive
	case "text":
		return KindText
	default:
		return KindUnrecognized
	}
}

// contentTypeKinds maps MIME substrings to kinds. Matching is by substring
// so parameters such as "; charset=utf-8" do not matter.
var contentTypeKinds = []struct {
	substr string
	kind   Kind
}{
	{"text/html", KindMarkup},
	{"application/pdf", KindDocument},
	{"application/zip", KindArchive},
	{"application/x-zip-compressed", KindArchive},
}

// ClassifyContentType returns the kind declared by an HTTP Content-Type
// header value. Plain text responses are unrecognized; KindText is only
// assigned from archive member extensions.
func ClassifyContentType(contentType string) Kind {
	ct := strings.ToLower(contentType)
	for _, m := range contentTypeKinds {
		if strings.Contains(ct, m.substr) {
			return m.kind
		}
	}
	return KindUnrecognized
}

// ClassifyExtension returns the kind of an archive member from its file
// extension. Archive members carry no headers, so the extension is all
// there is.
func ClassifyExtension(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html":
		return KindMarkup
	case ".pdf":
		return KindDocument
	case ".txt":
		return KindText
	case ".zip":
		return KindArchive
	default:
		return KindUnrecognized
	}
}
