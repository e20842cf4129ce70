package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	spiderlog "github.com/nao1215/sitespider/internal/log"
	"github.com/nao1215/sitespider/internal/model"
	"github.com/nao1215/sitespider/internal/output"
)

// Extractor persists one resource's artifacts under the output layout.
type Extractor interface {
	Save(out *output.Layout, id string, payload []byte) error
}

// MarkupSaver is an Extractor that parses markup. The crawler uses it to
// discover links in the very document it saved.
type MarkupSaver interface {
	Extractor
	Parse(payload []byte, contentType string) (*goquery.Document, error)
	SaveDocument(out *output.Layout, id string, raw []byte, doc *goquery.Document) error
}

// Registry maps content classifications to extractors.
type Registry struct {
	extractors map[model.Kind]Extractor
	skip       []string
}

// NewRegistry creates an empty registry. Content types containing any of
// skipContentTypes classify as unrecognized even when an extractor exists.
func NewRegistry(skipContentTypes []string) *Registry {
	skip := make([]string, 0, len(skipContentTypes))
	for _, s := range skipContentTypes {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			skip = append(skip, s)
		}
	}
	return &Registry{
		extractors: make(map[model.Kind]Extractor),
		skip:       skip,
	}
}

// NewDefaultRegistry wires the markup, document and archive extractors.
// Archive members are dispatched to the same markup and document
// extractors as fetched resources.
func NewDefaultRegistry(channels *spiderlog.Channels, skipContentTypes []string, docOpts ...DocumentOption) *Registry {
	markup := NewMarkup(channels)
	document := NewDocument(channels, docOpts...)

	r := NewRegistry(skipContentTypes)
	r.Register(model.KindMarkup, markup)
	r.Register(model.KindDocument, document)
	r.Register(model.KindArchive, NewArchive(channels, map[model.Kind]Extractor{
		model.KindMarkup:   markup,
		model.KindDocument: document,
	}))
	return r
}

// Register sets the extractor for kind, replacing any previous one.
func (r *Registry) Register(kind model.Kind, e Extractor) {
	r.extractors[kind] = e
}

// Skipped reports whether contentType is excluded by configuration.
func (r *Registry) Skipped(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, s := range r.skip {
		if strings.Contains(ct, s) {
			return true
		}
	}
	return false
}

// Classify maps a Content-Type header value to the kind used for dispatch.
// Skipped and unregistered types classify as KindUnrecognized.
func (r *Registry) Classify(contentType string) model.Kind {
	if r.Skipped(contentType) {
		return model.KindUnrecognized
	}
	kind := model.ClassifyContentType(contentType)
	if _, ok := r.extractors[kind]; !ok {
		return model.KindUnrecognized
	}
	return kind
}

// For returns the extractor registered for kind.
func (r *Registry) For(kind model.Kind) (Extractor, bool) {
	e, ok := r.extractors[kind]
	return e, ok
}
