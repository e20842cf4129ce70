package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	spiderlog "github.com/nao1215/sitespider/internal/log"
	"github.com/nao1215/sitespider/internal/output"
)

// DefaultDroppedTags are removed before visible text is collected.
var DefaultDroppedTags = []string{"script", "style", "noscript", "template"}

// Markup saves HTML pages: the raw markup and the visible text.
type Markup struct {
	channels    *spiderlog.Channels
	droppedTags []string
}

// NewMarkup creates a Markup extractor.
func NewMarkup(channels *spiderlog.Channels) *Markup {
	if channels == nil {
		channels = spiderlog.NewDiscardChannels()
	}
	return &Markup{
		channels:    channels,
		droppedTags: DefaultDroppedTags,
	}
}

// Parse parses payload as HTML. The declared content type, or the document
// itself, decides the character set; the document is converted to UTF-8.
func (m *Markup) Parse(payload []byte, contentType string) (*goquery.Document, error) {
	var r io.Reader = bytes.NewReader(payload)
	if cr, err := charset.NewReader(r, contentType); err == nil {
		r = cr
	} else {
		m.channels.ContentType.Debug("charset detection failed, assuming UTF-8", "content_type", contentType, "error", err)
		r = bytes.NewReader(payload)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	return doc, nil
}

// Save parses payload and saves it. Archive members take this path; they
// carry no content type.
func (m *Markup) Save(out *output.Layout, id string, payload []byte) error {
	doc, err := m.Parse(payload, "text/html")
	if err != nil {
		return err
	}
	return m.SaveDocument(out, id, payload, doc)
}

// SaveDocument writes raw to html/{id}.html and the visible text of doc to
// txt/{id}.txt. doc is not modified.
func (m *Markup) SaveDocument(out *output.Layout, id string, raw []byte, doc *goquery.Document) error {
	if _, err := out.WriteFile(output.DirHTML, id+".html", raw); err != nil {
		return err
	}

	text := strings.Join(VisibleText(doc, m.droppedTags), "\n")
	return writeText(out, output.DirText, id+".txt", text, m.channels.Errors)
}

// VisibleText returns the distinct whitespace-trimmed text fragments of doc
// longer than one character, in document order, ignoring the contents of
// the dropped tags. The tags are removed from a copy of the tree.
func VisibleText(doc *goquery.Document, dropped []string) []string {
	root := doc.Selection.Clone()
	if len(dropped) > 0 {
		root.Find(strings.Join(dropped, ", ")).Remove()
	}

	seen := make(map[string]struct{})
	var fragments []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if utf8.RuneCountInString(text) > 1 {
				if _, dup := seen[text]; !dup {
					seen[text] = struct{}{}
					fragments = append(fragments, text)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range root.Nodes {
		walk(n)
	}
	return fragments
}
