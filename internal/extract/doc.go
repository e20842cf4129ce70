// Package extract persists fetched resources and derives their text.
//
// Every extractor implements one capability, Save(out, id, payload), and is
// selected by a model.Kind rather than by raw MIME strings:
//
//	KindMarkup   -> Markup:   raw html/{id}.html, visible text txt/{id}.txt
//	KindDocument -> Document: raw pdf/{id}.pdf, page text pdf2txt/{id}.txt
//	KindArchive  -> Archive:  raw zip/{id}.zip, members re-dispatched by extension
//
// Extractors keep no state between calls. Recoverable problems (disallowed
// text extraction, invalid text encoding, unrecognized archive members) are
// logged to the category channels; Save only returns errors for failures
// to persist the raw artifact.
package extract
