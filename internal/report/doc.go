// Package report renders crawl run reports.
//
// Three formats are supported:
//   - Text: a terminal-friendly summary (SimpleWriter)
//   - Markdown: a document with tables and a kind distribution chart
//     (MarkdownWriter)
//   - JSON: machine-readable output (JSONWriter)
//
// The same writers render a run that just finished and a run read back
// from the crawl ledger.
package report
