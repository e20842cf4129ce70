// Package crawler implements the generation-by-generation crawl of a site.
//
// # Architecture
//
// The Engine starts from a seed URL and processes one generation at a time.
// Every URL of a generation is fetched, classified and handed to an
// extractor; links discovered on markup pages are resolved, filtered and
// merged into the next generation once every worker of the current one has
// finished. A URL enters the VisitedSet exactly once, when its generation
// starts, so failed fetches are never retried.
//
// # Components
//
//   - Filter: resolves hrefs against the page URL and applies the
//     include and exclude rules
//   - ExtractLinks: collects in-scope anchors from a parsed page
//   - VisitedSet: the append-only set of URLs already processed
//   - Engine: the generation loop and per-URL dispatch
//
// # Usage
//
//	filter := crawler.NewFilter(crawler.Rules{ExcludePrefixes: []string{"https://example.com/private"}})
//	engine := crawler.NewEngine(fetcher, registry, layout, filter, crawler.WithMaxDepth(3))
//	summary, err := engine.Run(ctx, "https://example.com/")
//
// # Error Handling
//
// Per-URL problems never stop the crawl. Transport errors, HTTP error
// statuses, unhandled content types and extractor failures are logged to
// the category channels and recorded as the resource's outcome. Run only
// fails when the context is cancelled.
package crawler
