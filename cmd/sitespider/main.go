// Package main provides the entry point for the sitespider CLI.
//
// sitespider crawls a web site generation by generation from a seed URL and
// saves pages, their visible text, PDF documents and zip archives into a
// fixed output layout.
//
// Usage:
//
//	sitespider crawl <seed-url>
//	sitespider history [run-id]
//
// See --help for all available options.
package main

// main is the entry point for sitespider.
func main() {
	Execute()
}
