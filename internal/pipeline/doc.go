// Package pipeline runs one crawl as a sequence of steps.
//
// A run prepares the output layout, registers itself in the crawl ledger,
// crawls, and packages the output. Steps added with AddFinalStep run after
// the others even when a step failed or the context was cancelled, so the
// ledger is closed and the report written for interrupted runs too.
package pipeline
