// Package model defines the core data structures shared by the crawler,
// the extractors and the persistence layers.
//
// This package contains the following main types:
//   - Kind: normalized content classification used for extractor dispatch
//   - Response: the result of fetching one URL
//   - Resource: one fetched or unpacked item and what happened to it
//   - MemberTree: the first-level listing of an unpacked archive
//   - RunSummary: aggregate statistics for one crawl run
//
// Models live in their own package so that crawler, extract, database and
// report can share them without import cycles.
package model
