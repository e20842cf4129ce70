// Package database provides the SQLite ledger of crawl runs.
//
// Every run is stored with its seed, depth bound and final statistics, and
// every URL it processed is stored with its identifier, classification,
// outcome, size and SHA3-256 payload digest. The ledger backs the history
// command and lets identical payloads be found across runs.
//
// The database is a single file opened through modernc.org/sqlite, a
// CGO-free driver, with WAL journaling.
package database
