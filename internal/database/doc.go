// Package database provides the SQLite-based run history for wordcrawl.
//
// The history database stores:
//   - One row per crawl run with its seed, host, result file and counters
//   - Every match record written during a run
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode lets "wordcrawl history" read while a crawl is writing
//
// History is a log of past runs. It is never used to resume a crawl or to
// skip pages in a later run.
package database
