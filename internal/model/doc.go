// Package model defines the core data structures shared by the crawler,
// the result sink, the history database and the report writers.
//
// This package contains the following main types:
//   - MatchRecord: one crawled URL with the words found on it
//   - Page: the outcome of fetching and processing a single URL
//   - CrawlSummary: statistics and records of one crawl run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, result, database and report packages all use
// these types, so centralizing them prevents import cycles.
package model
