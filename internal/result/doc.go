// Package result writes and reads the append-only result file of a crawl.
//
// The file is a flat log of blocks, one per page with matches:
//
//	URL: https://example.com/about
//	Найденные слова: cat, dog
//
// Each block is followed by a blank line. Blocks are appended in completion
// order and are never rewritten; a second run on the same host appends to
// the same file.
package result
