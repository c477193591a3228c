// Package main provides the entry point for the wordcrawl CLI.
//
// wordcrawl crawls every page of one site, starting from a seed URL, and
// writes the pages whose visible text contains words from a word list to
// links_<host>.txt.
//
// Usage:
//
//	wordcrawl crawl <url> --words <file>
//	wordcrawl report links_example_com.txt
//	wordcrawl history example.com
//
// See --help for all available options.
package main

// main is the entry point for wordcrawl.
func main() {
	Execute()
}
