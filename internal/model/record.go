package model

// MatchRecord is one entry of the result file: a page URL and the words
// from the word list that occur on that page.
//
// A record is written once per page with at least one match. Records are
// never updated or merged across pages.
type MatchRecord struct {
	// URL is the absolute, fragment-free address of the page.
	URL string `json:"url"`

	// Words are the matched words in word-list order with their original casing.
	Words []string `json:"words"`
}

// NewMatchRecord creates a MatchRecord that owns a copy of words,
// so callers may reuse their slice after the call.
func NewMatchRecord(url string, words []string) MatchRecord {
	copied := make([]string, len(words))
	copy(copied, words)
	return MatchRecord{URL: url, Words: copied}
}

// HasWord reports whether the record contains word (exact match).
func (r MatchRecord) HasWord(word string) bool {
	for _, w := range r.Words {
		if w == word {
			return true
		}
	}
	return false
}
