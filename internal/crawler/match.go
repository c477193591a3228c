package crawler

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FindMatches returns the words that occur in text as whole words,
// compared case-insensitively. Words are returned in input order with their
// original casing; a word listed twice is returned twice if it matches.
//
// Design decision: We scan with strings.Index and check boundaries by hand
// rather than building a regexp per word because:
//  1. regexp's \b only knows ASCII word characters, so "кот" never matches
//  2. A hyphen must count as part of a word ("cat-friendly" is not "cat")
//  3. No pattern needs to be compiled or escaped per page
func FindMatches(text string, words []string) []string {
	if text == "" || len(words) == 0 {
		return nil
	}
	caser := cases.Lower(language.Und)
	haystack := caser.String(text)

	var matched []string
	for _, w := range words {
		needle := caser.String(strings.TrimSpace(w))
		if needle == "" {
			continue
		}
		if containsWord(haystack, needle) {
			matched = append(matched, w)
		}
	}
	return matched
}

// containsWord reports whether word occurs in text not directly preceded or
// followed by a word rune. A side where word itself ends in a non-word rune
// ("c++") needs no boundary.
func containsWord(text, word string) bool {
	first, _ := utf8.DecodeRuneInString(word)
	last, _ := utf8.DecodeLastRuneInString(word)
	checkBefore := isWordRune(first)
	checkAfter := isWordRune(last)

	for offset := 0; offset <= len(text)-len(word); {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)

		ok := true
		if checkBefore && start > 0 {
			r, _ := utf8.DecodeLastRuneInString(text[:start])
			ok = !isWordRune(r)
		}
		if ok && checkAfter && end < len(text) {
			r, _ := utf8.DecodeRuneInString(text[end:])
			ok = !isWordRune(r)
		}
		if ok {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

// isWordRune reports whether r belongs to a word for boundary checks.
func isWordRune(r rune) bool {
	return r == '_' || r == '-' ||
		unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
