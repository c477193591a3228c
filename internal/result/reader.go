package result

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/wordcrawl/internal/model"
)

// ReadFile parses the result file at path.
func ReadFile(path string) ([]model.MatchRecord, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open result file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads result blocks from r. Blank lines between blocks are
// optional; a URL line without a following words line is malformed.
func Parse(r io.Reader) ([]model.MatchRecord, error) {
	var (
		records []model.MatchRecord
		pending string
		hasURL  bool
		lineNo  int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case strings.TrimSpace(line) == "":
			continue
		case strings.HasPrefix(line, URLPrefix):
			if hasURL {
				return records, fmt.Errorf("%w: line %d: URL without words", ErrMalformedRecord, lineNo)
			}
			pending, hasURL = strings.TrimPrefix(line, URLPrefix), true
		case strings.HasPrefix(line, WordsLabel+":"):
			if !hasURL {
				return records, fmt.Errorf("%w: line %d: words without URL", ErrMalformedRecord, lineNo)
			}
			records = append(records, model.NewMatchRecord(pending, splitWords(strings.TrimPrefix(line, WordsLabel+":"))))
			pending, hasURL = "", false
		default:
			return records, fmt.Errorf("%w: line %d: unexpected %q", ErrMalformedRecord, lineNo, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("failed to read result file: %w", err)
	}
	if hasURL {
		return records, fmt.Errorf("%w: line %d: URL without words", ErrMalformedRecord, lineNo)
	}
	return records, nil
}

// splitWords splits the value of a words line.
func splitWords(s string) []string {
	var words []string
	for w := range strings.SplitSeq(s, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}
