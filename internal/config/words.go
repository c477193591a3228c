package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LoadWords reads the word list at path: one word per line, surrounding
// whitespace trimmed, empty lines ignored. An empty list is valid.
func LoadWords(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open word list: %w", err)
	}
	defer f.Close()

	words, err := ParseWords(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read word list %s: %w", path, err)
	}
	return words, nil
}

// ParseWords reads a word list from r. A UTF-8 byte order mark at the start
// is dropped, and UTF-16 input with a BOM is decoded, since word lists are
// often saved by Windows editors.
func ParseWords(r io.Reader) ([]string, error) {
	// BOMOverride switches to the encoding named by a BOM and otherwise
	// passes bytes through unchanged.
	decoded := transform.NewReader(r, unicode.BOMOverride(transform.Nop))

	var words []string
	scanner := bufio.NewScanner(decoded)
	for scanner.Scan() {
		if w := strings.TrimSpace(scanner.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}
