package result

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Record line prefixes.
const (
	// URLPrefix starts the first line of a block.
	URLPrefix = "URL: "

	// WordsLabel labels the matched words line.
	WordsLabel = "Найденные слова"

	// wordsPrefix starts the second line of a block.
	wordsPrefix = WordsLabel + ": "

	// wordSeparator joins matched words on the words line.
	wordSeparator = ", "
)

// Sink receives one record per page with matches.
// Implementations must be safe for concurrent use.
type Sink interface {
	Append(pageURL string, words []string) error
}

// FileName returns the result file name for host (host[:port]):
// lowercased, a leading "www." removed, and every character other than an
// ASCII letter, digit or hyphen replaced by "_".
//
//	example.com      -> links_example_com.txt
//	www.Example.com  -> links_example_com.txt
//	localhost:8080   -> links_localhost_8080.txt
func FileName(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, host)
	return "links_" + name + ".txt"
}

// FormatRecord returns the text block written for one record.
func FormatRecord(pageURL string, words []string) string {
	var sb strings.Builder
	sb.WriteString(URLPrefix)
	sb.WriteString(pageURL)
	sb.WriteByte('\n')
	sb.WriteString(wordsPrefix)
	sb.WriteString(strings.Join(words, wordSeparator))
	sb.WriteString("\n\n")
	return sb.String()
}

// FileSink appends records to a result file.
//
// Design decision: The file is opened in append mode and closed for every
// record instead of being held open for the run because:
//  1. Every record is on disk as soon as Append returns
//  2. A crash leaves at most one partial block at the end of the file
//  3. Records are rare compared to fetches, so the open cost does not matter
type FileSink struct {
	path string

	// mu serializes writers so blocks are never interleaved.
	mu sync.Mutex
}

// NewFileSink creates the result file at path (and its directory) if it
// does not exist yet, without truncating existing content.
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create result file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to create result file: %w", err)
	}
	return &FileSink{path: path}, nil
}

// Path returns the result file path.
func (s *FileSink) Path() string {
	return s.path
}

// Append writes one block to the end of the file.
func (s *FileSink) Append(pageURL string, words []string) (err error) {
	block := FormatRecord(pageURL, words)

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Clean(s.path), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open result file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close result file: %w", cerr)
		}
	}()

	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("failed to write result record: %w", err)
	}
	return nil
}

// MultiSink writes every record to each of its sinks in order.
// All sinks are attempted; their errors are joined.
type MultiSink []Sink

// Append implements Sink.
func (m MultiSink) Append(pageURL string, words []string) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(pageURL, words); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
