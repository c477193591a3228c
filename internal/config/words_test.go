package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestParseWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  []string
	}{
		{
			name:  "one word per line",
			input: []byte("cat\ndog\nbird\n"),
			want:  []string{"cat", "dog", "bird"},
		},
		{
			name:  "trimmed and empty lines skipped",
			input: []byte("  cat  \n\n\t\ndog\r\n   \n"),
			want:  []string{"cat", "dog"},
		},
		{
			name:  "order and duplicates kept",
			input: []byte("b\na\nb\n"),
			want:  []string{"b", "a", "b"},
		},
		{
			name:  "phrases kept whole",
			input: []byte("new york\n"),
			want:  []string{"new york"},
		},
		{
			name:  "utf-8 bom dropped",
			input: append([]byte{0xEF, 0xBB, 0xBF}, []byte("кот\nсобака")...),
			want:  []string{"кот", "собака"},
		},
		{
			name:  "utf-16le with bom decoded",
			input: []byte{0xFF, 0xFE, 'c', 0, 'a', 0, 't', 0, '\n', 0, 'd', 0, 'o', 0, 'g', 0},
			want:  []string{"cat", "dog"},
		},
		{
			name:  "empty input is an empty list",
			input: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseWords(bytes.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseWords() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseWords() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadWords(t *testing.T) {
	t.Parallel()

	t.Run("reads file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "words.txt")
		if err := os.WriteFile(path, []byte("alpha\nbeta\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := LoadWords(path)
		if err != nil {
			t.Fatalf("LoadWords() error = %v", err)
		}
		if !slices.Equal(got, []string{"alpha", "beta"}) {
			t.Errorf("LoadWords() = %q", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "missing.txt")
		_, err := LoadWords(path)
		if err == nil {
			t.Fatal("expected error for missing file")
		}
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("expected fs.ErrNotExist, got %v", err)
		}
	})
}
