package crawler

import (
	"slices"
	"testing"
)

func TestFindMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		words []string
		want  []string
	}{
		{
			name:  "whole word",
			text:  "the cat sat on the mat",
			words: []string{"cat"},
			want:  []string{"cat"},
		},
		{
			name:  "substring is not a match",
			text:  "concatenate the category",
			words: []string{"cat"},
		},
		{
			name:  "hyphenated compound is not a match",
			text:  "a cat-friendly home",
			words: []string{"cat"},
		},
		{
			name:  "underscore joins words",
			text:  "my_cat_name",
			words: []string{"cat"},
		},
		{
			name:  "punctuation is a boundary",
			text:  "(cat), cat. cat!",
			words: []string{"cat"},
			want:  []string{"cat"},
		},
		{
			name:  "case-insensitive, original casing returned",
			text:  "The Cat and the DOG",
			words: []string{"CAT", "dog"},
			want:  []string{"CAT", "dog"},
		},
		{
			name:  "input order kept",
			text:  "dog then cat",
			words: []string{"cat", "bird", "dog"},
			want:  []string{"cat", "dog"},
		},
		{
			name:  "duplicate words kept",
			text:  "cat",
			words: []string{"cat", "Cat"},
			want:  []string{"cat", "Cat"},
		},
		{
			name:  "cyrillic",
			text:  "Наш Кот спит",
			words: []string{"кот", "собака"},
			want:  []string{"кот"},
		},
		{
			name:  "cyrillic substring",
			text:  "котлета",
			words: []string{"кот"},
		},
		{
			name:  "later occurrence matches",
			text:  "cats and a cat",
			words: []string{"cat"},
			want:  []string{"cat"},
		},
		{
			name:  "multi-word phrase",
			text:  "buy new york pizza",
			words: []string{"new york"},
			want:  []string{"new york"},
		},
		{
			name:  "symbol edge needs no boundary",
			text:  "i like c++, a lot",
			words: []string{"c++", "c", "like"},
			want:  []string{"c++", "c", "like"},
		},
		{
			name:  "digits are word runes",
			text:  "model 42b and 42",
			words: []string{"42"},
			want:  []string{"42"},
		},
		{
			name:  "empty and blank words ignored",
			text:  "cat",
			words: []string{"", "  ", "cat"},
			want:  []string{"cat"},
		},
		{
			name:  "empty text",
			text:  "",
			words: []string{"cat"},
		},
		{
			name: "no words",
			text: "cat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FindMatches(tt.text, tt.words)
			if !slices.Equal(got, tt.want) {
				t.Errorf("FindMatches(%q, %q) = %q, want %q", tt.text, tt.words, got, tt.want)
			}
		})
	}
}
