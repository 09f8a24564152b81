package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWords int
		want     string
	}{
		{
			name:     "longer than bound keeps first N words",
			text:     "one two three four five six seven",
			maxWords: 5,
			want:     "one two three four five",
		},
		{
			name:     "exactly at bound returned unchanged",
			text:     "one two three",
			maxWords: 3,
			want:     "one two three",
		},
		{
			name:     "shorter than bound returned unchanged",
			text:     "one two",
			maxWords: 700,
			want:     "one two",
		},
		{
			name:     "empty input",
			text:     "",
			maxWords: 10,
			want:     "",
		},
		{
			name:     "whitespace only input returned unchanged",
			text:     "   \n\t  ",
			maxWords: 10,
			want:     "   \n\t  ",
		},
		{
			name:     "zero bound yields empty",
			text:     "one two three",
			maxWords: 0,
			want:     "",
		},
		{
			name:     "negative bound yields empty",
			text:     "one two three",
			maxWords: -3,
			want:     "",
		},
		{
			name:     "single word bound",
			text:     "hello world",
			maxWords: 1,
			want:     "hello",
		},
		{
			name:     "truncation renormalizes runs of whitespace",
			text:     "one   two\t\tthree\nfour five",
			maxWords: 3,
			want:     "one two three",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateWords(tt.text, tt.maxWords))
		})
	}
}

// Inputs within the bound must come back byte for byte, including any odd
// spacing, so that posts that fit are never rewritten.
func TestTruncateWordsPreservesFittingInput(t *testing.T) {
	inputs := []string{
		"spaced   out    words",
		"tabs\tbetween\twords",
		"newlines\nbetween\nwords",
		"  leading and trailing  ",
	}

	for _, input := range inputs {
		assert.Equal(t, input, TruncateWords(input, 50), "input %q should be untouched", input)
	}
}

func TestTruncateWordsNeverSplitsWords(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta"
	original := strings.Fields(text)

	for n := 0; n <= len(original)+2; n++ {
		got := TruncateWords(text, n)
		words := strings.Fields(got)

		assert.LessOrEqual(t, len(words), n, "word count exceeds bound %d", n)
		for i, w := range words {
			assert.Equal(t, original[i], w, "word %d is not a prefix word at bound %d", i, n)
		}
	}
}
