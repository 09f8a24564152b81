package chunker

import "strings"

// TruncateWords bounds text to at most maxWords whitespace-delimited words,
// never splitting a word. Inputs that already fit are returned unchanged,
// byte for byte, so original inter-word spacing survives; when truncation
// happens the kept words are rejoined with single spaces. maxWords <= 0
// yields the empty string.
func TruncateWords(text string, maxWords int) string {
	if maxWords <= 0 {
		return ""
	}

	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}

	return strings.Join(words[:maxWords], " ")
}
