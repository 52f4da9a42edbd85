package textutil

import "strings"

// Words splits text on whitespace into its word sequence. Positions used by
// sound-effect anchors are 1-based indices into this slice.
func Words(text string) []string {
	return strings.Fields(text)
}

// WordCount returns the number of whitespace-delimited words in text.
func WordCount(text string) int {
	return len(Words(text))
}

// CleanWord strips surrounding punctuation and lowercases a token so display
// words can be compared against aligned words.
func CleanWord(word string) string {
	return strings.ToLower(strings.Trim(word, ".,!?;:\"'()[]{}"))
}
