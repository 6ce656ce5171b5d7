package ingest

import (
	"strings"
	"unicode/utf8"
)

// SplitText splits text into chunks of at most size characters with the
// given overlap between consecutive chunks. Within each window the cut
// prefers, in order: a markdown heading, a paragraph break, a sentence end,
// a word boundary, then a hard character cut. Splitting is deterministic
// for fixed input; the target size and overlap are the contract, exact
// boundaries are not.
func SplitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = 800
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	start := 0

	for start < len(text) {
		if start+size >= len(text) {
			if chunk := strings.TrimSpace(text[start:]); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := splitPoint(text[start : start+size])
		if end := alignRune(text, start+cut); end > start {
			cut = end - start
		}
		if chunk := strings.TrimSpace(text[start : start+cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := alignRune(text, start+cut-overlap)
		if next <= start {
			next = start + cut
		}
		start = next
	}

	return chunks
}

// splitPoint returns the cut position inside window. Boundaries in the
// first half are ignored so chunks never shrink below half the target size.
func splitPoint(window string) int {
	min := len(window) / 2

	// A heading starts the next chunk rather than ending this one.
	if i := strings.LastIndex(window, "\n#"); i > min {
		return i + 1
	}
	if i := strings.LastIndex(window, "\n\n"); i > min {
		return i + 2
	}
	if i := strings.LastIndex(window, ". "); i > min {
		return i + 2
	}
	if i := strings.LastIndex(window, " "); i > min {
		return i + 1
	}
	return len(window)
}

// alignRune walks i back to the start of a rune so byte-offset cuts never
// slice a multi-byte character in half.
func alignRune(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
