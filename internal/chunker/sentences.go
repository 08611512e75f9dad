package chunker

import (
	"strings"
	"unicode"
)

// sentenceTerminators end a sentence when followed by whitespace or EOF.
const sentenceTerminators = ".!?"

// trailingClosers may follow a terminator and still belong to the sentence.
const trailingClosers = `"')]”’`

// SplitSentences segments text into sentences, preserving each sentence's
// exact original substring. Boundaries are sentence terminators followed by
// whitespace, and newlines (so markdown headings and list items stay whole).
func SplitSentences(text string) []string {
	var sentences []string
	flush := func(b *strings.Builder) {
		if s := strings.TrimSpace(b.String()); s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	var current strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush(&current)
			continue
		}
		current.WriteRune(r)
		if !strings.ContainsRune(sentenceTerminators, r) {
			continue
		}
		// Absorb closing quotes/brackets after the terminator.
		for i+1 < len(runes) && strings.ContainsRune(trailingClosers, runes[i+1]) {
			i++
			current.WriteRune(runes[i])
		}
		if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
			flush(&current)
		}
	}
	flush(&current)
	return sentences
}
