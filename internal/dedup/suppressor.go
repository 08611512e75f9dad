// Package dedup filters duplicate content at two granularities: block-level
// near-duplicate suppression while extracting text from raw HTML, and
// run-scoped whole-page hash deduplication before chunking.
package dedup

import "strings"

const (
	// minLongBlockLen is the length below which blocks are only compared
	// exactly, never fuzzily. Short strings produce too many spurious
	// Jaccard matches.
	minLongBlockLen = 50
	// jaccardThreshold is the token-set similarity above which two long
	// blocks are considered duplicates.
	jaccardThreshold = 0.8
)

// blockSuppressor tracks normalized text of emitted blocks and decides
// whether a candidate block repeats earlier content.
type blockSuppressor struct {
	exact map[string]struct{}
	long  []string
}

func newBlockSuppressor() *blockSuppressor {
	return &blockSuppressor{exact: make(map[string]struct{})}
}

// normalizeBlock lowercases and collapses all whitespace runs to single spaces.
func normalizeBlock(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Admit records the block and returns true if it is new, or returns false if
// the block duplicates earlier content. Duplicate means: exact normalized
// match, token-set Jaccard similarity above threshold against a previously
// seen long block, or substring containment in either direction.
func (s *blockSuppressor) Admit(text string) bool {
	norm := normalizeBlock(text)
	if norm == "" {
		return false
	}
	if _, dup := s.exact[norm]; dup {
		return false
	}
	if len(norm) >= minLongBlockLen {
		tokens := tokenSet(norm)
		for _, prev := range s.long {
			if strings.Contains(prev, norm) || strings.Contains(norm, prev) {
				return false
			}
			if jaccard(tokens, tokenSet(prev)) > jaccardThreshold {
				return false
			}
		}
		s.long = append(s.long, norm)
	}
	s.exact[norm] = struct{}{}
	return true
}

func tokenSet(norm string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(norm) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
