package chunker

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Counter measures text length in the unit used for both chunk sizing and
// overlap sizing. The same counter must be used for both; mixing units
// produces undersized or oversized chunks.
type Counter interface {
	Count(text string) int
	Unit() string
}

// CharCounter counts runes.
type CharCounter struct{}

func (CharCounter) Count(text string) int { return utf8.RuneCountInString(text) }
func (CharCounter) Unit() string          { return "characters" }

// TokenCounter counts BPE tokens using the cl100k_base encoding.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter initializes the cl100k_base tokenizer.
func NewTokenCounter() (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return &TokenCounter{encoding: encoding}, nil
}

func (c *TokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

func (c *TokenCounter) Unit() string { return "tokens" }

// NewCounter returns the counter for the configured unit.
func NewCounter(unit string) (Counter, error) {
	switch unit {
	case "characters":
		return CharCounter{}, nil
	case "tokens":
		return NewTokenCounter()
	default:
		return nil, fmt.Errorf("unknown sizing unit %q", unit)
	}
}
