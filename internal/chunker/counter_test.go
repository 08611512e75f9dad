package chunker

import "testing"

func TestCharCounter(t *testing.T) {
	c := CharCounter{}
	if got := c.Count("hello"); got != 5 {
		t.Fatalf("Count = %d, want 5", got)
	}
	if got := c.Count("héllo"); got != 5 {
		t.Fatalf("Count should count runes, got %d", got)
	}
	if c.Unit() != "characters" {
		t.Fatalf("Unit = %q", c.Unit())
	}
}

func TestTokenCounter(t *testing.T) {
	c, err := NewTokenCounter()
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	n := c.Count("The vineyard sits on a gentle slope above the river.")
	if n <= 0 {
		t.Fatalf("Count = %d, want > 0", n)
	}
	// Tokens compress text; the count must be below the character count.
	if n >= len("The vineyard sits on a gentle slope above the river.") {
		t.Fatalf("token count %d not smaller than character count", n)
	}
	if c.Unit() != "tokens" {
		t.Fatalf("Unit = %q", c.Unit())
	}
}

func TestNewCounter(t *testing.T) {
	if _, err := NewCounter("characters"); err != nil {
		t.Fatalf("characters: %v", err)
	}
	if _, err := NewCounter("bytes"); err == nil {
		t.Fatalf("unknown unit should be rejected")
	}
}
