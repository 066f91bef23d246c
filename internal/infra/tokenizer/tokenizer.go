package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// WordsEncoding selects the whitespace tokenizer.
const WordsEncoding = "words"

// Counter measures text length in tokens.
type Counter interface {
	CountTokens(text string) int
}

// New returns the tokenizer for the named encoding.
func New(encoding string) (Counter, error) {
	encoding = strings.TrimSpace(encoding)
	if encoding == "" || encoding == WordsEncoding {
		return Words{}, nil
	}
	return NewTiktoken(encoding)
}

// Tiktoken counts BPE tokens.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads a BPE encoding such as cl100k_base.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// CountTokens implements Counter.
func (t *Tiktoken) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Words approximates tokens with whitespace separated words.
type Words struct{}

// CountTokens implements Counter.
func (Words) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(strings.Fields(text))
}
