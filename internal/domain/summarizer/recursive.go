package summarizer

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const sentenceBoundary = ". "

// passFunc runs one model pass over text.
type passFunc func(ctx context.Context, text string) (string, error)

// recursive reduces arbitrarily long text to a summary by splitting it at
// sentence boundaries until each piece fits the model window.
type recursive struct {
	maxLength      int
	modelMaxLength int
	tokens         Tokenizer
	pass           passFunc
}

func (r *recursive) summarize(ctx context.Context, text string) (string, error) {
	n := r.tokens.CountTokens(text)
	if n < r.maxLength {
		return text, nil
	}
	if n < r.modelMaxLength {
		return r.pass(ctx, text)
	}

	split := splitPoint(text)
	if split < 0 {
		return r.pass(ctx, text)
	}
	left, right := text[:split], strings.TrimLeft(text[split:], " ")

	var leftSummary, rightSummary string
	var g errgroup.Group
	g.Go(func() error {
		var err error
		leftSummary, err = r.summarize(ctx, left)
		return err
	})
	g.Go(func() error {
		var err error
		rightSummary, err = r.summarize(ctx, right)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	joined := joinSummaries(leftSummary, rightSummary)
	if r.tokens.CountTokens(joined) > r.maxLength {
		return r.pass(ctx, joined)
	}
	return joined, nil
}

// splitPoint returns the byte offset where text is cut in two: just after the
// last ". " that starts at or before the rune midpoint, or the midpoint itself
// when there is none. It returns -1 for text too short to split.
func splitPoint(text string) int {
	runes := utf8.RuneCountInString(text)
	if runes < 2 {
		return -1
	}
	mid := runeOffset(text, runes/2)
	window := text[:min(len(text), mid+len(sentenceBoundary))]
	if idx := strings.LastIndex(window, sentenceBoundary); idx >= 0 {
		return idx + 1
	}
	return mid
}

func runeOffset(text string, n int) int {
	for i := range text {
		if n == 0 {
			return i
		}
		n--
	}
	return len(text)
}

func joinSummaries(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}
