package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/yanqian/ml-services/internal/domain/article"
)

// minParagraphChars ignores captions, bylines and button labels.
const minParagraphChars = 40

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Form:     true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Template: true,
}

var blocks = map[atom.Atom]bool{
	atom.P:          true,
	atom.Pre:        true,
	atom.Blockquote: true,
	atom.H2:         true,
	atom.H3:         true,
	atom.Li:         true,
}

// HTML extracts the main text of a page: the paragraphs of the container
// holding the most paragraph text.
type HTML struct{}

// NewHTML builds the extractor.
func NewHTML() *HTML {
	return &HTML{}
}

// Load is a no-op; the extractor has no model weights.
func (*HTML) Load(context.Context) error {
	return nil
}

// Close is a no-op.
func (*HTML) Close() error {
	return nil
}

// Extract returns the main text, or "" when the page has none.
func (*HTML) Extract(_ context.Context, page article.Page) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var (
		order  []*html.Node
		groups = map[*html.Node][]string{}
		scores = map[*html.Node]int{}
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped[n.DataAtom] {
				return
			}
			if blocks[n.DataAtom] {
				text := collapse(textOf(n))
				if text == "" || n.Parent == nil {
					return
				}
				parent := n.Parent
				if _, ok := groups[parent]; !ok {
					order = append(order, parent)
				}
				groups[parent] = append(groups[parent], text)
				if n.DataAtom == atom.P && len(text) >= minParagraphChars {
					scores[parent] += len(text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var best *html.Node
	for _, n := range order {
		if scores[n] > 0 && (best == nil || scores[n] > scores[best]) {
			best = n
		}
	}
	if best == nil {
		return "", nil
	}
	return strings.Join(groups[best], "\n"), nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ article.Extractor = (*HTML)(nil)
