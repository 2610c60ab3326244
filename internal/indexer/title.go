package indexer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Title styles.
const (
	TitleHeading = "heading"
	TitlePlain   = "plain"
)

// TitleFunc turns the raw first line of a note into its display title.
type TitleFunc func(line string) string

// TitleFuncFor returns the strategy registered under style.
func TitleFuncFor(style string) (TitleFunc, error) {
	switch style {
	case "", TitleHeading:
		return HeadingTitle, nil
	case TitlePlain:
		return PlainTitle, nil
	default:
		return nil, fmt.Errorf("unknown title style %q", style)
	}
}

// HeadingTitle strips the leading run of '#' markers and surrounding whitespace.
func HeadingTitle(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}

// PlainTitle strips heading markers, parses the rest as Markdown and keeps only
// its text, so "# Using `git bisect` *quickly*" becomes "Using git bisect quickly".
func PlainTitle(line string) string {
	heading := HeadingTitle(line)
	src := []byte(heading)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(src))
		}
		return ast.WalkContinue, nil
	})

	if title := strings.TrimSpace(buf.String()); title != "" {
		return title
	}
	return heading
}
