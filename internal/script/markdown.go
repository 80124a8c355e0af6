package script

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParseMarkdown renders the script through a Markdown parser first, so the
// tokens match what the display shows. Formatting characters (#, *, _) are
// consumed by the renderer and never become raw tokens; code blocks and
// link targets are skipped entirely.
func ParseMarkdown(markdown string) *ParsedScript {
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)

	var buf strings.Builder
	walkMarkdownNode(doc, reader.Source(), &buf)

	return parseTokens(markdown, strings.Fields(buf.String()))
}

// walkMarkdownNode recursively walks the AST and extracts spoken text.
func walkMarkdownNode(node ast.Node, source []byte, buf *strings.Builder) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
		// Never read code or embedded HTML aloud.
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		buf.WriteString(" ")
		return

	case *ast.CodeSpan:
		// Inline code is spoken as-is.
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
				buf.WriteString(" ")
			}
		}
		return

	case *ast.Link:
		// Read the link text, not the URL.
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walkMarkdownNode(c, source, buf)
		}
		return

	case *ast.Image:
		// Images have nothing to speak.
		return

	case *ast.Heading, *ast.Paragraph, *ast.ListItem:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			walkMarkdownNode(c, source, buf)
		}
		buf.WriteString(" ")
		return
	}

	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walkMarkdownNode(c, source, buf)
	}
}
