package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type markdownExtractor struct{}

func init() {
	Register("text/markdown", func() Extractor { return markdownExtractor{} }, ".md", ".markdown")
}

// Extract flattens a markdown document into paragraph-separated plain
// text. Headings become their own paragraphs so the chunker keeps them
// close to the text they introduce; fenced code blocks are kept verbatim.
func (markdownExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	_ = ctx
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: payload is not valid utf-8", ErrExtraction)
	}
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	var parts []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.FencedCodeBlock:
			var sb strings.Builder
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				sb.Write(line.Value(reader.Source()))
			}
			if code := strings.TrimSpace(sb.String()); code != "" {
				parts = append(parts, code)
			}
		case *ast.List:
			var lines []string
			for item := n.FirstChild(); item != nil; item = item.NextSibling() {
				if txt := nodeText(item, reader.Source()); txt != "" {
					lines = append(lines, "- "+txt)
				}
			}
			if len(lines) > 0 {
				parts = append(parts, strings.Join(lines, "\n"))
			}
		default:
			if txt := nodeText(node, reader.Source()); txt != "" {
				parts = append(parts, txt)
			}
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: markdown document has no text content", ErrExtraction)
	}
	return strings.Join(parts, "\n\n"), nil
}

func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			if node.(*ast.Text).HardLineBreak() || node.(*ast.Text).SoftLineBreak() {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
