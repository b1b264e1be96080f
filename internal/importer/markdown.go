package importer

import (
	"io"
	"strings"

	"github.com/dgallion1/mathdocx/internal/analysis"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// mathLanguages are fenced code info strings treated as display math.
var mathLanguages = map[string]bool{
	"math":  true,
	"latex": true,
	"tex":   true,
}

// MarkdownImporter handles Markdown files using goldmark. The first level-1
// heading becomes the title. Text is taken from the raw source lines so
// backslash escapes inside math survive.
type MarkdownImporter struct{}

func (p *MarkdownImporter) Import(r io.Reader, filename string) (*analysis.Result, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	b := newBuilder(filename)
	titled := false

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			t := rawLines(node, src)
			if node.Level == 1 && !titled && t != "" {
				b.res.Title = t
				titled = true
				continue
			}
			b.add(analysis.SegmentText, t)

		case *ast.FencedCodeBlock:
			body := rawLines(node, src)
			if mathLanguages[strings.ToLower(string(node.Language(src)))] {
				b.add(analysis.SegmentFormula, body)
			} else {
				b.add(analysis.SegmentText, body)
			}

		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				b.addBlock(blockText(item, src))
			}

		case *extast.Table:
			b.addTable(markdownTableRows(node, src))

		case *ast.HTMLBlock:
			continue

		default:
			b.addBlock(blockText(n, src))
		}
	}

	return b.result(), nil
}

// rawLines returns the source lines of a block joined with newlines.
func rawLines(n ast.Node, src []byte) string {
	lines := n.Lines()
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		parts = append(parts, strings.TrimRight(string(line.Value(src)), "\r\n"))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// blockText returns the raw text of a block, descending into container
// blocks such as list items and block quotes.
func blockText(n ast.Node, src []byte) string {
	if n.Type() != ast.TypeBlock {
		return ""
	}
	if n.Lines().Len() > 0 {
		return rawLines(n, src)
	}
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func markdownTableRows(tbl *extast.Table, src []byte) [][]string {
	var rows [][]string
	for row := tbl.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, inlineText(cell, src))
		}
		rows = append(rows, cells)
	}
	return rows
}

// inlineText concatenates the text segments under an inline container.
func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.WriteString(inlineText(c, src))
	}
	return strings.TrimSpace(sb.String())
}
