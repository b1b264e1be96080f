package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/mathdocx/internal/analysis"
)

// TextImporter handles plain text files. Blank lines separate paragraphs; a
// paragraph that is entirely $$…$$ or \[…\] becomes a formula.
type TextImporter struct{}

func (p *TextImporter) Import(r io.Reader, filename string) (*analysis.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	b := newBuilder(filename)
	for _, para := range paragraphs(string(data)) {
		b.addBlock(para)
	}
	return b.result(), nil
}

// paragraphs splits text on blank lines. Line endings are normalized and
// lines inside a paragraph are kept.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, "\n"))
			cur = cur[:0]
		}
	}
	for line := range strings.SplitSeq(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, strings.TrimRight(line, " \t\r"))
	}
	flush()
	return out
}
