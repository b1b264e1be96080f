package importer

import (
	"strings"
	"testing"

	"github.com/dgallion1/mathdocx/internal/analysis"
)

func TestHTMLImporter(t *testing.T) {
	input := `<html lang="fa-IR"><head><title>Stats</title><style>p{}</style></head><body>
<nav>skip me</nav>
<h1>Overview</h1>
<p>Mean is <script type="math/tex">\bar{x}</script> here.</p>
<script type="math/tex; mode=display">\sum_{i=1}^n x_i</script>
<table><tr><th>n</th><th>x</th></tr><tr><td>1</td><td>2</td></tr></table>
<script>var a = 1;</script>
</body></html>`

	p := &HTMLImporter{}
	res, err := p.Import(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "Stats" {
		t.Errorf("expected title from <title>, got %q", res.Title)
	}
	if res.Language != "Persian" {
		t.Errorf("expected language from lang attribute, got %q", res.Language)
	}

	want := []struct {
		typ     analysis.SegmentType
		content string
	}{
		{analysis.SegmentText, "Overview"},
		{analysis.SegmentText, `Mean is $\bar{x}$ here.`},
		{analysis.SegmentFormula, `\sum_{i=1}^n x_i`},
		{analysis.SegmentTable, "n | x\n1 | 2"},
	}
	if len(res.Segments) != len(want) {
		t.Fatalf("expected %d segments, got %d: %+v", len(want), len(res.Segments), res.Segments)
	}
	for i, w := range want {
		got := res.Segments[i]
		if got.Type != w.typ || got.Content != w.content {
			t.Errorf("segment[%d]: expected %s %q, got %s %q", i, w.typ, w.content, got.Type, got.Content)
		}
	}
}

func TestHTMLImporter_H1BecomesTitle(t *testing.T) {
	p := &HTMLImporter{}
	res, err := p.Import(strings.NewReader(`<body><h1>Heading</h1><p>Body</p></body>`), "x.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "Heading" {
		t.Errorf("expected h1 title, got %q", res.Title)
	}
	if len(res.Segments) != 1 || res.Segments[0].Content != "Body" {
		t.Errorf("unexpected segments %+v", res.Segments)
	}
}
