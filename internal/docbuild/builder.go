// Package docbuild assembles a Word document from an analysis result,
// rendering formulas and inline math as native Office Math.
package docbuild

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/mathdocx/internal/analysis"
	"github.com/dgallion1/mathdocx/internal/latex"
	"github.com/dgallion1/mathdocx/internal/omml"
)

// Report counts what a build produced.
type Report struct {
	Segments   int `json:"segments"`
	Formulas   int `json:"formulas"`
	InlineMath int `json:"inline_math"`
	Tables     int `json:"tables"`
	// Fallbacks counts formulas and inline spans written as plain text
	// because their equation could not be built.
	Fallbacks int `json:"fallbacks"`
}

// Builder turns analysis results into documents. It holds no per-build
// state and is safe for concurrent use.
type Builder struct {
	style    Style
	maxDepth int
	log      *slog.Logger
}

// NewBuilder creates a Builder. maxDepth bounds equation nesting; zero uses
// the omml default.
func NewBuilder(style Style, maxDepth int, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Builder{style: style, maxDepth: maxDepth, log: log}
}

// Style returns the builder's style.
func (b *Builder) Style() Style {
	return b.style
}

// Render builds the document and writes it to w.
func (b *Builder) Render(res *analysis.Result, w io.Writer) (Report, error) {
	doc, rep := b.Build(res)
	if _, err := doc.WriteTo(w); err != nil {
		return rep, fmt.Errorf("write docx: %w", err)
	}
	return rep, nil
}

// Build lays out header, title, every segment in order, and the footer.
func (b *Builder) Build(res *analysis.Result) (*docx.Docx, Report) {
	doc := docx.New().WithDefaultTheme().WithA4Page()
	a := &assembly{Builder: b, doc: doc, rtl: IsRTL(res.Language)}

	a.header()
	a.title(res.Title)
	for _, seg := range res.Segments {
		switch seg.Type {
		case analysis.SegmentFormula:
			a.formula(seg.Content)
		case analysis.SegmentText:
			a.text(seg.Content)
		case analysis.SegmentChart:
			a.chart(seg.Content)
		case analysis.SegmentTable:
			a.table(seg.Content)
		default:
			b.log.Warn("skipping segment of unknown type", "type", seg.Type)
			continue
		}
		a.report.Segments++
	}
	a.footer()
	return doc, a.report
}

// assembly carries the state of one Build call.
type assembly struct {
	*Builder
	doc    *docx.Docx
	rtl    bool
	report Report
}

func (a *assembly) align() string {
	if a.rtl {
		return "end"
	}
	return "start"
}

func (a *assembly) header() {
	if a.style.HeaderLabel == "" {
		return
	}
	p := a.doc.AddParagraph().Justification(a.align())
	r := p.AddText(a.style.HeaderLabel)
	a.font(r, a.style.BodyFont, a.style.HeaderSize).Color(a.style.AccentColor)
}

func (a *assembly) title(title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = a.style.UntitledLabel
	}
	p := a.doc.AddParagraph().Justification(a.align())
	p.Properties.Spacing = &docx.Spacing{Before: 240}
	r := p.AddText(title)
	a.font(r, a.style.BodyFont, a.style.TitleSize).Color(a.style.TitleColor).Bold()
}

func (a *assembly) formula(content string) {
	p := a.doc.AddParagraph().Justification("center")
	p.Properties.Spacing = &docx.Spacing{Before: 300, Line: 360, LineRule: "auto"}
	a.math(p, content)
	a.report.Formulas++
}

func (a *assembly) text(content string) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		p := a.doc.AddParagraph().Justification("both")
		p.Properties.Spacing = &docx.Spacing{Before: 120, Line: 360, LineRule: "auto"}
		a.mixed(p, line)
	}
}

func (a *assembly) chart(content string) {
	label := a.doc.AddParagraph().Justification(a.align())
	label.Properties.Spacing = &docx.Spacing{Before: 200}
	label.Properties.Shade = &docx.Shade{Val: "clear", Color: "auto", Fill: a.style.ChartFill}
	r := label.AddText(a.style.ChartLabel)
	a.font(r, a.style.BodyFont, a.style.ChartSize).Color(a.style.AccentColor).Bold()

	body := a.doc.AddParagraph().Justification("both")
	body.Properties.Shade = &docx.Shade{Val: "clear", Color: "auto", Fill: a.style.ChartFill}
	body.Properties.Ind = &docx.Ind{Left: 100}
	body.Properties.Spacing = &docx.Spacing{Line: 360, LineRule: "auto"}
	r = body.AddText(strings.TrimSpace(content))
	a.font(r, a.style.BodyFont, a.style.ChartSize)
	preserveSpace(r)
}

func (a *assembly) table(content string) {
	rows := analysis.ParseTable(content)
	if len(rows) == 0 {
		return
	}
	tbl := a.doc.AddTable(len(rows), len(rows[0]), 0, nil)
	tbl.Justification("center")
	for i, row := range rows {
		for j, cell := range row {
			tc := tbl.TableRows[i].TableCells[j]
			if i == 0 {
				tc.Shade("clear", "auto", a.style.TableFill)
			}
			p := tc.AddParagraph().Justification(a.align())
			a.mixed(p, cell)
			if i == 0 {
				boldRuns(p)
			}
		}
	}
	a.report.Tables++
}

func (a *assembly) footer() {
	if a.style.Footer == "" {
		return
	}
	p := a.doc.AddParagraph().Justification("center")
	p.Properties.Spacing = &docx.Spacing{Before: 600}
	r := p.AddText(a.style.Footer)
	a.font(r, a.style.FooterFont, a.style.FooterSize).Color(a.style.FooterColor)
}

// mixed appends prose runs and inline equations for one line.
func (a *assembly) mixed(p *docx.Paragraph, line string) {
	for _, span := range latex.SplitInline(line) {
		switch s := span.(type) {
		case latex.Literal:
			if s.Text == "" {
				continue
			}
			r := p.AddText(s.Text)
			a.font(r, a.style.BodyFont, a.style.BodySize)
			preserveSpace(r)
		case latex.Math:
			if len(s.Nodes) == 0 {
				continue
			}
			a.appendMath(p, s.Nodes, s.Raw)
			a.report.InlineMath++
		}
	}
}

// math appends a display equation parsed from raw LaTeX.
func (a *assembly) math(p *docx.Paragraph, raw string) {
	a.appendMath(p, latex.Parse(latex.Sanitize(raw)), raw)
}

func (a *assembly) appendMath(p *docx.Paragraph, nodes []latex.Node, raw string) {
	m, err := omml.Build(nodes, a.maxDepth)
	if err != nil {
		a.log.Warn("equation fell back to plain text", "error", err, "latex", truncate(raw, 120))
		a.report.Fallbacks++
		r := p.AddText(raw)
		a.font(r, a.style.MathFont, a.style.BodySize)
		preserveSpace(r)
		return
	}
	p.Children = append(p.Children, m)
}

func (a *assembly) font(r *docx.Run, name string, size int) *docx.Run {
	sz := strconv.Itoa(size)
	return r.Font(name, name, name, "").Size(sz).SizeCs(sz)
}

// preserveSpace keeps leading and trailing blanks of a run's text, which
// Word otherwise collapses.
func preserveSpace(r *docx.Run) {
	for _, c := range r.Children {
		if t, ok := c.(*docx.Text); ok && strings.TrimSpace(t.Text) != t.Text {
			t.XMLSpace = "preserve"
		}
	}
}

func boldRuns(p *docx.Paragraph) {
	for _, c := range p.Children {
		if r, ok := c.(*docx.Run); ok {
			r.Bold()
		}
	}
}

// IsRTL reports whether language is written right to left.
func IsRTL(language string) bool {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "persian", "farsi", "fa", "arabic", "ar", "hebrew", "he", "urdu", "ur":
		return true
	}
	return false
}

// OutputName derives the download name for a converted file.
func OutputName(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "document"
	}
	return base + "_Analysis.docx"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
