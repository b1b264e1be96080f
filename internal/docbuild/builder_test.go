package docbuild

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/mathdocx/internal/analysis"
)

// documentXML renders res and returns word/document.xml.
func documentXML(t *testing.T, b *Builder, res *analysis.Result) (string, Report) {
	t.Helper()
	var buf bytes.Buffer
	rep, err := b.Render(res, &buf)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open document.xml: %v", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read document.xml: %v", err)
		}
		return string(data), rep
	}
	t.Fatal("word/document.xml not found")
	return "", rep
}

func TestBuild_Segments(t *testing.T) {
	res := &analysis.Result{
		Title:    "Kinematics",
		Language: "English",
		Segments: []analysis.Segment{
			{Type: analysis.SegmentText, Content: "Velocity is $v = \\frac{d}{t}$ here.\n\nSecond line"},
			{Type: analysis.SegmentFormula, Content: `x^2 + \sqrt{y}`},
			{Type: analysis.SegmentChart, Content: "Bars rise\nthen fall"},
			{Type: analysis.SegmentTable, Content: "a | b\n$x^2$ | 4"},
		},
	}
	got, rep := documentXML(t, NewBuilder(DefaultStyle(), 0, nil), res)

	want := Report{Segments: 4, Formulas: 1, InlineMath: 2, Tables: 1}
	if rep != want {
		t.Errorf("report = %+v, want %+v", rep, want)
	}
	for _, s := range []string{
		"Kinematics",
		`<w:t xml:space="preserve">Velocity is </w:t>`,
		`<w:t xml:space="preserve"> here.</w:t>`,
		"Second line",
		`<m:oMath xmlns:m="http://schemas.openxmlformats.org/officeDocument/2006/math">`,
		"<m:f>",
		"<m:sSup>",
		"<m:rad>",
		`w:fill="F0FDFA"`,
		"<w:br",
		"<w:tbl>",
		"Developed by JENOVAS",
		`<w:jc w:val="start">`,
	} {
		if !strings.Contains(got, s) {
			t.Errorf("document.xml missing %s", s)
		}
	}
}

func TestBuild_UntitledAndRTL(t *testing.T) {
	res := &analysis.Result{Language: "Persian"}
	got, rep := documentXML(t, NewBuilder(DefaultStyle(), 0, nil), res)
	if rep.Segments != 0 {
		t.Errorf("expected 0 segments, got %d", rep.Segments)
	}
	if !strings.Contains(got, "بدون عنوان") {
		t.Error("expected untitled label")
	}
	if !strings.Contains(got, `<w:jc w:val="end">`) {
		t.Error("expected end-aligned heading for RTL language")
	}
}

func TestBuild_FallbackOnDeepNesting(t *testing.T) {
	deep := `\frac{\frac{\frac{a}{b}}{c}}{d}`
	res := &analysis.Result{Segments: []analysis.Segment{
		{Type: analysis.SegmentFormula, Content: deep},
		{Type: analysis.SegmentText, Content: "inline $" + deep + "$ too"},
	}}
	got, rep := documentXML(t, NewBuilder(DefaultStyle(), 2, nil), res)
	if rep.Fallbacks != 2 {
		t.Errorf("expected 2 fallbacks, got %d", rep.Fallbacks)
	}
	if strings.Contains(got, "<m:oMath") {
		t.Error("expected no equations after fallback")
	}
	if !strings.Contains(got, `w:ascii="Cambria Math"`) {
		t.Error("expected fallback run in math font")
	}
	if !strings.Contains(got, `\frac{\frac{\frac{a}{b}}{c}}{d}`) {
		t.Error("expected raw LaTeX in fallback run")
	}
}

func TestBuild_UnknownSegmentSkipped(t *testing.T) {
	res := &analysis.Result{Segments: []analysis.Segment{
		{Type: "diagram", Content: "ignored"},
		{Type: analysis.SegmentText, Content: "kept"},
	}}
	got, rep := documentXML(t, NewBuilder(DefaultStyle(), 0, nil), res)
	if rep.Segments != 1 {
		t.Errorf("expected 1 segment, got %d", rep.Segments)
	}
	if strings.Contains(got, "ignored") {
		t.Error("unknown segment should not be rendered")
	}
}

func TestBuild_NoFooter(t *testing.T) {
	style := DefaultStyle()
	style.Footer = ""
	got, _ := documentXML(t, NewBuilder(style, 0, nil), &analysis.Result{Title: "t"})
	if strings.Contains(got, "JENOVAS") {
		t.Error("footer should be omitted")
	}
}

func TestRender_Reparses(t *testing.T) {
	res := &analysis.Result{
		Title: "Round trip",
		Segments: []analysis.Segment{
			{Type: analysis.SegmentText, Content: "alpha $\\alpha$ beta"},
			{Type: analysis.SegmentTable, Content: "h1 | h2\nv1 | v2"},
		},
	}
	var buf bytes.Buffer
	if _, err := NewBuilder(DefaultStyle(), 0, nil).Render(res, &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	doc, err := docx.Parse(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tables := 0
	for _, it := range doc.Document.Body.Items {
		if _, ok := it.(*docx.Table); ok {
			tables++
		}
	}
	if tables != 1 {
		t.Errorf("expected 1 table after reparse, got %d", tables)
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"scan.png", "scan_Analysis.docx"},
		{"dir/notes.v2.md", "notes.v2_Analysis.docx"},
		{"noext", "noext_Analysis.docx"},
		{"", "document_Analysis.docx"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.in); got != tt.want {
			t.Errorf("OutputName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsRTL(t *testing.T) {
	for _, lang := range []string{"Persian", "arabic", " Hebrew ", "ur"} {
		if !IsRTL(lang) {
			t.Errorf("IsRTL(%q) = false", lang)
		}
	}
	for _, lang := range []string{"English", "", "German"} {
		if IsRTL(lang) {
			t.Errorf("IsRTL(%q) = true", lang)
		}
	}
}
