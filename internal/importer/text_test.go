package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/mathdocx/internal/analysis"
)

func TestTextImporter_Paragraphs(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\n$$\n\\frac{a}{b}\n$$\n\nSecond $x$ paragraph.\n\\[ y^2 \\]"
	p := &TextImporter{}
	res, err := p.Import(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", res.Title)
	}
	if res.Language != "English" {
		t.Errorf("expected language English, got %q", res.Language)
	}

	want := []analysis.Segment{
		{Type: analysis.SegmentText, Content: "First paragraph line one.\nFirst paragraph line two.", Confidence: 100},
		{Type: analysis.SegmentFormula, Content: `\frac{a}{b}`, Confidence: 100},
		{Type: analysis.SegmentText, Content: "Second $x$ paragraph.\n\\[ y^2 \\]", Confidence: 100},
	}
	if len(res.Segments) != len(want) {
		t.Fatalf("expected %d segments, got %d: %+v", len(want), len(res.Segments), res.Segments)
	}
	for i, w := range want {
		if res.Segments[i] != w {
			t.Errorf("segment[%d]: expected %+v, got %+v", i, w, res.Segments[i])
		}
	}
}

func TestTextImporter_BracketDisplayMath(t *testing.T) {
	p := &TextImporter{}
	res, err := p.Import(strings.NewReader(`\[ E = mc^2 \]`), "one.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Segments) != 1 || res.Segments[0].Type != analysis.SegmentFormula {
		t.Fatalf("expected one formula, got %+v", res.Segments)
	}
	if res.Segments[0].Content != "E = mc^2" {
		t.Errorf("expected trimmed formula, got %q", res.Segments[0].Content)
	}
}

func TestTextImporter_EmptyInput(t *testing.T) {
	p := &TextImporter{}
	res, err := p.Import(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", res.Title)
	}
	if len(res.Segments) != 0 {
		t.Errorf("expected 0 segments for empty input, got %d", len(res.Segments))
	}
	if res.Language != "" {
		t.Errorf("expected no language for empty input, got %q", res.Language)
	}
}

func TestTextImporter_LanguageIgnoresFileName(t *testing.T) {
	p := &TextImporter{}
	res, err := p.Import(strings.NewReader("کتاب"), "chapter-one-exercises.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Language != "Persian" {
		t.Errorf("expected language from the body, got %q", res.Language)
	}
}

func TestDisplayMath(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"$$x$$", "x", true},
		{"  $$ a+b $$ ", "a+b", true},
		{`\[x\]`, "x", true},
		{"$$ $$", "", false},
		{"$$a$$ and $$b$$", "", false},
		{"$x$", "", false},
		{"plain", "", false},
	}
	for _, tt := range tests {
		got, ok := displayMath(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("displayMath(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The mean is 4", "English"},
		{"میانگین برابر است با چهار", "Persian"},
		{"المتوسط هو أربعة", "Arabic"},
		{"הממוצע הוא ארבע", "Hebrew"},
		{"1 + 2 = 3", ""},
	}
	for _, tt := range tests {
		if got := detectLanguage(tt.in); got != tt.want {
			t.Errorf("detectLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.txt", "b.MD", "c.markdown", "d.csv", "e.htm", "f.pdf", "g.docx", "h.xlsx"} {
		if _, err := ForFile(name, Options{}); err != nil {
			t.Errorf("ForFile(%q): %v", name, err)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("expected %q to be supported", name)
		}
	}
	_, err := ForFile("virus.exe", Options{})
	if !errors.Is(err, ErrUnsupportedExtension) {
		t.Errorf("expected ErrUnsupportedExtension, got %v", err)
	}
	if IsSupportedExtension("photo.png") {
		t.Error("images are not importable documents")
	}
}

func TestParagraphs(t *testing.T) {
	got := paragraphs("a\r\nb  \r\n\r\n\n  \nc\n")
	want := []string{"a\nb", "c"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("paragraphs = %q, want %q", got, want)
	}
	if got := paragraphs("\n\n"); len(got) != 0 {
		t.Errorf("expected no paragraphs, got %q", got)
	}
}

func TestPDFImporter_NotAPDF(t *testing.T) {
	p := &PDFImporter{}
	if _, err := p.Import(strings.NewReader("plain text, no pdf header"), "bad.pdf"); err == nil {
		t.Fatal("expected error for non-pdf input")
	}
}
