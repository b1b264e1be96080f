package analysis

import (
	"errors"
	"testing"
)

func TestDecode_Valid(t *testing.T) {
	raw := `{
		"title": "  Quadratic formula ",
		"language": "English",
		"segments": [
			{"type": "text", "content": "The roots of $ax^2+bx+c$ are", "confidence": 97},
			{"type": "formula", "content": "x = \\frac{-b \\pm \\sqrt{b^2-4ac}}{2a}", "confidence": 140},
			{"type": "chart_description", "content": "   ", "confidence": 50}
		]
	}`
	res, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "Quadratic formula" {
		t.Errorf("expected trimmed title, got %q", res.Title)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected blank segment to be dropped, got %d segments", len(res.Segments))
	}
	if res.Segments[1].Type != SegmentFormula {
		t.Errorf("expected formula, got %q", res.Segments[1].Type)
	}
	if res.Segments[1].Confidence != 100 {
		t.Errorf("expected confidence clamped to 100, got %v", res.Segments[1].Confidence)
	}
	if res.Count(SegmentText) != 1 {
		t.Errorf("expected 1 text segment, got %d", res.Count(SegmentText))
	}
}

func TestDecode_StripsCodeFence(t *testing.T) {
	raw := "```json\n{\"title\": \"t\", \"segments\": [{\"type\": \"text\", \"content\": \"hi\"}]}\n```"
	res, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Segments) != 1 || res.Segments[0].Content != "hi" {
		t.Errorf("unexpected segments: %+v", res.Segments)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "   ", ErrEmptyResponse},
		{"empty fence", "```json\n```", ErrEmptyResponse},
		{"not json", "I could not read the page.", ErrSchema},
		{"missing segments", `{"title": "x"}`, ErrSchema},
		{"unknown segment type", `{"title": "x", "segments": [{"type": "image", "content": "a"}]}`, ErrSchema},
		{"content not string", `{"title": "x", "segments": [{"type": "text", "content": 3}]}`, ErrSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNormalizeSegment(t *testing.T) {
	if NormalizeSegment(nil) {
		t.Error("expected nil segment to be rejected")
	}
	s := Segment{Type: "diagram", Content: "x"}
	if NormalizeSegment(&s) {
		t.Error("expected unknown type to be rejected")
	}
	s = Segment{Type: SegmentTable, Content: "  a | b \n c | d  ", Confidence: -5}
	if !NormalizeSegment(&s) {
		t.Fatal("expected table segment to pass")
	}
	if s.Content != "a | b \n c | d" {
		t.Errorf("expected trimmed content, got %q", s.Content)
	}
	if s.Confidence != 0 {
		t.Errorf("expected confidence clamped to 0, got %v", s.Confidence)
	}
}
