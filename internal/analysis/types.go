// Package analysis holds the structured page analysis produced by the
// vision model, and the client that requests it.
package analysis

// SegmentType classifies one unit of extracted content.
type SegmentType string

const (
	SegmentText    SegmentType = "text"
	SegmentFormula SegmentType = "formula"
	SegmentChart   SegmentType = "chart_description"
	SegmentTable   SegmentType = "table"
)

// Segment is one ordered unit of page content. Confidence is informational
// (0-100) and does not affect rendering.
type Segment struct {
	Type       SegmentType `json:"type"`
	Content    string      `json:"content"`
	Confidence float64     `json:"confidence"`
}

// Result is the full analysis of one page or document.
type Result struct {
	Title    string    `json:"title"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Count returns how many segments have type t.
func (r *Result) Count(t SegmentType) int {
	n := 0
	for _, s := range r.Segments {
		if s.Type == t {
			n++
		}
	}
	return n
}
