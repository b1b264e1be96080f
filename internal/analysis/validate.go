package analysis

import "strings"

var validTypes = map[SegmentType]bool{
	SegmentText:    true,
	SegmentFormula: true,
	SegmentChart:   true,
	SegmentTable:   true,
}

// NormalizeSegment trims a segment and clamps its confidence into 0-100.
// It returns false when the segment should be dropped.
func NormalizeSegment(s *Segment) bool {
	if s == nil {
		return false
	}
	if !validTypes[s.Type] {
		return false
	}
	s.Content = strings.TrimSpace(s.Content)
	if s.Content == "" {
		return false
	}
	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 100 {
		s.Confidence = 100
	}
	return true
}
