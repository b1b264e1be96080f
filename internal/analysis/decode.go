package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyResponse is returned when the model produced no content.
	ErrEmptyResponse = errors.New("analysis: empty response")
	// ErrSchema is returned when the model output does not match ResultSchema.
	ErrSchema = errors.New("analysis: response does not match schema")
)

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// Decode parses model output into a Result. A surrounding ```json fence is
// removed, the JSON is checked against the schema, and segments that fail
// NormalizeSegment are dropped.
func Decode(raw []byte) (*Result, error) {
	text := stripCodeBlock(string(raw))
	if text == "" {
		return nil, ErrEmptyResponse
	}
	if err := ValidateJSON([]byte(text)); err != nil {
		return nil, fmt.Errorf("%w (raw: %s)", err, truncate(text, 200))
	}

	var res Result
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return nil, fmt.Errorf("parse result json: %w", err)
	}
	res.Title = strings.TrimSpace(res.Title)
	res.Language = strings.TrimSpace(res.Language)

	kept := res.Segments[:0]
	for i := range res.Segments {
		if NormalizeSegment(&res.Segments[i]) {
			kept = append(kept, res.Segments[i])
		}
	}
	res.Segments = kept
	return &res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
