package analysis

import (
	"fmt"
	"strings"
)

const SystemPrompt = `You transcribe photographed or scanned pages into structured content for a Word document.

Return a JSON object with these fields:

- "title": a short title for the page (string)
- "language": the main language of the page, e.g. "English", "Persian" (string)
- "segments": the page content in reading order, a list of objects with:
  - "type": one of "text", "formula", "chart_description", "table"
  - "content": the segment content (string)
  - "confidence": how sure you are of the transcription, 0 to 100 (number)

Rules:
- "formula" segments hold one display equation as linear LaTeX, without surrounding $ signs
- Inside "text" segments, wrap inline math in single $...$ pairs
- Do NOT use aligned, split, equation or array environments; write multi-line derivations as separate formula segments
- Use \frac, \sqrt, ^ and _ with braces, and \left( ... \right) for growing delimiters
- "chart_description" segments describe a chart or diagram and its statistical meaning in plain prose
- "table" segments hold one row per line with cells separated by " | "
- Keep the original language of the page; do not translate
- Return {"title": "", "segments": []} if the page has no readable content

Respond with ONLY the JSON object, no other text.`

// BuildPrompt creates the user instruction sent alongside the image.
func BuildPrompt(filename, languageHint string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the attached page")
	if filename != "" {
		sb.WriteString(fmt.Sprintf(" (%q)", filename))
	}
	sb.WriteString(".")
	if languageHint != "" {
		sb.WriteString(" The page is expected to be in ")
		sb.WriteString(languageHint)
		sb.WriteString(".")
	}
	return sb.String()
}
