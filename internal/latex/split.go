package latex

// Span is one piece of a line that mixes prose with $-delimited math.
type Span interface {
	// Source returns the exact input text the span covers.
	Source() string
}

// Literal is prose copied through unchanged.
type Literal struct {
	Text string
}

// Math is an inline formula. Raw excludes the surrounding dollar signs.
type Math struct {
	Raw   string
	Nodes []Node
}

func (l Literal) Source() string { return l.Text }
func (m Math) Source() string    { return "$" + m.Raw + "$" }

// SplitInline cuts text into literal and math spans. A math span is a
// non-empty run between two unescaped dollar signs. An escaped \$ is never a
// delimiter, an empty pair "$$" stays literal, and a dangling opener leaves
// the rest of the text literal. Concatenating the Source of every span
// reproduces text exactly.
func SplitInline(text string) []Span {
	var spans []Span
	last := 0
	i := 0
	for i < len(text) {
		switch text[i] {
		case '\\':
			i += 2
			continue
		case '$':
			end := nextDollar(text, i+1)
			if end < 0 {
				i = len(text)
				continue
			}
			if end == i+1 {
				// The second dollar may still open a span of its own.
				i++
				continue
			}
			if i > last {
				spans = append(spans, Literal{Text: text[last:i]})
			}
			raw := text[i+1 : end]
			spans = append(spans, Math{Raw: raw, Nodes: Parse(Sanitize(raw))})
			i = end + 1
			last = i
			continue
		}
		i++
	}
	if last < len(text) {
		spans = append(spans, Literal{Text: text[last:]})
	}
	return spans
}

// nextDollar returns the offset of the first unescaped '$' at or after from,
// or -1.
func nextDollar(text string, from int) int {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '$':
			return i
		}
	}
	return -1
}
