// Package latex converts the linear LaTeX-like math markup produced by the
// analysis model into typed node trees.
//
// Sanitize, Parse and SplitInline are pure functions. They hold no shared
// state and may be called concurrently.
package latex

import "encoding/json"

// Node is one element of a parsed math expression. The set of node types is
// closed: Run, Fraction, Radical, SuperScript and SubScript.
type Node interface {
	node()
}

// Run is a literal character sequence: an operator, a digit, a letter or a
// substituted symbol glyph.
type Run struct {
	Text string
}

// Fraction is \frac{Numerator}{Denominator}.
type Fraction struct {
	Numerator   []Node
	Denominator []Node
}

// Radical is a root. An empty Degree is a square root.
type Radical struct {
	Degree  []Node
	Content []Node
}

// SuperScript attaches Exponent to Base.
type SuperScript struct {
	Base     []Node
	Exponent []Node
}

// SubScript attaches Subscript to Base.
type SubScript struct {
	Base      []Node
	Subscript []Node
}

func (Run) node()         {}
func (Fraction) node()    {}
func (Radical) node()     {}
func (SuperScript) node() {}
func (SubScript) node()   {}

// MarshalJSON encodes the run as {"type":"run","text":...}.
func (n Run) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"type": "run", "text": n.Text})
}

// MarshalJSON encodes the fraction with its numerator and denominator lists.
func (n Fraction) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":        "fraction",
		"numerator":   jsonList(n.Numerator),
		"denominator": jsonList(n.Denominator),
	})
}

// MarshalJSON encodes the radical. A missing degree is written as [].
func (n Radical) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":    "radical",
		"degree":  jsonList(n.Degree),
		"content": jsonList(n.Content),
	})
}

// MarshalJSON encodes the base and exponent lists under type "superscript".
func (n SuperScript) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":     "superscript",
		"base":     jsonList(n.Base),
		"exponent": jsonList(n.Exponent),
	})
}

// MarshalJSON encodes the base and subscript lists under type "subscript".
func (n SubScript) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":      "subscript",
		"base":      jsonList(n.Base),
		"subscript": jsonList(n.Subscript),
	})
}

// jsonList keeps empty child sequences as [] rather than null.
func jsonList(nodes []Node) []Node {
	if nodes == nil {
		return []Node{}
	}
	return nodes
}

// PlainText flattens nodes back into a readable linear string, as shown in
// previews and spreadsheet cells.
func PlainText(nodes []Node) string {
	var sb []byte
	var walk func([]Node)
	group := func(ns []Node) {
		if len(ns) == 1 {
			walk(ns)
			return
		}
		sb = append(sb, '(')
		walk(ns)
		sb = append(sb, ')')
	}
	walk = func(ns []Node) {
		for _, n := range ns {
			switch v := n.(type) {
			case Run:
				sb = append(sb, v.Text...)
			case Fraction:
				group(v.Numerator)
				sb = append(sb, '/')
				group(v.Denominator)
			case Radical:
				if len(v.Degree) > 0 {
					sb = append(sb, "root("...)
					walk(v.Degree)
					sb = append(sb, ')')
				} else {
					sb = append(sb, "√"...)
				}
				group(v.Content)
			case SuperScript:
				walk(v.Base)
				sb = append(sb, '^')
				group(v.Exponent)
			case SubScript:
				walk(v.Base)
				sb = append(sb, '_')
				group(v.Subscript)
			}
		}
	}
	walk(nodes)
	return string(sb)
}
