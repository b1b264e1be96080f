package latex

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxNesting bounds how deep groups, arguments and delimiters recurse.
// Anything nested deeper is read flat: braces and script markers are skipped
// and structural commands keep only their text.
const maxNesting = 256

// Parse converts sanitized markup into a node sequence.
//
// Parse never fails. Unknown commands are dropped, an unclosed group runs to
// the end of the enclosing range, and an unmatched \left keeps its contents
// but loses its delimiters. Braces and \left/\right pairs are matched once up
// front, so the work is linear in the length of src.
func Parse(src string) []Node {
	s := &scanner{src: src, end: len(src), pairs: matchPairs(src)}
	return attachScripts(s.scan())
}

// scanner is the cursor over src[pos:end]. Nested ranges share src and the
// precomputed pairs.
type scanner struct {
	src   string
	pos   int
	end   int
	depth int
	pairs *pairs
}

// pairs maps each opening offset in the input to the offset of its partner.
type pairs struct {
	brace map[int]int // '{' -> '}'
	right map[int]int // \left -> \right
}

// item is one element of a sibling sequence before scripts are attached.
// Exactly one of node and script is set.
type item struct {
	node   Node
	script *script
}

type script struct {
	super bool
	arg   []Node
}

// attachScripts folds every script marker into the node before it. A marker
// with nothing before it gets an empty base.
func attachScripts(items []item) []Node {
	var out []Node
	for _, it := range items {
		if it.script == nil {
			out = append(out, it.node)
			continue
		}
		base := []Node{Run{}}
		if n := len(out); n > 0 {
			base = []Node{out[n-1]}
			out = out[:n-1]
		}
		if it.script.super {
			out = append(out, SuperScript{Base: base, Exponent: it.script.arg})
		} else {
			out = append(out, SubScript{Base: base, Subscript: it.script.arg})
		}
	}
	return out
}

// sub parses src[start:end] one level deeper.
func (s *scanner) sub(start, end int) []Node {
	c := &scanner{src: s.src, pos: start, end: end, depth: s.depth + 1, pairs: s.pairs}
	return attachScripts(c.scan())
}

func (s *scanner) flat() bool {
	return s.depth > maxNesting
}

func (s *scanner) scan() []item {
	var items []item
	for s.pos < s.end {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:s.end])
		switch {
		case r == '\\':
			items = s.command(items)
		case s.flat() && (r == '^' || r == '_' || r == '{' || r == '}'):
			s.pos += size
		case r == '^' || r == '_':
			s.pos += size
			items = append(items, item{script: &script{super: r == '^', arg: s.argument()}})
		case r == '{':
			items = appendNodes(items, s.readGroup())
		case unicode.IsSpace(r):
			s.pos += size
		default:
			s.pos += size
			items = append(items, item{node: Run{Text: string(r)}})
		}
	}
	return items
}

func (s *scanner) command(items []item) []item {
	at := s.pos
	name := s.controlSequence()
	switch {
	case name == "":
		return items
	case name == "right" || s.flat() && name == "left":
		if d := s.delimiter(); d != "" {
			items = append(items, item{node: Run{Text: d}})
		}
		return items
	case s.flat() && (name == "frac" || name == "sqrt" || wrappers[name]):
		return items
	case name == "frac":
		num := s.argument()
		den := s.argument()
		return append(items, item{node: Fraction{Numerator: num, Denominator: den}})
	case name == "sqrt":
		degree := s.degree()
		content := s.argument()
		return append(items, item{node: Radical{Degree: degree, Content: content}})
	case name == "left":
		return appendNodes(items, s.delimited(at))
	case wrappers[name]:
		return appendNodes(items, s.argument())
	}
	if text, ok := leaf(name); ok {
		return append(items, item{node: Run{Text: text}})
	}
	return items
}

// leaf resolves a command that stands for plain text.
func leaf(name string) (string, bool) {
	switch {
	case functions[name]:
		return name, true
	case spacing[name]:
		return " ", true
	case escaped[name]:
		return name, true
	}
	glyph, ok := symbols[name]
	return glyph, ok
}

// controlSequence consumes a backslash and the name after it: a run of ASCII
// letters, or a single other character. A trailing backslash yields "".
func (s *scanner) controlSequence() string {
	s.pos++
	start := s.pos
	for s.pos < s.end && isLetter(s.src[s.pos]) {
		s.pos++
	}
	if s.pos > start || s.pos >= s.end {
		return s.src[start:s.pos]
	}
	_, size := utf8.DecodeRuneInString(s.src[s.pos:s.end])
	s.pos += size
	return s.src[start:s.pos]
}

// argument reads the operand of \frac, \sqrt, a wrapper or a script: a brace
// group, a single control sequence, or a single character.
func (s *scanner) argument() []Node {
	s.skipSpace()
	if s.pos >= s.end {
		return nil
	}
	switch s.src[s.pos] {
	case '{':
		return s.readGroup()
	case '\\':
		start := s.pos
		s.controlSequence()
		return s.sub(start, s.pos)
	}
	r, size := utf8.DecodeRuneInString(s.src[s.pos:s.end])
	s.pos += size
	return []Node{Run{Text: string(r)}}
}

// degree reads the optional [n] of \sqrt as one literal run.
func (s *scanner) degree() []Node {
	s.skipSpace()
	if s.pos >= s.end || s.src[s.pos] != '[' {
		return nil
	}
	var text string
	if n := strings.IndexByte(s.src[s.pos+1:s.end], ']'); n >= 0 {
		text = s.src[s.pos+1 : s.pos+1+n]
		s.pos += n + 2
	} else {
		text = s.src[s.pos+1 : s.end]
		s.pos = s.end
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return []Node{Run{Text: text}}
}

// readGroup reads the brace group opening at the cursor and leaves the
// cursor just past the '}' that closes it. A group not closed inside the
// current range runs to the end of the range.
func (s *scanner) readGroup() []Node {
	open := s.pos
	end, ok := s.pairs.brace[open]
	if !ok || end >= s.end {
		s.pos = s.end
		return s.sub(open+1, s.end)
	}
	s.pos = end + 1
	return s.sub(open+1, end)
}

// delimited handles everything after the \left at offset left: the opening
// delimiter, the body up to the matching \right, and the closing delimiter.
func (s *scanner) delimited(left int) []Node {
	open := s.delimiter()
	start := s.pos
	right, ok := s.pairs.right[left]
	if !ok || right < start || right+len(`\right`) > s.end {
		s.pos = s.end
		return s.sub(start, s.end)
	}
	body := s.sub(start, right)
	s.pos = right + len(`\right`)
	closing := s.delimiter()

	out := make([]Node, 0, len(body)+2)
	if open != "" {
		out = append(out, Run{Text: open})
	}
	out = append(out, body...)
	if closing != "" {
		out = append(out, Run{Text: closing})
	}
	return out
}

// delimiter reads the token following \left or \right. The null delimiter
// "." and unknown control words yield "".
func (s *scanner) delimiter() string {
	s.skipSpace()
	if s.pos >= s.end {
		return ""
	}
	if s.src[s.pos] == '\\' {
		name := s.controlSequence()
		switch {
		case name == "|":
			return "‖"
		case escaped[name]:
			return name
		}
		if glyph, ok := symbols[name]; ok {
			return glyph
		}
		return ""
	}
	r, size := utf8.DecodeRuneInString(s.src[s.pos:s.end])
	s.pos += size
	if r == '.' {
		return ""
	}
	return string(r)
}

func (s *scanner) skipSpace() {
	for s.pos < s.end {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:s.end])
		if !unicode.IsSpace(r) {
			return
		}
		s.pos += size
	}
}

// matchPairs pairs every '{' with its '}' and every \left with its \right in
// a single pass. Escaped characters never count, and the control word
// naming a \left's delimiter is not itself treated as \left or \right.
// Openers without a partner are absent from the maps.
func matchPairs(src string) *pairs {
	p := &pairs{brace: map[int]int{}, right: map[int]int{}}
	var braces, lefts []int
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '{':
			braces = append(braces, i)
		case '}':
			if n := len(braces); n > 0 {
				p.brace[braces[n-1]] = i
				braces = braces[:n-1]
			}
		case '\\':
			switch {
			case isControlWord(src, i, "left"):
				lefts = append(lefts, i)
				i = skipDelimiterWord(src, i+1+len("left")) - 1
			case isControlWord(src, i, "right"):
				if n := len(lefts); n > 0 {
					p.right[lefts[n-1]] = i
					lefts = lefts[:n-1]
				}
				i += len("right")
			default:
				// the escaped byte, or the first letter of a control word
				i++
			}
		}
	}
	return p
}

// skipDelimiterWord returns the offset just past the control word at the
// start of src[i:], after leading space. Any other token is left in place.
func skipDelimiterWord(src string, i int) int {
	j := i
	for j < len(src) {
		r, size := utf8.DecodeRuneInString(src[j:])
		if !unicode.IsSpace(r) {
			break
		}
		j += size
	}
	if j+1 >= len(src) || src[j] != '\\' || !isLetter(src[j+1]) {
		return i
	}
	j++
	for j < len(src) && isLetter(src[j]) {
		j++
	}
	return j
}

// isControlWord reports whether src[i:] is a backslash followed by exactly
// the control word name, so \right does not match \rightarrow.
func isControlWord(src string, i int, name string) bool {
	if !strings.HasPrefix(src[i+1:], name) {
		return false
	}
	next := i + 1 + len(name)
	return next >= len(src) || !isLetter(src[next])
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func appendNodes(items []item, nodes []Node) []item {
	for _, n := range nodes {
		items = append(items, item{node: n})
	}
	return items
}
