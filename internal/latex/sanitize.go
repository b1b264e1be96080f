package latex

import (
	"regexp"
	"strings"
)

var (
	environmentRe = regexp.MustCompile(`\\(?:begin|end)\{(?:aligned|split|equation\*?|align\*?|gather\*?|gathered)\}`)
	textWrapRe    = regexp.MustCompile(`\\(?:text|mbox)\s*\{([^{}]+)\}`)
)

// Sanitize strips the structural markup that OMML has no equivalent for:
// aligned/split/equation environments collapse to their contents, \text{}
// wrappers are unwrapped, and row (&) and line (\\) separators become spaces.
//
// The replacements are applied until the string stops changing, so
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(raw string) string {
	s := raw
	for {
		next := sanitizePass(s)
		if next == s {
			return s
		}
		s = next
	}
}

func sanitizePass(s string) string {
	s = environmentRe.ReplaceAllString(s, "")
	s = textWrapRe.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, "&", " ")
	s = strings.ReplaceAll(s, `\\`, " ")
	return strings.TrimSpace(s)
}
