// Package omml renders parsed math nodes as Office Math Markup, the XML
// dialect Word uses for native equations.
//
// The element types marshal with encoding/xml and can be appended directly
// to a go-docx paragraph's Children.
package omml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/mathdocx/internal/latex"
)

// Namespace is the OMML namespace bound to the "m" prefix.
const Namespace = "http://schemas.openxmlformats.org/officeDocument/2006/math"

// DefaultMaxDepth bounds structural nesting when the caller passes no limit.
const DefaultMaxDepth = 64

var (
	// ErrTooDeep is returned when fractions, radicals or scripts nest deeper
	// than the configured limit.
	ErrTooDeep = errors.New("omml: expression nested too deeply")
	// ErrUnsupportedNode is returned for a node type with no OMML mapping.
	ErrUnsupportedNode = errors.New("omml: unsupported node")
)

// OMath is <m:oMath>, one inline or display equation.
type OMath struct {
	XMLName  xml.Name `xml:"m:oMath"`
	XMLNS    string   `xml:"xmlns:m,attr,omitempty"`
	Children []any
}

// Run is <m:r>.
type Run struct {
	XMLName xml.Name `xml:"m:r"`
	Text    Text     `xml:"m:t"`
}

// Text is <m:t>.
type Text struct {
	XMLSpace string `xml:"xml:space,attr,omitempty"`
	Value    string `xml:",chardata"`
}

// Arg is any OMML argument container (m:e, m:num, m:den, m:deg, m:sup,
// m:sub). The element name comes from the parent field's tag.
type Arg struct {
	Children []any
}

// Fraction is <m:f>.
type Fraction struct {
	XMLName xml.Name `xml:"m:f"`
	Num     Arg      `xml:"m:num"`
	Den     Arg      `xml:"m:den"`
}

// Radical is <m:rad>.
type Radical struct {
	XMLName xml.Name   `xml:"m:rad"`
	Props   *RadicalPr `xml:"m:radPr,omitempty"`
	Deg     Arg        `xml:"m:deg"`
	E       Arg        `xml:"m:e"`
}

// RadicalPr is <m:radPr>.
type RadicalPr struct {
	DegHide *OnOff `xml:"m:degHide,omitempty"`
}

// OnOff is a boolean property element such as <m:degHide m:val="1"/>.
type OnOff struct {
	Val string `xml:"m:val,attr"`
}

// SuperScript is <m:sSup>.
type SuperScript struct {
	XMLName xml.Name `xml:"m:sSup"`
	E       Arg      `xml:"m:e"`
	Sup     Arg      `xml:"m:sup"`
}

// SubScript is <m:sSub>.
type SubScript struct {
	XMLName xml.Name `xml:"m:sSub"`
	E       Arg      `xml:"m:e"`
	Sub     Arg      `xml:"m:sub"`
}

// Build converts nodes into an equation. maxDepth limits structural nesting;
// zero or less means DefaultMaxDepth.
func Build(nodes []latex.Node, maxDepth int) (*OMath, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	b := builder{maxDepth: maxDepth}
	children, err := b.list(nodes, 0)
	if err != nil {
		return nil, err
	}
	return &OMath{XMLNS: Namespace, Children: children}, nil
}

// XML returns the marshaled equation.
func (m *OMath) XML() (string, error) {
	b, err := xml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal omml: %w", err)
	}
	return string(b), nil
}

type builder struct {
	maxDepth int
}

// list converts a sibling sequence. Adjacent runs are merged into one m:r.
func (b builder) list(nodes []latex.Node, depth int) ([]any, error) {
	if depth > b.maxDepth {
		return nil, fmt.Errorf("%w: limit %d", ErrTooDeep, b.maxDepth)
	}
	var out []any
	var pending strings.Builder
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		out = append(out, newRun(pending.String()))
		pending.Reset()
	}

	for _, n := range nodes {
		if r, ok := n.(latex.Run); ok {
			pending.WriteString(r.Text)
			continue
		}
		flush()
		el, err := b.element(n, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	flush()
	return out, nil
}

func (b builder) element(n latex.Node, depth int) (any, error) {
	switch v := n.(type) {
	case latex.Fraction:
		num, err := b.arg(v.Numerator, depth)
		if err != nil {
			return nil, err
		}
		den, err := b.arg(v.Denominator, depth)
		if err != nil {
			return nil, err
		}
		return &Fraction{Num: num, Den: den}, nil

	case latex.Radical:
		deg, err := b.arg(v.Degree, depth)
		if err != nil {
			return nil, err
		}
		e, err := b.arg(v.Content, depth)
		if err != nil {
			return nil, err
		}
		rad := &Radical{Deg: deg, E: e}
		if len(v.Degree) == 0 {
			rad.Props = &RadicalPr{DegHide: &OnOff{Val: "1"}}
		}
		return rad, nil

	case latex.SuperScript:
		e, err := b.arg(v.Base, depth)
		if err != nil {
			return nil, err
		}
		sup, err := b.arg(v.Exponent, depth)
		if err != nil {
			return nil, err
		}
		return &SuperScript{E: e, Sup: sup}, nil

	case latex.SubScript:
		e, err := b.arg(v.Base, depth)
		if err != nil {
			return nil, err
		}
		sub, err := b.arg(v.Subscript, depth)
		if err != nil {
			return nil, err
		}
		return &SubScript{E: e, Sub: sub}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedNode, n)
}

func (b builder) arg(nodes []latex.Node, depth int) (Arg, error) {
	children, err := b.list(nodes, depth+1)
	if err != nil {
		return Arg{}, err
	}
	return Arg{Children: children}, nil
}

func newRun(s string) *Run {
	r := &Run{Text: Text{Value: s}}
	if strings.TrimSpace(s) != s {
		r.Text.XMLSpace = "preserve"
	}
	return r
}
