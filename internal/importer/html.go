package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/mathdocx/internal/analysis"
	"golang.org/x/net/html"
)

// HTMLImporter handles HTML files. MathJax-style <script type="math/tex">
// elements become formulas.
type HTMLImporter struct{}

func (p *HTMLImporter) Import(r io.Reader, filename string) (*analysis.Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	b := newBuilder(filename)
	titled := false
	if title := findTitle(doc); title != "" {
		b.res.Title = title
		titled = true
	}
	if lang := findLang(doc); lang != "" {
		b.res.Language = languageName(lang)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				t := textContent(n)
				if level == 1 && !titled && t != "" {
					b.res.Title = t
					titled = true
				} else {
					b.add(analysis.SegmentText, t)
				}
				return
			}

			switch n.Data {
			case "script":
				if isMathScript(n) {
					b.add(analysis.SegmentFormula, scriptText(n))
				}
				return
			case "style", "nav", "footer", "header":
				return
			case "table":
				b.addTable(htmlTableRows(n))
				return
			case "p", "li", "blockquote", "pre":
				b.addBlock(textContent(n))
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	return b.result(), nil
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func htmlTableRows(tbl *html.Node) [][]string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, textContent(c))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tbl)
	return rows
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "br":
				buf.WriteByte('\n')
				return
			case "script":
				// Inline MathJax keeps its markup as $...$.
				if isMathScript(n) {
					buf.WriteString("$" + scriptText(n) + "$")
				}
				return
			case "style":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func isMathScript(n *html.Node) bool {
	return strings.HasPrefix(attr(n, "type"), "math/tex")
}

func scriptText(n *html.Node) string {
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			buf.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(buf.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.ToLower(strings.TrimSpace(a.Val))
		}
	}
	return ""
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// findLang returns the lang attribute of the <html> element.
func findLang(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "html" {
		return attr(n, "lang")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if l := findLang(c); l != "" {
			return l
		}
	}
	return ""
}

var languageTags = map[string]string{
	"en": "English",
	"fa": "Persian",
	"ar": "Arabic",
	"he": "Hebrew",
	"ur": "Urdu",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
}

// languageName maps a BCP 47 tag such as "fa-IR" to a language name.
func languageName(tag string) string {
	primary, _, _ := strings.Cut(strings.ToLower(tag), "-")
	if name, ok := languageTags[primary]; ok {
		return name
	}
	return ""
}
