// Package importer reads existing documents into an analysis.Result so they
// can be rendered without calling the vision model.
package importer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dgallion1/mathdocx/internal/analysis"
)

var ErrUnsupportedExtension = errors.New("importer: unsupported file extension")

// Importer converts raw document bytes into an analysis result.
type Importer interface {
	Import(r io.Reader, filename string) (*analysis.Result, error)
}

// SupportedExtensions lists file extensions this service can import.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".xlsx":     true,
}

// Options tunes importers that shell out or read large files.
type Options struct {
	// FallbackPdftotext retries PDF extraction with the pdftotext binary.
	FallbackPdftotext bool
}

// ForFile returns the appropriate importer for a filename.
func ForFile(filename string, opts Options) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextImporter{}, nil
	case ".md", ".markdown":
		return &MarkdownImporter{}, nil
	case ".csv":
		return &CSVImporter{}, nil
	case ".html", ".htm":
		return &HTMLImporter{}, nil
	case ".pdf":
		return &PDFImporter{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXImporter{}, nil
	case ".xlsx":
		return &XLSXImporter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// builder accumulates segments in reading order.
type builder struct {
	res *analysis.Result
}

func newBuilder(filename string) *builder {
	return &builder{res: &analysis.Result{Title: titleFromFilename(filename)}}
}

func (b *builder) add(t analysis.SegmentType, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	b.res.Segments = append(b.res.Segments, analysis.Segment{
		Type:       t,
		Content:    content,
		Confidence: 100,
	})
}

// addBlock adds a paragraph, promoting it to a formula when the whole block
// is display math.
func (b *builder) addBlock(text string) {
	if inner, ok := displayMath(text); ok {
		b.add(analysis.SegmentFormula, inner)
		return
	}
	b.add(analysis.SegmentText, text)
}

func (b *builder) addTable(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	b.add(analysis.SegmentTable, analysis.FormatTable(rows))
}

// result fills in the language from the segment contents. The title comes
// from the file name and says nothing about the text.
func (b *builder) result() *analysis.Result {
	if b.res.Language == "" {
		var sb strings.Builder
		for _, s := range b.res.Segments {
			sb.WriteString(s.Content)
		}
		b.res.Language = detectLanguage(sb.String())
	}
	return b.res
}

// displayMath reports whether text is a single $$...$$ or \[...\] block and
// returns its contents.
func displayMath(text string) (string, bool) {
	s := strings.TrimSpace(text)
	var inner string
	switch {
	case len(s) > 4 && strings.HasPrefix(s, "$$") && strings.HasSuffix(s, "$$"):
		inner = s[2 : len(s)-2]
	case len(s) > 4 && strings.HasPrefix(s, `\[`) && strings.HasSuffix(s, `\]`):
		inner = s[2 : len(s)-2]
	default:
		return "", false
	}
	if strings.Contains(inner, "$$") {
		return "", false
	}
	inner = strings.TrimSpace(inner)
	return inner, inner != ""
}

// persianLetters are Arabic-script letters used in Persian but not Arabic.
const persianLetters = "پچژگکی"

// detectLanguage guesses the main language from the dominant script. It
// returns "" when there are no letters to judge by.
func detectLanguage(text string) string {
	var latin, arabic, hebrew, persian int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Arabic, r):
			arabic++
			if strings.ContainsRune(persianLetters, r) {
				persian++
			}
		case unicode.Is(unicode.Hebrew, r):
			hebrew++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	switch {
	case arabic > latin && arabic >= hebrew:
		if persian > 0 {
			return "Persian"
		}
		return "Arabic"
	case hebrew > latin:
		return "Hebrew"
	case latin > 0:
		return "English"
	}
	return ""
}
