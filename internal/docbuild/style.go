package docbuild

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/goccy/go-yaml"
)

// MaxStyleSize caps the size of a style file.
const MaxStyleSize = 1 << 20

var (
	ErrStyleTooLarge = errors.New("docbuild: style file exceeds maximum size")
	ErrInvalidStyle  = errors.New("docbuild: invalid style")
)

var hexColorRe = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// Style controls fonts, sizes, colors and the fixed labels of a generated
// document. Sizes are in half-points, as Word stores them.
type Style struct {
	BodyFont   string `yaml:"body_font"`
	MathFont   string `yaml:"math_font"`
	FooterFont string `yaml:"footer_font"`

	BodySize   int `yaml:"body_size"`
	TitleSize  int `yaml:"title_size"`
	HeaderSize int `yaml:"header_size"`
	ChartSize  int `yaml:"chart_size"`
	FooterSize int `yaml:"footer_size"`

	AccentColor string `yaml:"accent_color"`
	TitleColor  string `yaml:"title_color"`
	FooterColor string `yaml:"footer_color"`
	ChartFill   string `yaml:"chart_fill"`
	TableFill   string `yaml:"table_fill"`

	HeaderLabel   string `yaml:"header_label"`
	UntitledLabel string `yaml:"untitled_label"`
	ChartLabel    string `yaml:"chart_label"`
	// Footer is omitted from the document when empty.
	Footer string `yaml:"footer"`
}

// DefaultStyle returns the built-in report look.
func DefaultStyle() Style {
	return Style{
		BodyFont:   "Tahoma",
		MathFont:   "Cambria Math",
		FooterFont: "Consolas",

		BodySize:   22,
		TitleSize:  32,
		HeaderSize: 18,
		ChartSize:  22,
		FooterSize: 16,

		AccentColor: "06B6D4",
		TitleColor:  "0F172A",
		FooterColor: "64748B",
		ChartFill:   "F0FDFA",
		TableFill:   "F1F5F9",

		HeaderLabel:   "گزارش استخراج هوشمند",
		UntitledLabel: "بدون عنوان",
		ChartLabel:    "تحلیل آماری نمودار",
		Footer:        "Developed by JENOVAS | GitHub: JENOVASir",
	}
}

// LoadStyle reads a YAML style file over DefaultStyle. Unknown keys are
// rejected; keys that are absent keep their default.
func LoadStyle(path string) (Style, error) {
	f, err := os.Open(path)
	if err != nil {
		return Style{}, fmt.Errorf("open style: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxStyleSize+1))
	if err != nil {
		return Style{}, fmt.Errorf("read style: %w", err)
	}
	return ParseStyle(data)
}

// ParseStyle decodes YAML style data over DefaultStyle.
func ParseStyle(data []byte) (Style, error) {
	if len(data) > MaxStyleSize {
		return Style{}, fmt.Errorf("%w: %d bytes (max %d)", ErrStyleTooLarge, len(data), MaxStyleSize)
	}
	s := DefaultStyle()
	if len(data) == 0 {
		return s, nil
	}
	if err := yaml.UnmarshalWithOptions(data, &s, yaml.Strict()); err != nil {
		return Style{}, fmt.Errorf("parse style: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Style{}, err
	}
	return s, nil
}

// Validate checks sizes and colors.
func (s Style) Validate() error {
	sizes := map[string]int{
		"body_size":   s.BodySize,
		"title_size":  s.TitleSize,
		"header_size": s.HeaderSize,
		"chart_size":  s.ChartSize,
		"footer_size": s.FooterSize,
	}
	for name, v := range sizes {
		if v <= 0 || v > 400 {
			return fmt.Errorf("%w: %s must be between 1 and 400, got %d", ErrInvalidStyle, name, v)
		}
	}
	colors := map[string]string{
		"accent_color": s.AccentColor,
		"title_color":  s.TitleColor,
		"footer_color": s.FooterColor,
		"chart_fill":   s.ChartFill,
		"table_fill":   s.TableFill,
	}
	for name, v := range colors {
		if !hexColorRe.MatchString(v) {
			return fmt.Errorf("%w: %s must be a 6-digit hex color, got %q", ErrInvalidStyle, name, v)
		}
	}
	if s.BodyFont == "" || s.MathFont == "" {
		return fmt.Errorf("%w: body_font and math_font are required", ErrInvalidStyle)
	}
	return nil
}
