package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/mathdocx/internal/analysis"
	pdflib "github.com/ledongthuc/pdf"
)

var errNoPDFText = errors.New("no extractable text")

// PDFImporter handles text PDFs. Scanned pages carry no text layer and
// should be converted as images instead. Pages are separated into
// paragraphs the same way as plain text.
type PDFImporter struct {
	// FallbackPdftotext retries with the pdftotext binary when the library
	// fails or finds no text.
	FallbackPdftotext bool
}

func (p *PDFImporter) Import(r io.Reader, filename string) (*analysis.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	pages, err := pdfPages(data)
	if err != nil && p.FallbackPdftotext {
		pages, err = pdftotextPages(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	b := newBuilder(filename)
	for _, page := range pages {
		for _, para := range paragraphs(page) {
			b.addBlock(para)
		}
	}
	if len(b.res.Segments) == 0 {
		return nil, fmt.Errorf("extract pdf text: %w", errNoPDFText)
	}
	return b.result(), nil
}

// pdfPages reads the text layer of every page. The library panics on some
// malformed files; that is reported as an error.
func pdfPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	found := false
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			found = true
		}
		pages = append(pages, text)
	}
	if !found {
		return nil, errNoPDFText
	}
	return pages, nil
}

// pdftotextPages shells out to poppler's pdftotext, which needs a file path.
// Pages come back separated by form feeds.
func pdftotextPages(data []byte) ([]string, error) {
	tmp, err := os.CreateTemp("", "mathdocx-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", "-enc", "UTF-8", tmp.Name(), "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	if strings.TrimSpace(string(out)) == "" {
		return nil, errNoPDFText
	}
	return strings.Split(string(out), "\f"), nil
}
