package importer

import (
	"fmt"
	"io"

	"github.com/dgallion1/mathdocx/internal/analysis"
	"github.com/xuri/excelize/v2"
)

// XLSXImporter handles Excel workbooks. Each non-empty sheet becomes a
// heading text segment followed by one table segment.
type XLSXImporter struct{}

func (p *XLSXImporter) Import(r io.Reader, filename string) (*analysis.Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	b := newBuilder(filename)
	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		if len(sheets) > 1 {
			b.add(analysis.SegmentText, sheet)
		}
		b.addTable(rows)
	}
	return b.result(), nil
}
