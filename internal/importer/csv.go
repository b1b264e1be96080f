package importer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/mathdocx/internal/analysis"
)

// CSVImporter handles CSV files. The whole file becomes one table segment.
type CSVImporter struct{}

func (p *CSVImporter) Import(r io.Reader, filename string) (*analysis.Result, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	b := newBuilder(filename)
	b.addTable(records)
	return b.result(), nil
}
