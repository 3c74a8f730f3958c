package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"csv-to-dynamodb/models"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type CSVSource struct{}

// NewCSVSource creates a new CSV row source
func NewCSVSource() *CSVSource {
	return &CSVSource{}
}

// ReadCSV loads the header and every data row of the file at path.
// Rows of the wrong width are kept; the encoder rejects them.
func (s *CSVSource) ReadCSV(path string) (*models.SourceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewSourceError(path, err)
	}
	defer f.Close()

	table, err := ParseCSV(f)
	if err != nil {
		return nil, models.NewSourceError(path, err)
	}
	return table, nil
}

// ParseCSV reads a header line followed by data rows. A leading UTF-8 byte
// order mark is stripped. Quotes inside unquoted cells are kept as text.
func ParseCSV(r io.Reader) (*models.SourceTable, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header line")
	}
	if err != nil {
		return nil, err
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	table := &models.SourceTable{Header: header}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		table.Rows = append(table.Rows, models.SourceRow{Line: line, Cells: record})
	}
	return table, nil
}

func validateHeader(header []string) error {
	seen := make(map[string]int, len(header))
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("header column %d has an empty name", i+1)
		}
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("header column %d duplicates column %d (%q)", i+1, prev+1, name)
		}
		seen[name] = i
	}
	return nil
}
