package reconcile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/stockward/stockward/internal/shared"
)

// Row is one product line from an import source. Line is 1-based within the
// source file, counting the header.
type Row struct {
	Line         int    `json:"line"`
	Name         string `json:"name" validate:"required"`
	SKU          string `json:"sku" validate:"required"`
	StockCurrent int    `json:"stock_current" validate:"gte=0"`
	StockMinimum int    `json:"stock_minimum" validate:"gte=0"`
}

// normalized trims and NFC-normalizes the text cells so that visually
// identical SKUs typed with different Unicode compositions dedupe together.
func (r Row) normalized() Row {
	r.Name = norm.NFC.String(strings.TrimSpace(r.Name))
	r.SKU = norm.NFC.String(strings.TrimSpace(r.SKU))
	return r
}

var requiredColumns = []string{"name", "sku", "stock_current", "stock_minimum"}

// RowsFromCSV parses a comma-separated import file. The first record must be
// a header naming the four required columns in any order; extra columns are
// ignored.
func RowsFromCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed csv: %w", shared.ErrValidation)
	}
	return rowsFromRecords(records)
}

// RowsFromGrid parses a cell grid, as delivered by spreadsheet APIs that hand
// back sheet values as rows of strings. Layout rules match RowsFromCSV.
func RowsFromGrid(values [][]string) ([]Row, error) {
	return rowsFromRecords(values)
}

func rowsFromRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("import source is empty: %w", shared.ErrValidation)
	}

	index, err := headerIndex(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		rows = append(rows, Row{
			Line:         i + 2,
			Name:         cell(record, index["name"]),
			SKU:          cell(record, index["sku"]),
			StockCurrent: numericCell(record, index["stock_current"]),
			StockMinimum: numericCell(record, index["stock_minimum"]),
		})
	}
	return rows, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", required, shared.ErrValidation)
		}
	}
	return index, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// numericCell coerces blank or non-numeric cells to zero. Spreadsheets leak
// formatting artifacts into number columns; a zero there is caught by the
// empty-stock view rather than failing the whole row.
func numericCell(record []string, i int) int {
	raw := strings.TrimSpace(cell(record, i))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0
		}
		n = int(f)
	}
	return n
}

// TemplateCSV returns a starter import file with the expected header and a
// few example rows.
func TemplateCSV() []byte {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.WriteAll([][]string{
		{"name", "sku", "stock_current", "stock_minimum"},
		{"Cola 1.5L", "BEV-COLA-15", "50", "10"},
		{"Sparkling Water 500ml", "BEV-WATR-05", "30", "8"},
		{"Corn Chips 250g", "SNK-CHIP-25", "24", "6"},
	})
	w.Flush()
	return []byte(b.String())
}
