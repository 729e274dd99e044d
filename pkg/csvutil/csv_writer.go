// Package csvutil writes CSV reports that are safe to open in spreadsheets.
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// formulaPrefixes start a cell that spreadsheet applications evaluate.
const formulaPrefixes = "=+-@\t\r"

// Writer writes rows of a fixed width, set by the header. Cells that a
// spreadsheet would evaluate as formulas are prefixed with a quote.
type Writer struct {
	writer  *csv.Writer
	columns int
}

// NewWriter creates a new CSV writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		writer: csv.NewWriter(w),
	}
}

// WriteHeader writes the CSV header row and fixes the row width.
func (w *Writer) WriteHeader(headers []string) error {
	if w.columns != 0 {
		return fmt.Errorf("header already written")
	}
	if len(headers) == 0 {
		return fmt.Errorf("header must have at least one column")
	}
	w.columns = len(headers)
	return w.writer.Write(headers)
}

// WriteRow writes a single CSV row.
func (w *Writer) WriteRow(row []string) error {
	if w.columns != 0 && len(row) != w.columns {
		return fmt.Errorf("row has %d columns, header has %d", len(row), w.columns)
	}
	cells := make([]string, len(row))
	for i, cell := range row {
		cells[i] = Sanitize(cell)
	}
	return w.writer.Write(cells)
}

// Flush flushes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	w.writer.Flush()
	return w.writer.Error()
}

// Sanitize neutralizes a cell that would otherwise be read as a formula.
func Sanitize(cell string) string {
	if cell != "" && strings.ContainsRune(formulaPrefixes, rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
