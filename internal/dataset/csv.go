// Package dataset reads and writes the tabular files the pipeline works
// over. Output is UTF-8 with a BOM so spreadsheet tools render Japanese
// text correctly.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const utf8BOM = "\ufeff"

// Table is one loaded dataset: a header plus rows. Columns the pipeline
// does not know about pass through untouched.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	table, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	return table, nil
}

func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("dataset is empty")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	table := &Table{Header: header, Rows: records[1:]}
	table.reindex()
	return table, nil
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		t.index[name] = i
	}
}

// Column returns the index of a named column.
func (t *Table) Column(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Cell returns the value at (row, col), or empty when the row is shorter
// than the header. Short rows are data-quality noise, not errors.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// SetCell writes a value, padding the row out to the column first.
func (t *Table) SetCell(row, col int, value string) {
	for len(t.Rows[row]) <= col {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][col] = value
}

// EnsureColumns appends any missing columns to the header and returns the
// index of each requested column, in order.
func (t *Table) EnsureColumns(names ...string) []int {
	cols := make([]int, len(names))
	for i, name := range names {
		if idx, ok := t.index[name]; ok {
			cols[i] = idx
			continue
		}
		t.Header = append(t.Header, name)
		t.index[name] = len(t.Header) - 1
		cols[i] = len(t.Header) - 1
	}
	return cols
}

func Write(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}
	if err := WriteTo(f, t); err != nil {
		return fmt.Errorf("failed to write dataset %s: %w", path, err)
	}
	return f.Close()
}

func WriteTo(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		for len(row) < len(t.Header) {
			row = append(row, "")
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
