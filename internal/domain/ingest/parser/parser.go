// Package parser turns raw CSV statement bytes into a rectangular grid of
// string cells. It is deliberately tolerant: ragged rows become warnings,
// not errors, and blank lines are skipped entirely.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrEmptyFile is returned when the file contains no data rows at all.
// It is a fatal condition for the whole import.
var ErrEmptyFile = errors.New("CSV is empty")

// Warning describes a structural problem found while reading the file.
// RowNumber is 1-based over the parsed (non-blank) rows. For lines the
// reader could not parse at all it is the physical line in the file, since
// those lines never become rows; 0 means the warning could not be tied to
// a line either.
type Warning struct {
	RowNumber int
	Message   string
}

// Result holds the parsed grid plus any structural warnings.
type Result struct {
	Rows     [][]string
	Warnings []Warning
}

// Parse reads every record from the raw file bytes. Cells are trimmed of the
// surrounding whitespace the bank tooling tends to leave behind; missing
// cells stay missing (callers index through Cell).
func Parse(data []byte) (*Result, error) {
	data = normalizeBytes(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	result := &Result{}
	firstWidth := -1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Warnings = append(result.Warnings, readFailureWarning(err))
			continue
		}
		if isBlankRecord(record) {
			continue
		}

		for i, cell := range record {
			record[i] = strings.TrimSpace(cell)
		}

		result.Rows = append(result.Rows, record)
		rowNum := len(result.Rows)

		if firstWidth == -1 {
			firstWidth = len(record)
		} else if len(record) != firstWidth {
			result.Warnings = append(result.Warnings, Warning{
				RowNumber: rowNum,
				Message:   fmt.Sprintf("inconsistent column count: expected %d, got %d", firstWidth, len(record)),
			})
		}
	}

	if len(result.Rows) == 0 {
		return nil, ErrEmptyFile
	}

	return result, nil
}

// Cell returns the cell at idx in row, or "" when the row is too short or
// the index was never resolved (idx < 0).
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// readFailureWarning ties a reader error to the physical line it occurred
// on. Failed lines never enter the grid, so numbering them by grid position
// would collide with the rows that follow.
func readFailureWarning(err error) Warning {
	w := Warning{Message: fmt.Sprintf("unparseable line: %v", err)}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		w.RowNumber = parseErr.Line
	}
	return w
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizeBytes strips a UTF-8 BOM and falls back to a latin-1 decode for
// files exported by older bank tooling.
func normalizeBytes(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}
	if utf8.Valid(data) {
		return data
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}
