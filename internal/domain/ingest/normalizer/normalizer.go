// Package normalizer converts raw statement rows into canonical records:
// ISO dates, signed 2-decimal amounts, trimmed descriptions. Bad rows become
// per-row issues instead of aborting the file.
package normalizer

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/budgetbook-dev/budgetbook/internal/domain/ingest/parser"
)

// Severity classifies a per-row issue. ERROR rows are dropped; WARNING rows
// proceed with a defaulted value.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Issue is a per-row problem recorded for audit. RowNumber is 0 for issues
// not tied to a specific row.
type Issue struct {
	Severity  Severity
	RowNumber int
	Message   string
}

const (
	maxExternalIDLen     = 200
	maxSourceCategoryLen = 120

	defaultDescription = "Imported transaction"
)

// Columns holds resolved 0-based column indexes. -1 means unresolved.
type Columns struct {
	Date       int
	Amount     int
	Debit      int
	Credit     int
	Memo       int
	Desc       int
	Category   int
	ExternalID int
}

// UnresolvedColumns returns a Columns value with every index unset.
func UnresolvedColumns() Columns {
	return Columns{Date: -1, Amount: -1, Debit: -1, Credit: -1, Memo: -1, Desc: -1, Category: -1, ExternalID: -1}
}

// Row is the canonical form of one statement line.
type Row struct {
	RowNumber      int
	Date           time.Time
	SignedAmount   decimal.Decimal
	Description    string
	ExternalID     *string
	SourceCategory *string
}

// NormalizeRow converts one raw row. A nil Row with issues means the row was
// dropped; a non-nil Row may still carry WARNING issues.
func NormalizeRow(record []string, rowNumber int, cols Columns) (*Row, []Issue) {
	var issues []Issue

	date, ok := ParseDate(parser.Cell(record, cols.Date))
	if !ok {
		return nil, []Issue{{Severity: SeverityError, RowNumber: rowNumber, Message: "Invalid or empty date"}}
	}

	amount, ok := resolveAmount(record, cols)
	if !ok {
		return nil, []Issue{{Severity: SeverityError, RowNumber: rowNumber, Message: "Invalid or empty amount"}}
	}

	description := parser.Cell(record, cols.Memo)
	if description == "" {
		description = parser.Cell(record, cols.Desc)
	}
	if description == "" {
		description = defaultDescription
		issues = append(issues, Issue{
			Severity:  SeverityWarning,
			RowNumber: rowNumber,
			Message:   "Missing description; defaulted to \"" + defaultDescription + "\"",
		})
	}

	row := &Row{
		RowNumber:      rowNumber,
		Date:           date,
		SignedAmount:   amount,
		Description:    description,
		ExternalID:     optionalCell(record, cols.ExternalID, maxExternalIDLen),
		SourceCategory: optionalCell(record, cols.Category, maxSourceCategoryLen),
	}
	return row, issues
}

// resolveAmount prefers a unified amount column; otherwise computes
// credit - debit over the absolute values of whichever cells are present.
func resolveAmount(record []string, cols Columns) (decimal.Decimal, bool) {
	if cols.Amount >= 0 {
		amount, ok := ParseAmount(parser.Cell(record, cols.Amount))
		if !ok {
			return decimal.Zero, false
		}
		return amount.Round(2), true
	}

	debitRaw := parser.Cell(record, cols.Debit)
	creditRaw := parser.Cell(record, cols.Credit)
	if debitRaw == "" && creditRaw == "" {
		return decimal.Zero, false
	}

	debit := decimal.Zero
	credit := decimal.Zero
	if debitRaw != "" {
		parsed, ok := ParseAmount(debitRaw)
		if !ok {
			return decimal.Zero, false
		}
		debit = parsed.Abs()
	}
	if creditRaw != "" {
		parsed, ok := ParseAmount(creditRaw)
		if !ok {
			return decimal.Zero, false
		}
		credit = parsed.Abs()
	}

	return credit.Sub(debit).Round(2), true
}

// ParseDate accepts YYYY-MM-DD, YYYY/M/D, and ambiguous M/D/YYYY slash dates.
// For the ambiguous form month-first is tried before day-first. Parsed dates
// are validated by round-tripping through time.Date, which rejects values
// like Feb 30.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if parts := strings.Split(raw, "-"); len(parts) == 3 {
		if len(parts[0]) == 4 && len(parts[1]) == 2 && len(parts[2]) == 2 {
			return makeDate(parts[0], parts[1], parts[2])
		}
		return time.Time{}, false
	}

	parts := strings.Split(raw, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	if len(parts[0]) == 4 {
		// YYYY/M/D
		return makeDate(parts[0], parts[1], parts[2])
	}

	// M/D/YYYY, falling back to D/M/YYYY when month-first is not a valid
	// calendar date (e.g. first component > 12).
	if d, ok := makeDate(parts[2], parts[0], parts[1]); ok {
		return d, true
	}
	return makeDate(parts[2], parts[1], parts[0])
}

func makeDate(yearStr, monthStr, dayStr string) (time.Time, bool) {
	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(strings.TrimSpace(monthStr))
	if err != nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(strings.TrimSpace(dayStr))
	if err != nil {
		return time.Time{}, false
	}

	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// ParseAmount parses a single amount cell. Supported encodings: leading
// minus, parenthesized negatives "(12.34)", trailing minus "12.34-",
// currency symbols, and thousands separators. The result is rounded to two
// decimal places.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}

	for _, sym := range []string{"$", "€", "£", "¥", "₹", "R$", "USD", "EUR", "GBP"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}
	if s == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2), true
}

// NormalizeDescription lowercases and collapses whitespace, the form used
// for content fingerprints.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func optionalCell(record []string, idx, maxLen int) *string {
	value := strings.TrimSpace(parser.Cell(record, idx))
	if value == "" {
		return nil
	}
	// maxLen caps characters, not bytes, so multibyte values are not cut
	// mid-rune.
	if utf8.RuneCountInString(value) > maxLen {
		value = string([]rune(value)[:maxLen])
	}
	return &value
}
