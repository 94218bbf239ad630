// Package sniffer decides whether the first record of a statement is a
// header row and maps semantic columns (date, amount, debit/credit,
// description, category, external id) to indexes. When a headerless file
// cannot be inferred it produces a mapping prompt with heuristic
// suggestions instead of an error.
package sniffer

import (
	"strings"
	"unicode"

	"github.com/budgetbook-dev/budgetbook/internal/domain/ingest/normalizer"
)

// Synonym sets matched against normalized header cells (lowercased,
// underscores to spaces, whitespace collapsed). Matching is exact.
var (
	dateKeywords        = []string{"date", "txn date", "transaction date", "posted date", "post date", "value date", "booking date"}
	amountKeywords      = []string{"amount", "transaction amount", "amt", "value", "sum"}
	debitKeywords       = []string{"debit", "debit amount", "withdrawal", "withdrawals", "money out", "paid out"}
	creditKeywords      = []string{"credit", "credit amount", "deposit", "deposits", "money in", "paid in"}
	memoKeywords        = []string{"memo", "note", "notes"}
	descriptionKeywords = []string{"description", "details", "narrative", "payee", "merchant", "particulars"}
	categoryKeywords    = []string{"category", "transaction category", "cat"}
	externalIDKeywords  = []string{"external id", "id", "transaction id", "txn id", "reference", "ref", "fitid"}
)

// minHeaderMatches is how many cells must match known keywords before the
// first record is treated as a header.
const minHeaderMatches = 2

// Detection is the outcome of inspecting the first record.
type Detection struct {
	HasHeader bool
	// Columns is only meaningful when HasHeader is true.
	Columns normalizer.Columns
}

// Prompt carries everything a caller needs to supply an explicit mapping for
// a headerless file. Category and external id are never suggested; no
// general heuristic identifies them reliably.
type Prompt struct {
	Message                         string   `json:"message"`
	ColumnCount                     int      `json:"columnCount"`
	SampleRow                       []string `json:"sampleRow"`
	SuggestedDateColumnIndex        *int     `json:"suggestedDateColumnIndex"`
	SuggestedAmountColumnIndex      *int     `json:"suggestedAmountColumnIndex"`
	SuggestedDescriptionColumnIndex *int     `json:"suggestedDescriptionColumnIndex"`
	SuggestedCategoryColumnIndex    *int     `json:"suggestedCategoryColumnIndex"`
	SuggestedExternalIDColumnIndex  *int     `json:"suggestedExternalIdColumnIndex"`
}

// Detect inspects the first record of the file. A record whose first cell
// parses as a date and second cell as an amount is always data, even when
// some cell coincidentally matches a header keyword.
func Detect(firstRecord []string) Detection {
	if looksLikeData(firstRecord) {
		return Detection{HasHeader: false, Columns: normalizer.UnresolvedColumns()}
	}

	cols := normalizer.UnresolvedColumns()
	matches := 0

	for i, cell := range firstRecord {
		normalized := normalizeHeaderCell(cell)
		if normalized == "" {
			continue
		}

		matched := true
		switch {
		case contains(dateKeywords, normalized):
			assign(&cols.Date, i)
		case contains(amountKeywords, normalized):
			assign(&cols.Amount, i)
		case contains(debitKeywords, normalized):
			assign(&cols.Debit, i)
		case contains(creditKeywords, normalized):
			assign(&cols.Credit, i)
		case contains(memoKeywords, normalized):
			assign(&cols.Memo, i)
		case contains(descriptionKeywords, normalized):
			assign(&cols.Desc, i)
		case contains(categoryKeywords, normalized):
			assign(&cols.Category, i)
		case contains(externalIDKeywords, normalized):
			assign(&cols.ExternalID, i)
		default:
			matched = false
		}
		if matched {
			matches++
		}
	}

	if matches < minHeaderMatches {
		return Detection{HasHeader: false, Columns: normalizer.UnresolvedColumns()}
	}
	return Detection{HasHeader: true, Columns: cols}
}

// Valid reports whether resolved columns are sufficient to process the file:
// a date column plus at least one of amount, debit, or credit.
func Valid(cols normalizer.Columns) bool {
	if cols.Date < 0 {
		return false
	}
	return cols.Amount >= 0 || cols.Debit >= 0 || cols.Credit >= 0
}

// BuildPrompt produces the mapping-required payload for a headerless file.
func BuildPrompt(firstRecord []string) *Prompt {
	prompt := &Prompt{
		Message:     "Could not infer column layout; supply an explicit column mapping",
		ColumnCount: len(firstRecord),
		SampleRow:   firstRecord,
	}

	dateIdx := -1
	for i, cell := range firstRecord {
		if _, ok := normalizer.ParseDate(cell); ok {
			dateIdx = i
			prompt.SuggestedDateColumnIndex = intPtr(i)
			break
		}
	}

	amountIdx := -1
	for i, cell := range firstRecord {
		if i == dateIdx {
			continue
		}
		if _, ok := normalizer.ParseAmount(cell); ok {
			amountIdx = i
			prompt.SuggestedAmountColumnIndex = intPtr(i)
			break
		}
	}

	// Longest alphabetic-containing cell among the remaining columns.
	bestLen := 0
	for i, cell := range firstRecord {
		if i == dateIdx || i == amountIdx {
			continue
		}
		if containsLetter(cell) && len(cell) > bestLen {
			bestLen = len(cell)
			prompt.SuggestedDescriptionColumnIndex = intPtr(i)
		}
	}

	return prompt
}

func looksLikeData(record []string) bool {
	if len(record) < 2 {
		return false
	}
	if _, ok := normalizer.ParseDate(record[0]); !ok {
		return false
	}
	_, ok := normalizer.ParseAmount(record[1])
	return ok
}

func normalizeHeaderCell(cell string) string {
	cell = strings.ToLower(cell)
	cell = strings.ReplaceAll(cell, "_", " ")
	return strings.Join(strings.Fields(cell), " ")
}

// assign maps a semantic column to the first matching cell; later duplicate
// headers are ignored.
func assign(target *int, idx int) {
	if *target < 0 {
		*target = idx
	}
}

func contains(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func intPtr(i int) *int {
	return &i
}
