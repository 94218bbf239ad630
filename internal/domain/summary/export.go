package summary

import (
	"github.com/gocarina/gocsv"
)

type exportLine struct {
	Section  string `csv:"section"`
	Category string `csv:"category"`
	Planned  string `csv:"planned"`
	Actual   string `csv:"actual"`
	Diff     string `csv:"diff"`
}

// ExportCSV renders a month summary as CSV: one row per category line, a
// total row per type block, and a closing net row.
func ExportCSV(summary *MonthSummary) ([]byte, error) {
	var lines []exportLine

	appendBlock := func(section string, b TypeBreakdown) {
		for _, line := range b.Lines {
			lines = append(lines, exportLine{
				Section:  section,
				Category: line.CategoryName,
				Planned:  line.Planned.StringFixed(2),
				Actual:   line.Actual.StringFixed(2),
				Diff:     line.Diff.StringFixed(2),
			})
		}
		lines = append(lines, exportLine{
			Section:  section,
			Category: "Total",
			Planned:  b.PlannedTotal.StringFixed(2),
			Actual:   b.ActualTotal.StringFixed(2),
			Diff:     b.DiffTotal.StringFixed(2),
		})
	}

	appendBlock("EXPENSE", summary.Expense)
	appendBlock("INCOME", summary.Income)

	lines = append(lines, exportLine{
		Section:  "NET",
		Category: summary.NetLabel,
		Actual:   summary.NetChange.StringFixed(2),
	})

	return gocsv.MarshalBytes(&lines)
}
