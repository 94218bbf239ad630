package summary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetbook-dev/budgetbook/internal/domain/category"
	"github.com/budgetbook-dev/budgetbook/pkg/money"
)

// ErrInvalidMonthKey is returned when the month key is not YYYY-MM.
var ErrInvalidMonthKey = fmt.Errorf("month key must be formatted as YYYY-MM")

// CategoryLine is one row of the planned-vs-actual table.
type CategoryLine struct {
	CategoryID   uuid.UUID       `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Planned      decimal.Decimal `json:"planned"`
	Actual       decimal.Decimal `json:"actual"`
	Diff         decimal.Decimal `json:"diff"`
}

// TypeBreakdown groups the lines of one transaction type with column totals.
type TypeBreakdown struct {
	Lines        []CategoryLine  `json:"lines"`
	PlannedTotal decimal.Decimal `json:"plannedTotal"`
	ActualTotal  decimal.Decimal `json:"actualTotal"`
	DiffTotal    decimal.Decimal `json:"diffTotal"`
}

// MonthSummary is the full month view: both type blocks plus the balance
// projection across the month.
type MonthSummary struct {
	MonthKey        string          `json:"monthKey"`
	Expense         TypeBreakdown   `json:"expense"`
	Income          TypeBreakdown   `json:"income"`
	NetChange       decimal.Decimal `json:"netChange"`
	NetLabel        string          `json:"netLabel"`
	NetDisplay      string          `json:"netDisplay"`
	StartingBalance decimal.Decimal `json:"startingBalance"`
	EndingBalance   decimal.Decimal `json:"endingBalance"`
}

// Service aggregates the month summary.
type Service struct {
	repo     Repository
	currency string
	logger   *slog.Logger
}

// NewService creates a summary service. Amounts in NetDisplay are rendered in
// the given ISO 4217 currency.
func NewService(repo Repository, currency string, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		currency: currency,
		logger:   logger,
	}
}

// GetMonthSummary builds the planned-vs-actual table for one owner and month.
// Categories appear when they are active or when the month references them
// through a plan or a transaction.
func (s *Service) GetMonthSummary(ctx context.Context, ownerID uuid.UUID, monthKey string) (*MonthSummary, error) {
	if _, err := time.Parse("2006-01", monthKey); err != nil {
		return nil, ErrInvalidMonthKey
	}

	categories, err := s.repo.LoadCategories(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	plans, err := s.repo.LoadPlans(ctx, ownerID, monthKey)
	if err != nil {
		return nil, err
	}
	transactions, err := s.repo.LoadTransactions(ctx, ownerID, monthKey)
	if err != nil {
		return nil, err
	}
	starting, err := s.repo.StartingBalance(ctx, ownerID, monthKey)
	if err != nil {
		return nil, err
	}

	planned := make(map[uuid.UUID]decimal.Decimal, len(plans))
	for _, p := range plans {
		planned[p.CategoryID] = planned[p.CategoryID].Add(p.Planned).Round(2)
	}

	actual := make(map[uuid.UUID]decimal.Decimal, len(transactions))
	for _, t := range transactions {
		actual[t.CategoryID] = actual[t.CategoryID].Add(t.Amount).Round(2)
	}

	expense := s.buildBreakdown(categories, category.TypeExpense, planned, actual)
	income := s.buildBreakdown(categories, category.TypeIncome, planned, actual)

	net := income.ActualTotal.Sub(expense.ActualTotal).Round(2)
	label := "Saved this month"
	if net.IsNegative() {
		label = "Spent this month"
	}

	result := &MonthSummary{
		MonthKey:        monthKey,
		Expense:         expense,
		Income:          income,
		NetChange:       net,
		NetLabel:        label,
		NetDisplay:      money.Format(net.Abs(), s.currency),
		StartingBalance: starting.Round(2),
		EndingBalance:   starting.Add(net).Round(2),
	}

	s.logger.Info("month summary built",
		slog.String("owner_id", ownerID.String()),
		slog.String("month_key", monthKey),
		slog.String("net_change", net.StringFixed(2)))

	return result, nil
}

// buildBreakdown assembles one type block. A category with no plan and no
// activity still shows as a zero line while it is active; inactive categories
// only appear when the month references them.
func (s *Service) buildBreakdown(categories []CategoryRow, catType category.Type, planned, actual map[uuid.UUID]decimal.Decimal) TypeBreakdown {
	var breakdown TypeBreakdown

	for _, c := range categories {
		if c.Type != catType {
			continue
		}
		p, hasPlan := planned[c.ID]
		a, hasActual := actual[c.ID]
		if !c.Active && !hasPlan && !hasActual {
			continue
		}

		line := CategoryLine{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Planned:      p.Round(2),
			Actual:       a.Round(2),
		}
		if catType == category.TypeExpense {
			line.Diff = line.Planned.Sub(line.Actual).Round(2)
		} else {
			line.Diff = line.Actual.Sub(line.Planned).Round(2)
		}
		breakdown.Lines = append(breakdown.Lines, line)

		breakdown.PlannedTotal = breakdown.PlannedTotal.Add(line.Planned).Round(2)
		breakdown.ActualTotal = breakdown.ActualTotal.Add(line.Actual).Round(2)
		breakdown.DiffTotal = breakdown.DiffTotal.Add(line.Diff).Round(2)
	}

	return breakdown
}
