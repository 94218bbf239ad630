package plan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetbook-dev/budgetbook/internal/domain/category"
)

var (
	ErrInvalidMonthKey = errors.New("month key must be formatted as YYYY-MM")
	ErrNegativeAmount  = errors.New("planned amount cannot be negative")
	ErrUnknownCategory = errors.New("category not found for owner")
)

// Service validates and stores planned amounts.
type Service struct {
	repo       Repository
	categories category.Repository
	logger     *slog.Logger
}

// NewService creates a plan service.
func NewService(repo Repository, categories category.Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		logger:     logger,
	}
}

// SetPlan upserts one planned amount. The category must belong to the owner.
func (s *Service) SetPlan(ctx context.Context, ownerID uuid.UUID, monthKey string, categoryID uuid.UUID, amount decimal.Decimal) (*Plan, error) {
	if _, err := time.Parse("2006-01", monthKey); err != nil {
		return nil, ErrInvalidMonthKey
	}
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}

	cat, err := s.categories.GetByID(ctx, ownerID, categoryID)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, ErrUnknownCategory
	}

	p := &Plan{
		OwnerID:       ownerID,
		MonthKey:      monthKey,
		CategoryID:    categoryID,
		PlannedAmount: amount.Round(2),
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("plan upserted",
		slog.String("owner_id", ownerID.String()),
		slog.String("month_key", monthKey),
		slog.String("category", cat.Name),
		slog.String("planned", p.PlannedAmount.StringFixed(2)))

	return p, nil
}

// ListMonth returns the plans stored for one month.
func (s *Service) ListMonth(ctx context.Context, ownerID uuid.UUID, monthKey string) ([]*Plan, error) {
	if _, err := time.Parse("2006-01", monthKey); err != nil {
		return nil, ErrInvalidMonthKey
	}
	return s.repo.ListByMonth(ctx, ownerID, monthKey)
}
