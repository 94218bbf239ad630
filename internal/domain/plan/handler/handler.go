// Package handler exposes plan upserts over HTTP.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetbook-dev/budgetbook/internal/domain/plan"
)

const ownerHeader = "X-Owner-ID"

// PlanHandler serves planned amount writes and reads.
type PlanHandler struct {
	service *plan.Service
	logger  *slog.Logger
}

// NewPlanHandler creates a plan handler.
func NewPlanHandler(svc *plan.Service, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{service: svc, logger: logger}
}

func ownerID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(ownerHeader)
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + ownerHeader + " header"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid " + ownerHeader + " header"})
		return uuid.Nil, false
	}
	return id, true
}

type setPlanRequest struct {
	MonthKey      string          `json:"monthKey" binding:"required"`
	CategoryID    uuid.UUID       `json:"categoryId" binding:"required"`
	PlannedAmount decimal.Decimal `json:"plannedAmount"`
}

// SetPlan upserts one planned amount for a category and month.
func (h *PlanHandler) SetPlan(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req setPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	p, err := h.service.SetPlan(c.Request.Context(), owner, req.MonthKey, req.CategoryID, req.PlannedAmount)
	if err != nil {
		switch {
		case errors.Is(err, plan.ErrInvalidMonthKey), errors.Is(err, plan.ErrNegativeAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, plan.ErrUnknownCategory):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			h.logger.Error("failed to set plan", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set plan"})
		}
		return
	}

	c.JSON(http.StatusOK, p)
}

// ListMonth returns the plans stored for one month.
func (h *PlanHandler) ListMonth(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	plans, err := h.service.ListMonth(c.Request.Context(), owner, c.Param("month"))
	if err != nil {
		if errors.Is(err, plan.ErrInvalidMonthKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to list plans", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list plans"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}
