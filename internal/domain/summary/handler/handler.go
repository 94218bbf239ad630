// Package handler exposes the month summary over HTTP.
package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/budgetbook-dev/budgetbook/internal/domain/summary"
)

const ownerHeader = "X-Owner-ID"

// SummaryHandler serves the month summary and its CSV export.
type SummaryHandler struct {
	service *summary.Service
	logger  *slog.Logger
}

// NewSummaryHandler creates a summary handler.
func NewSummaryHandler(svc *summary.Service, logger *slog.Logger) *SummaryHandler {
	return &SummaryHandler{service: svc, logger: logger}
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

// GetMonth returns the planned-vs-actual table for one month.
func (h *SummaryHandler) GetMonth(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	result, err := h.service.GetMonthSummary(c.Request.Context(), owner, c.Param("month"))
	if err != nil {
		if errors.Is(err, summary.ErrInvalidMonthKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to build month summary", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build month summary"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportMonth streams the month summary as a CSV download.
func (h *SummaryHandler) ExportMonth(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	month := c.Param("month")
	result, err := h.service.GetMonthSummary(c.Request.Context(), owner, month)
	if err != nil {
		if errors.Is(err, summary.ErrInvalidMonthKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to build month summary", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build month summary"})
		return
	}

	data, err := summary.ExportCSV(result)
	if err != nil {
		h.logger.Error("failed to export month summary", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export month summary"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "summary-"+month+".csv"))
	c.Data(http.StatusOK, "text/csv", data)
}
