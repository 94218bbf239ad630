// Package handler exposes category listing over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/budgetbook-dev/budgetbook/internal/domain/category"
)

const ownerHeader = "X-Owner-ID"

// CategoryHandler serves category reads.
type CategoryHandler struct {
	repo   category.Repository
	logger *slog.Logger
}

// NewCategoryHandler creates a category handler.
func NewCategoryHandler(repo category.Repository, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{repo: repo, logger: logger}
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

type categoryResponse struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Type      category.Type `json:"type"`
	SortOrder int           `json:"sortOrder"`
	Active    bool          `json:"active"`
}

// List returns every category for the owner in display order.
func (h *CategoryHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	categories, err := h.repo.ListByOwner(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("failed to list categories", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, cat := range categories {
		out = append(out, categoryResponse{
			ID:        cat.ID,
			Name:      cat.Name,
			Type:      cat.Type,
			SortOrder: cat.SortOrder,
			Active:    cat.Active,
		})
	}

	c.JSON(http.StatusOK, gin.H{"categories": out})
}
