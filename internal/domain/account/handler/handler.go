// Package handler exposes account management over HTTP.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetbook-dev/budgetbook/internal/domain/account"
)

const ownerHeader = "X-Owner-ID"

// AccountHandler serves account creation and listing.
type AccountHandler struct {
	repo   account.Repository
	logger *slog.Logger
}

// NewAccountHandler creates an account handler.
func NewAccountHandler(repo account.Repository, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{repo: repo, logger: logger}
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

type createAccountRequest struct {
	Name            string          `json:"name" binding:"required"`
	StartingBalance decimal.Decimal `json:"startingBalance"`
}

// Create adds a new account for the owner.
func (h *AccountHandler) Create(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	acct := &account.Account{
		OwnerID:         owner,
		Name:            strings.TrimSpace(req.Name),
		StartingBalance: req.StartingBalance.Round(2),
	}
	if err := h.repo.Create(c.Request.Context(), acct); err != nil {
		h.logger.Error("failed to create account", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	c.JSON(http.StatusCreated, acct)
}

// List returns the owner's accounts.
func (h *AccountHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	accounts, err := h.repo.ListByOwner(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("failed to list accounts", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list accounts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}
