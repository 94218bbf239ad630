// Package handler exposes the statement import engine over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/budgetbook-dev/budgetbook/internal/domain/ingest/parser"
	"github.com/budgetbook-dev/budgetbook/internal/domain/ingest/service"
)

// OwnerHeader carries the acting owner's id. There is no account system in
// front of this API; callers identify themselves per request.
const OwnerHeader = "X-Owner-ID"

// ImportHandler handles statement upload and batch ledger requests.
type ImportHandler struct {
	service        *service.ImportService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewImportHandler creates an import handler.
func NewImportHandler(svc *service.ImportService, maxUploadBytes int64, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		service:        svc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// ownerID extracts and validates the owner header. Writes the error response
// itself and returns false when the header is missing or malformed.
func ownerID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(OwnerHeader)
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + OwnerHeader + " header"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid " + OwnerHeader + " header"})
		return uuid.Nil, false
	}
	return id, true
}

// Upload accepts a multipart CSV upload and runs the import. The optional
// "mapping" form field carries a column mapping JSON object for headerless
// files.
func (h *ImportHandler) Upload(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	accountID, err := uuid.Parse(c.Param("accountID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds upload limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds upload limit"})
		return
	}

	var mapping *service.ColumnMapping
	if raw := c.PostForm("mapping"); raw != "" {
		mapping = &service.ColumnMapping{}
		if err := json.Unmarshal([]byte(raw), mapping); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mapping JSON"})
			return
		}
	}

	result, err := h.service.Import(c.Request.Context(), service.ImportRequest{
		OwnerID:   owner,
		AccountID: accountID,
		FileName:  fileHeader.Filename,
		FileData:  data,
		Mapping:   mapping,
	})
	if err != nil {
		h.writeImportError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ImportHandler) writeImportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	case errors.Is(err, service.ErrUnsupportedFormat):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only CSV files are supported"})
	case errors.Is(err, parser.ErrEmptyFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV is empty"})
	case errors.Is(err, service.ErrMissingColumns):
		c.JSON(http.StatusBadRequest, gin.H{"error": "required columns could not be identified"})
	default:
		h.logger.Error("import failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
	}
}

// ListBatches returns the import batch ledger for one account, newest first.
func (h *ImportHandler) ListBatches(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	accountID, err := uuid.Parse(c.Param("accountID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	batches, err := h.service.ListBatches(c.Request.Context(), owner, accountID)
	if err != nil {
		h.logger.Error("failed to list batches", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list batches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

// BatchIssues returns the per-row issues recorded for one batch.
func (h *ImportHandler) BatchIssues(c *gin.Context) {
	if _, ok := ownerID(c); !ok {
		return
	}

	batchID, err := uuid.Parse(c.Param("batchID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}

	issues, err := h.service.BatchIssues(c.Request.Context(), batchID)
	if err != nil {
		h.logger.Error("failed to list batch issues", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list batch issues"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"issues": issues})
}
