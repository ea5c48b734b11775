// Package api exposes the symbol registry over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"tickphysics-lab/internal/models"
	"tickphysics-lab/internal/symbols"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// SymbolStore is the persistence the handlers need.
type SymbolStore interface {
	List(ctx context.Context, offset, limit int) ([]models.Symbol, error)
	Get(ctx context.Context, id uint) (*models.Symbol, error)
	Create(ctx context.Context, in symbols.CreateInput) (*models.Symbol, error)
	Update(ctx context.Context, id uint, in symbols.UpdateInput) (*models.Symbol, error)
	Delete(ctx context.Context, id uint) error
	Ping(ctx context.Context) error
}

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log   *zap.Logger
	store SymbolStore
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, store SymbolStore) *APIHandler {
	return &APIHandler{log: log, store: store}
}

// ListSymbols handles GET /api/v1/symbols?skip=&limit=.
func (h *APIHandler) ListSymbols(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "skip must be a non-negative integer"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 || limit > maxLimit {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "limit must be between 1 and 1000"})
		return
	}

	list, err := h.store.List(c.Request.Context(), skip, limit)
	if err != nil {
		h.fail(c, "Failed to list symbols", err)
		return
	}
	if list == nil {
		list = []models.Symbol{}
	}
	c.JSON(http.StatusOK, list)
}

// CreateSymbol handles POST /api/v1/symbols.
func (h *APIHandler) CreateSymbol(c *gin.Context) {
	var in symbols.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	sym, err := h.store.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "Failed to create symbol", err)
		return
	}
	h.log.Info("Symbol created", zap.Uint("id", sym.ID), zap.String("name", sym.Name))
	c.JSON(http.StatusCreated, sym)
}

// GetSymbol handles GET /api/v1/symbols/:id.
func (h *APIHandler) GetSymbol(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sym, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get symbol", err)
		return
	}
	c.JSON(http.StatusOK, sym)
}

// UpdateSymbol handles PATCH /api/v1/symbols/:id.
func (h *APIHandler) UpdateSymbol(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in symbols.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	sym, err := h.store.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, "Failed to update symbol", err)
		return
	}
	c.JSON(http.StatusOK, sym)
}

// DeleteSymbol handles DELETE /api/v1/symbols/:id.
func (h *APIHandler) DeleteSymbol(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "Failed to delete symbol", err)
		return
	}
	h.log.Info("Symbol deleted", zap.Uint("id", id))
	c.Status(http.StatusNoContent)
}

// Live always reports ok while the process is serving.
func (h *APIHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the database answers queries.
func (h *APIHandler) Ready(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.log.Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

// fail maps store errors onto status codes. Unexpected errors are logged.
func (h *APIHandler) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, symbols.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, symbols.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, symbols.ErrInvalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.log.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
