// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/company"
	"stockledger/internal/core/id"
	"stockledger/internal/infrastructure/http/v1/dto"
	"stockledger/internal/infrastructure/storage/postgres"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler (single source of truth).
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// CompanyID extracts the company ID from request context. The company
// middleware guarantees presence on protected routes.
func (h *BaseHandler) CompanyID(c *gin.Context) (string, bool) {
	companyID, err := company.GetCompanyID(c.Request.Context())
	if err != nil {
		h.Error(c, apperror.NewValidation("missing company scope"))
		return "", false
	}
	return companyID, true
}

// ParseID parses a UUID path parameter.
func (h *BaseHandler) ParseID(c *gin.Context, param string) (id.ID, bool) {
	parsed, err := id.Parse(c.Param(param))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+param+" format"))
		return id.Nil(), false
	}
	return parsed, true
}

// ParseIDQuery parses an optional UUID query parameter.
func (h *BaseHandler) ParseIDQuery(c *gin.Context, key string) (*id.ID, bool) {
	val := c.Query(key)
	if val == "" {
		return nil, true
	}
	parsed, err := id.Parse(val)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+key+" format"))
		return nil, false
	}
	return &parsed, true
}

// ParseIntQuery parses integer query parameter with default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseTimeQuery parses an optional RFC3339 query parameter.
func (h *BaseHandler) ParseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	val := c.Query(key)
	if val == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, val)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+key+", expected RFC3339"))
		return nil, false
	}
	return &parsed, true
}

// CompleteIdempotency marks idempotency key as completed with the same HTTP semantics
// (status code + content type + body) for correct replay.
func (h *BaseHandler) CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	if key, exists := c.Get("idempotency_key"); exists {
		if store, ok := c.Get("idempotency_store"); ok {
			_ = store.(*postgres.IdempotencyStore).CompleteKey(c.Request.Context(), key.(string), statusCode, contentType, response)
		}
	}
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", data)
	c.JSON(http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	h.CompleteIdempotency(c, http.StatusOK, "application/json", data)
	c.JSON(http.StatusOK, data)
}

// Success sends success response.
func (h *BaseHandler) Success(c *gin.Context, message string) {
	response := dto.SuccessResponse{Success: true, Message: message}
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}
