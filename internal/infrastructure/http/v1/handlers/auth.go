package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/auth"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// AuthHandler handles service token issuance.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Token handles POST /auth/token. Owning modules exchange their API key
// for a short-lived service token.
func (h *AuthHandler) Token(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.TokenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Authenticate(ctx, req.Module, req.APIKey)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTokenResult(result))
}
