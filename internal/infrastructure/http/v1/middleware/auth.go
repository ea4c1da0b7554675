package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/appctx"
	"stockledger/internal/core/company"
)

// TokenValidator interface for service token validation.
type TokenValidator interface {
	ValidateToken(tokenString string) (*appctx.CallerContext, error)
}

// Auth middleware validates service tokens and populates the caller context.
// The ledger has no users; callers are owning modules presenting a JWT
// obtained from the token endpoint.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		caller, err := validator.ValidateToken(parts[1])
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}

		// Company scoping travels per request, not per token.
		if companyID, cerr := company.GetCompanyID(c.Request.Context()); cerr == nil {
			caller.CompanyID = companyID
		}

		ctx := appctx.WithCaller(c.Request.Context(), caller)
		c.Request = c.Request.WithContext(ctx)

		// Store in gin context for easy access
		c.Set("caller_module", caller.Module)
		c.Set("caller_scopes", caller.Scopes)

		c.Next()
	}
}

// RequireScope middleware checks that the caller was granted one of the
// listed scopes.
func RequireScope(scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := appctx.GetCaller(c.Request.Context())
		if caller == nil {
			_ = c.Error(apperror.NewUnauthorized("authentication required"))
			c.Abort()
			return
		}

		for _, required := range scopes {
			if appctx.HasScope(c.Request.Context(), required) {
				c.Next()
				return
			}
		}
		_ = c.Error(
			apperror.NewForbidden("insufficient scope").
				WithDetail("required_scopes", scopes),
		)
		c.Abort()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
