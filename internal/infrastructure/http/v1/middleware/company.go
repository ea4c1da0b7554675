package middleware

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/company"
)

const HeaderCompanyID = "X-Company-ID"

const maxCompanyIDLen = 64

// Company middleware extracts the company ID header and stores it in
// the request context. Every ledger call is company-scoped; requests
// without the header are rejected before reaching handlers.
func Company() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID := c.GetHeader(HeaderCompanyID)
		if companyID == "" {
			_ = c.Error(apperror.NewValidation("missing " + HeaderCompanyID + " header"))
			c.Abort()
			return
		}
		if len(companyID) > maxCompanyIDLen {
			_ = c.Error(
				apperror.NewValidation("company ID too long").
					WithDetail("max_length", maxCompanyIDLen),
			)
			c.Abort()
			return
		}

		ctx := company.WithCompany(c.Request.Context(), companyID)
		c.Request = c.Request.WithContext(ctx)

		// Store in gin context for easy access
		c.Set("company_id", companyID)

		c.Next()
	}
}
