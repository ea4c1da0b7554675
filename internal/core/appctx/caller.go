package appctx

import (
	"context"
)

// CallerContext identifies the authenticated calling module.
// The ledger itself has no users; its callers are owning modules
// (sales, goods-received, transfers, production, adjustments) that
// present a service token.
type CallerContext struct {
	// Module is the calling module name from the token subject
	Module string

	// CompanyID scopes every ledger call; there is no ambient
	// "current company" anywhere else in the system
	CompanyID string

	// Scopes lists granted operations (ledger:write, ledger:read, ...)
	Scopes []string
}

type callerContextKey struct{}

// WithCaller adds CallerContext to context.
func WithCaller(ctx context.Context, caller *CallerContext) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// GetCaller returns CallerContext from context, or nil.
func GetCaller(ctx context.Context) *CallerContext {
	if v, ok := ctx.Value(callerContextKey{}).(*CallerContext); ok {
		return v
	}
	return nil
}

// GetCallerModule returns the calling module name or empty string.
func GetCallerModule(ctx context.Context) string {
	if c := GetCaller(ctx); c != nil {
		return c.Module
	}
	return ""
}

// HasScope reports whether the caller was granted the given scope.
func HasScope(ctx context.Context, scope string) bool {
	c := GetCaller(ctx)
	if c == nil {
		return false
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
