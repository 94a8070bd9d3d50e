package auth

import (
	"context"

	"github.com/nerrad567/minefleet-core/internal/listview"
)

type claimsKey struct{}

// WithClaims returns a context carrying claims.
func WithClaims(ctx context.Context, claims *CustomClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (*CustomClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*CustomClaims)
	return claims, ok && claims != nil
}

// Can reports whether the caller in ctx holds perm.
func Can(ctx context.Context, perm Permission) bool {
	claims, ok := ClaimsFromContext(ctx)
	return ok && HasPermission(claims.Role, perm)
}

// Permissions answers permission questions from request claims.
type Permissions struct{}

var _ listview.PermissionChecker = Permissions{}

// CanWriteComments reports whether the caller may add or edit comments.
func (Permissions) CanWriteComments(ctx context.Context) bool {
	return Can(ctx, PermCommentWrite)
}
