package authorization

import "context"

type Service interface {
	// Authorize returns ErrForbidden unless one of the principal's admin
	// claims is granted the policy's object and action.
	Authorize(ctx context.Context, principal *Principal, policy Policy) error
	// Allowed is Authorize without denial bookkeeping, for deciding what to
	// render.
	Allowed(ctx context.Context, principal *Principal, policy Policy) bool
	RequireRole(ctx context.Context, principal *Principal, role string) error
}
