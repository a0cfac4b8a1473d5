package authorization

import (
	"context"
	"strings"

	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
)

// Principal is the signed-in console user as seen by authorization checks.
type Principal struct {
	UserID   string
	UserName string
	Roles    []string
	Claims   []identitydomain.Claim
}

func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.UserID != ""
}

// HasRole compares role names the same way the role store does.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	want := identitydomain.Normalize(role)
	for _, r := range p.Roles {
		if identitydomain.Normalize(r) == want {
			return true
		}
	}
	return false
}

// AdminClaims returns the distinct values of the principal's admin claims.
func (p *Principal) AdminClaims() []string {
	if p == nil {
		return nil
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, c := range p.Claims {
		if c.Type != ClaimTypeAdmin {
			continue
		}
		value := strings.TrimSpace(c.Value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
