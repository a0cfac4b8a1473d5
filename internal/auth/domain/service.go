// Package domain contains the console sign-in contract.
package domain

import (
	"context"

	"github.com/smallbiznis/idadmin/internal/authorization"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
)

// SessionScheme tags server-side sessions created by console sign-in.
const SessionScheme = "idadmin.console"

type SignInRequest struct {
	UserName  string
	Password  string
	IPAddress string
	UserAgent string
}

type SignInResult struct {
	User *identitydomain.User
	// SessionKey is empty when no server-side session store is configured.
	SessionKey string
}

type Service interface {
	SignIn(ctx context.Context, req SignInRequest) (*SignInResult, error)
	SignOut(ctx context.Context, userID, sessionKey string) error
	// Principal rebuilds the signed-in user from a cookie. A changed
	// security stamp invalidates the cookie.
	Principal(ctx context.Context, userID, securityStamp string) (*authorization.Principal, error)
}
