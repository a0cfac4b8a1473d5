package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/idadmin/pkg/db/pagination"
)

type CreateUserRequest struct {
	UserName       string
	Email          string
	EmailConfirmed bool
	// Password is optional; an empty value creates a user without one.
	Password string
}

type ListUsersRequest struct {
	PageToken string
	PageSize  int32
	Search    string
}

type ListUsersResponse struct {
	pagination.PageInfo
	Users []User `json:"users"`
}

// UserStore manages user accounts. Mutations return Errors for validation
// and concurrency failures. Every successful mutation of the user row
// rotates its concurrency stamp.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByName(ctx context.Context, userName string) (*User, error)
	List(ctx context.Context, req ListUsersRequest) (ListUsersResponse, error)
	ListAll(ctx context.Context) ([]User, error)
	UsersInRole(ctx context.Context, roleName string) ([]User, error)

	Create(ctx context.Context, req CreateUserRequest) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, user *User) error

	GetClaims(ctx context.Context, user *User) ([]Claim, error)
	AddClaim(ctx context.Context, user *User, claim Claim) error
	RemoveClaim(ctx context.Context, user *User, claim Claim) error
	ReplaceClaim(ctx context.Context, user *User, claim, newClaim Claim) error

	GetRoles(ctx context.Context, user *User) ([]string, error)
	AddToRole(ctx context.Context, user *User, role string) error
	RemoveFromRole(ctx context.Context, user *User, role string) error

	HasPassword(ctx context.Context, user *User) (bool, error)
	AddPassword(ctx context.Context, user *User, password string) error
	RemovePassword(ctx context.Context, user *User) error
	CheckPassword(ctx context.Context, user *User, password string) (bool, error)

	SetLockoutEnabled(ctx context.Context, user *User, enabled bool) error
	SetLockoutEnd(ctx context.Context, user *User, end *time.Time) error
	IsLockedOut(ctx context.Context, user *User) (bool, error)
	AccessFailed(ctx context.Context, user *User) error
	ResetAccessFailedCount(ctx context.Context, user *User) error

	SetTwoFactorEnabled(ctx context.Context, user *User, enabled bool) error
	GetValidTwoFactorProviders(ctx context.Context, user *User) ([]string, error)
	ResetAuthenticatorKey(ctx context.Context, user *User) error

	GetLogins(ctx context.Context, user *User) ([]UserLogin, error)
	UpdateSecurityStamp(ctx context.Context, user *User) error
}

// RoleStore manages named roles.
type RoleStore interface {
	List(ctx context.Context) ([]Role, error)
	FindByID(ctx context.Context, id string) (*Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	Create(ctx context.Context, name string) (*Role, error)
}
