package domain

import (
	"context"

	"github.com/smallbiznis/idadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListUsersFilter struct {
	Search string
}

// Repository is the gorm persistence for users and roles. Finders return
// nil, nil when nothing matches.
type Repository interface {
	InsertUser(ctx context.Context, db *gorm.DB, user *User) error
	FindUserByID(ctx context.Context, db *gorm.DB, id string) (*User, error)
	FindUserByNormalizedName(ctx context.Context, db *gorm.DB, name string) (*User, error)
	FindUserByNormalizedEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	ListUsers(ctx context.Context, db *gorm.DB, filter ListUsersFilter, page pagination.Pagination) ([]*User, error)
	// UpdateUser writes every column when the stored concurrency stamp still
	// equals expectedStamp and reports whether a row matched.
	UpdateUser(ctx context.Context, db *gorm.DB, user *User, expectedStamp string) (bool, error)
	DeleteUser(ctx context.Context, db *gorm.DB, id string) error

	ListClaims(ctx context.Context, db *gorm.DB, userID string) ([]UserClaim, error)
	InsertClaim(ctx context.Context, db *gorm.DB, claim *UserClaim) error
	DeleteClaim(ctx context.Context, db *gorm.DB, userID string, claim Claim) (int64, error)

	ListUserRoleNames(ctx context.Context, db *gorm.DB, userID string) ([]string, error)
	InsertUserRole(ctx context.Context, db *gorm.DB, userID, roleID string) error
	DeleteUserRole(ctx context.Context, db *gorm.DB, userID, roleID string) (int64, error)
	ListUsersInRole(ctx context.Context, db *gorm.DB, roleID string) ([]*User, error)

	ListLogins(ctx context.Context, db *gorm.DB, userID string) ([]UserLogin, error)

	InsertRole(ctx context.Context, db *gorm.DB, role *Role) error
	FindRoleByID(ctx context.Context, db *gorm.DB, id string) (*Role, error)
	FindRoleByNormalizedName(ctx context.Context, db *gorm.DB, name string) (*Role, error)
	ListRoles(ctx context.Context, db *gorm.DB) ([]*Role, error)
}
