package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists clients with their child collections. Finders return
// nil, nil when nothing matches.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Client, error)
	FindByClientID(ctx context.Context, db *gorm.DB, clientID string) (*Client, error)
	List(ctx context.Context, db *gorm.DB) ([]*Client, error)
	UpdateScalars(ctx context.Context, db *gorm.DB, client *Client) error
	// ReplaceCollections deletes and rebuilds grant types, redirect URIs,
	// post-logout redirect URIs and scopes from the client's slices.
	ReplaceCollections(ctx context.Context, db *gorm.DB, client *Client) error
	InsertSecret(ctx context.Context, db *gorm.DB, secret *ClientSecret) error

	InsertIdentityResource(ctx context.Context, db *gorm.DB, resource *IdentityResource) error
	InsertAPIScope(ctx context.Context, db *gorm.DB, scope *APIScope) error
	ListIdentityResourceNames(ctx context.Context, db *gorm.DB) ([]string, error)
	ListAPIScopeNames(ctx context.Context, db *gorm.DB) ([]string, error)
}
