package domain

import (
	"context"
	"errors"
)

var (
	ErrEmptyFilter = errors.New("empty_grant_filter")
	ErrInvalidKey  = errors.New("invalid_grant_key")
)

// Store is the persisted-grant collaborator used by the admin console.
type Store interface {
	// GetAll returns grants matching filter, newest first.
	GetAll(ctx context.Context, filter Filter) ([]PersistedGrant, error)
	Get(ctx context.Context, key string) (*PersistedGrant, error)
	// Remove deletes one grant. Removing an unknown key is not an error.
	Remove(ctx context.Context, key string) error
	RemoveAll(ctx context.Context, filter Filter) error
	// Store inserts the grant or replaces the one with the same key.
	Store(ctx context.Context, grant PersistedGrant) error
}
