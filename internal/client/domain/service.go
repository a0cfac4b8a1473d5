package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type ClientSummary struct {
	ID          snowflake.ID
	ClientID    string
	ClientName  string
	Description string
	Enabled     bool
}

type Service interface {
	ListClients(ctx context.Context) ([]ClientSummary, error)
	// GetClientForEdit returns ErrNotFound when no client has id.
	GetClientForEdit(ctx context.Context, id snowflake.ID) (*ClientEditViewModel, error)
	// UpdateClient reports false when no client has id. A client id already
	// used by another client yields true with ErrDuplicateClientID.
	UpdateClient(ctx context.Context, id snowflake.ID, vm ClientEditViewModel) (bool, error)
	PopulateAvailableOptions(ctx context.Context, vm *ClientEditViewModel) error
	CreateClient(ctx context.Context, vm ClientEditViewModel) (*Client, error)
}

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrDuplicateClientID = errors.New("duplicate_client_id")
)
