package domain

import "context"

type Service interface {
	// GetUserEditPageData returns nil when the id is blank or no user matches.
	GetUserEditPageData(ctx context.Context, req UserEditPageDataRequest) (*UserEditPageData, error)
	GetUserForEdit(ctx context.Context, userID string) (*UserProfileEditViewModel, error)
	// UpdateUserFromEditPost applies profile, lockout, two-factor and password
	// changes in that order and stops at the first failure. Steps that
	// already succeeded stay committed.
	UpdateUserFromEditPost(ctx context.Context, req UserEditPostUpdateRequest) (UpdateResult, error)
	UpdateUserProfile(ctx context.Context, vm UserProfileEditViewModel) (UpdateResult, error)
}
