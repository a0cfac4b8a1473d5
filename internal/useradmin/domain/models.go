package domain

import (
	grantdomain "github.com/smallbiznis/idadmin/internal/grant/domain"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
	sessiondomain "github.com/smallbiznis/idadmin/internal/serversession/domain"
)

const (
	CodeUserIDMissing   = "UserIdMissing"
	CodeUserNotFound    = "UserNotFound"
	CodePasswordMissing = "PasswordMissing"
)

// UserProfileEditViewModel is the profile form on the user edit page.
type UserProfileEditViewModel struct {
	UserID               string `form:"user_id" json:"user_id" binding:"required"`
	UserName             string `form:"user_name" json:"user_name" binding:"required,max=256"`
	Email                string `form:"email" json:"email" binding:"required,email,max=256"`
	EmailConfirmed       bool   `form:"email_confirmed" json:"email_confirmed"`
	PhoneNumber          string `form:"phone_number" json:"phone_number,omitempty" binding:"max=50"`
	PhoneNumberConfirmed bool   `form:"phone_number_confirmed" json:"phone_number_confirmed"`
	ConcurrencyStamp     string `form:"concurrency_stamp" json:"concurrency_stamp,omitempty"`
}

// UserEditPageDataRequest selects the optional sections of the edit page.
// Each flag corresponds to a separately authorized read.
type UserEditPageDataRequest struct {
	UserID             string
	IncludeUserTabData bool
	IncludeClaims      bool
	IncludeRoles       bool
	IncludeGrants      bool
	IncludeSessions    bool
}

type UserEditPageData struct {
	Profile UserProfileEditViewModel

	Claims         []identitydomain.Claim
	Roles          []string
	AvailableRoles []string
	ExternalLogins []identitydomain.UserLogin
	Grants         []grantdomain.PersistedGrant
	Sessions       []sessiondomain.ServerSideSession

	HasPassword        bool
	LockoutEnabled     bool
	AccessFailedCount  int
	TwoFactorEnabled   bool
	TwoFactorProviders []string
	AccountStatus      string
}

// UserEditPostUpdateRequest carries the optional parts of an edit post.
// A nil field skips its step; an empty NewPassword does not.
type UserEditPostUpdateRequest struct {
	UserID           string
	Profile          *UserProfileEditViewModel
	NewPassword      *string
	LockoutEnabled   *bool
	TwoFactorEnabled *bool
}

// UpdateResult reports the outcome of an update. Expected failures are
// listed in Errors; infrastructure failures are returned separately.
type UpdateResult struct {
	UserFound bool
	Errors    []identitydomain.Error
}

func (r UpdateResult) Succeeded() bool {
	return len(r.Errors) == 0
}

func (r UpdateResult) HasCode(code string) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}
