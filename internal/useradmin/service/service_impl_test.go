package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/idadmin/internal/clock"
	grantdomain "github.com/smallbiznis/idadmin/internal/grant/domain"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
	sessiondomain "github.com/smallbiznis/idadmin/internal/serversession/domain"
	"github.com/smallbiznis/idadmin/internal/useradmin/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type mocks struct {
	users    *userStoreMock
	roles    *roleStoreMock
	grants   *grantStoreMock
	sessions *sessionStoreMock
}

func newService(withSessions bool) (domain.Service, mocks) {
	m := mocks{
		users:    new(userStoreMock),
		roles:    new(roleStoreMock),
		grants:   new(grantStoreMock),
		sessions: new(sessionStoreMock),
	}
	p := Params{
		Log:    zap.NewNop(),
		Users:  m.users,
		Roles:  m.roles,
		Grants: m.grants,
		Clock:  clock.NewFakeClock(now),
	}
	if withSessions {
		p.Sessions = m.sessions
	}
	return New(p), m
}

func newUser() *identitydomain.User {
	return &identitydomain.User{
		ID:               "u-1",
		UserName:         "alice",
		Email:            "alice@example.com",
		EmailConfirmed:   true,
		ConcurrencyStamp: "stamp-1",
		LockoutEnabled:   true,
	}
}

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func profileFor(user *identitydomain.User) *domain.UserProfileEditViewModel {
	return &domain.UserProfileEditViewModel{
		UserID:           user.ID,
		UserName:         "alice.smith",
		Email:            "alice.smith@example.com",
		EmailConfirmed:   true,
		PhoneNumber:      "+15550100",
		ConcurrencyStamp: user.ConcurrencyStamp,
	}
}

func assertNoSecuritySteps(t *testing.T, users *userStoreMock) {
	t.Helper()
	users.AssertNotCalled(t, "SetLockoutEnabled", mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "SetTwoFactorEnabled", mock.Anything, mock.Anything, mock.Anything)
	assertNoPasswordCalls(t, users)
}

func assertNoPasswordCalls(t *testing.T, users *userStoreMock) {
	t.Helper()
	users.AssertNotCalled(t, "HasPassword", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "RemovePassword", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "AddPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateUserFromEditPost_MissingUser(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		setup    func(m mocks)
		wantCode string
	}{
		{
			name:     "blank id",
			userID:   "   ",
			setup:    func(m mocks) {},
			wantCode: domain.CodeUserIDMissing,
		},
		{
			name:   "unknown id",
			userID: "u-404",
			setup: func(m mocks) {
				m.users.On("FindByID", mock.Anything, "u-404").Return(nil, nil)
			},
			wantCode: domain.CodeUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(false)
			tt.setup(m)

			result, err := svc.UpdateUserFromEditPost(context.Background(), domain.UserEditPostUpdateRequest{
				UserID:         tt.userID,
				LockoutEnabled: boolPtr(true),
				NewPassword:    strPtr("Pass123$"),
			})
			require.NoError(t, err)
			assert.False(t, result.UserFound)
			assert.False(t, result.Succeeded())
			assert.True(t, result.HasCode(tt.wantCode))
			assertNoSecuritySteps(t, m.users)
			m.users.AssertExpectations(t)
		})
	}
}

func TestUpdateUserFromEditPost_ProfileFailureStopsPipeline(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		wantCode string
	}{
		{
			name:     "duplicate user name",
			storeErr: identitydomain.Errors{identitydomain.DuplicateUserName("bob")},
			wantCode: identitydomain.CodeDuplicateUserName,
		},
		{
			name:     "stale stamp",
			storeErr: identitydomain.Errors{identitydomain.ConcurrencyFailure()},
			wantCode: identitydomain.CodeConcurrencyFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(false)
			user := newUser()
			m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
			m.users.On("Update", mock.Anything, user).Return(tt.storeErr)

			result, err := svc.UpdateUserFromEditPost(context.Background(), domain.UserEditPostUpdateRequest{
				UserID:           user.ID,
				Profile:          profileFor(user),
				LockoutEnabled:   boolPtr(false),
				TwoFactorEnabled: boolPtr(true),
				NewPassword:      strPtr("Pass123$"),
			})
			require.NoError(t, err)
			assert.True(t, result.UserFound)
			assert.True(t, result.HasCode(tt.wantCode))
			assertNoSecuritySteps(t, m.users)
		})
	}
}

func TestUpdateUserFromEditPost_InfrastructureErrorIsReturned(t *testing.T) {
	svc, m := newService(false)
	user := newUser()
	boom := errors.New("connection refused")
	m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	m.users.On("Update", mock.Anything, user).Return(boom)

	_, err := svc.UpdateUserFromEditPost(context.Background(), domain.UserEditPostUpdateRequest{
		UserID:  user.ID,
		Profile: profileFor(user),
	})
	assert.ErrorIs(t, err, boom)
	assertNoSecuritySteps(t, m.users)
}

func TestUpdateUserFromEditPost_ProfileStamp(t *testing.T) {
	tests := []struct {
		name      string
		formStamp string
		wantStamp string
	}{
		{name: "posted stamp wins", formStamp: "stamp-from-form", wantStamp: "stamp-from-form"},
		{name: "blank stamp keeps stored", formStamp: "  ", wantStamp: "stamp-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(false)
			user := newUser()
			profile := profileFor(user)
			profile.ConcurrencyStamp = tt.formStamp

			m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
			m.users.On("Update", mock.Anything, mock.MatchedBy(func(u *identitydomain.User) bool {
				return u.ConcurrencyStamp == tt.wantStamp &&
					u.UserName == "alice.smith" &&
					u.Email == "alice.smith@example.com" &&
					u.PhoneNumber == "+15550100"
			})).Return(nil)

			result, err := svc.UpdateUserFromEditPost(context.Background(), domain.UserEditPostUpdateRequest{
				UserID:  user.ID,
				Profile: profile,
			})
			require.NoError(t, err)
			assert.True(t, result.Succeeded())
			assert.True(t, result.UserFound)
			m.users.AssertExpectations(t)
		})
	}
}

func TestUpdateUserFromEditPost_LockoutFailureStopsPipeline(t *testing.T) {
	svc, m := newService(false)
	user := newUser()
	m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	m.users.On("SetLockoutEnabled", mock.Anything, user, false).
		Return(identitydomain.Errors{identitydomain.ConcurrencyFailure()})

	result, err := svc.UpdateUserFromEditPost(context.Background(), domain.UserEditPostUpdateRequest{
		UserID:           user.ID,
		LockoutEnabled:   boolPtr(false),
		TwoFactorEnabled: boolPtr(true),
		NewPassword:      strPtr("Pass123$"),
	})
	require.NoError(t, err)
	assert.True(t, result.HasCode(identitydomain.CodeConcurrencyFailure))
	m.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	m.users.AssertNotCalled(t, "SetTwoFactorEnabled", mock.Anything, mock.Anything, mock.Anything)
	assertNoPasswordCalls(t, m.users)
}

func TestUpdateUserFromEditPost_NilPasswordSkipsPasswordStep(t *testing.T) {
	svc, m := newService(false)
	user := newUser()
	m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	m.users.On("SetLockoutEnabled", mock.Anything, user, true).Return(nil)
	m.users.On("SetTwoFactorEnabled", mock.Anything, user, false).Return(nil)

	result, err := svc.UpdateUserFromEditPost(context.Background(), domain.UserEditPostUpdateRequest{
		UserID:           user.ID,
		LockoutEnabled:   boolPtr(true),
		TwoFactorEnabled: boolPtr(false),
	})
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assertNoPasswordCalls(t, m.users)
	m.users.AssertExpectations(t)
}

func TestUpdateUserFromEditPost_BlankPassword(t *testing.T) {
	for _, pw := range []string{"", "   ", "\t"} {
		svc, m := newService(false)
		user := newUser()
		m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		result, err := svc.UpdateUserFromEditPost(context.Background(), domain.UserEditPostUpdateRequest{
			UserID:      user.ID,
			NewPassword: strPtr(pw),
		})
		require.NoError(t, err)
		assert.True(t, result.UserFound)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, domain.CodePasswordMissing, result.Errors[0].Code)
		assert.Equal(t, "New password is required.", result.Errors[0].Description)
		assertNoPasswordCalls(t, m.users)
	}
}

func TestUpdateUserFromEditPost_PasswordReplacement(t *testing.T) {
	t.Run("existing password removed before add", func(t *testing.T) {
		svc, m := newService(false)
		user := newUser()
		var calls []string
		m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		m.users.On("HasPassword", mock.Anything, user).Return(true, nil)
		m.users.On("RemovePassword", mock.Anything, user).
			Run(func(mock.Arguments) { calls = append(calls, "remove") }).
			Return(nil)
		m.users.On("AddPassword", mock.Anything, user, "N3w!pass").
			Run(func(mock.Arguments) { calls = append(calls, "add") }).
			Return(nil)

		result, err := svc.UpdateUserFromEditPost(context.Background(), domain.UserEditPostUpdateRequest{
			UserID:      user.ID,
			NewPassword: strPtr("N3w!pass"),
		})
		require.NoError(t, err)
		assert.True(t, result.Succeeded())
		assert.Equal(t, []string{"remove", "add"}, calls)
	})

	t.Run("no existing password", func(t *testing.T) {
		svc, m := newService(false)
		user := newUser()
		m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		m.users.On("HasPassword", mock.Anything, user).Return(false, nil)
		m.users.On("AddPassword", mock.Anything, user, "N3w!pass").Return(nil)

		result, err := svc.UpdateUserFromEditPost(context.Background(), domain.UserEditPostUpdateRequest{
			UserID:      user.ID,
			NewPassword: strPtr("N3w!pass"),
		})
		require.NoError(t, err)
		assert.True(t, result.Succeeded())
		m.users.AssertNotCalled(t, "RemovePassword", mock.Anything, mock.Anything)
	})

	t.Run("removal failure skips add", func(t *testing.T) {
		svc, m := newService(false)
		user := newUser()
		m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		m.users.On("HasPassword", mock.Anything, user).Return(true, nil)
		m.users.On("RemovePassword", mock.Anything, user).
			Return(identitydomain.Errors{identitydomain.ConcurrencyFailure()})

		result, err := svc.UpdateUserFromEditPost(context.Background(), domain.UserEditPostUpdateRequest{
			UserID:      user.ID,
			NewPassword: strPtr("N3w!pass"),
		})
		require.NoError(t, err)
		assert.True(t, result.HasCode(identitydomain.CodeConcurrencyFailure))
		m.users.AssertNotCalled(t, "AddPassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("weak password reported", func(t *testing.T) {
		svc, m := newService(false)
		user := newUser()
		m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		m.users.On("HasPassword", mock.Anything, user).Return(false, nil)
		m.users.On("AddPassword", mock.Anything, user, "short").
			Return(identitydomain.Errors{identitydomain.PasswordTooShort(6)})

		result, err := svc.UpdateUserFromEditPost(context.Background(), domain.UserEditPostUpdateRequest{
			UserID:      user.ID,
			NewPassword: strPtr("short"),
		})
		require.NoError(t, err)
		assert.True(t, result.UserFound)
		assert.True(t, result.HasCode(identitydomain.CodePasswordTooShort))
	})
}

func TestUpdateUserProfileRunsOnlyProfileStep(t *testing.T) {
	svc, m := newService(false)
	user := newUser()
	m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	m.users.On("Update", mock.Anything, user).Return(nil)

	result, err := svc.UpdateUserProfile(context.Background(), *profileFor(user))
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assertNoSecuritySteps(t, m.users)
	m.users.AssertExpectations(t)
}

func TestGetUserEditPageData_MissingUser(t *testing.T) {
	svc, m := newService(true)
	m.users.On("FindByID", mock.Anything, "u-404").Return(nil, nil)

	data, err := svc.GetUserEditPageData(context.Background(), domain.UserEditPageDataRequest{UserID: " "})
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = svc.GetUserEditPageData(context.Background(), domain.UserEditPageDataRequest{UserID: "u-404", IncludeClaims: true})
	require.NoError(t, err)
	assert.Nil(t, data)
	m.users.AssertNotCalled(t, "GetClaims", mock.Anything, mock.Anything)
}

func TestGetUserEditPageData_ProfileOnly(t *testing.T) {
	svc, m := newService(true)
	user := newUser()
	m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	data, err := svc.GetUserEditPageData(context.Background(), domain.UserEditPageDataRequest{UserID: user.ID})
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, user.ID, data.Profile.UserID)
	assert.Equal(t, "alice", data.Profile.UserName)
	assert.Equal(t, "stamp-1", data.Profile.ConcurrencyStamp)
	assert.Empty(t, data.Claims)
	assert.Empty(t, data.Roles)
	assert.Empty(t, data.AvailableRoles)
	assert.Empty(t, data.Grants)
	assert.Empty(t, data.Sessions)
	assert.Empty(t, data.ExternalLogins)

	m.users.AssertNotCalled(t, "GetClaims", mock.Anything, mock.Anything)
	m.users.AssertNotCalled(t, "GetRoles", mock.Anything, mock.Anything)
	m.roles.AssertNotCalled(t, "List", mock.Anything)
	m.grants.AssertNotCalled(t, "GetAll", mock.Anything, mock.Anything)
	m.sessions.AssertNotCalled(t, "GetSessions", mock.Anything, mock.Anything)
}

func TestGetUserEditPageData_AllSections(t *testing.T) {
	svc, m := newService(true)
	user := newUser()
	user.AccessFailedCount = 2
	m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	m.users.On("GetLogins", mock.Anything, user).Return([]identitydomain.UserLogin{{LoginProvider: "Google", ProviderKey: "g-1"}}, nil)
	m.users.On("HasPassword", mock.Anything, user).Return(true, nil)
	m.users.On("GetValidTwoFactorProviders", mock.Anything, user).Return([]string{"Email"}, nil)
	m.users.On("GetClaims", mock.Anything, user).Return([]identitydomain.Claim{{Type: "admin", Value: "admin:users"}}, nil)
	m.users.On("GetRoles", mock.Anything, user).Return([]string{"ADMIN"}, nil)
	m.roles.On("List", mock.Anything).Return([]identitydomain.Role{
		{ID: "r1", Name: "ADMIN"},
		{ID: "r2", Name: ""},
		{ID: "r3", Name: "GUEST"},
		{ID: "r4", Name: "USER"},
	}, nil)
	m.grants.On("GetAll", mock.Anything, grantdomain.Filter{SubjectID: user.ID}).
		Return([]grantdomain.PersistedGrant{{Key: "g1", SubjectID: user.ID}}, nil)
	m.sessions.On("GetSessions", mock.Anything, sessiondomain.Filter{SubjectID: user.ID}).
		Return([]sessiondomain.ServerSideSession{{Key: "s1", SubjectID: user.ID}}, nil)

	data, err := svc.GetUserEditPageData(context.Background(), domain.UserEditPageDataRequest{
		UserID:             user.ID,
		IncludeUserTabData: true,
		IncludeClaims:      true,
		IncludeRoles:       true,
		IncludeGrants:      true,
		IncludeSessions:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Len(t, data.ExternalLogins, 1)
	assert.True(t, data.HasPassword)
	assert.True(t, data.LockoutEnabled)
	assert.Equal(t, 2, data.AccessFailedCount)
	assert.Equal(t, []string{"Email"}, data.TwoFactorProviders)
	assert.Equal(t, identitydomain.StatusActive, data.AccountStatus)
	assert.Equal(t, []string{"ADMIN"}, data.Roles)
	assert.Equal(t, []string{"GUEST", "USER"}, data.AvailableRoles)
	assert.Len(t, data.Claims, 1)
	assert.Len(t, data.Grants, 1)
	assert.Len(t, data.Sessions, 1)
	m.users.AssertExpectations(t)
	m.grants.AssertExpectations(t)
	m.sessions.AssertExpectations(t)
}

func TestGetUserEditPageData_WithoutSessionStore(t *testing.T) {
	svc, m := newService(false)
	user := newUser()
	m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	data, err := svc.GetUserEditPageData(context.Background(), domain.UserEditPageDataRequest{
		UserID:          user.ID,
		IncludeSessions: true,
	})
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Empty(t, data.Sessions)
}

func TestGetUserEditPageData_AccountStatus(t *testing.T) {
	maxEnd := identitydomain.MaxLockoutEnd
	yearAhead := now.AddDate(1, 0, 0)
	hourAgo := now.Add(-time.Hour)

	tests := []struct {
		name       string
		lockoutEnd *time.Time
		check      func(t *testing.T, status string)
	}{
		{"disabled", &maxEnd, func(t *testing.T, status string) { assert.Equal(t, "Disabled", status) }},
		{"locked out", &yearAhead, func(t *testing.T, status string) { assert.Regexp(t, `^Locked Out`, status) }},
		{"expired lockout", &hourAgo, func(t *testing.T, status string) { assert.Equal(t, "Active", status) }},
		{"never locked", nil, func(t *testing.T, status string) { assert.Equal(t, "Active", status) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(false)
			user := newUser()
			user.LockoutEnd = tt.lockoutEnd
			m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
			m.users.On("GetLogins", mock.Anything, user).Return([]identitydomain.UserLogin{}, nil)
			m.users.On("HasPassword", mock.Anything, user).Return(false, nil)
			m.users.On("GetValidTwoFactorProviders", mock.Anything, user).Return([]string{}, nil)

			data, err := svc.GetUserEditPageData(context.Background(), domain.UserEditPageDataRequest{
				UserID:             user.ID,
				IncludeUserTabData: true,
			})
			require.NoError(t, err)
			tt.check(t, data.AccountStatus)
		})
	}
}

func TestGetUserForEdit(t *testing.T) {
	svc, m := newService(false)
	user := newUser()
	m.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	m.users.On("FindByID", mock.Anything, "u-404").Return(nil, nil)

	profile, err := svc.GetUserForEdit(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "alice@example.com", profile.Email)

	profile, err = svc.GetUserForEdit(context.Background(), "u-404")
	require.NoError(t, err)
	assert.Nil(t, profile)

	profile, err = svc.GetUserForEdit(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, profile)
}
