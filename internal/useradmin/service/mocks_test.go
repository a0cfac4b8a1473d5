package service

import (
	"context"
	"time"

	grantdomain "github.com/smallbiznis/idadmin/internal/grant/domain"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
	sessiondomain "github.com/smallbiznis/idadmin/internal/serversession/domain"
	"github.com/stretchr/testify/mock"
)

type userStoreMock struct {
	mock.Mock
}

func (m *userStoreMock) FindByID(ctx context.Context, id string) (*identitydomain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.User), args.Error(1)
}

func (m *userStoreMock) FindByName(ctx context.Context, userName string) (*identitydomain.User, error) {
	args := m.Called(ctx, userName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.User), args.Error(1)
}

func (m *userStoreMock) List(ctx context.Context, req identitydomain.ListUsersRequest) (identitydomain.ListUsersResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(identitydomain.ListUsersResponse), args.Error(1)
}

func (m *userStoreMock) ListAll(ctx context.Context) ([]identitydomain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]identitydomain.User), args.Error(1)
}

func (m *userStoreMock) UsersInRole(ctx context.Context, roleName string) ([]identitydomain.User, error) {
	args := m.Called(ctx, roleName)
	return args.Get(0).([]identitydomain.User), args.Error(1)
}

func (m *userStoreMock) Create(ctx context.Context, req identitydomain.CreateUserRequest) (*identitydomain.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.User), args.Error(1)
}

func (m *userStoreMock) Update(ctx context.Context, user *identitydomain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *userStoreMock) Delete(ctx context.Context, user *identitydomain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *userStoreMock) GetClaims(ctx context.Context, user *identitydomain.User) ([]identitydomain.Claim, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]identitydomain.Claim), args.Error(1)
}

func (m *userStoreMock) AddClaim(ctx context.Context, user *identitydomain.User, claim identitydomain.Claim) error {
	return m.Called(ctx, user, claim).Error(0)
}

func (m *userStoreMock) RemoveClaim(ctx context.Context, user *identitydomain.User, claim identitydomain.Claim) error {
	return m.Called(ctx, user, claim).Error(0)
}

func (m *userStoreMock) ReplaceClaim(ctx context.Context, user *identitydomain.User, claim, newClaim identitydomain.Claim) error {
	return m.Called(ctx, user, claim, newClaim).Error(0)
}

func (m *userStoreMock) GetRoles(ctx context.Context, user *identitydomain.User) ([]string, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]string), args.Error(1)
}

func (m *userStoreMock) AddToRole(ctx context.Context, user *identitydomain.User, role string) error {
	return m.Called(ctx, user, role).Error(0)
}

func (m *userStoreMock) RemoveFromRole(ctx context.Context, user *identitydomain.User, role string) error {
	return m.Called(ctx, user, role).Error(0)
}

func (m *userStoreMock) HasPassword(ctx context.Context, user *identitydomain.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *userStoreMock) AddPassword(ctx context.Context, user *identitydomain.User, password string) error {
	return m.Called(ctx, user, password).Error(0)
}

func (m *userStoreMock) RemovePassword(ctx context.Context, user *identitydomain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *userStoreMock) CheckPassword(ctx context.Context, user *identitydomain.User, password string) (bool, error) {
	args := m.Called(ctx, user, password)
	return args.Bool(0), args.Error(1)
}

func (m *userStoreMock) SetLockoutEnabled(ctx context.Context, user *identitydomain.User, enabled bool) error {
	return m.Called(ctx, user, enabled).Error(0)
}

func (m *userStoreMock) SetLockoutEnd(ctx context.Context, user *identitydomain.User, end *time.Time) error {
	return m.Called(ctx, user, end).Error(0)
}

func (m *userStoreMock) IsLockedOut(ctx context.Context, user *identitydomain.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *userStoreMock) AccessFailed(ctx context.Context, user *identitydomain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *userStoreMock) ResetAccessFailedCount(ctx context.Context, user *identitydomain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *userStoreMock) SetTwoFactorEnabled(ctx context.Context, user *identitydomain.User, enabled bool) error {
	return m.Called(ctx, user, enabled).Error(0)
}

func (m *userStoreMock) GetValidTwoFactorProviders(ctx context.Context, user *identitydomain.User) ([]string, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]string), args.Error(1)
}

func (m *userStoreMock) ResetAuthenticatorKey(ctx context.Context, user *identitydomain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *userStoreMock) GetLogins(ctx context.Context, user *identitydomain.User) ([]identitydomain.UserLogin, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]identitydomain.UserLogin), args.Error(1)
}

func (m *userStoreMock) UpdateSecurityStamp(ctx context.Context, user *identitydomain.User) error {
	return m.Called(ctx, user).Error(0)
}

type roleStoreMock struct {
	mock.Mock
}

func (m *roleStoreMock) List(ctx context.Context) ([]identitydomain.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]identitydomain.Role), args.Error(1)
}

func (m *roleStoreMock) FindByID(ctx context.Context, id string) (*identitydomain.Role, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.Role), args.Error(1)
}

func (m *roleStoreMock) FindByName(ctx context.Context, name string) (*identitydomain.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.Role), args.Error(1)
}

func (m *roleStoreMock) Create(ctx context.Context, name string) (*identitydomain.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.Role), args.Error(1)
}

type grantStoreMock struct {
	mock.Mock
}

func (m *grantStoreMock) GetAll(ctx context.Context, filter grantdomain.Filter) ([]grantdomain.PersistedGrant, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]grantdomain.PersistedGrant), args.Error(1)
}

func (m *grantStoreMock) Get(ctx context.Context, key string) (*grantdomain.PersistedGrant, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*grantdomain.PersistedGrant), args.Error(1)
}

func (m *grantStoreMock) Remove(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *grantStoreMock) RemoveAll(ctx context.Context, filter grantdomain.Filter) error {
	return m.Called(ctx, filter).Error(0)
}

func (m *grantStoreMock) Store(ctx context.Context, grant grantdomain.PersistedGrant) error {
	return m.Called(ctx, grant).Error(0)
}

type sessionStoreMock struct {
	mock.Mock
}

func (m *sessionStoreMock) CreateSession(ctx context.Context, session sessiondomain.ServerSideSession) (*sessiondomain.ServerSideSession, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessiondomain.ServerSideSession), args.Error(1)
}

func (m *sessionStoreMock) GetSession(ctx context.Context, key string) (*sessiondomain.ServerSideSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessiondomain.ServerSideSession), args.Error(1)
}

func (m *sessionStoreMock) GetSessions(ctx context.Context, filter sessiondomain.Filter) ([]sessiondomain.ServerSideSession, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]sessiondomain.ServerSideSession), args.Error(1)
}

func (m *sessionStoreMock) DeleteSession(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *sessionStoreMock) DeleteSessions(ctx context.Context, filter sessiondomain.Filter) error {
	return m.Called(ctx, filter).Error(0)
}
