package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/idadmin/internal/auth/domain"
	"github.com/smallbiznis/idadmin/internal/clock"
	"github.com/smallbiznis/idadmin/internal/config"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
	"github.com/smallbiznis/idadmin/internal/ratelimit"
	sessiondomain "github.com/smallbiznis/idadmin/internal/serversession/domain"
	"github.com/smallbiznis/idadmin/internal/serversession/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// userStoreMock implements the calls sign-in makes; anything else panics.
type userStoreMock struct {
	mock.Mock
	identitydomain.UserStore
}

func (m *userStoreMock) FindByName(ctx context.Context, name string) (*identitydomain.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.User), args.Error(1)
}

func (m *userStoreMock) FindByID(ctx context.Context, id string) (*identitydomain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.User), args.Error(1)
}

func (m *userStoreMock) IsLockedOut(ctx context.Context, user *identitydomain.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *userStoreMock) CheckPassword(ctx context.Context, user *identitydomain.User, password string) (bool, error) {
	args := m.Called(ctx, user, password)
	return args.Bool(0), args.Error(1)
}

func (m *userStoreMock) AccessFailed(ctx context.Context, user *identitydomain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *userStoreMock) ResetAccessFailedCount(ctx context.Context, user *identitydomain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *userStoreMock) GetRoles(ctx context.Context, user *identitydomain.User) ([]string, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]string), args.Error(1)
}

func (m *userStoreMock) GetClaims(ctx context.Context, user *identitydomain.User) ([]identitydomain.Claim, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]identitydomain.Claim), args.Error(1)
}

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newService(users identitydomain.UserStore, sessions sessiondomain.Store, limiter *ratelimit.SignInLimiter) domain.Service {
	return New(Params{
		Log:      zap.NewNop(),
		Users:    users,
		Clock:    clock.NewFakeClock(now),
		Sessions: sessions,
		Limiter:  limiter,
	})
}

func TestSignInSuccessCreatesSession(t *testing.T) {
	sessions := repository.NewRedisStore(newRedis(t), "test:", clock.NewFakeClock(now))
	user := &identitydomain.User{ID: "u1", UserName: "bob", LockoutEnabled: true}

	users := &userStoreMock{}
	users.On("FindByName", mock.Anything, "bob").Return(user, nil)
	users.On("IsLockedOut", mock.Anything, user).Return(false, nil)
	users.On("CheckPassword", mock.Anything, user, "Pass123$").Return(true, nil)
	users.On("ResetAccessFailedCount", mock.Anything, user).Return(nil)

	svc := newService(users, sessions, nil)
	result, err := svc.SignIn(context.Background(), domain.SignInRequest{UserName: " bob ", Password: "Pass123$"})
	require.NoError(t, err)
	assert.Equal(t, user, result.User)
	require.NotEmpty(t, result.SessionKey)

	stored, err := sessions.GetSessions(context.Background(), sessiondomain.Filter{SubjectID: "u1"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.SessionScheme, stored[0].Scheme)
	assert.Equal(t, "bob", stored[0].DisplayName)
	require.NotNil(t, stored[0].Expires)
	assert.WithinDuration(t, now.Add(SessionLifetime), *stored[0].Expires, time.Second)

	require.NoError(t, svc.SignOut(context.Background(), "u1", result.SessionKey))
	stored, err = sessions.GetSessions(context.Background(), sessiondomain.Filter{SubjectID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, stored)

	users.AssertExpectations(t)
	users.AssertNotCalled(t, "AccessFailed", mock.Anything, mock.Anything)
}

func TestSignInWithoutSessionStore(t *testing.T) {
	user := &identitydomain.User{ID: "u1", UserName: "bob"}
	users := &userStoreMock{}
	users.On("FindByName", mock.Anything, "bob").Return(user, nil)
	users.On("IsLockedOut", mock.Anything, user).Return(false, nil)
	users.On("CheckPassword", mock.Anything, user, "Pass123$").Return(true, nil)
	users.On("ResetAccessFailedCount", mock.Anything, user).Return(nil)

	result, err := newService(users, nil, nil).SignIn(context.Background(), domain.SignInRequest{UserName: "bob", Password: "Pass123$"})
	require.NoError(t, err)
	assert.Empty(t, result.SessionKey)
}

func TestSignInFailures(t *testing.T) {
	tests := []struct {
		name    string
		user    *identitydomain.User
		setup   func(m *userStoreMock, u *identitydomain.User)
		wantErr error
		failed  bool
	}{
		{
			name:    "unknown user",
			setup:   func(m *userStoreMock, _ *identitydomain.User) {},
			wantErr: domain.ErrInvalidCredentials,
		},
		{
			name: "already locked out",
			user: &identitydomain.User{ID: "u1", UserName: "bob", LockoutEnabled: true},
			setup: func(m *userStoreMock, u *identitydomain.User) {
				m.On("IsLockedOut", mock.Anything, u).Return(true, nil)
			},
			wantErr: domain.ErrLockedOut,
		},
		{
			name: "wrong password without lockout",
			user: &identitydomain.User{ID: "u1", UserName: "bob"},
			setup: func(m *userStoreMock, u *identitydomain.User) {
				m.On("IsLockedOut", mock.Anything, u).Return(false, nil)
				m.On("CheckPassword", mock.Anything, u, "nope").Return(false, nil)
			},
			wantErr: domain.ErrInvalidCredentials,
		},
		{
			name: "wrong password counts failure",
			user: &identitydomain.User{ID: "u1", UserName: "bob", LockoutEnabled: true},
			setup: func(m *userStoreMock, u *identitydomain.User) {
				m.On("IsLockedOut", mock.Anything, u).Return(false, nil)
				m.On("CheckPassword", mock.Anything, u, "nope").Return(false, nil)
				m.On("AccessFailed", mock.Anything, u).Return(nil)
			},
			wantErr: domain.ErrInvalidCredentials,
			failed:  true,
		},
		{
			name: "wrong password reaches threshold",
			user: &identitydomain.User{ID: "u1", UserName: "bob", LockoutEnabled: true},
			setup: func(m *userStoreMock, u *identitydomain.User) {
				m.On("IsLockedOut", mock.Anything, u).Return(false, nil).Once()
				m.On("CheckPassword", mock.Anything, u, "nope").Return(false, nil)
				m.On("AccessFailed", mock.Anything, u).Return(nil)
				m.On("IsLockedOut", mock.Anything, u).Return(true, nil).Once()
			},
			wantErr: domain.ErrLockedOut,
			failed:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &userStoreMock{}
			if tt.user != nil {
				users.On("FindByName", mock.Anything, "bob").Return(tt.user, nil)
			} else {
				users.On("FindByName", mock.Anything, "bob").Return(nil, nil)
			}
			tt.setup(users, tt.user)

			_, err := newService(users, nil, nil).SignIn(context.Background(), domain.SignInRequest{UserName: "bob", Password: "nope"})
			assert.ErrorIs(t, err, tt.wantErr)
			if !tt.failed {
				users.AssertNotCalled(t, "AccessFailed", mock.Anything, mock.Anything)
			}
			users.AssertNotCalled(t, "ResetAccessFailedCount", mock.Anything, mock.Anything)
			users.AssertExpectations(t)
		})
	}
}

func TestSignInBlankInput(t *testing.T) {
	users := &userStoreMock{}
	_, err := newService(users, nil, nil).SignIn(context.Background(), domain.SignInRequest{UserName: " ", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	users.AssertNotCalled(t, "FindByName", mock.Anything, mock.Anything)
}

func TestSignInThrottled(t *testing.T) {
	limiter := ratelimit.NewSignInLimiter(ratelimit.Params{
		Client: newRedis(t),
		Config: config.Config{
			Redis:     config.RedisConfig{KeyPrefix: "test:"},
			RateLimit: config.RateLimitConfig{Enabled: true, SignInRate: 0.001, SignInBurst: 1},
		},
		Log: zap.NewNop(),
	})
	users := &userStoreMock{}
	users.On("FindByName", mock.Anything, "bob").Return(nil, nil).Once()

	svc := newService(users, nil, limiter)
	req := domain.SignInRequest{UserName: "bob", Password: "x", IPAddress: "10.0.0.1"}

	_, err := svc.SignIn(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.SignIn(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)
	users.AssertExpectations(t)
}

func TestPrincipal(t *testing.T) {
	user := &identitydomain.User{ID: "u1", UserName: "bob", SecurityStamp: "stamp-1"}
	users := &userStoreMock{}
	users.On("FindByID", mock.Anything, "u1").Return(user, nil)
	users.On("FindByID", mock.Anything, "gone").Return(nil, nil)
	users.On("GetRoles", mock.Anything, user).Return([]string{"ADMIN"}, nil)
	users.On("GetClaims", mock.Anything, user).Return([]identitydomain.Claim{{Type: "admin", Value: "admin:users"}}, nil)

	svc := newService(users, nil, nil)
	ctx := context.Background()

	p, err := svc.Principal(ctx, "u1", "stamp-1")
	require.NoError(t, err)
	assert.Equal(t, "bob", p.UserName)
	assert.True(t, p.HasRole("admin"))
	assert.Equal(t, []string{"admin:users"}, p.AdminClaims())

	_, err = svc.Principal(ctx, "u1", "stale")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
	_, err = svc.Principal(ctx, "gone", "stamp-1")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
	_, err = svc.Principal(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}
