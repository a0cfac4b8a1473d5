package seed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/idadmin/internal/authorization"
	clientdomain "github.com/smallbiznis/idadmin/internal/client/domain"
	clientrepository "github.com/smallbiznis/idadmin/internal/client/repository"
	clientservice "github.com/smallbiznis/idadmin/internal/client/service"
	"github.com/smallbiznis/idadmin/internal/clock"
	"github.com/smallbiznis/idadmin/internal/config"
	grantdomain "github.com/smallbiznis/idadmin/internal/grant/domain"
	grantrepository "github.com/smallbiznis/idadmin/internal/grant/repository"
	grantservice "github.com/smallbiznis/idadmin/internal/grant/service"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
	identityrepository "github.com/smallbiznis/idadmin/internal/identity/repository"
	identityservice "github.com/smallbiznis/idadmin/internal/identity/service"
	"github.com/smallbiznis/idadmin/internal/migration"
	"github.com/smallbiznis/idadmin/internal/ratelimit"
	"github.com/smallbiznis/idadmin/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	seeder *Seeder
	users  identitydomain.UserStore
	roles  identitydomain.RoleStore
	repo   clientdomain.Repository
	grants grantdomain.Store
	params Params
}

func newFixture(t *testing.T, locker *ratelimit.Locker) fixture {
	t.Helper()

	conn := dbtest.Open(t, migration.Models()...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	console := config.NewStaticConsoleConfigHolder(config.DefaultConsoleConfig())
	log := zap.NewNop()

	identityParams := identityservice.Params{DB: conn, Log: log, Repo: identityrepository.Provide(), Clock: clk, Console: console}
	users := identityservice.NewUserStore(identityParams)
	roles := identityservice.NewRoleStore(identityParams)

	clientRepo := clientrepository.Provide()
	clients := clientservice.New(clientservice.Params{DB: conn, Log: log, GenID: node, Repo: clientRepo, Clock: clk, Console: console})
	grants := grantservice.New(grantservice.Params{DB: conn, Log: log, Repo: grantrepository.Provide()})

	p := Params{
		Config:     config.Config{Redis: config.RedisConfig{KeyPrefix: "test:"}},
		Log:        log,
		DB:         conn,
		GenID:      node,
		Clock:      clk,
		Users:      users,
		Roles:      roles,
		Clients:    clients,
		ClientRepo: clientRepo,
		Grants:     grants,
		Locker:     locker,
	}
	return fixture{seeder: New(p), users: users, roles: roles, repo: clientRepo, grants: grants, params: p}
}

func TestRunSeedsDemoData(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.seeder.Run(ctx))

	roles, err := f.roles.List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 3)

	bob, err := f.users.FindByName(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, bob)
	ok, err := f.users.CheckPassword(ctx, bob, DemoPassword)
	require.NoError(t, err)
	assert.True(t, ok)

	bobRoles, err := f.users.GetRoles(ctx, bob)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ADMIN", "USER"}, bobRoles)

	claims, err := f.users.GetClaims(ctx, bob)
	require.NoError(t, err)
	principal := authorization.Principal{UserID: bob.ID, Claims: claims}
	assert.ElementsMatch(t, authorization.AdminClaimValues, principal.AdminClaims())

	web, err := f.repo.FindByClientID(ctx, f.params.DB, "web")
	require.NoError(t, err)
	require.NotNil(t, web)
	assert.Equal(t, []string{"authorization_code"}, web.AllowedGrantTypes)
	assert.Equal(t, []string{"https://localhost:5002/signin-oidc"}, web.RedirectURIs)
	assert.True(t, web.AllowOfflineAccess)
	assert.Len(t, web.Secrets, 1)

	resources, err := f.repo.ListIdentityResourceNames(ctx, f.params.DB)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"openid", "profile", "color", "employees", "products"}, resources)

	grants, err := f.grants.GetAll(ctx, grantdomain.Filter{SubjectID: bob.ID})
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestRunIsRepeatable(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.seeder.Run(ctx))
	require.NoError(t, f.seeder.Run(ctx))

	all, err := f.users.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scopes, err := f.repo.ListAPIScopeNames(ctx, f.params.DB)
	require.NoError(t, err)
	assert.Equal(t, []string{"api1"}, scopes)

	bob, err := f.users.FindByName(ctx, "bob")
	require.NoError(t, err)
	grants, err := f.grants.GetAll(ctx, grantdomain.Filter{SubjectID: bob.ID})
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestRunSkipsWhileLocked(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := ratelimit.NewLocker(client)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "test:"+lockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	f := newFixture(t, locker)
	assert.ErrorIs(t, f.seeder.Run(ctx), ErrSeedLocked)

	mr.FastForward(2 * time.Minute)
	require.NoError(t, f.seeder.Run(ctx))
	assert.False(t, mr.Exists("test:"+lockKey))
}
