package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/idadmin/internal/client/domain"
	"github.com/smallbiznis/idadmin/internal/client/repository"
	"github.com/smallbiznis/idadmin/internal/clock"
	"github.com/smallbiznis/idadmin/internal/config"
	"github.com/smallbiznis/idadmin/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	repo  domain.Repository
	db    *gorm.DB
	genID *snowflake.Node
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	conn := dbtest.Open(t,
		&domain.Client{},
		&domain.ClientGrantType{},
		&domain.ClientRedirectURI{},
		&domain.ClientPostLogoutRedirectURI{},
		&domain.ClientScope{},
		&domain.ClientSecret{},
		&domain.IdentityResource{},
		&domain.APIScope{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := repository.Provide()

	svc := New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    repo,
		Clock:   clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		Console: config.NewStaticConsoleConfigHolder(config.DefaultConsoleConfig()),
	})
	return fixture{svc: svc, repo: repo, db: conn, genID: node}
}

func (f fixture) seedClient(t *testing.T, mutate func(*domain.Client)) *domain.Client {
	t.Helper()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	client := &domain.Client{
		ID:                          f.genID.Generate(),
		ClientID:                    "web",
		ClientName:                  "Web App",
		Enabled:                     true,
		RequirePkce:                 true,
		RequireClientSecret:         true,
		AccessTokenLifetime:         3600,
		IdentityTokenLifetime:       300,
		SlidingRefreshTokenLifetime: 1296000,
		RefreshTokenExpiration:      1,
		RefreshTokenUsage:           1,
		AllowedGrantTypes:           []string{"authorization_code"},
		RedirectURIs:                []string{"https://localhost:5002/signin-oidc"},
		PostLogoutRedirectURIs:      []string{"https://localhost:5002/signout-callback-oidc"},
		AllowedScopes:               []string{"openid", "profile"},
		Secrets: []domain.ClientSecret{{
			Value:   domain.HashSecret("secret"),
			Type:    domain.SecretTypeShared,
			Created: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if mutate != nil {
		mutate(client)
	}
	require.NoError(t, f.repo.Insert(context.Background(), f.db, client))
	return client
}

func (f fixture) reload(t *testing.T, id snowflake.ID) *domain.Client {
	t.Helper()
	client, err := f.repo.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, client)
	return client
}

func TestGetClientForEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.InsertIdentityResource(ctx, f.db, &domain.IdentityResource{ID: f.genID.Generate(), Name: "openid", Enabled: true}))
	require.NoError(t, f.repo.InsertIdentityResource(ctx, f.db, &domain.IdentityResource{ID: f.genID.Generate(), Name: "profile", Enabled: true}))
	require.NoError(t, f.repo.InsertAPIScope(ctx, f.db, &domain.APIScope{ID: f.genID.Generate(), Name: "api1", Enabled: true}))
	client := f.seedClient(t, nil)

	vm, err := f.svc.GetClientForEdit(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, "web", vm.ClientID)
	assert.Equal(t, []string{"authorization_code"}, vm.AllowedGrantTypes)
	assert.Equal(t, []string{"https://localhost:5002/signin-oidc"}, vm.RedirectURIs)
	assert.Equal(t, []string{"openid", "profile", "api1"}, vm.AvailableScopes)
	assert.Equal(t, config.DefaultConsoleConfig().GrantTypes, vm.AvailableGrantTypes)
	assert.Empty(t, vm.NewSecret)
}

func TestGetClientForEditMissing(t *testing.T) {
	f := newFixture(t)

	vm, err := f.svc.GetClientForEdit(context.Background(), f.genID.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, vm)
}

func TestUpdateClientMissing(t *testing.T) {
	f := newFixture(t)

	ok, err := f.svc.UpdateClient(context.Background(), f.genID.Generate(), domain.NewClientEditViewModel())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateClientDropsBlankEntriesAndTrims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.seedClient(t, nil)

	vm, err := f.svc.GetClientForEdit(ctx, client.ID)
	require.NoError(t, err)
	vm.AllowedGrantTypes = []string{" client_credentials ", "", "   "}
	vm.RedirectURIs = []string{"", " https://app.example.com/cb", "\t"}
	vm.PostLogoutRedirectURIs = []string{"  ", "https://app.example.com/out  "}
	vm.AllowedScopes = []string{"openid ", " ", " api1"}

	ok, err := f.svc.UpdateClient(ctx, client.ID, *vm)
	require.NoError(t, err)
	require.True(t, ok)

	stored := f.reload(t, client.ID)
	assert.Equal(t, []string{"client_credentials"}, stored.AllowedGrantTypes)
	assert.Equal(t, []string{"https://app.example.com/cb"}, stored.RedirectURIs)
	assert.Equal(t, []string{"https://app.example.com/out"}, stored.PostLogoutRedirectURIs)
	assert.Equal(t, []string{"openid", "api1"}, stored.AllowedScopes)
}

func TestUpdateClientBlankSecretIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.seedClient(t, nil)
	before := f.reload(t, client.ID).Secrets

	for _, secret := range []string{"", "   "} {
		vm, err := f.svc.GetClientForEdit(ctx, client.ID)
		require.NoError(t, err)
		vm.NewSecret = secret
		vm.NewSecretDescription = "ignored"

		ok, err := f.svc.UpdateClient(ctx, client.ID, *vm)
		require.NoError(t, err)
		require.True(t, ok)
	}

	assert.Equal(t, before, f.reload(t, client.ID).Secrets)
}

func TestUpdateClientAppendsHashedSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.seedClient(t, nil)

	vm, err := f.svc.GetClientForEdit(ctx, client.ID)
	require.NoError(t, err)
	vm.NewSecret = "s3cr3t"
	ok, err := f.svc.UpdateClient(ctx, client.ID, *vm)
	require.NoError(t, err)
	require.True(t, ok)

	secrets := f.reload(t, client.ID).Secrets
	require.Len(t, secrets, 2)
	assert.Equal(t, domain.HashSecret("secret"), secrets[0].Value)
	assert.Equal(t, domain.HashSecret("s3cr3t"), secrets[1].Value)
	assert.NotEqual(t, "s3cr3t", secrets[1].Value)
	assert.Equal(t, domain.DefaultSecretDescription, secrets[1].Description)
	assert.Equal(t, domain.SecretTypeShared, secrets[1].Type)

	vm.NewSecret = "another"
	vm.NewSecretDescription = "rotation 2025"
	_, err = f.svc.UpdateClient(ctx, client.ID, *vm)
	require.NoError(t, err)

	secrets = f.reload(t, client.ID).Secrets
	require.Len(t, secrets, 3)
	assert.Equal(t, "rotation 2025", secrets[2].Description)
}

func TestGetThenUpdateRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.seedClient(t, func(c *domain.Client) {
		c.Description = "Interactive web client"
		c.ClientURI = "https://app.example.com"
		c.AllowOfflineAccess = true
		c.AllowedGrantTypes = []string{"authorization_code", "refresh_token"}
	})

	before, err := f.svc.GetClientForEdit(ctx, client.ID)
	require.NoError(t, err)
	storedBefore := f.reload(t, client.ID)

	ok, err := f.svc.UpdateClient(ctx, client.ID, *before)
	require.NoError(t, err)
	require.True(t, ok)

	after, err := f.svc.GetClientForEdit(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	storedAfter := f.reload(t, client.ID)
	assert.Equal(t, storedBefore.Secrets, storedAfter.Secrets)
}

func TestUpdateClientReplacesGrantTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.seedClient(t, nil)

	vm, err := f.svc.GetClientForEdit(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"authorization_code"}, vm.AllowedGrantTypes)

	vm.AllowedGrantTypes = []string{"client_credentials", "refresh_token"}
	ok, err := f.svc.UpdateClient(ctx, client.ID, *vm)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ElementsMatch(t, []string{"refresh_token", "client_credentials"}, f.reload(t, client.ID).AllowedGrantTypes)
}

func TestUpdateClientDuplicateClientID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedClient(t, func(c *domain.Client) { c.ClientID = "client" })
	web := f.seedClient(t, nil)

	vm, err := f.svc.GetClientForEdit(ctx, web.ID)
	require.NoError(t, err)
	vm.ClientID = "client"

	ok, err := f.svc.UpdateClient(ctx, web.ID, *vm)
	assert.True(t, ok)
	assert.ErrorIs(t, err, domain.ErrDuplicateClientID)
	assert.Equal(t, "web", f.reload(t, web.ID).ClientID)
}

func TestCreateAndListClients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vm := domain.NewClientEditViewModel()
	vm.ClientID = "m2m"
	vm.ClientName = "Machine Client"
	vm.AllowedGrantTypes = []string{"client_credentials"}
	vm.AllowedScopes = []string{"api1"}
	vm.NewSecret = "secret"
	created, err := f.svc.CreateClient(ctx, vm)
	require.NoError(t, err)

	f.seedClient(t, func(c *domain.Client) { c.ClientName = "Alpha" })

	clients, err := f.svc.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "Alpha", clients[0].ClientName)
	assert.Equal(t, created.ID, clients[1].ID)

	stored := f.reload(t, created.ID)
	require.Len(t, stored.Secrets, 1)
	assert.Equal(t, domain.HashSecret("secret"), stored.Secrets[0].Value)

	_, err = f.svc.CreateClient(ctx, vm)
	assert.ErrorIs(t, err, domain.ErrDuplicateClientID)

	_, err = f.svc.CreateClient(ctx, domain.NewClientEditViewModel())
	var verrs domain.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}
