// Package seed loads the demo roles, users, clients and scopes used for local
// development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/idadmin/internal/authorization"
	clientdomain "github.com/smallbiznis/idadmin/internal/client/domain"
	"github.com/smallbiznis/idadmin/internal/clock"
	"github.com/smallbiznis/idadmin/internal/config"
	grantdomain "github.com/smallbiznis/idadmin/internal/grant/domain"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
	"github.com/smallbiznis/idadmin/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DemoPassword = "Pass123$"

	lockKey = "seed:lock"
	lockTTL = time.Minute
)

var ErrSeedLocked = errors.New("seed: another instance holds the seed lock")

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	DB         *gorm.DB
	GenID      *snowflake.Node
	Clock      clock.Clock
	Users      identitydomain.UserStore
	Roles      identitydomain.RoleStore
	Clients    clientdomain.Service
	ClientRepo clientdomain.Repository
	Grants     grantdomain.Store
	Locker     *ratelimit.Locker `optional:"true"`
}

type Seeder struct {
	log        *zap.Logger
	db         *gorm.DB
	genID      *snowflake.Node
	clock      clock.Clock
	users      identitydomain.UserStore
	roles      identitydomain.RoleStore
	clients    clientdomain.Service
	clientRepo clientdomain.Repository
	grants     grantdomain.Store
	locker     *ratelimit.Locker
	lockKey    string
}

func New(p Params) *Seeder {
	return &Seeder{
		log:        p.Log.Named("seed"),
		db:         p.DB,
		genID:      p.GenID,
		clock:      p.Clock,
		users:      p.Users,
		roles:      p.Roles,
		clients:    p.Clients,
		clientRepo: p.ClientRepo,
		grants:     p.Grants,
		locker:     p.Locker,
		lockKey:    p.Config.Redis.KeyPrefix + lockKey,
	}
}

// Run seeds missing demo data. Existing rows are left untouched, so Run is
// safe to repeat. With redis configured only one instance seeds at a time.
func (s *Seeder) Run(ctx context.Context) error {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, s.lockKey, lockTTL)
		if err != nil {
			return fmt.Errorf("acquire seed lock: %w", err)
		}
		if !ok {
			return ErrSeedLocked
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), s.lockKey, token); err != nil {
				s.log.Warn("failed to release seed lock", zap.Error(err))
			}
		}()
	}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"roles", s.ensureRoles},
		{"users", s.ensureUsers},
		{"scopes", s.ensureScopes},
		{"clients", s.ensureClients},
		{"grants", s.ensureGrants},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
	}
	s.log.Info("demo data seeded")
	return nil
}

func (s *Seeder) ensureRoles(ctx context.Context) error {
	for _, name := range demoRoles {
		existing, err := s.roles.FindByName(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := s.roles.Create(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) ensureUsers(ctx context.Context) error {
	for _, demo := range demoUsers() {
		existing, err := s.users.FindByName(ctx, demo.userName)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		user, err := s.users.Create(ctx, identitydomain.CreateUserRequest{
			UserName:       demo.userName,
			Email:          demo.email,
			EmailConfirmed: true,
			Password:       DemoPassword,
		})
		if err != nil {
			return err
		}
		for _, claim := range demo.claims {
			if err := s.users.AddClaim(ctx, user, claim); err != nil {
				return err
			}
		}
		for _, role := range demo.roles {
			if err := s.users.AddToRole(ctx, user, role); err != nil {
				return err
			}
		}
		s.log.Info("seeded user", zap.String("user_name", demo.userName))
	}
	return nil
}

func (s *Seeder) ensureScopes(ctx context.Context) error {
	now := s.clock.Now()

	existing, err := s.clientRepo.ListIdentityResourceNames(ctx, s.db)
	if err != nil {
		return err
	}
	have := toSet(existing)
	for _, res := range demoIdentityResources {
		if _, ok := have[res.Name]; ok {
			continue
		}
		res.ID = s.genID.Generate()
		res.Enabled = true
		res.CreatedAt = now
		if err := s.clientRepo.InsertIdentityResource(ctx, s.db, &res); err != nil {
			return err
		}
	}

	existing, err = s.clientRepo.ListAPIScopeNames(ctx, s.db)
	if err != nil {
		return err
	}
	have = toSet(existing)
	for _, scope := range demoAPIScopes {
		if _, ok := have[scope.Name]; ok {
			continue
		}
		scope.ID = s.genID.Generate()
		scope.Enabled = true
		scope.CreatedAt = now
		if err := s.clientRepo.InsertAPIScope(ctx, s.db, &scope); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) ensureClients(ctx context.Context) error {
	for _, vm := range demoClients() {
		existing, err := s.clientRepo.FindByClientID(ctx, s.db, vm.ClientID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := s.clients.CreateClient(ctx, vm); err != nil {
			return err
		}
	}
	return nil
}

// ensureGrants gives bob a refresh token so the grants tab has something to
// revoke.
func (s *Seeder) ensureGrants(ctx context.Context) error {
	bob, err := s.users.FindByName(ctx, "bob")
	if err != nil || bob == nil {
		return err
	}
	existing, err := s.grants.GetAll(ctx, grantdomain.Filter{SubjectID: bob.ID})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := s.clock.Now()
	expires := now.Add(30 * 24 * time.Hour)
	return s.grants.Store(ctx, grantdomain.PersistedGrant{
		Key:          ulid.Make().String(),
		Type:         "refresh_token",
		SubjectID:    bob.ID,
		SessionID:    ulid.Make().String(),
		ClientID:     "web",
		Description:  "Seeded refresh token",
		CreationTime: now,
		Expiration:   &expires,
		Data:         "{}",
	})
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

var demoRoles = []string{"ADMIN", "USER", "GUEST"}

type demoUser struct {
	userName string
	email    string
	claims   []identitydomain.Claim
	roles    []string
}

func demoUsers() []demoUser {
	bobClaims := []identitydomain.Claim{
		{Type: "name", Value: "Bob Smith"},
		{Type: "given_name", Value: "Bob"},
		{Type: "family_name", Value: "Smith"},
		{Type: "website", Value: "http://bob.com"},
		{Type: "location", Value: "somewhere"},
	}
	for _, value := range authorization.AdminClaimValues {
		bobClaims = append(bobClaims, identitydomain.Claim{Type: authorization.ClaimTypeAdmin, Value: value})
	}

	return []demoUser{
		{
			userName: "alice",
			email:    "AliceSmith@email.com",
			claims: []identitydomain.Claim{
				{Type: "name", Value: "Alice Smith"},
				{Type: "given_name", Value: "Alice"},
				{Type: "family_name", Value: "Smith"},
				{Type: "website", Value: "http://alice.com"},
			},
			roles: []string{"USER"},
		},
		{
			userName: "bob",
			email:    "BobSmith@email.com",
			claims:   bobClaims,
			roles:    []string{authorization.RoleAdmin, "USER"},
		},
	}
}

var demoIdentityResources = []clientdomain.IdentityResource{
	{Name: "openid", DisplayName: "Your user identifier", Required: true, UserClaims: "sub"},
	{Name: "profile", DisplayName: "User profile", UserClaims: "name family_name given_name website"},
	{Name: "color", DisplayName: "Your favorite color", UserClaims: "favorite_color"},
	{Name: "employees", DisplayName: "Employee directory", UserClaims: "employee_id"},
	{Name: "products", DisplayName: "Product catalogue", UserClaims: "product_access"},
}

var demoAPIScopes = []clientdomain.APIScope{
	{Name: "api1", DisplayName: "My API"},
}

func demoClients() []clientdomain.ClientEditViewModel {
	m2m := clientdomain.NewClientEditViewModel()
	m2m.ClientID = "client"
	m2m.ClientName = "Client Credentials Client"
	m2m.AllowedGrantTypes = []string{"client_credentials"}
	m2m.AllowedScopes = []string{"api1"}
	m2m.NewSecret = "secret"

	web := clientdomain.NewClientEditViewModel()
	web.ClientID = "web"
	web.ClientName = "Web Client"
	web.RequirePkce = true
	web.AllowOfflineAccess = true
	web.AllowedGrantTypes = []string{"authorization_code"}
	web.RedirectURIs = []string{"https://localhost:5002/signin-oidc"}
	web.PostLogoutRedirectURIs = []string{"https://localhost:5002/signout-callback-oidc"}
	web.FrontChannelLogoutURI = "https://localhost:5002/signout-oidc"
	web.AllowedScopes = []string{"openid", "profile", "api1", "color", "employees", "products"}
	web.NewSecret = "secret"

	return []clientdomain.ClientEditViewModel{m2m, web}
}
