package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/idadmin/internal/client/domain"
	"github.com/smallbiznis/idadmin/internal/clock"
	"github.com/smallbiznis/idadmin/internal/config"
	"github.com/smallbiznis/idadmin/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Console *config.ConsoleConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	console *config.ConsoleConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("client.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		console: p.Console,
	}
}

func (s *Service) ListClients(ctx context.Context) ([]domain.ClientSummary, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	clients := make([]domain.ClientSummary, 0, len(items))
	for _, item := range items {
		clients = append(clients, domain.ClientSummary{
			ID:          item.ID,
			ClientID:    item.ClientID,
			ClientName:  item.ClientName,
			Description: item.Description,
			Enabled:     item.Enabled,
		})
	}
	return clients, nil
}

func (s *Service) GetClientForEdit(ctx context.Context, id snowflake.ID) (*domain.ClientEditViewModel, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}

	client, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrNotFound
	}

	vm := toViewModel(client)
	if err := s.PopulateAvailableOptions(ctx, &vm); err != nil {
		return nil, err
	}
	return &vm, nil
}

// UpdateClient overwrites the scalar fields, rebuilds the four list
// collections and appends a hashed secret when one is supplied. Existing
// secrets are never removed here.
func (s *Service) UpdateClient(ctx context.Context, id snowflake.ID, vm domain.ClientEditViewModel) (bool, error) {
	if id == 0 {
		return false, nil
	}

	found := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if client == nil {
			return nil
		}
		found = true

		clientID := strings.TrimSpace(vm.ClientID)
		if clientID != client.ClientID {
			existing, err := s.repo.FindByClientID(ctx, tx, clientID)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.ErrDuplicateClientID
			}
		}

		now := s.clock.Now()
		applyViewModel(client, vm)
		client.UpdatedAt = now

		if err := s.repo.UpdateScalars(ctx, tx, client); err != nil {
			return err
		}
		if err := s.repo.ReplaceCollections(ctx, tx, client); err != nil {
			return err
		}

		if secret := newSecret(vm, now); secret != nil {
			secret.ClientRef = client.ID
			if err := s.repo.InsertSecret(ctx, tx, secret); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			err = domain.ErrDuplicateClientID
		}
		return found, err
	}
	if found {
		s.log.Info("client updated", zap.String("client_ref", id.String()))
	}
	return found, nil
}

// PopulateAvailableOptions fills the scope and grant type choices shown on
// the edit form.
func (s *Service) PopulateAvailableOptions(ctx context.Context, vm *domain.ClientEditViewModel) error {
	identityResources, err := s.repo.ListIdentityResourceNames(ctx, s.db)
	if err != nil {
		return err
	}
	apiScopes, err := s.repo.ListAPIScopeNames(ctx, s.db)
	if err != nil {
		return err
	}

	vm.AvailableScopes = append(append(make([]string, 0, len(identityResources)+len(apiScopes)), identityResources...), apiScopes...)
	vm.AvailableGrantTypes = append([]string(nil), s.console.Get().GrantTypes...)
	return nil
}

func (s *Service) CreateClient(ctx context.Context, vm domain.ClientEditViewModel) (*domain.Client, error) {
	if errs := vm.Validate(); len(errs) > 0 {
		return nil, errs
	}

	now := s.clock.Now()
	client := &domain.Client{
		ID:        s.genID.Generate(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyViewModel(client, vm)
	if secret := newSecret(vm, now); secret != nil {
		client.Secrets = append(client.Secrets, *secret)
	}

	if err := s.repo.Insert(ctx, s.db, client); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateClientID
		}
		return nil, err
	}

	s.log.Info("client created", zap.String("client_id", client.ClientID))
	return client, nil
}

func toViewModel(client *domain.Client) domain.ClientEditViewModel {
	return domain.ClientEditViewModel{
		ClientID:                         client.ClientID,
		ClientName:                       client.ClientName,
		Description:                      client.Description,
		Enabled:                          client.Enabled,
		ClientURI:                        client.ClientURI,
		LogoURI:                          client.LogoURI,
		RequirePkce:                      client.RequirePkce,
		RequireClientSecret:              client.RequireClientSecret,
		RequireConsent:                   client.RequireConsent,
		AllowOfflineAccess:               client.AllowOfflineAccess,
		FrontChannelLogoutURI:            client.FrontChannelLogoutURI,
		BackChannelLogoutURI:             client.BackChannelLogoutURI,
		AccessTokenLifetime:              client.AccessTokenLifetime,
		IdentityTokenLifetime:            client.IdentityTokenLifetime,
		SlidingRefreshTokenLifetime:      client.SlidingRefreshTokenLifetime,
		RefreshTokenExpiration:           client.RefreshTokenExpiration,
		RefreshTokenUsage:                client.RefreshTokenUsage,
		AlwaysIncludeUserClaimsInIDToken: client.AlwaysIncludeUserClaimsInIDToken,
		AllowedGrantTypes:                copyList(client.AllowedGrantTypes),
		RedirectURIs:                     copyList(client.RedirectURIs),
		PostLogoutRedirectURIs:           copyList(client.PostLogoutRedirectURIs),
		AllowedScopes:                    copyList(client.AllowedScopes),
	}
}

func applyViewModel(client *domain.Client, vm domain.ClientEditViewModel) {
	client.ClientID = strings.TrimSpace(vm.ClientID)
	client.ClientName = vm.ClientName
	client.Description = vm.Description
	client.Enabled = vm.Enabled
	client.ClientURI = vm.ClientURI
	client.LogoURI = vm.LogoURI
	client.RequirePkce = vm.RequirePkce
	client.RequireClientSecret = vm.RequireClientSecret
	client.RequireConsent = vm.RequireConsent
	client.AllowOfflineAccess = vm.AllowOfflineAccess
	client.FrontChannelLogoutURI = vm.FrontChannelLogoutURI
	client.BackChannelLogoutURI = vm.BackChannelLogoutURI
	client.AccessTokenLifetime = vm.AccessTokenLifetime
	client.IdentityTokenLifetime = vm.IdentityTokenLifetime
	client.SlidingRefreshTokenLifetime = vm.SlidingRefreshTokenLifetime
	client.RefreshTokenExpiration = vm.RefreshTokenExpiration
	client.RefreshTokenUsage = vm.RefreshTokenUsage
	client.AlwaysIncludeUserClaimsInIDToken = vm.AlwaysIncludeUserClaimsInIDToken

	client.AllowedGrantTypes = domain.CleanList(vm.AllowedGrantTypes)
	client.RedirectURIs = domain.CleanList(vm.RedirectURIs)
	client.PostLogoutRedirectURIs = domain.CleanList(vm.PostLogoutRedirectURIs)
	client.AllowedScopes = domain.CleanList(vm.AllowedScopes)
}

func newSecret(vm domain.ClientEditViewModel, now time.Time) *domain.ClientSecret {
	if strings.TrimSpace(vm.NewSecret) == "" {
		return nil
	}
	description := strings.TrimSpace(vm.NewSecretDescription)
	if description == "" {
		description = domain.DefaultSecretDescription
	}
	return &domain.ClientSecret{
		Value:       domain.HashSecret(vm.NewSecret),
		Description: description,
		Type:        domain.SecretTypeShared,
		Created:     now,
	}
}

func copyList(values []string) []string {
	return append(make([]string, 0, len(values)), values...)
}
