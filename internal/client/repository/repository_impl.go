package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/idadmin/internal/client/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(client).Error; err != nil {
			return err
		}
		if err := r.insertCollections(tx, client); err != nil {
			return err
		}
		for i := range client.Secrets {
			client.Secrets[i].ClientRef = client.ID
			if err := tx.Create(&client.Secrets[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	return r.find(ctx, db, "id = ?", id)
}

func (r *repo) FindByClientID(ctx context.Context, db *gorm.DB, clientID string) (*domain.Client, error) {
	return r.find(ctx, db, "client_id = ?", clientID)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Client, error) {
	tx := db.WithContext(ctx)

	var client domain.Client
	err := tx.Where(query, arg).Take(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Model(&domain.ClientGrantType{}).
		Where("client_ref = ?", client.ID).
		Order("id asc").
		Pluck("grant_type", &client.AllowedGrantTypes).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&domain.ClientRedirectURI{}).
		Where("client_ref = ?", client.ID).
		Order("id asc").
		Pluck("redirect_uri", &client.RedirectURIs).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&domain.ClientPostLogoutRedirectURI{}).
		Where("client_ref = ?", client.ID).
		Order("id asc").
		Pluck("post_logout_redirect_uri", &client.PostLogoutRedirectURIs).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&domain.ClientScope{}).
		Where("client_ref = ?", client.ID).
		Order("id asc").
		Pluck("scope", &client.AllowedScopes).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("client_ref = ?", client.ID).
		Order("id asc").
		Find(&client.Secrets).Error; err != nil {
		return nil, err
	}

	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Client, error) {
	var clients []*domain.Client
	err := db.WithContext(ctx).
		Order("client_name asc, client_id asc").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repo) UpdateScalars(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("id = ?", client.ID).
		Updates(map[string]any{
			"client_id":                              client.ClientID,
			"client_name":                            client.ClientName,
			"description":                            client.Description,
			"enabled":                                client.Enabled,
			"client_uri":                             client.ClientURI,
			"logo_uri":                               client.LogoURI,
			"require_pkce":                           client.RequirePkce,
			"require_client_secret":                  client.RequireClientSecret,
			"require_consent":                        client.RequireConsent,
			"allow_offline_access":                   client.AllowOfflineAccess,
			"front_channel_logout_uri":               client.FrontChannelLogoutURI,
			"back_channel_logout_uri":                client.BackChannelLogoutURI,
			"access_token_lifetime":                  client.AccessTokenLifetime,
			"identity_token_lifetime":                client.IdentityTokenLifetime,
			"sliding_refresh_token_lifetime":         client.SlidingRefreshTokenLifetime,
			"refresh_token_expiration":               client.RefreshTokenExpiration,
			"refresh_token_usage":                    client.RefreshTokenUsage,
			"always_include_user_claims_in_id_token": client.AlwaysIncludeUserClaimsInIDToken,
			"updated_at":                             client.UpdatedAt,
		}).Error
}

func (r *repo) ReplaceCollections(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	tx := db.WithContext(ctx)
	for _, model := range []any{
		&domain.ClientGrantType{},
		&domain.ClientRedirectURI{},
		&domain.ClientPostLogoutRedirectURI{},
		&domain.ClientScope{},
	} {
		if err := tx.Where("client_ref = ?", client.ID).Delete(model).Error; err != nil {
			return err
		}
	}
	return r.insertCollections(tx, client)
}

func (r *repo) insertCollections(tx *gorm.DB, client *domain.Client) error {
	if len(client.AllowedGrantTypes) > 0 {
		rows := make([]domain.ClientGrantType, 0, len(client.AllowedGrantTypes))
		for _, value := range client.AllowedGrantTypes {
			rows = append(rows, domain.ClientGrantType{ClientRef: client.ID, GrantType: value})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(client.RedirectURIs) > 0 {
		rows := make([]domain.ClientRedirectURI, 0, len(client.RedirectURIs))
		for _, value := range client.RedirectURIs {
			rows = append(rows, domain.ClientRedirectURI{ClientRef: client.ID, RedirectURI: value})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(client.PostLogoutRedirectURIs) > 0 {
		rows := make([]domain.ClientPostLogoutRedirectURI, 0, len(client.PostLogoutRedirectURIs))
		for _, value := range client.PostLogoutRedirectURIs {
			rows = append(rows, domain.ClientPostLogoutRedirectURI{ClientRef: client.ID, PostLogoutRedirectURI: value})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(client.AllowedScopes) > 0 {
		rows := make([]domain.ClientScope, 0, len(client.AllowedScopes))
		for _, value := range client.AllowedScopes {
			rows = append(rows, domain.ClientScope{ClientRef: client.ID, Scope: value})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) InsertSecret(ctx context.Context, db *gorm.DB, secret *domain.ClientSecret) error {
	return db.WithContext(ctx).Create(secret).Error
}

func (r *repo) InsertIdentityResource(ctx context.Context, db *gorm.DB, resource *domain.IdentityResource) error {
	return db.WithContext(ctx).Create(resource).Error
}

func (r *repo) InsertAPIScope(ctx context.Context, db *gorm.DB, scope *domain.APIScope) error {
	return db.WithContext(ctx).Create(scope).Error
}

func (r *repo) ListIdentityResourceNames(ctx context.Context, db *gorm.DB) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).
		Model(&domain.IdentityResource{}).
		Order("name asc").
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *repo) ListAPIScopeNames(ctx context.Context, db *gorm.DB) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).
		Model(&domain.APIScope{}).
		Order("name asc").
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
