package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	SecretTypeShared         = "SharedSecret"
	DefaultSecretDescription = "Added via admin"
)

// Client is an OAuth/OIDC client registration. The list fields are stored in
// child tables and loaded by the repository.
type Client struct {
	ID                               snowflake.ID `gorm:"primaryKey" json:"id"`
	ClientID                         string       `gorm:"size:200;not null;uniqueIndex" json:"client_id"`
	ClientName                       string       `gorm:"size:200" json:"client_name"`
	Description                      string       `gorm:"size:1000" json:"description,omitempty"`
	Enabled                          bool         `gorm:"not null" json:"enabled"`
	ClientURI                        string       `gorm:"column:client_uri;size:2000" json:"client_uri,omitempty"`
	LogoURI                          string       `gorm:"column:logo_uri;size:2000" json:"logo_uri,omitempty"`
	RequirePkce                      bool         `gorm:"not null" json:"require_pkce"`
	RequireClientSecret              bool         `gorm:"not null" json:"require_client_secret"`
	RequireConsent                   bool         `gorm:"not null;default:false" json:"require_consent"`
	AllowOfflineAccess               bool         `gorm:"not null;default:false" json:"allow_offline_access"`
	FrontChannelLogoutURI            string       `gorm:"column:front_channel_logout_uri;size:2000" json:"front_channel_logout_uri,omitempty"`
	BackChannelLogoutURI             string       `gorm:"column:back_channel_logout_uri;size:2000" json:"back_channel_logout_uri,omitempty"`
	AccessTokenLifetime              int          `gorm:"not null" json:"access_token_lifetime"`
	IdentityTokenLifetime            int          `gorm:"not null" json:"identity_token_lifetime"`
	SlidingRefreshTokenLifetime      int          `gorm:"not null" json:"sliding_refresh_token_lifetime"`
	RefreshTokenExpiration           int          `gorm:"not null" json:"refresh_token_expiration"`
	RefreshTokenUsage                int          `gorm:"not null" json:"refresh_token_usage"`
	AlwaysIncludeUserClaimsInIDToken bool         `gorm:"column:always_include_user_claims_in_id_token;not null;default:false" json:"always_include_user_claims_in_id_token"`
	CreatedAt                        time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt                        time.Time    `gorm:"not null" json:"updated_at"`

	AllowedGrantTypes      []string       `gorm:"-" json:"allowed_grant_types"`
	RedirectURIs           []string       `gorm:"-" json:"redirect_uris"`
	PostLogoutRedirectURIs []string       `gorm:"-" json:"post_logout_redirect_uris"`
	AllowedScopes          []string       `gorm:"-" json:"allowed_scopes"`
	Secrets                []ClientSecret `gorm:"-" json:"-"`
}

func (Client) TableName() string { return "clients" }

type ClientGrantType struct {
	ID        uint         `gorm:"primaryKey;autoIncrement"`
	ClientRef snowflake.ID `gorm:"not null;index"`
	GrantType string       `gorm:"size:250;not null"`
}

func (ClientGrantType) TableName() string { return "client_grant_types" }

type ClientRedirectURI struct {
	ID          uint         `gorm:"primaryKey;autoIncrement"`
	ClientRef   snowflake.ID `gorm:"not null;index"`
	RedirectURI string       `gorm:"column:redirect_uri;size:400;not null"`
}

func (ClientRedirectURI) TableName() string { return "client_redirect_uris" }

type ClientPostLogoutRedirectURI struct {
	ID                    uint         `gorm:"primaryKey;autoIncrement"`
	ClientRef             snowflake.ID `gorm:"not null;index"`
	PostLogoutRedirectURI string       `gorm:"column:post_logout_redirect_uri;size:400;not null"`
}

func (ClientPostLogoutRedirectURI) TableName() string { return "client_post_logout_redirect_uris" }

type ClientScope struct {
	ID        uint         `gorm:"primaryKey;autoIncrement"`
	ClientRef snowflake.ID `gorm:"not null;index"`
	Scope     string       `gorm:"size:200;not null"`
}

func (ClientScope) TableName() string { return "client_scopes" }

// ClientSecret values are one-way hashes; the plain secret is never stored.
type ClientSecret struct {
	ID          uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientRef   snowflake.ID `gorm:"not null;index" json:"-"`
	Value       string       `gorm:"size:4000;not null" json:"-"`
	Description string       `gorm:"size:2000" json:"description"`
	Type        string       `gorm:"size:250;not null" json:"type"`
	Expiration  *time.Time   `json:"expiration,omitempty"`
	Created     time.Time    `gorm:"not null" json:"created"`
}

func (ClientSecret) TableName() string { return "client_secrets" }

type IdentityResource struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:200;not null;uniqueIndex" json:"name"`
	DisplayName string       `gorm:"size:200" json:"display_name"`
	Description string       `gorm:"size:1000" json:"description,omitempty"`
	Enabled     bool         `gorm:"not null" json:"enabled"`
	Required    bool         `gorm:"not null;default:false" json:"required"`
	UserClaims  string       `gorm:"size:2000" json:"user_claims,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (IdentityResource) TableName() string { return "identity_resources" }

type APIScope struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:200;not null;uniqueIndex" json:"name"`
	DisplayName string       `gorm:"size:200" json:"display_name"`
	Description string       `gorm:"size:1000" json:"description,omitempty"`
	Enabled     bool         `gorm:"not null" json:"enabled"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (APIScope) TableName() string { return "api_scopes" }
