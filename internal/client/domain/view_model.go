package domain

import (
	"net/url"
	"strings"
)

// ClientEditViewModel is the request-scoped shape of the client edit form.
type ClientEditViewModel struct {
	ClientID                         string   `form:"client_id"`
	ClientName                       string   `form:"client_name"`
	Description                      string   `form:"description"`
	Enabled                          bool     `form:"enabled"`
	ClientURI                        string   `form:"client_uri"`
	LogoURI                          string   `form:"logo_uri"`
	RequirePkce                      bool     `form:"require_pkce"`
	RequireClientSecret              bool     `form:"require_client_secret"`
	RequireConsent                   bool     `form:"require_consent"`
	AllowOfflineAccess               bool     `form:"allow_offline_access"`
	FrontChannelLogoutURI            string   `form:"front_channel_logout_uri"`
	BackChannelLogoutURI             string   `form:"back_channel_logout_uri"`
	AccessTokenLifetime              int      `form:"access_token_lifetime"`
	IdentityTokenLifetime            int      `form:"identity_token_lifetime"`
	SlidingRefreshTokenLifetime      int      `form:"sliding_refresh_token_lifetime"`
	RefreshTokenExpiration           int      `form:"refresh_token_expiration"`
	RefreshTokenUsage                int      `form:"refresh_token_usage"`
	AlwaysIncludeUserClaimsInIDToken bool     `form:"always_include_user_claims_in_id_token"`
	AllowedGrantTypes                []string `form:"allowed_grant_types"`
	RedirectURIs                     []string `form:"redirect_uris"`
	PostLogoutRedirectURIs           []string `form:"post_logout_redirect_uris"`
	AllowedScopes                    []string `form:"allowed_scopes"`
	NewSecret                        string   `form:"new_secret"`
	NewSecretDescription             string   `form:"new_secret_description"`

	AvailableScopes     []string `form:"-"`
	AvailableGrantTypes []string `form:"-"`
}

// NewClientEditViewModel returns the defaults of a fresh client form.
func NewClientEditViewModel() ClientEditViewModel {
	return ClientEditViewModel{
		Enabled:                     true,
		RequireClientSecret:         true,
		AccessTokenLifetime:         3600,
		IdentityTokenLifetime:       300,
		SlidingRefreshTokenLifetime: 1296000,
		RefreshTokenExpiration:      1,
		RefreshTokenUsage:           1,
		AllowedGrantTypes:           []string{},
		RedirectURIs:                []string{},
		PostLogoutRedirectURIs:      []string{},
		AllowedScopes:               []string{},
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists form fields that failed validation.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	return "validation error"
}

// Validate checks required fields, absolute URLs and positive lifetimes.
func (vm ClientEditViewModel) Validate() ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(vm.ClientID) == "" {
		errs = append(errs, FieldError{Field: "client_id", Message: "The Client ID field is required."})
	}
	if strings.TrimSpace(vm.ClientName) == "" {
		errs = append(errs, FieldError{Field: "client_name", Message: "The Client Name field is required."})
	}

	for _, f := range []struct {
		field string
		label string
		value string
	}{
		{"client_uri", "Client URI", vm.ClientURI},
		{"logo_uri", "Logo URI", vm.LogoURI},
		{"front_channel_logout_uri", "Front Channel Logout URI", vm.FrontChannelLogoutURI},
		{"back_channel_logout_uri", "Back Channel Logout URI", vm.BackChannelLogoutURI},
	} {
		if strings.TrimSpace(f.value) != "" && !isAbsoluteURL(f.value) {
			errs = append(errs, FieldError{Field: f.field, Message: "The " + f.label + " field is not a valid fully-qualified http, https, or ftp URL."})
		}
	}

	if vm.AccessTokenLifetime < 1 {
		errs = append(errs, FieldError{Field: "access_token_lifetime", Message: "Access token lifetime must be positive"})
	}
	if vm.IdentityTokenLifetime < 1 {
		errs = append(errs, FieldError{Field: "identity_token_lifetime", Message: "Identity token lifetime must be positive"})
	}
	if vm.SlidingRefreshTokenLifetime < 1 {
		errs = append(errs, FieldError{Field: "sliding_refresh_token_lifetime", Message: "Sliding refresh token lifetime must be positive"})
	}
	return errs
}

func isAbsoluteURL(value string) bool {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ftp":
		return true
	default:
		return false
	}
}

// CleanList drops blank entries and trims the rest.
func CleanList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
