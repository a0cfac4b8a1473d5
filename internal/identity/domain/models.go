package domain

import (
	"strings"
	"time"
)

type User struct {
	ID                   string     `gorm:"primaryKey;size:64" json:"id"`
	UserName             string     `gorm:"size:256;not null" json:"user_name"`
	NormalizedUserName   string     `gorm:"size:256;not null;uniqueIndex" json:"-"`
	Email                string     `gorm:"size:256" json:"email"`
	NormalizedEmail      string     `gorm:"size:256;index" json:"-"`
	EmailConfirmed       bool       `gorm:"not null;default:false" json:"email_confirmed"`
	PhoneNumber          string     `gorm:"size:64" json:"phone_number"`
	PhoneNumberConfirmed bool       `gorm:"not null;default:false" json:"phone_number_confirmed"`
	PasswordHash         *string    `json:"-"`
	SecurityStamp        string     `gorm:"size:64" json:"-"`
	ConcurrencyStamp     string     `gorm:"size:64" json:"concurrency_stamp"`
	LockoutEnd           *time.Time `json:"lockout_end,omitempty"`
	LockoutEnabled       bool       `gorm:"not null;default:false" json:"lockout_enabled"`
	AccessFailedCount    int        `gorm:"not null;default:0" json:"access_failed_count"`
	TwoFactorEnabled     bool       `gorm:"not null;default:false" json:"two_factor_enabled"`
	AuthenticatorKey     string     `gorm:"size:64" json:"-"`
	CreatedAt            time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

type Role struct {
	ID               string `gorm:"primaryKey;size:64" json:"id"`
	Name             string `gorm:"size:256" json:"name"`
	NormalizedName   string `gorm:"size:256;uniqueIndex" json:"-"`
	ConcurrencyStamp string `gorm:"size:64" json:"-"`
}

func (Role) TableName() string { return "roles" }

type UserRole struct {
	UserID string `gorm:"primaryKey;size:64"`
	RoleID string `gorm:"primaryKey;size:64"`
}

func (UserRole) TableName() string { return "user_roles" }

// UserClaim rows have multiset semantics: the same type may repeat with
// different values.
type UserClaim struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	UserID     string `gorm:"size:64;not null;index"`
	ClaimType  string `gorm:"size:256;not null"`
	ClaimValue string `gorm:"size:1024"`
}

func (UserClaim) TableName() string { return "user_claims" }

type UserLogin struct {
	LoginProvider       string `gorm:"primaryKey;size:128" json:"login_provider"`
	ProviderKey         string `gorm:"primaryKey;size:128" json:"provider_key"`
	ProviderDisplayName string `gorm:"size:256" json:"provider_display_name"`
	UserID              string `gorm:"size:64;not null;index" json:"user_id"`
}

func (UserLogin) TableName() string { return "user_logins" }

type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Normalize is the lookup key used for user names, emails and role names.
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
