package service

import (
	"context"
	"net/mail"
	"strings"
	"unicode"

	"github.com/smallbiznis/idadmin/internal/config"
	"github.com/smallbiznis/idadmin/internal/identity/domain"
	"gorm.io/gorm"
)

const allowedUserNameCharacters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._@+"

// validateUser checks name and email shape and uniqueness against other users.
func (s *UserStore) validateUser(ctx context.Context, db *gorm.DB, user *domain.User) (domain.Errors, error) {
	var errs domain.Errors

	name := strings.TrimSpace(user.UserName)
	if name == "" || strings.IndexFunc(name, func(r rune) bool {
		return !strings.ContainsRune(allowedUserNameCharacters, r)
	}) >= 0 {
		errs = append(errs, domain.InvalidUserName(user.UserName))
	} else {
		existing, err := s.repo.FindUserByNormalizedName(ctx, db, domain.Normalize(name))
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != user.ID {
			errs = append(errs, domain.DuplicateUserName(name))
		}
	}

	email := strings.TrimSpace(user.Email)
	if email != "" {
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			errs = append(errs, domain.InvalidEmail(email))
		} else {
			existing, err := s.repo.FindUserByNormalizedEmail(ctx, db, domain.Normalize(email))
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != user.ID {
				errs = append(errs, domain.DuplicateEmail(email))
			}
		}
	}

	return errs, nil
}

func validatePassword(policy config.PasswordConfig, password string) domain.Errors {
	var errs domain.Errors
	if len([]rune(password)) < policy.MinLength {
		errs = append(errs, domain.PasswordTooShort(policy.MinLength))
	}

	var digit, lower, upper, other bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r):
			other = true
		}
	}
	if policy.RequireNonAlphanumeric && !other {
		errs = append(errs, domain.PasswordRequiresNonAlphanumeric())
	}
	if policy.RequireDigit && !digit {
		errs = append(errs, domain.PasswordRequiresDigit())
	}
	if policy.RequireLowercase && !lower {
		errs = append(errs, domain.PasswordRequiresLower())
	}
	if policy.RequireUppercase && !upper {
		errs = append(errs, domain.PasswordRequiresUpper())
	}
	return errs
}
