package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/idadmin/internal/identity/domain"
	"github.com/smallbiznis/idadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertUser(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return r.findUser(ctx, db, "id = ?", id)
}

func (r *repo) FindUserByNormalizedName(ctx context.Context, db *gorm.DB, name string) (*domain.User, error) {
	return r.findUser(ctx, db, "normalized_user_name = ?", name)
}

func (r *repo) FindUserByNormalizedEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return r.findUser(ctx, db, "normalized_email = ?", email)
}

func (r *repo) findUser(ctx context.Context, db *gorm.DB, query string, arg string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where(query, arg).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) ListUsers(ctx context.Context, db *gorm.DB, filter domain.ListUsersFilter, page pagination.Pagination) ([]*domain.User, error) {
	stmt := db.WithContext(ctx).Model(&domain.User{})
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		stmt = stmt.Where("LOWER(user_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPageToken, err)
		}
		stmt = stmt.Where("normalized_user_name > ?", cursor.ID)
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}

	var users []*domain.User
	if err := stmt.Order("normalized_user_name asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) UpdateUser(ctx context.Context, db *gorm.DB, user *domain.User, expectedStamp string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND concurrency_stamp = ?", user.ID, expectedStamp).
		Updates(map[string]any{
			"user_name":              user.UserName,
			"normalized_user_name":   user.NormalizedUserName,
			"email":                  user.Email,
			"normalized_email":       user.NormalizedEmail,
			"email_confirmed":        user.EmailConfirmed,
			"phone_number":           user.PhoneNumber,
			"phone_number_confirmed": user.PhoneNumberConfirmed,
			"password_hash":          user.PasswordHash,
			"security_stamp":         user.SecurityStamp,
			"concurrency_stamp":      user.ConcurrencyStamp,
			"lockout_end":            user.LockoutEnd,
			"lockout_enabled":        user.LockoutEnabled,
			"access_failed_count":    user.AccessFailedCount,
			"two_factor_enabled":     user.TwoFactorEnabled,
			"authenticator_key":      user.AuthenticatorKey,
			"updated_at":             user.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) DeleteUser(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&domain.UserClaim{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&domain.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&domain.UserLogin{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.User{}).Error
	})
}

func (r *repo) ListClaims(ctx context.Context, db *gorm.DB, userID string) ([]domain.UserClaim, error) {
	var claims []domain.UserClaim
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("claim_type asc, id asc").
		Find(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *repo) InsertClaim(ctx context.Context, db *gorm.DB, claim *domain.UserClaim) error {
	return db.WithContext(ctx).Create(claim).Error
}

func (r *repo) DeleteClaim(ctx context.Context, db *gorm.DB, userID string, claim domain.Claim) (int64, error) {
	res := db.WithContext(ctx).
		Where("user_id = ? AND claim_type = ? AND claim_value = ?", userID, claim.Type, claim.Value).
		Delete(&domain.UserClaim{})
	return res.RowsAffected, res.Error
}

func (r *repo) ListUserRoleNames(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).
		Table("roles").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.name asc").
		Pluck("roles.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *repo) InsertUserRole(ctx context.Context, db *gorm.DB, userID, roleID string) error {
	return db.WithContext(ctx).Create(&domain.UserRole{UserID: userID, RoleID: roleID}).Error
}

func (r *repo) DeleteUserRole(ctx context.Context, db *gorm.DB, userID, roleID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&domain.UserRole{})
	return res.RowsAffected, res.Error
}

func (r *repo) ListUsersInRole(ctx context.Context, db *gorm.DB, roleID string) ([]*domain.User, error) {
	var users []*domain.User
	err := db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Where("user_roles.role_id = ?", roleID).
		Order("users.normalized_user_name asc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) ListLogins(ctx context.Context, db *gorm.DB, userID string) ([]domain.UserLogin, error) {
	var logins []domain.UserLogin
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("login_provider asc").
		Find(&logins).Error
	if err != nil {
		return nil, err
	}
	return logins, nil
}

func (r *repo) InsertRole(ctx context.Context, db *gorm.DB, role *domain.Role) error {
	return db.WithContext(ctx).Create(role).Error
}

func (r *repo) FindRoleByID(ctx context.Context, db *gorm.DB, id string) (*domain.Role, error) {
	return r.findRole(ctx, db, "id = ?", id)
}

func (r *repo) FindRoleByNormalizedName(ctx context.Context, db *gorm.DB, name string) (*domain.Role, error) {
	return r.findRole(ctx, db, "normalized_name = ?", name)
}

func (r *repo) findRole(ctx context.Context, db *gorm.DB, query string, arg string) (*domain.Role, error) {
	var role domain.Role
	err := db.WithContext(ctx).Where(query, arg).Take(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *repo) ListRoles(ctx context.Context, db *gorm.DB) ([]*domain.Role, error) {
	var roles []*domain.Role
	if err := db.WithContext(ctx).Order("name asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}
