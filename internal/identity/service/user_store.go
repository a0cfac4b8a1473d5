package service

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/idadmin/internal/clock"
	"github.com/smallbiznis/idadmin/internal/config"
	"github.com/smallbiznis/idadmin/internal/identity/domain"
	"github.com/smallbiznis/idadmin/internal/identity/password"
	"github.com/smallbiznis/idadmin/pkg/db"
	"github.com/smallbiznis/idadmin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ProviderEmail         = "Email"
	ProviderPhone         = "Phone"
	ProviderAuthenticator = "Authenticator"

	authenticatorKeyBytes = 20
	defaultPageSize       = 50
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Clock   clock.Clock
	Console *config.ConsoleConfigHolder
}

type UserStore struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	clock      clock.Clock
	console    *config.ConsoleConfigHolder
	hashParams password.Params
}

func NewUserStore(p Params) domain.UserStore {
	return newUserStore(p)
}

func newUserStore(p Params) *UserStore {
	return &UserStore{
		db:         p.DB,
		log:        p.Log.Named("identity.user_store"),
		repo:       p.Repo,
		clock:      p.Clock,
		console:    p.Console,
		hashParams: password.DefaultParams,
	}
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	return s.repo.FindUserByID(ctx, s.db, id)
}

func (s *UserStore) FindByName(ctx context.Context, userName string) (*domain.User, error) {
	name := domain.Normalize(userName)
	if name == "" {
		return nil, nil
	}
	return s.repo.FindUserByNormalizedName(ctx, s.db, name)
}

func (s *UserStore) List(ctx context.Context, req domain.ListUsersRequest) (domain.ListUsersResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	items, err := s.repo.ListUsers(ctx, s.db, domain.ListUsersFilter{Search: req.Search}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListUsersResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(user *domain.User) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: user.NormalizedUserName})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		users = append(users, *item)
	}
	return domain.ListUsersResponse{PageInfo: *pageInfo, Users: users}, nil
}

func (s *UserStore) ListAll(ctx context.Context) ([]domain.User, error) {
	items, err := s.repo.ListUsers(ctx, s.db, domain.ListUsersFilter{}, pagination.Pagination{})
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		users = append(users, *item)
	}
	return users, nil
}

func (s *UserStore) UsersInRole(ctx context.Context, roleName string) ([]domain.User, error) {
	role, err := s.repo.FindRoleByNormalizedName(ctx, s.db, domain.Normalize(roleName))
	if err != nil {
		return nil, err
	}
	if role == nil {
		return []domain.User{}, nil
	}
	items, err := s.repo.ListUsersInRole(ctx, s.db, role.ID)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		users = append(users, *item)
	}
	return users, nil
}

func (s *UserStore) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	now := s.clock.Now()
	user := &domain.User{
		ID:               uuid.NewString(),
		UserName:         strings.TrimSpace(req.UserName),
		Email:            strings.TrimSpace(req.Email),
		EmailConfirmed:   req.EmailConfirmed,
		SecurityStamp:    newSecurityStamp(),
		ConcurrencyStamp: uuid.NewString(),
		LockoutEnabled:   true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	errs, err := s.validateUser(ctx, s.db, user)
	if err != nil {
		return nil, err
	}
	if req.Password != "" {
		errs = append(errs, validatePassword(s.console.Get().Password, req.Password)...)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if req.Password != "" {
		hash, err := password.HashWithParams(req.Password, s.hashParams)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = &hash
	}
	user.NormalizedUserName = domain.Normalize(user.UserName)
	user.NormalizedEmail = domain.Normalize(user.Email)

	if err := s.repo.InsertUser(ctx, s.db, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.Errors{domain.DuplicateUserName(user.UserName)}
		}
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID))
	return user, nil
}

func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	errs, err := s.validateUser(ctx, s.db, user)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return errs
	}
	return s.persist(ctx, s.db, user)
}

func (s *UserStore) Delete(ctx context.Context, user *domain.User) error {
	if err := s.repo.DeleteUser(ctx, s.db, user.ID); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user_id", user.ID))
	return nil
}

// persist writes user guarded by its current concurrency stamp and rotates
// the stamp. The caller's copy keeps the old stamp when the write fails.
func (s *UserStore) persist(ctx context.Context, tx *gorm.DB, user *domain.User) error {
	expected := user.ConcurrencyStamp
	user.UserName = strings.TrimSpace(user.UserName)
	user.Email = strings.TrimSpace(user.Email)
	user.NormalizedUserName = domain.Normalize(user.UserName)
	user.NormalizedEmail = domain.Normalize(user.Email)
	user.ConcurrencyStamp = uuid.NewString()
	user.UpdatedAt = s.clock.Now()

	ok, err := s.repo.UpdateUser(ctx, tx, user, expected)
	if err != nil {
		user.ConcurrencyStamp = expected
		if db.IsDuplicateKeyErr(err) {
			return domain.Errors{domain.DuplicateUserName(user.UserName)}
		}
		return err
	}
	if !ok {
		user.ConcurrencyStamp = expected
		return domain.Errors{domain.ConcurrencyFailure()}
	}
	return nil
}

func (s *UserStore) GetClaims(ctx context.Context, user *domain.User) ([]domain.Claim, error) {
	rows, err := s.repo.ListClaims(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	claims := make([]domain.Claim, 0, len(rows))
	for _, row := range rows {
		claims = append(claims, domain.Claim{Type: row.ClaimType, Value: row.ClaimValue})
	}
	return claims, nil
}

func (s *UserStore) AddClaim(ctx context.Context, user *domain.User, claim domain.Claim) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertClaim(ctx, tx, &domain.UserClaim{
			UserID:     user.ID,
			ClaimType:  claim.Type,
			ClaimValue: claim.Value,
		}); err != nil {
			return err
		}
		return s.persist(ctx, tx, user)
	})
}

func (s *UserStore) RemoveClaim(ctx context.Context, user *domain.User, claim domain.Claim) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.DeleteClaim(ctx, tx, user.ID, claim); err != nil {
			return err
		}
		return s.persist(ctx, tx, user)
	})
}

// ReplaceClaim swaps every copy of claim for newClaim.
func (s *UserStore) ReplaceClaim(ctx context.Context, user *domain.User, claim, newClaim domain.Claim) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed, err := s.repo.DeleteClaim(ctx, tx, user.ID, claim)
		if err != nil {
			return err
		}
		for i := int64(0); i < removed; i++ {
			if err := s.repo.InsertClaim(ctx, tx, &domain.UserClaim{
				UserID:     user.ID,
				ClaimType:  newClaim.Type,
				ClaimValue: newClaim.Value,
			}); err != nil {
				return err
			}
		}
		return s.persist(ctx, tx, user)
	})
}

func (s *UserStore) GetRoles(ctx context.Context, user *domain.User) ([]string, error) {
	return s.repo.ListUserRoleNames(ctx, s.db, user.ID)
}

func (s *UserStore) AddToRole(ctx context.Context, user *domain.User, roleName string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.findRole(ctx, tx, roleName)
		if err != nil {
			return err
		}
		current, err := s.repo.ListUserRoleNames(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		for _, name := range current {
			if domain.Normalize(name) == role.NormalizedName {
				return domain.Errors{domain.UserAlreadyInRole(role.Name)}
			}
		}
		if err := s.repo.InsertUserRole(ctx, tx, user.ID, role.ID); err != nil {
			return err
		}
		return s.persist(ctx, tx, user)
	})
}

func (s *UserStore) RemoveFromRole(ctx context.Context, user *domain.User, roleName string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.findRole(ctx, tx, roleName)
		if err != nil {
			return err
		}
		removed, err := s.repo.DeleteUserRole(ctx, tx, user.ID, role.ID)
		if err != nil {
			return err
		}
		if removed == 0 {
			return domain.Errors{domain.UserNotInRole(role.Name)}
		}
		return s.persist(ctx, tx, user)
	})
}

func (s *UserStore) findRole(ctx context.Context, tx *gorm.DB, name string) (*domain.Role, error) {
	role, err := s.repo.FindRoleByNormalizedName(ctx, tx, domain.Normalize(name))
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoleNotFound, name)
	}
	return role, nil
}

func (s *UserStore) HasPassword(ctx context.Context, user *domain.User) (bool, error) {
	return hasPassword(user), nil
}

func hasPassword(user *domain.User) bool {
	return user.PasswordHash != nil && *user.PasswordHash != ""
}

func (s *UserStore) AddPassword(ctx context.Context, user *domain.User, plain string) error {
	if hasPassword(user) {
		return domain.Errors{domain.UserAlreadyHasPassword()}
	}
	if errs := validatePassword(s.console.Get().Password, plain); len(errs) > 0 {
		return errs
	}
	hash, err := password.HashWithParams(plain, s.hashParams)
	if err != nil {
		return err
	}

	previous := user.PasswordHash
	previousStamp := user.SecurityStamp
	user.PasswordHash = &hash
	user.SecurityStamp = newSecurityStamp()
	if err := s.persist(ctx, s.db, user); err != nil {
		user.PasswordHash = previous
		user.SecurityStamp = previousStamp
		return err
	}
	return nil
}

func (s *UserStore) RemovePassword(ctx context.Context, user *domain.User) error {
	previous := user.PasswordHash
	previousStamp := user.SecurityStamp
	user.PasswordHash = nil
	user.SecurityStamp = newSecurityStamp()
	if err := s.persist(ctx, s.db, user); err != nil {
		user.PasswordHash = previous
		user.SecurityStamp = previousStamp
		return err
	}
	return nil
}

func (s *UserStore) CheckPassword(ctx context.Context, user *domain.User, plain string) (bool, error) {
	if !hasPassword(user) {
		return false, nil
	}
	return password.Verify(plain, *user.PasswordHash), nil
}

func (s *UserStore) SetLockoutEnabled(ctx context.Context, user *domain.User, enabled bool) error {
	previous := user.LockoutEnabled
	user.LockoutEnabled = enabled
	if err := s.persist(ctx, s.db, user); err != nil {
		user.LockoutEnabled = previous
		return err
	}
	return nil
}

// SetLockoutEnd fails with UserLockoutNotEnabled unless lockout is enabled
// for the user. MaxLockoutEnd disables the account.
func (s *UserStore) SetLockoutEnd(ctx context.Context, user *domain.User, end *time.Time) error {
	if !user.LockoutEnabled {
		return domain.Errors{domain.UserLockoutNotEnabled()}
	}
	previous := user.LockoutEnd
	if end != nil {
		value := end.UTC()
		end = &value
	}
	user.LockoutEnd = end
	if err := s.persist(ctx, s.db, user); err != nil {
		user.LockoutEnd = previous
		return err
	}
	return nil
}

func (s *UserStore) IsLockedOut(ctx context.Context, user *domain.User) (bool, error) {
	if !user.LockoutEnabled {
		return false, nil
	}
	return domain.IsLockedOut(user.LockoutEnd, s.clock.Now()), nil
}

// AccessFailed counts a failed sign-in and locks the account for the
// configured duration once the threshold is reached.
func (s *UserStore) AccessFailed(ctx context.Context, user *domain.User) error {
	lockout := s.console.Get().Lockout
	previousCount := user.AccessFailedCount
	previousEnd := user.LockoutEnd

	user.AccessFailedCount++
	if lockout.MaxFailedAttempts > 0 && user.AccessFailedCount >= lockout.MaxFailedAttempts {
		end := s.clock.Now().Add(lockout.Duration)
		user.LockoutEnd = &end
		user.AccessFailedCount = 0
	}
	if err := s.persist(ctx, s.db, user); err != nil {
		user.AccessFailedCount = previousCount
		user.LockoutEnd = previousEnd
		return err
	}
	return nil
}

func (s *UserStore) ResetAccessFailedCount(ctx context.Context, user *domain.User) error {
	if user.AccessFailedCount == 0 {
		return nil
	}
	previous := user.AccessFailedCount
	user.AccessFailedCount = 0
	if err := s.persist(ctx, s.db, user); err != nil {
		user.AccessFailedCount = previous
		return err
	}
	return nil
}

func (s *UserStore) SetTwoFactorEnabled(ctx context.Context, user *domain.User, enabled bool) error {
	previous := user.TwoFactorEnabled
	user.TwoFactorEnabled = enabled
	if err := s.persist(ctx, s.db, user); err != nil {
		user.TwoFactorEnabled = previous
		return err
	}
	return nil
}

func (s *UserStore) GetValidTwoFactorProviders(ctx context.Context, user *domain.User) ([]string, error) {
	providers := []string{}
	if user.Email != "" && user.EmailConfirmed {
		providers = append(providers, ProviderEmail)
	}
	if user.PhoneNumber != "" && user.PhoneNumberConfirmed {
		providers = append(providers, ProviderPhone)
	}
	if user.AuthenticatorKey != "" {
		providers = append(providers, ProviderAuthenticator)
	}
	return providers, nil
}

func (s *UserStore) ResetAuthenticatorKey(ctx context.Context, user *domain.User) error {
	key, err := newAuthenticatorKey()
	if err != nil {
		return err
	}
	previousKey := user.AuthenticatorKey
	previousStamp := user.SecurityStamp
	user.AuthenticatorKey = key
	user.SecurityStamp = newSecurityStamp()
	if err := s.persist(ctx, s.db, user); err != nil {
		user.AuthenticatorKey = previousKey
		user.SecurityStamp = previousStamp
		return err
	}
	return nil
}

func (s *UserStore) GetLogins(ctx context.Context, user *domain.User) ([]domain.UserLogin, error) {
	return s.repo.ListLogins(ctx, s.db, user.ID)
}

// UpdateSecurityStamp invalidates every console cookie issued to the user.
func (s *UserStore) UpdateSecurityStamp(ctx context.Context, user *domain.User) error {
	previous := user.SecurityStamp
	user.SecurityStamp = newSecurityStamp()
	if err := s.persist(ctx, s.db, user); err != nil {
		user.SecurityStamp = previous
		return err
	}
	return nil
}

func newSecurityStamp() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func newAuthenticatorKey() (string, error) {
	buf := make([]byte, authenticatorKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}
