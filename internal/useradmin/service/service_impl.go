package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/idadmin/internal/clock"
	grantdomain "github.com/smallbiznis/idadmin/internal/grant/domain"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
	"github.com/smallbiznis/idadmin/internal/observability/metrics"
	sessiondomain "github.com/smallbiznis/idadmin/internal/serversession/domain"
	"github.com/smallbiznis/idadmin/internal/useradmin/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Users    identitydomain.UserStore
	Roles    identitydomain.RoleStore
	Grants   grantdomain.Store
	Sessions sessiondomain.Store `optional:"true"`
	Clock    clock.Clock
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	users    identitydomain.UserStore
	roles    identitydomain.RoleStore
	grants   grantdomain.Store
	sessions sessiondomain.Store
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("useradmin.service"),
		users:    p.Users,
		roles:    p.Roles,
		grants:   p.Grants,
		sessions: p.Sessions,
		clock:    p.Clock,
		metrics:  p.Metrics,
	}
}

func (s *Service) GetUserEditPageData(ctx context.Context, req domain.UserEditPageDataRequest) (*domain.UserEditPageData, error) {
	user, err := s.findUser(ctx, req.UserID)
	if err != nil || user == nil {
		return nil, err
	}

	data := &domain.UserEditPageData{
		Profile:            toProfile(user),
		Claims:             []identitydomain.Claim{},
		Roles:              []string{},
		AvailableRoles:     []string{},
		ExternalLogins:     []identitydomain.UserLogin{},
		Grants:             []grantdomain.PersistedGrant{},
		Sessions:           []sessiondomain.ServerSideSession{},
		TwoFactorProviders: []string{},
		AccountStatus:      identitydomain.StatusActive,
	}

	if req.IncludeUserTabData {
		if data.ExternalLogins, err = s.users.GetLogins(ctx, user); err != nil {
			return nil, err
		}
		if data.HasPassword, err = s.users.HasPassword(ctx, user); err != nil {
			return nil, err
		}
		if data.TwoFactorProviders, err = s.users.GetValidTwoFactorProviders(ctx, user); err != nil {
			return nil, err
		}
		data.LockoutEnabled = user.LockoutEnabled
		data.AccessFailedCount = user.AccessFailedCount
		data.TwoFactorEnabled = user.TwoFactorEnabled
		data.AccountStatus = identitydomain.AccountStatus(user.LockoutEnd, s.clock.Now())
	}

	if req.IncludeClaims {
		if data.Claims, err = s.users.GetClaims(ctx, user); err != nil {
			return nil, err
		}
	}

	if req.IncludeRoles {
		if data.Roles, err = s.users.GetRoles(ctx, user); err != nil {
			return nil, err
		}
		roles, err := s.roles.List(ctx)
		if err != nil {
			return nil, err
		}
		data.AvailableRoles = availableRoles(roles, data.Roles)
	}

	if req.IncludeGrants {
		if data.Grants, err = s.grants.GetAll(ctx, grantdomain.Filter{SubjectID: user.ID}); err != nil {
			return nil, err
		}
	}

	if req.IncludeSessions && s.sessions != nil {
		if data.Sessions, err = s.sessions.GetSessions(ctx, sessiondomain.Filter{SubjectID: user.ID}); err != nil {
			return nil, err
		}
	}

	return data, nil
}

func (s *Service) GetUserForEdit(ctx context.Context, userID string) (*domain.UserProfileEditViewModel, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}
	profile := toProfile(user)
	return &profile, nil
}

func (s *Service) UpdateUserFromEditPost(ctx context.Context, req domain.UserEditPostUpdateRequest) (domain.UpdateResult, error) {
	result, err := s.runPipeline(ctx, req)
	if err != nil {
		s.metrics.RecordAdminMutation(ctx, "user", "edit", "error")
		return result, err
	}
	outcome := "success"
	if !result.Succeeded() {
		outcome = "failed"
	}
	s.metrics.RecordAdminMutation(ctx, "user", "edit", outcome)
	return result, nil
}

func (s *Service) UpdateUserProfile(ctx context.Context, vm domain.UserProfileEditViewModel) (domain.UpdateResult, error) {
	return s.UpdateUserFromEditPost(ctx, domain.UserEditPostUpdateRequest{
		UserID:  vm.UserID,
		Profile: &vm,
	})
}

func (s *Service) runPipeline(ctx context.Context, req domain.UserEditPostUpdateRequest) (domain.UpdateResult, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return userMissing(domain.CodeUserIDMissing, "User ID is required."), nil
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	if user == nil {
		return userMissing(domain.CodeUserNotFound, "User not found."), nil
	}

	if req.Profile != nil {
		applyProfile(user, *req.Profile)
		if err := s.users.Update(ctx, user); err != nil {
			return failed(err)
		}
	}

	if req.LockoutEnabled != nil {
		if err := s.users.SetLockoutEnabled(ctx, user, *req.LockoutEnabled); err != nil {
			return failed(err)
		}
	}

	if req.TwoFactorEnabled != nil {
		if err := s.users.SetTwoFactorEnabled(ctx, user, *req.TwoFactorEnabled); err != nil {
			return failed(err)
		}
	}

	if req.NewPassword != nil {
		if strings.TrimSpace(*req.NewPassword) == "" {
			return domain.UpdateResult{
				UserFound: true,
				Errors: []identitydomain.Error{{
					Code:        domain.CodePasswordMissing,
					Description: "New password is required.",
				}},
			}, nil
		}

		hasPassword, err := s.users.HasPassword(ctx, user)
		if err != nil {
			return domain.UpdateResult{UserFound: true}, err
		}
		if hasPassword {
			if err := s.users.RemovePassword(ctx, user); err != nil {
				return failed(err)
			}
		}
		if err := s.users.AddPassword(ctx, user, *req.NewPassword); err != nil {
			return failed(err)
		}
	}

	s.log.Info("user updated", zap.String("user_id", user.ID))
	return domain.UpdateResult{UserFound: true}, nil
}

func (s *Service) findUser(ctx context.Context, userID string) (*identitydomain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	return s.users.FindByID(ctx, userID)
}

func applyProfile(user *identitydomain.User, profile domain.UserProfileEditViewModel) {
	user.UserName = profile.UserName
	user.Email = profile.Email
	user.EmailConfirmed = profile.EmailConfirmed
	user.PhoneNumber = profile.PhoneNumber
	user.PhoneNumberConfirmed = profile.PhoneNumberConfirmed
	// A blank stamp means the form did not round-trip it.
	if strings.TrimSpace(profile.ConcurrencyStamp) != "" {
		user.ConcurrencyStamp = profile.ConcurrencyStamp
	}
}

func toProfile(user *identitydomain.User) domain.UserProfileEditViewModel {
	return domain.UserProfileEditViewModel{
		UserID:               user.ID,
		UserName:             user.UserName,
		Email:                user.Email,
		EmailConfirmed:       user.EmailConfirmed,
		PhoneNumber:          user.PhoneNumber,
		PhoneNumberConfirmed: user.PhoneNumberConfirmed,
		ConcurrencyStamp:     user.ConcurrencyStamp,
	}
}

// availableRoles lists every named role the user does not hold.
func availableRoles(all []identitydomain.Role, held []string) []string {
	holding := make(map[string]struct{}, len(held))
	for _, name := range held {
		holding[name] = struct{}{}
	}
	out := make([]string, 0, len(all))
	for _, role := range all {
		if role.Name == "" {
			continue
		}
		if _, ok := holding[role.Name]; ok {
			continue
		}
		out = append(out, role.Name)
	}
	return out
}

func userMissing(code, description string) domain.UpdateResult {
	return domain.UpdateResult{
		UserFound: false,
		Errors:    []identitydomain.Error{{Code: code, Description: description}},
	}
}

// failed folds identity validation errors into the result. Anything else
// is an infrastructure failure.
func failed(err error) (domain.UpdateResult, error) {
	if errs, ok := identitydomain.AsErrors(err); ok {
		return domain.UpdateResult{UserFound: true, Errors: errs}, nil
	}
	return domain.UpdateResult{UserFound: true}, err
}
