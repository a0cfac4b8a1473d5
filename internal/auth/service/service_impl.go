package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/idadmin/internal/audit/domain"
	"github.com/smallbiznis/idadmin/internal/auth/domain"
	"github.com/smallbiznis/idadmin/internal/authorization"
	"github.com/smallbiznis/idadmin/internal/clock"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
	"github.com/smallbiznis/idadmin/internal/observability/metrics"
	"github.com/smallbiznis/idadmin/internal/ratelimit"
	sessiondomain "github.com/smallbiznis/idadmin/internal/serversession/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// SessionLifetime bounds both the console cookie and its server-side session.
const SessionLifetime = 8 * time.Hour

type Params struct {
	fx.In

	Log      *zap.Logger
	Users    identitydomain.UserStore
	Clock    clock.Clock
	Sessions sessiondomain.Store      `optional:"true"`
	Limiter  *ratelimit.SignInLimiter `optional:"true"`
	AuditSvc auditdomain.Service      `optional:"true"`
	Metrics  *metrics.Metrics         `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	users    identitydomain.UserStore
	clock    clock.Clock
	sessions sessiondomain.Store
	limiter  *ratelimit.SignInLimiter
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("auth.service"),
		users:    p.Users,
		clock:    p.Clock,
		sessions: p.Sessions,
		limiter:  p.Limiter,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) SignIn(ctx context.Context, req domain.SignInRequest) (*domain.SignInResult, error) {
	if err := s.throttle(ctx, req.IPAddress); err != nil {
		return nil, err
	}

	userName := strings.TrimSpace(req.UserName)
	if userName == "" || req.Password == "" {
		s.metrics.RecordSignIn(ctx, "invalid")
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByName(ctx, userName)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.metrics.RecordSignIn(ctx, "invalid")
		return nil, domain.ErrInvalidCredentials
	}

	locked, err := s.users.IsLockedOut(ctx, user)
	if err != nil {
		return nil, err
	}
	if locked {
		s.metrics.RecordSignIn(ctx, "locked_out")
		return nil, domain.ErrLockedOut
	}

	ok, err := s.users.CheckPassword(ctx, user, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.failed(ctx, user)
	}

	if err := s.users.ResetAccessFailedCount(ctx, user); err != nil {
		return nil, err
	}

	result := &domain.SignInResult{User: user}
	if s.sessions != nil {
		now := s.clock.Now()
		expires := now.Add(SessionLifetime)
		created, err := s.sessions.CreateSession(ctx, sessiondomain.ServerSideSession{
			Scheme:      domain.SessionScheme,
			SubjectID:   user.ID,
			SessionID:   strings.ReplaceAll(uuid.NewString(), "-", ""),
			DisplayName: user.UserName,
			Created:     now,
			Renewed:     now,
			Expires:     &expires,
		})
		if err != nil {
			return nil, err
		}
		result.SessionKey = created.Key
	}

	s.metrics.RecordSignIn(ctx, "success")
	s.audit(ctx, user.ID, "auth.sign_in", map[string]any{"user_name": user.UserName})
	s.log.Info("console sign-in", zap.String("user_id", user.ID))
	return result, nil
}

// failed applies lockout accounting for a wrong password.
func (s *Service) failed(ctx context.Context, user *identitydomain.User) error {
	if !user.LockoutEnabled {
		s.metrics.RecordSignIn(ctx, "invalid")
		return domain.ErrInvalidCredentials
	}
	if err := s.users.AccessFailed(ctx, user); err != nil {
		return err
	}
	locked, err := s.users.IsLockedOut(ctx, user)
	if err != nil {
		return err
	}
	if locked {
		s.metrics.RecordSignIn(ctx, "locked_out")
		s.audit(ctx, user.ID, "auth.locked_out", nil)
		return domain.ErrLockedOut
	}
	s.metrics.RecordSignIn(ctx, "invalid")
	return domain.ErrInvalidCredentials
}

func (s *Service) throttle(ctx context.Context, addr string) error {
	if !s.limiter.Enabled() {
		return nil
	}
	res, err := s.limiter.Allow(ctx, addr)
	if err != nil {
		// Fail open while redis is unavailable.
		s.log.Warn("sign-in rate limit unavailable", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		s.metrics.RecordSignIn(ctx, "throttled")
		return domain.ErrTooManyAttempts
	}
	return nil
}

func (s *Service) SignOut(ctx context.Context, userID, sessionKey string) error {
	if s.sessions != nil && sessionKey != "" {
		if err := s.sessions.DeleteSession(ctx, sessionKey); err != nil && !errors.Is(err, sessiondomain.ErrInvalidKey) {
			return err
		}
	}
	if userID != "" {
		s.audit(ctx, userID, "auth.sign_out", nil)
	}
	return nil
}

func (s *Service) Principal(ctx context.Context, userID, securityStamp string) (*authorization.Principal, error) {
	if userID == "" || securityStamp == "" {
		return nil, domain.ErrInvalidSession
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.SecurityStamp != securityStamp {
		return nil, domain.ErrInvalidSession
	}

	roles, err := s.users.GetRoles(ctx, user)
	if err != nil {
		return nil, err
	}
	claims, err := s.users.GetClaims(ctx, user)
	if err != nil {
		return nil, err
	}
	return &authorization.Principal{
		UserID:   user.ID,
		UserName: user.UserName,
		Roles:    roles,
		Claims:   claims,
	}, nil
}

func (s *Service) audit(ctx context.Context, userID, action string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeUser), &userID, action, "user", &userID, metadata); err != nil {
		s.log.Warn("failed to audit sign-in event", zap.String("action", action), zap.Error(err))
	}
}
