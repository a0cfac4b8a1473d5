package authorization

import (
	"context"
	_ "embed"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/idadmin/internal/audit/domain"
	"github.com/smallbiznis/idadmin/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

// NewEnforcer loads the casbin model and makes sure every policy rule the
// console relies on is stored.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	for _, rule := range seedRules() {
		if _, err := enforcer.AddPolicy(rule); err != nil {
			return nil, err
		}
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, principal *Principal, policy Policy) error {
	if !principal.IsAuthenticated() {
		return ErrUnauthenticated
	}
	allowed, err := s.check(principal, policy)
	if err != nil {
		return err
	}
	if !allowed {
		s.denied(ctx, principal, string(policy))
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) Allowed(ctx context.Context, principal *Principal, policy Policy) bool {
	if !principal.IsAuthenticated() {
		return false
	}
	allowed, err := s.check(principal, policy)
	if err != nil {
		s.log.Warn("policy check failed", zap.String("policy", string(policy)), zap.Error(err))
		return false
	}
	return allowed
}

func (s *ServiceImpl) RequireRole(ctx context.Context, principal *Principal, role string) error {
	if !principal.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if principal.HasRole(role) {
		allowed, err := s.enforcer.Enforce(roleSubject(role), ObjectConsole, ActionAccess)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
	}
	s.denied(ctx, principal, roleSubject(role))
	return ErrForbidden
}

func (s *ServiceImpl) check(principal *Principal, policy Policy) (bool, error) {
	req, ok := RequirementFor(policy)
	if !ok {
		return false, ErrUnknownPolicy
	}
	for _, claim := range principal.AdminClaims() {
		allowed, err := s.enforcer.Enforce(claim, req.Object, req.Action)
		if err != nil {
			return false, err
		}
		if allowed {
			return true, nil
		}
	}
	return false, nil
}

func (s *ServiceImpl) denied(ctx context.Context, principal *Principal, requirement string) {
	s.log.Info("authorization denied",
		zap.String("user_id", principal.UserID),
		zap.String("requirement", requirement),
	)
	s.metrics.RecordAuthorizationDenied(ctx, requirement)

	if s.auditSvc == nil {
		return
	}
	actorID := principal.UserID
	if err := s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeUser), &actorID, "authorization.denied", "authorization", nil, map[string]any{
		"requirement": requirement,
		"user_name":   principal.UserName,
	}); err != nil {
		s.log.Warn("failed to audit denial", zap.Error(err))
	}
}
