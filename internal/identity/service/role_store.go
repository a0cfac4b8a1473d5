package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/smallbiznis/idadmin/internal/identity/domain"
	"github.com/smallbiznis/idadmin/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RoleStore struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewRoleStore(p Params) domain.RoleStore {
	return &RoleStore{
		db:   p.DB,
		log:  p.Log.Named("identity.role_store"),
		repo: p.Repo,
	}
}

func (s *RoleStore) List(ctx context.Context) ([]domain.Role, error) {
	items, err := s.repo.ListRoles(ctx, s.db)
	if err != nil {
		return nil, err
	}
	roles := make([]domain.Role, 0, len(items))
	for _, item := range items {
		roles = append(roles, *item)
	}
	return roles, nil
}

func (s *RoleStore) FindByID(ctx context.Context, id string) (*domain.Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	return s.repo.FindRoleByID(ctx, s.db, id)
}

func (s *RoleStore) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	normalized := domain.Normalize(name)
	if normalized == "" {
		return nil, nil
	}
	return s.repo.FindRoleByNormalizedName(ctx, s.db, normalized)
}

func (s *RoleStore) Create(ctx context.Context, name string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Errors{domain.InvalidRoleName(name)}
	}

	existing, err := s.repo.FindRoleByNormalizedName(ctx, s.db, domain.Normalize(name))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Errors{domain.DuplicateRoleName(name)}
	}

	role := &domain.Role{
		ID:               uuid.NewString(),
		Name:             name,
		NormalizedName:   domain.Normalize(name),
		ConcurrencyStamp: uuid.NewString(),
	}
	if err := s.repo.InsertRole(ctx, s.db, role); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.Errors{domain.DuplicateRoleName(name)}
		}
		return nil, err
	}

	s.log.Info("role created", zap.String("role", name))
	return role, nil
}
