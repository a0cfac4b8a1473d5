package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/idadmin/internal/grant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Store {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("grant.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetAll(ctx context.Context, filter domain.Filter) ([]domain.PersistedGrant, error) {
	if filter.Empty() {
		return nil, domain.ErrEmptyFilter
	}
	grants, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if grants == nil {
		grants = []domain.PersistedGrant{}
	}
	return grants, nil
}

func (s *Service) Get(ctx context.Context, key string) (*domain.PersistedGrant, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.ErrInvalidKey
	}
	return s.repo.FindByKey(ctx, s.db, key)
}

func (s *Service) Remove(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrInvalidKey
	}
	removed, err := s.repo.DeleteByKey(ctx, s.db, key)
	if err != nil {
		return err
	}
	s.log.Debug("grant removed", zap.String("grant_key", key), zap.Int64("rows", removed))
	return nil
}

func (s *Service) RemoveAll(ctx context.Context, filter domain.Filter) error {
	if filter.Empty() {
		return domain.ErrEmptyFilter
	}
	removed, err := s.repo.Delete(ctx, s.db, filter)
	if err != nil {
		return err
	}
	s.log.Info("grants removed",
		zap.String("subject_id", filter.SubjectID),
		zap.String("client_id", filter.ClientID),
		zap.Int64("rows", removed),
	)
	return nil
}

func (s *Service) Store(ctx context.Context, grant domain.PersistedGrant) error {
	if strings.TrimSpace(grant.Key) == "" {
		return domain.ErrInvalidKey
	}
	return s.repo.Upsert(ctx, s.db, &grant)
}
