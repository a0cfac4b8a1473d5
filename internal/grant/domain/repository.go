package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, grant *PersistedGrant) error
	FindByKey(ctx context.Context, db *gorm.DB, key string) (*PersistedGrant, error)
	List(ctx context.Context, db *gorm.DB, filter Filter) ([]PersistedGrant, error)
	DeleteByKey(ctx context.Context, db *gorm.DB, key string) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, filter Filter) (int64, error)
	// DeleteExpired removes up to limit grants whose expiration is before cutoff.
	DeleteExpired(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) (int64, error)
}
