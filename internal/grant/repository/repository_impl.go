package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/idadmin/internal/grant/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// "key" is reserved in MySQL and must stay quoted.
var keyColumn = clause.Column{Name: "key"}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, grant *domain.PersistedGrant) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{keyColumn},
			UpdateAll: true,
		}).
		Create(grant).Error
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, key string) (*domain.PersistedGrant, error) {
	var grant domain.PersistedGrant
	err := db.WithContext(ctx).Where(keyEq(key)).Take(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.Filter) ([]domain.PersistedGrant, error) {
	var grants []domain.PersistedGrant
	err := applyFilter(db.WithContext(ctx), filter).
		Order("creation_time desc").
		Order(clause.OrderByColumn{Column: keyColumn}).
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repo) DeleteByKey(ctx context.Context, db *gorm.DB, key string) (int64, error) {
	res := db.WithContext(ctx).Where(keyEq(key)).Delete(&domain.PersistedGrant{})
	return res.RowsAffected, res.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, filter domain.Filter) (int64, error) {
	res := applyFilter(db.WithContext(ctx), filter).Delete(&domain.PersistedGrant{})
	return res.RowsAffected, res.Error
}

func (r *repo) DeleteExpired(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	var keys []string
	err := db.WithContext(ctx).
		Model(&domain.PersistedGrant{}).
		Where("expiration IS NOT NULL AND expiration < ?", cutoff).
		Order("expiration").
		Limit(limit).
		Pluck(keyColumn.Name, &keys).Error
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Where(clause.IN{Column: keyColumn, Values: toValues(keys)}).
		Delete(&domain.PersistedGrant{})
	return res.RowsAffected, res.Error
}

func toValues(keys []string) []any {
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = k
	}
	return values
}

func applyFilter(tx *gorm.DB, filter domain.Filter) *gorm.DB {
	if filter.SubjectID != "" {
		tx = tx.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.SessionID != "" {
		tx = tx.Where("session_id = ?", filter.SessionID)
	}
	if filter.ClientID != "" {
		tx = tx.Where("client_id = ?", filter.ClientID)
	}
	if len(filter.ClientIDs) > 0 {
		tx = tx.Where("client_id IN ?", filter.ClientIDs)
	}
	if filter.Type != "" {
		tx = tx.Where("type = ?", filter.Type)
	}
	if len(filter.Types) > 0 {
		tx = tx.Where("type IN ?", filter.Types)
	}
	return tx
}

func keyEq(key string) clause.Eq {
	return clause.Eq{Column: keyColumn, Value: key}
}
