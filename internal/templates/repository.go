package templates

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository stores the single active template. Saves are last-write-wins.
type Repository interface {
	// Get returns the active source and when it was set, or a nil source when none is set.
	Get(ctx context.Context) (Source, time.Time, error)
	Save(ctx context.Context, src Source) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Get(ctx context.Context) (Source, time.Time, error) {
	var setting Setting
	err := r.db.WithContext(ctx).Where(&Setting{Key: SettingKey}).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return setting.source(), setting.UpdatedAt, nil
}

func (r *gormRepository) Save(ctx context.Context, src Source) error {
	setting := settingFromSource(src)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "value", "data", "updated_at"}),
	}).Create(setting).Error
}
