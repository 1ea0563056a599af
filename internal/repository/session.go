package repository

import (
	"context"
	"errors"
	"time"
	"vehicle-checkout/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// the session cache is a single row
const sessionRowID = 1

type SessionRepository interface {
	Save(ctx context.Context, record *model.SessionRecord) error
	Get(ctx context.Context) (*model.SessionRecord, error)
	Clear(ctx context.Context) error
}

type sessionRepoImpl struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepoImpl{
		db: db,
	}
}

func (r *sessionRepoImpl) Save(ctx context.Context, record *model.SessionRecord) error {
	record.ID = sessionRowID
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"token":      record.Token,
			"user_id":    record.UserID,
			"name":       record.Name,
			"email":      record.Email,
			"phone":      record.Phone,
			"role":       record.Role,
			"updated_at": time.Now(),
		}),
	}).Create(record).Error
}

// Get returns nil, nil when nobody is signed in.
func (r *sessionRepoImpl) Get(ctx context.Context) (*model.SessionRecord, error) {
	var record model.SessionRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", sessionRowID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &record, nil
}

func (r *sessionRepoImpl) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("id = ?", sessionRowID).
		Delete(&model.SessionRecord{}).Error
}
