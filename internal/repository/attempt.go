package repository

import (
	"context"
	"time"
	"vehicle-checkout/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository interface {
	Save(ctx context.Context, attempt *model.CheckoutAttempt) error
	FindByAttemptID(ctx context.Context, attemptID string) (*model.CheckoutAttempt, error)
	FindByOrderID(ctx context.Context, orderID string) ([]*model.CheckoutAttempt, error)
	ListByVehicle(ctx context.Context, vehicleID string) ([]*model.CheckoutAttempt, error)
}

type attemptRepoImpl struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepoImpl{
		db: db,
	}
}

// Save inserts the attempt or overwrites its progress columns. Identity columns
// (vehicle, user, created_at) are fixed by the first write.
func (r *attemptRepoImpl) Save(ctx context.Context, attempt *model.CheckoutAttempt) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"order_id":   attempt.OrderID,
			"payment_id": attempt.PaymentID,
			"state":      attempt.State,
			"outcome":    attempt.Outcome,
			"reason":     attempt.Reason,
			"message":    attempt.Message,
			"amount":     attempt.Amount,
			"currency":   attempt.Currency,
			"updated_at": time.Now(),
		}),
	}).Create(attempt).Error
}

func (r *attemptRepoImpl) FindByAttemptID(ctx context.Context, attemptID string) (*model.CheckoutAttempt, error) {
	var attempt model.CheckoutAttempt
	err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		First(&attempt).Error

	if err != nil {
		return nil, err
	}

	return &attempt, nil
}

func (r *attemptRepoImpl) FindByOrderID(ctx context.Context, orderID string) ([]*model.CheckoutAttempt, error) {
	var attempts []*model.CheckoutAttempt
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&attempts).Error

	if err != nil {
		return nil, err
	}

	return attempts, nil
}

func (r *attemptRepoImpl) ListByVehicle(ctx context.Context, vehicleID string) ([]*model.CheckoutAttempt, error) {
	var attempts []*model.CheckoutAttempt
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("created_at DESC").
		Find(&attempts).Error

	if err != nil {
		return nil, err
	}

	return attempts, nil
}
