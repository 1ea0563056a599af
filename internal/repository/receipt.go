package repository

import (
	"context"
	"time"
	"vehicle-checkout/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReceiptRepository interface {
	// MarkSubmitted records that a receipt is about to be verified. It reports
	// false when the same payment id was already submitted.
	MarkSubmitted(ctx context.Context, paymentID, orderID string) (bool, error)
}

type receiptRepositoryImpl struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepositoryImpl{db: db}
}

func (r *receiptRepositoryImpl) MarkSubmitted(ctx context.Context, paymentID, orderID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.SubmittedReceipt{
			PaymentID:   paymentID,
			OrderID:     orderID,
			SubmittedAt: time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}
