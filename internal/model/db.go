package model

import "time"

// SessionRecord caches the signed-in user's token and profile. There is at most one row.
type SessionRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Token     string `gorm:"size:2048;not null"`
	UserID    string `gorm:"size:64"`
	Name      string `gorm:"size:128"`
	Email     string `gorm:"size:256"`
	Phone     string `gorm:"size:32"`
	Role      string `gorm:"size:32"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CheckoutAttempt struct {
	AttemptID string `gorm:"primaryKey;size:64;not null"`
	VehicleID string `gorm:"size:64;index;not null"`
	UserID    string `gorm:"size:64;index"`
	OrderID   string `gorm:"size:64;index"` // gateway order id, empty until order creation succeeds
	PaymentID string `gorm:"size:64"`
	State     string `gorm:"size:32;index;not null"` // IDLE, KEY_FETCHING, ..., SETTLED, CANCELLED
	Outcome   string `gorm:"size:32"`                // SUCCESS, FAILURE
	Reason    string `gorm:"size:32"`                // failure kind
	Message   string `gorm:"size:512"`
	Amount    int64
	Currency  string `gorm:"size:8"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SubmittedReceipt struct {
	PaymentID   string `gorm:"primaryKey;size:64;not null"`
	OrderID     string `gorm:"size:64;index;not null"`
	SubmittedAt time.Time
}
