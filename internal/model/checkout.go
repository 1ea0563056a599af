package model

import "strings"

type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PurchaseIntent lives for a single checkout attempt and is never persisted.
type PurchaseIntent struct {
	VehicleID     string
	VehicleName   string
	Price         int64 // display price in major units, as listed
	ListingStatus ListingStatus
}

// OrderToken is issued by the backend and is valid for one checkout attempt only.
type OrderToken struct {
	OrderID    string
	Amount     int64 // minor currency units
	Currency   string
	GatewayKey string
}

// PaymentReceipt comes from the gateway widget and is untrusted until the
// backend verifies it.
type PaymentReceipt struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type VerificationResult struct {
	Success          bool   `json:"success"`
	ConfirmedOrderID string `json:"confirmed_order_id,omitempty"`
	FailureReason    string `json:"failure_reason,omitempty"`
}

type ListingStatus string

const (
	ListingUnknown   ListingStatus = ""
	ListingAvailable ListingStatus = "available"
	ListingPending   ListingStatus = "pending"
	ListingSold      ListingStatus = "sold"
)

func ParseListingStatus(s string) ListingStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "available":
		return ListingAvailable
	case "pending":
		return ListingPending
	case "sold":
		return ListingSold
	}
	return ListingUnknown
}

func (s ListingStatus) IsSold() bool {
	return s == ListingSold
}
