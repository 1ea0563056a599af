package dto

import "vehicle-checkout/internal/model"

// ---- marketplace backend ----

type KeyResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key"`
	Message string `json:"message,omitempty"`
}

type CreateOrderRequest struct {
	VehicleID string `json:"vehicleId"`
}

type OrderData struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type CreateOrderResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    *OrderData `json:"data,omitempty"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

type VerifiedOrder struct {
	OrderID string `json:"orderId"`
}

type VerifyPaymentResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    *VerifiedOrder `json:"data,omitempty"`
}

type VehicleData struct {
	ID     string `json:"_id"`
	Title  string `json:"title"`
	Brand  string `json:"brand"`
	Model  string `json:"model"`
	Price  int64  `json:"price"`
	Status string `json:"status"`
}

type VehicleResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    *VehicleData `json:"data,omitempty"`
}

// ---- bridge api ----

type LoginRequest struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type SessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
}

type CheckoutRequest struct {
	VehicleName   string `json:"vehicle_name"`
	VehiclePrice  int64  `json:"vehicle_price"`
	VehicleStatus string `json:"vehicle_status"`
}

type CheckoutError struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	OrderID  string `json:"order_id,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type CheckoutResponse struct {
	AttemptID     string                    `json:"attempt_id,omitempty"`
	VehicleID     string                    `json:"vehicle_id"`
	State         string                    `json:"state"`
	Enabled       bool                      `json:"enabled"`
	ListingStatus string                    `json:"listing_status,omitempty"`
	OrderID       string                    `json:"order_id,omitempty"`
	Amount        string                    `json:"amount,omitempty"`
	CheckoutURL   string                    `json:"checkout_url,omitempty"`
	Result        *model.VerificationResult `json:"result,omitempty"`
	Error         *CheckoutError            `json:"error,omitempty"`
}

type GatewayFailureRequest struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Reason      string `json:"reason"`
	} `json:"error"`
}

type AttemptResponse struct {
	AttemptID string `json:"attempt_id"`
	VehicleID string `json:"vehicle_id"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id,omitempty"`
	State     string `json:"state"`
	Outcome   string `json:"outcome,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
}
