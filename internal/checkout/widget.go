package checkout

import (
	"context"
	"vehicle-checkout/internal/model"
)

// Widget is the third-party checkout UI. It is opened once per attempt and
// reports back only through the WidgetHandler it was given.
type Widget interface {
	Open(ctx context.Context, cfg WidgetConfig, handler WidgetHandler) error
}

type WidgetHandler interface {
	OnSuccess(ctx context.Context, receipt model.PaymentReceipt) (Snapshot, error)
	OnFailure(ctx context.Context, failure GatewayFailure) (Snapshot, error)
	OnDismiss(ctx context.Context) (Snapshot, error)
}

type GatewayFailure struct {
	Code        string
	Description string
	Reason      string
}

// WidgetConfig uses the gateway's option names.
type WidgetConfig struct {
	AttemptID   string            `json:"-"`
	VehicleID   string            `json:"-"`
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	OrderID     string            `json:"order_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Image       string            `json:"image,omitempty"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes"`
	Theme       Theme             `json:"theme"`
}

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type Theme struct {
	Color string `json:"color"`
}

type Display struct {
	MerchantName string
	LogoURL      string
	ThemeColor   string
}

const (
	defaultBuyerName    = "Customer"
	defaultBuyerEmail   = "customer@example.com"
	defaultBuyerContact = "9999999999"
)

func buildWidgetConfig(d Display, attemptID string, intent model.PurchaseIntent, user model.User, order *model.OrderToken) WidgetConfig {
	buyer := user.Buyer()
	vehicleName := intent.VehicleName
	if vehicleName == "" {
		vehicleName = "Vehicle"
	}

	return WidgetConfig{
		AttemptID:   attemptID,
		VehicleID:   intent.VehicleID,
		Key:         order.GatewayKey,
		Amount:      order.Amount,
		Currency:    order.Currency,
		OrderID:     order.OrderID,
		Name:        d.MerchantName,
		Description: "Purchase: " + vehicleName,
		Image:       d.LogoURL,
		Prefill: Prefill{
			Name:    firstNonEmpty(buyer.Name, defaultBuyerName),
			Email:   firstNonEmpty(buyer.Email, defaultBuyerEmail),
			Contact: firstNonEmpty(buyer.Phone, defaultBuyerContact),
		},
		Notes: map[string]string{
			"vehicleId":   intent.VehicleID,
			"vehicleName": intent.VehicleName,
			"buyerId":     user.ID,
		},
		Theme: Theme{Color: d.ThemeColor},
	}
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
