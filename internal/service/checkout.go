package service

import (
	"context"
	"errors"
	"fmt"
	"vehicle-checkout/internal/checkout"
	"vehicle-checkout/internal/dto"
	"vehicle-checkout/internal/model"
	"vehicle-checkout/internal/repository"
	"vehicle-checkout/internal/widget"

	"gorm.io/gorm"
)

const loginPath = "/login"

type CheckoutService interface {
	Pay(ctx context.Context, vehicleID string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	Status(ctx context.Context, vehicleID string) *dto.CheckoutResponse
	Release(vehicleID string)

	PendingWidget(attemptID string) (checkout.WidgetConfig, bool)
	WidgetSuccess(ctx context.Context, attemptID string, receipt model.PaymentReceipt) (*dto.CheckoutResponse, error)
	WidgetFailure(ctx context.Context, attemptID string, failure checkout.GatewayFailure) (*dto.CheckoutResponse, error)
	WidgetDismiss(ctx context.Context, attemptID string) (*dto.CheckoutResponse, error)

	AttemptsByOrder(ctx context.Context, orderID string) ([]*dto.AttemptResponse, error)
	AttemptsByVehicle(ctx context.Context, vehicleID string) ([]*dto.AttemptResponse, error)
	Attempt(ctx context.Context, attemptID string) (*dto.AttemptResponse, error)
}

var ErrAttemptNotFound = errors.New("checkout attempt not found")

type checkoutServiceImpl struct {
	registry    *checkout.Registry
	browser     *widget.Browser
	attemptRepo repository.AttemptRepository
}

func NewCheckoutService(
	registry *checkout.Registry,
	browser *widget.Browser,
	attemptRepo repository.AttemptRepository,
) CheckoutService {
	return &checkoutServiceImpl{
		registry:    registry,
		browser:     browser,
		attemptRepo: attemptRepo,
	}
}

func (s *checkoutServiceImpl) Pay(ctx context.Context, vehicleID string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	intent := model.PurchaseIntent{
		VehicleID:     vehicleID,
		VehicleName:   req.VehicleName,
		Price:         req.VehiclePrice,
		ListingStatus: model.ParseListingStatus(req.VehicleStatus),
	}

	snap, err := s.registry.For(vehicleID).Pay(ctx, intent)
	return toCheckoutResponse(snap, err), err
}

func (s *checkoutServiceImpl) Status(ctx context.Context, vehicleID string) *dto.CheckoutResponse {
	o, ok := s.registry.Lookup(vehicleID)
	if !ok {
		return toCheckoutResponse(checkout.Snapshot{VehicleID: vehicleID, State: checkout.StateIdle, Enabled: true}, nil)
	}
	return toCheckoutResponse(o.Snapshot(), nil)
}

func (s *checkoutServiceImpl) Release(vehicleID string) {
	s.registry.Release(vehicleID)
}

func (s *checkoutServiceImpl) PendingWidget(attemptID string) (checkout.WidgetConfig, bool) {
	return s.browser.Pending(attemptID)
}

func (s *checkoutServiceImpl) WidgetSuccess(ctx context.Context, attemptID string, receipt model.PaymentReceipt) (*dto.CheckoutResponse, error) {
	snap, err := s.browser.Success(ctx, attemptID, receipt)
	return toCheckoutResponse(snap, err), err
}

func (s *checkoutServiceImpl) WidgetFailure(ctx context.Context, attemptID string, failure checkout.GatewayFailure) (*dto.CheckoutResponse, error) {
	snap, err := s.browser.Failure(ctx, attemptID, failure)
	return toCheckoutResponse(snap, err), err
}

func (s *checkoutServiceImpl) WidgetDismiss(ctx context.Context, attemptID string) (*dto.CheckoutResponse, error) {
	snap, err := s.browser.Dismiss(ctx, attemptID)
	return toCheckoutResponse(snap, err), err
}

func (s *checkoutServiceImpl) AttemptsByOrder(ctx context.Context, orderID string) ([]*dto.AttemptResponse, error) {
	attempts, err := s.attemptRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find attempts by order: %w", err)
	}
	return toAttemptResponses(attempts), nil
}

func (s *checkoutServiceImpl) AttemptsByVehicle(ctx context.Context, vehicleID string) ([]*dto.AttemptResponse, error) {
	attempts, err := s.attemptRepo.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list attempts by vehicle: %w", err)
	}
	return toAttemptResponses(attempts), nil
}

func (s *checkoutServiceImpl) Attempt(ctx context.Context, attemptID string) (*dto.AttemptResponse, error) {
	a, err := s.attemptRepo.FindByAttemptID(ctx, attemptID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	return toAttemptResponse(a), nil
}

func toAttemptResponses(attempts []*model.CheckoutAttempt) []*dto.AttemptResponse {
	out := make([]*dto.AttemptResponse, len(attempts))
	for i, a := range attempts {
		out[i] = toAttemptResponse(a)
	}
	return out
}

func toAttemptResponse(a *model.CheckoutAttempt) *dto.AttemptResponse {
	return &dto.AttemptResponse{
		AttemptID: a.AttemptID,
		VehicleID: a.VehicleID,
		OrderID:   a.OrderID,
		PaymentID: a.PaymentID,
		State:     a.State,
		Outcome:   a.Outcome,
		Reason:    a.Reason,
		Message:   a.Message,
	}
}

func toCheckoutResponse(snap checkout.Snapshot, err error) *dto.CheckoutResponse {
	resp := &dto.CheckoutResponse{
		AttemptID:     snap.AttemptID,
		VehicleID:     snap.VehicleID,
		State:         string(snap.State),
		Enabled:       snap.Enabled,
		ListingStatus: string(snap.ListingStatus),
		Result:        snap.Result,
	}
	if snap.Order != nil {
		resp.OrderID = snap.Order.OrderID
		resp.Amount = checkout.FormatAmount(snap.Order.Amount, snap.Order.Currency)
	}
	if snap.State == checkout.StateWidgetOpen {
		resp.CheckoutURL = "/checkout/" + snap.AttemptID
	}

	var cerr *checkout.Error
	switch {
	case errors.As(err, &cerr):
		resp.Error = fromCheckoutError(cerr)
	case err != nil:
		resp.Error = &dto.CheckoutError{Kind: ErrorCode(err), Message: err.Error()}
	case snap.Failure != nil:
		resp.Error = fromCheckoutError(snap.Failure)
	}
	return resp
}

func fromCheckoutError(e *checkout.Error) *dto.CheckoutError {
	out := &dto.CheckoutError{
		Kind:    string(e.Kind),
		Message: e.Message,
		OrderID: e.OrderID,
	}
	if e.Kind == checkout.KindNotAuthenticated {
		out.Redirect = loginPath
	}
	return out
}

// ErrorCode names errors that are not part of the failure taxonomy.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		return "CHECKOUT_IN_PROGRESS"
	case errors.Is(err, checkout.ErrListingSold):
		return "LISTING_SOLD"
	case errors.Is(err, checkout.ErrStaleAttempt), errors.Is(err, checkout.ErrClosed):
		return "STALE_ATTEMPT"
	case errors.Is(err, widget.ErrNoPendingCheckout):
		return "NO_PENDING_CHECKOUT"
	}
	return "INTERNAL"
}
