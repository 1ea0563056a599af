package checkout

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotAuthenticated   Kind = "NOT_AUTHENTICATED"
	KindGatewayUnavailable Kind = "GATEWAY_UNAVAILABLE"
	KindOrderRejected      Kind = "ORDER_REJECTED"
	KindGatewayDeclined    Kind = "GATEWAY_DECLINED"
	KindUserCancelled      Kind = "USER_CANCELLED"
	KindVerificationFailed Kind = "VERIFICATION_FAILED"
)

// Error is the failure a settled attempt reports to the user. OrderID is set
// whenever an order exists so support can reconcile it.
type Error struct {
	Kind    Kind
	Message string
	OrderID string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can use errors.Is(err, checkout.ErrOrderRejected).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotAuthenticated   = &Error{Kind: KindNotAuthenticated}
	ErrGatewayUnavailable = &Error{Kind: KindGatewayUnavailable}
	ErrOrderRejected      = &Error{Kind: KindOrderRejected}
	ErrGatewayDeclined    = &Error{Kind: KindGatewayDeclined}
	ErrUserCancelled      = &Error{Kind: KindUserCancelled}
	ErrVerificationFailed = &Error{Kind: KindVerificationFailed}
)

var (
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrListingSold        = errors.New("vehicle is sold")
	ErrStaleAttempt       = errors.New("checkout attempt is no longer current")
	ErrClosed             = errors.New("checkout closed")
)

const (
	msgNotAuthenticated   = "Please login to continue with payment"
	msgGatewayUnavailable = "Failed to get payment configuration"
	msgOrderRejected      = "Failed to create order"
	msgUserCancelled      = "Payment cancelled by user"
)

func verificationMessage(orderID string) string {
	return fmt.Sprintf("Payment verification failed. Please contact support with Order ID: %s", orderID)
}

func declinedMessage(description string) string {
	if description == "" {
		description = "payment was declined"
	}
	return "Payment failed: " + description
}
