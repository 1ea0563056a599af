// Package widget hosts the gateway checkout widget in a browser page served by
// the bridge. The page posts the widget's callbacks back, and they are routed to
// the attempt that opened it.
package widget

import (
	"context"
	"errors"
	"sync"
	"time"
	"vehicle-checkout/internal/checkout"
	"vehicle-checkout/internal/model"

	"github.com/labstack/gommon/log"
)

var (
	ErrNoPendingCheckout = errors.New("no checkout is open for this attempt")
	ErrInvalidConfig     = errors.New("checkout config is missing key or order id")
)

type pending struct {
	cfg      checkout.WidgetConfig
	handler  checkout.WidgetHandler
	openedAt time.Time
}

// Browser is modal: opening a checkout dismisses whichever one was showing, so
// the displaced attempt settles as cancelled and its trigger re-arms.
type Browser struct {
	mu     sync.Mutex
	active *pending
	logger *log.Logger
}

func NewBrowser(logger *log.Logger) *Browser {
	return &Browser{logger: logger}
}

func (b *Browser) Open(ctx context.Context, cfg checkout.WidgetConfig, handler checkout.WidgetHandler) error {
	if cfg.Key == "" || cfg.OrderID == "" {
		return ErrInvalidConfig
	}

	b.mu.Lock()
	displaced := b.active
	if displaced != nil && displaced.cfg.AttemptID == cfg.AttemptID {
		displaced = nil
	}
	b.active = &pending{cfg: cfg, handler: handler, openedAt: time.Now()}
	b.mu.Unlock()

	if displaced != nil {
		b.logger.Infof("checkout for attempt %s dismissed by attempt %s", displaced.cfg.AttemptID, cfg.AttemptID)
		if _, err := displaced.handler.OnDismiss(context.WithoutCancel(ctx)); err != nil {
			b.logger.Warnf("dismiss displaced attempt %s: %v", displaced.cfg.AttemptID, err)
		}
	}
	return nil
}

// Pending returns the config the checkout page renders.
func (b *Browser) Pending(attemptID string) (checkout.WidgetConfig, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil || b.active.cfg.AttemptID != attemptID {
		return checkout.WidgetConfig{}, false
	}
	return b.active.cfg, true
}

func (b *Browser) Success(ctx context.Context, attemptID string, receipt model.PaymentReceipt) (checkout.Snapshot, error) {
	p, err := b.take(attemptID, true)
	if err != nil {
		return checkout.Snapshot{}, err
	}
	return p.handler.OnSuccess(ctx, receipt)
}

// Failure leaves the widget open: the gateway lets the buyer retry in place.
func (b *Browser) Failure(ctx context.Context, attemptID string, failure checkout.GatewayFailure) (checkout.Snapshot, error) {
	p, err := b.take(attemptID, false)
	if err != nil {
		return checkout.Snapshot{}, err
	}
	return p.handler.OnFailure(ctx, failure)
}

func (b *Browser) Dismiss(ctx context.Context, attemptID string) (checkout.Snapshot, error) {
	p, err := b.take(attemptID, true)
	if err != nil {
		return checkout.Snapshot{}, err
	}
	return p.handler.OnDismiss(ctx)
}

func (b *Browser) take(attemptID string, closeModal bool) (*pending, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil || b.active.cfg.AttemptID != attemptID {
		return nil, ErrNoPendingCheckout
	}
	p := b.active
	if closeModal {
		b.active = nil
	}
	return p, nil
}
