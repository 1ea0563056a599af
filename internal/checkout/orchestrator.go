// Package checkout drives the purchase handshake between the signed-in buyer,
// the marketplace backend and the gateway's checkout widget:
//
//	Idle -> KeyFetching -> OrderCreating -> WidgetOpen -> Verifying -> Settled
//	                                             \-> Cancelled
//
// A receipt from the widget is never taken as proof of payment; only the
// backend's verification settles an attempt successfully.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"vehicle-checkout/internal/client"
	"vehicle-checkout/internal/logger"
	"vehicle-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

type Backend interface {
	GetKey(ctx context.Context, token string) (string, error)
	CreateOrder(ctx context.Context, token, vehicleID string) (*model.OrderToken, error)
	VerifyPayment(ctx context.Context, token string, receipt model.PaymentReceipt) (string, error)
}

type ListingSource interface {
	GetVehicle(ctx context.Context, vehicleID string) (*model.Vehicle, error)
}

type SessionSource interface {
	Current(ctx context.Context) (*model.Session, bool)
}

// Recorder persists attempt progress for support reconciliation.
type Recorder interface {
	Save(ctx context.Context, attempt *model.CheckoutAttempt) error
}

// ReceiptGuard reports false when a payment id was already submitted for verification.
type ReceiptGuard interface {
	MarkSubmitted(ctx context.Context, paymentID, orderID string) (bool, error)
}

type Observer interface {
	StepCompleted(step State, d time.Duration, err error)
	AttemptSettled(state State, outcome Outcome, kind Kind)
}

type Dependencies struct {
	Backend  Backend
	Listings ListingSource
	Session  SessionSource
	Widget   Widget
	Display  Display

	// optional
	Recorder     Recorder
	Receipts     ReceiptGuard
	Observer     Observer
	Logger       *log.Logger
	NewAttemptID func() string
}

type Snapshot struct {
	AttemptID     string
	VehicleID     string
	State         State
	Outcome       Outcome
	Enabled       bool
	ListingStatus model.ListingStatus
	Order         *model.OrderToken
	Result        *model.VerificationResult
	Failure       *Error
}

type attempt struct {
	id          string
	intent      model.PurchaseIntent
	session     model.Session
	order       *model.OrderToken
	receiptSeen bool
	paymentID   string
	outcome     Outcome
	result      *model.VerificationResult
	failure     *Error
	reason      Kind
}

// Orchestrator runs checkout attempts for one vehicle. At most one attempt is
// in flight; triggering while one is in flight is a no-op.
type Orchestrator struct {
	deps      Dependencies
	vehicleID string

	mu      sync.Mutex
	state   State
	current *attempt
	listing model.ListingStatus
	closed  bool
}

func NewOrchestrator(vehicleID string, deps Dependencies) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.NewAttemptID == nil {
		deps.NewAttemptID = uuid.NewString
	}

	return &Orchestrator{
		deps:      deps,
		vehicleID: vehicleID,
		state:     StateIdle,
	}
}

// Pay starts a new attempt and runs it until the widget is open or the attempt
// settles. A failed attempt returns its snapshot together with the *Error.
func (o *Orchestrator) Pay(ctx context.Context, intent model.PurchaseIntent) (Snapshot, error) {
	// in-flight backend calls are never cancelled; their results are discarded
	// instead when the attempt is no longer current
	callCtx := context.WithoutCancel(ctx)
	intent.VehicleID = o.vehicleID

	o.mu.Lock()
	if o.closed {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrClosed
	}
	if !o.state.Armed() {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrCheckoutInProgress
	}
	if intent.ListingStatus.IsSold() {
		o.listing = model.ListingSold
	}
	if o.listing.IsSold() {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrListingSold
	}

	a := &attempt{id: o.deps.NewAttemptID(), intent: intent}
	o.current = a
	o.state = StateIdle

	sess, ok := o.deps.Session.Current(ctx)
	if !ok {
		err := o.failLocked(ctx, a, &Error{Kind: KindNotAuthenticated, Message: msgNotAuthenticated})
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, err
	}
	a.session = *sess
	o.transitionLocked(ctx, a, StateKeyFetching)
	o.mu.Unlock()

	started := time.Now()
	key, err := o.deps.Backend.GetKey(callCtx, sess.Token)
	o.observeStep(StateKeyFetching, started, err)

	o.mu.Lock()
	if !o.liveLocked(a) {
		o.mu.Unlock()
		o.deps.Logger.Warnf("discarding key fetch result for stale attempt %s", a.id)
		return Snapshot{}, ErrStaleAttempt
	}
	if err != nil {
		failure := o.failLocked(ctx, a, &Error{Kind: KindGatewayUnavailable, Message: msgGatewayUnavailable, Err: err})
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, failure
	}
	o.transitionLocked(ctx, a, StateOrderCreating)
	o.mu.Unlock()

	started = time.Now()
	order, err := o.deps.Backend.CreateOrder(callCtx, sess.Token, o.vehicleID)
	o.observeStep(StateOrderCreating, started, err)

	o.mu.Lock()
	if !o.liveLocked(a) {
		o.mu.Unlock()
		o.deps.Logger.Warnf("discarding order for stale attempt %s", a.id)
		return Snapshot{}, ErrStaleAttempt
	}
	if err != nil {
		failure := o.failLocked(ctx, a, &Error{Kind: KindOrderRejected, Message: backendMessage(err, msgOrderRejected), Err: err})
		o.mu.Unlock()
		// the rejection may mean the vehicle just sold
		o.refreshListing(callCtx, a)
		return o.Snapshot(), failure
	}
	order.GatewayKey = key
	if listed := a.intent.Price; listed > 0 && ToMinorUnits(listed) != order.Amount {
		// the backend amount is authoritative; the listed price is display only
		o.deps.Logger.Warnf("attempt %s: order %s amount %d differs from listed price %d",
			a.id, order.OrderID, order.Amount, ToMinorUnits(listed))
	}
	a.order = order
	cfg := buildWidgetConfig(o.deps.Display, a.id, a.intent, a.session.User, order)
	o.transitionLocked(ctx, a, StateWidgetOpen)
	o.mu.Unlock()

	if err := o.deps.Widget.Open(ctx, cfg, &attemptHandler{o: o, a: a}); err != nil {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.liveLocked(a) && o.state == StateWidgetOpen && !a.receiptSeen {
			failure := o.failLocked(ctx, a, &Error{Kind: KindGatewayUnavailable, Message: msgGatewayUnavailable, OrderID: order.OrderID, Err: err})
			return o.snapshotLocked(), failure
		}
		return o.snapshotLocked(), nil
	}

	return o.Snapshot(), nil
}

// Close detaches the orchestrator from its caller. Later completions are not
// applied, although a receipt that arrives is still verified and recorded.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Enabled is the trigger state. It is derived from the attempt state and the
// listing and is never set directly.
func (o *Orchestrator) Enabled() bool {
	return o.Snapshot().Enabled
}

func (o *Orchestrator) VehicleID() string {
	return o.vehicleID
}

func (o *Orchestrator) onSuccess(ctx context.Context, a *attempt, receipt model.PaymentReceipt) (Snapshot, error) {
	callCtx := context.WithoutCancel(ctx)

	o.mu.Lock()
	if a.order == nil {
		o.mu.Unlock()
		return Snapshot{}, ErrStaleAttempt
	}
	if a.receiptSeen {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, nil
	}
	// a receipt may still arrive after a decline or dismiss if the gateway let
	// the buyer retry; money may have moved, so it is verified regardless
	a.receiptSeen = true
	a.paymentID = receipt.PaymentID
	a.outcome = OutcomeNone
	a.failure = nil
	a.reason = ""
	live := o.liveLocked(a)
	if live {
		o.transitionLocked(ctx, a, StateVerifying)
	} else {
		o.deps.Logger.Warnf("receipt for detached attempt %s, verifying without updating checkout", a.id)
	}
	orderID := a.order.OrderID
	token := a.session.Token
	o.mu.Unlock()

	if receipt.OrderID != orderID {
		o.deps.Logger.Warnf("attempt %s: receipt for order %s does not match order %s", a.id, receipt.OrderID, orderID)
		return o.settleVerification(callCtx, a, "", errReceiptOrderMismatch)
	}

	if o.deps.Receipts != nil {
		fresh, err := o.deps.Receipts.MarkSubmitted(callCtx, receipt.PaymentID, orderID)
		if err != nil {
			o.deps.Logger.Errorf("receipt guard for payment %s: %v", receipt.PaymentID, err)
		} else if !fresh {
			return o.settleVerification(callCtx, a, "", errDuplicateReceipt)
		}
	}

	started := time.Now()
	confirmed, err := o.deps.Backend.VerifyPayment(callCtx, token, receipt)
	o.observeStep(StateVerifying, started, err)

	return o.settleVerification(callCtx, a, confirmed, err)
}

var (
	errDuplicateReceipt     = errors.New("receipt was already submitted for verification")
	errReceiptOrderMismatch = errors.New("receipt order does not match the attempt's order")
	errConfirmedOrderID     = errors.New("backend confirmed a different order")
)

func (o *Orchestrator) settleVerification(ctx context.Context, a *attempt, confirmed string, verr error) (Snapshot, error) {
	o.mu.Lock()
	live := o.liveLocked(a)

	if verr == nil && confirmed != "" && confirmed != a.order.OrderID {
		verr = fmt.Errorf("%w: %s", errConfirmedOrderID, confirmed)
	}

	var failure error
	if verr != nil {
		a.result = &model.VerificationResult{Success: false, FailureReason: backendMessage(verr, verr.Error())}
		failure = o.failLocked(ctx, a, &Error{
			Kind:    KindVerificationFailed,
			Message: verificationMessage(a.order.OrderID),
			OrderID: a.order.OrderID,
			Err:     verr,
		})
	} else {
		if confirmed == "" {
			confirmed = a.order.OrderID
		}
		a.result = &model.VerificationResult{Success: true, ConfirmedOrderID: confirmed}
		a.outcome = OutcomeSuccess
		a.failure = nil
		if live {
			o.transitionLocked(ctx, a, StateSettled)
		} else {
			o.recordLocked(ctx, a, StateSettled)
		}
		o.observeSettled(StateSettled, OutcomeSuccess, "")
	}

	if !live {
		o.mu.Unlock()
		return Snapshot{}, ErrStaleAttempt
	}
	o.mu.Unlock()

	if failure == nil {
		// the purchase changes the listing; never assume its prior status
		o.refreshListing(ctx, a)
	}
	return o.Snapshot(), failure
}

func (o *Orchestrator) onFailure(ctx context.Context, a *attempt, gf GatewayFailure) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.liveLocked(a) {
		return Snapshot{}, ErrStaleAttempt
	}
	if o.state != StateWidgetOpen || a.receiptSeen {
		return o.snapshotLocked(), nil
	}

	err := o.failLocked(ctx, a, &Error{
		Kind:    KindGatewayDeclined,
		Message: declinedMessage(gf.Description),
		OrderID: a.order.OrderID,
	})
	return o.snapshotLocked(), err
}

func (o *Orchestrator) onDismiss(ctx context.Context, a *attempt) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.liveLocked(a) {
		return Snapshot{}, ErrStaleAttempt
	}
	if o.state != StateWidgetOpen || a.receiptSeen {
		return o.snapshotLocked(), nil
	}

	a.outcome = OutcomeNone
	a.reason = KindUserCancelled
	o.transitionLocked(ctx, a, StateCancelled)
	o.observeSettled(StateCancelled, OutcomeNone, KindUserCancelled)
	return o.snapshotLocked(), nil
}

func (o *Orchestrator) refreshListing(ctx context.Context, a *attempt) {
	v, err := o.deps.Listings.GetVehicle(ctx, o.vehicleID)

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.liveLocked(a) {
		return
	}
	if err != nil {
		o.deps.Logger.Warnf("refresh listing %s: %v", o.vehicleID, err)
		o.listing = model.ListingUnknown
		return
	}
	o.listing = v.Status
	if v.Status.IsSold() {
		o.deps.Logger.Infof("listing %s is sold, checkout disabled", o.vehicleID)
	}
}

func (o *Orchestrator) liveLocked(a *attempt) bool {
	return !o.closed && o.current == a
}

func (o *Orchestrator) failLocked(ctx context.Context, a *attempt, failure *Error) *Error {
	a.outcome = OutcomeFailure
	a.failure = failure
	a.reason = failure.Kind
	if o.liveLocked(a) {
		o.transitionLocked(ctx, a, StateSettled)
	} else {
		o.recordLocked(ctx, a, StateSettled)
	}
	o.observeSettled(StateSettled, OutcomeFailure, failure.Kind)
	return failure
}

func (o *Orchestrator) transitionLocked(ctx context.Context, a *attempt, to State) {
	from := o.state
	o.state = to

	switch {
	case a.failure != nil && a.failure.Kind == KindVerificationFailed:
		o.deps.Logger.Errorf("checkout attempt=%s vehicle=%s %s -> %s: %v", a.id, o.vehicleID, from, to, a.failure)
	case a.failure != nil:
		o.deps.Logger.Warnf("checkout attempt=%s vehicle=%s %s -> %s: %v", a.id, o.vehicleID, from, to, a.failure)
	default:
		o.deps.Logger.Infof("checkout attempt=%s vehicle=%s %s -> %s", a.id, o.vehicleID, from, to)
	}

	o.recordLocked(ctx, a, to)
}

func (o *Orchestrator) recordLocked(ctx context.Context, a *attempt, state State) {
	if o.deps.Recorder == nil {
		return
	}

	row := &model.CheckoutAttempt{
		AttemptID: a.id,
		VehicleID: o.vehicleID,
		UserID:    a.session.User.ID,
		PaymentID: a.paymentID,
		State:     string(state),
		Outcome:   string(a.outcome),
		Reason:    string(a.reason),
	}
	if a.order != nil {
		row.OrderID = a.order.OrderID
		row.Amount = a.order.Amount
		row.Currency = a.order.Currency
	}
	if a.failure != nil {
		row.Message = a.failure.Message
	}

	if err := o.deps.Recorder.Save(context.WithoutCancel(ctx), row); err != nil {
		o.deps.Logger.Errorf("record checkout attempt %s: %v", a.id, err)
	}
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		VehicleID:     o.vehicleID,
		State:         o.state,
		ListingStatus: o.listing,
		Enabled:       !o.closed && o.state.Armed() && !o.listing.IsSold(),
	}

	a := o.current
	if a == nil {
		return snap
	}
	snap.AttemptID = a.id
	snap.Outcome = a.outcome
	if a.order != nil {
		order := *a.order
		snap.Order = &order
	}
	if a.result != nil {
		result := *a.result
		snap.Result = &result
	}
	snap.Failure = a.failure
	return snap
}

func (o *Orchestrator) observeStep(step State, started time.Time, err error) {
	if o.deps.Observer != nil {
		o.deps.Observer.StepCompleted(step, time.Since(started), err)
	}
}

func (o *Orchestrator) observeSettled(state State, outcome Outcome, kind Kind) {
	if o.deps.Observer != nil {
		o.deps.Observer.AttemptSettled(state, outcome, kind)
	}
}

// backendMessage returns the backend's own wording when it sent one.
func backendMessage(err error, fallback string) string {
	var be *client.BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}

// attemptHandler binds widget callbacks to the attempt that opened the widget.
type attemptHandler struct {
	o *Orchestrator
	a *attempt
}

func (h *attemptHandler) OnSuccess(ctx context.Context, receipt model.PaymentReceipt) (Snapshot, error) {
	return h.o.onSuccess(ctx, h.a, receipt)
}

func (h *attemptHandler) OnFailure(ctx context.Context, failure GatewayFailure) (Snapshot, error) {
	return h.o.onFailure(ctx, h.a, failure)
}

func (h *attemptHandler) OnDismiss(ctx context.Context) (Snapshot, error) {
	return h.o.onDismiss(ctx, h.a)
}
