package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"vehicle-checkout/internal/client"
	"vehicle-checkout/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu sync.Mutex

	key       string
	keyErr    error
	order     *model.OrderToken
	orderErr  error
	confirmed string
	verifyErr error
	vehicle   *model.Vehicle

	keyCalls    int
	orderCalls  int
	verifyCalls []model.PaymentReceipt
	tokens      []string

	// when set, GetKey waits for it to close
	keyGate chan struct{}
	keyHit  chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		key:       "rzp_test_key",
		order:     &model.OrderToken{OrderID: "order_1", Amount: 50000, Currency: "INR"},
		confirmed: "order_1",
		vehicle:   &model.Vehicle{ID: "veh_1", Status: model.ListingAvailable},
	}
}

func (f *fakeBackend) GetKey(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	f.keyCalls++
	f.tokens = append(f.tokens, token)
	gate, hit := f.keyGate, f.keyHit
	f.mu.Unlock()

	if hit != nil {
		close(hit)
	}
	if gate != nil {
		<-gate
	}
	return f.key, f.keyErr
}

func (f *fakeBackend) CreateOrder(_ context.Context, token, vehicleID string) (*model.OrderToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCalls++
	f.tokens = append(f.tokens, token)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	order := *f.order
	return &order, nil
}

func (f *fakeBackend) VerifyPayment(_ context.Context, token string, receipt model.PaymentReceipt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls = append(f.verifyCalls, receipt)
	f.tokens = append(f.tokens, token)
	return f.confirmed, f.verifyErr
}

func (f *fakeBackend) GetVehicle(_ context.Context, vehicleID string) (*model.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vehicle == nil {
		return nil, errors.New("vehicle lookup failed")
	}
	v := *f.vehicle
	return &v, nil
}

func (f *fakeBackend) calls() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keyCalls, f.orderCalls, len(f.verifyCalls)
}

type fakeSession struct {
	session *model.Session
}

func (f *fakeSession) Current(context.Context) (*model.Session, bool) {
	if f.session == nil {
		return nil, false
	}
	return f.session, true
}

type fakeWidget struct {
	openErr error
	cfgs    []WidgetConfig
	handler WidgetHandler
}

func (w *fakeWidget) Open(_ context.Context, cfg WidgetConfig, handler WidgetHandler) error {
	if w.openErr != nil {
		return w.openErr
	}
	w.cfgs = append(w.cfgs, cfg)
	w.handler = handler
	return nil
}

type memRecorder struct {
	mu   sync.Mutex
	rows []model.CheckoutAttempt
}

func (m *memRecorder) Save(_ context.Context, row *model.CheckoutAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *row)
	return nil
}

func (m *memRecorder) last() model.CheckoutAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[len(m.rows)-1]
}

type memGuard struct {
	seen map[string]bool
}

func (g *memGuard) MarkSubmitted(_ context.Context, paymentID, _ string) (bool, error) {
	if g.seen[paymentID] {
		return false, nil
	}
	g.seen[paymentID] = true
	return true, nil
}

type harness struct {
	backend  *fakeBackend
	session  *fakeSession
	widget   *fakeWidget
	recorder *memRecorder
	orch     *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		backend: newFakeBackend(),
		session: &fakeSession{session: &model.Session{
			Token: "tok_1",
			User:  model.User{ID: "u1", Name: "Asha", Email: "asha@example.com", Phone: "9876543210"},
		}},
		widget:   &fakeWidget{},
		recorder: &memRecorder{},
	}
	ids := 0
	h.orch = NewOrchestrator("veh_1", Dependencies{
		Backend:  h.backend,
		Listings: h.backend,
		Session:  h.session,
		Widget:   h.widget,
		Recorder: h.recorder,
		Display:  Display{MerchantName: "AutoMart", LogoURL: "/logo.png", ThemeColor: "#7C3AED"},
		NewAttemptID: func() string {
			ids++
			return "attempt_" + string(rune('0'+ids))
		},
	})
	return h
}

func intent() model.PurchaseIntent {
	return model.PurchaseIntent{VehicleID: "veh_1", VehicleName: "Maruti Swift", ListingStatus: model.ListingAvailable}
}

var receipt1 = model.PaymentReceipt{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig_1"}

func TestScenarioA_NotAuthenticated(t *testing.T) {
	h := newHarness(t)
	h.session.session = nil

	snap, err := h.orch.Pay(context.Background(), intent())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, StateSettled, snap.State)
	assert.Equal(t, OutcomeFailure, snap.Outcome)
	assert.Equal(t, "Please login to continue with payment", snap.Failure.Message)
	assert.True(t, snap.Enabled)

	keys, orders, verifies := h.backend.calls()
	assert.Zero(t, keys+orders+verifies)
	assert.Empty(t, h.widget.cfgs)
}

func TestScenarioB_KeyUnavailable(t *testing.T) {
	h := newHarness(t)
	h.backend.keyErr = &client.BackendError{Op: "get gateway key", StatusCode: 200}

	snap, err := h.orch.Pay(context.Background(), intent())

	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, StateSettled, snap.State)
	assert.Equal(t, "Failed to get payment configuration", snap.Failure.Message)
	assert.True(t, snap.Enabled)

	keys, orders, _ := h.backend.calls()
	assert.Equal(t, 1, keys)
	assert.Zero(t, orders)
	assert.Empty(t, h.widget.cfgs)
}

func TestScenarioC_WidgetOpenedWithOrder(t *testing.T) {
	h := newHarness(t)

	snap, err := h.orch.Pay(context.Background(), intent())

	require.NoError(t, err)
	assert.Equal(t, StateWidgetOpen, snap.State)
	assert.False(t, snap.Enabled)
	require.Len(t, h.widget.cfgs, 1)

	cfg := h.widget.cfgs[0]
	assert.Equal(t, "order_1", cfg.OrderID)
	assert.Equal(t, int64(50000), cfg.Amount)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, "rzp_test_key", cfg.Key)
	assert.Equal(t, "AutoMart", cfg.Name)
	assert.Equal(t, "Purchase: Maruti Swift", cfg.Description)
	assert.Equal(t, Prefill{Name: "Asha", Email: "asha@example.com", Contact: "9876543210"}, cfg.Prefill)
	assert.Equal(t, "veh_1", cfg.Notes["vehicleId"])
	assert.Equal(t, "u1", cfg.Notes["buyerId"])
	assert.Equal(t, "#7C3AED", cfg.Theme.Color)

	// every backend call carries the session token
	for _, tok := range h.backend.tokens {
		assert.Equal(t, "tok_1", tok)
	}
}

func TestScenarioD_VerifiedSuccess(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)

	snap, err := h.widget.handler.OnSuccess(context.Background(), receipt1)

	require.NoError(t, err)
	require.Len(t, h.backend.verifyCalls, 1)
	assert.Equal(t, receipt1, h.backend.verifyCalls[0])
	assert.Equal(t, StateSettled, snap.State)
	assert.Equal(t, OutcomeSuccess, snap.Outcome)
	require.NotNil(t, snap.Result)
	assert.True(t, snap.Result.Success)
	assert.Equal(t, "order_1", snap.Result.ConfirmedOrderID)
	assert.Nil(t, snap.Failure)
	assert.Equal(t, model.ListingAvailable, snap.ListingStatus)
	assert.True(t, snap.Enabled)

	last := h.recorder.last()
	assert.Equal(t, "SETTLED", last.State)
	assert.Equal(t, "SUCCESS", last.Outcome)
	assert.Equal(t, "pay_1", last.PaymentID)
}

func TestScenarioE_VerificationRejected(t *testing.T) {
	h := newHarness(t)
	h.backend.verifyErr = &client.BackendError{Op: "verify payment", StatusCode: 400, Message: "signature mismatch"}
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)

	snap, err := h.widget.handler.OnSuccess(context.Background(), receipt1)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "order_1", cerr.OrderID)
	assert.Contains(t, cerr.Message, "contact support")
	assert.Contains(t, cerr.Message, "order_1")

	assert.Equal(t, StateSettled, snap.State)
	assert.Equal(t, OutcomeFailure, snap.Outcome)
	require.NotNil(t, snap.Result)
	assert.False(t, snap.Result.Success)
	assert.Equal(t, "signature mismatch", snap.Result.FailureReason)
	assert.Equal(t, "VERIFICATION_FAILED", h.recorder.last().Reason)
}

func TestVerificationNetworkFailureNeverSucceeds(t *testing.T) {
	h := newHarness(t)
	h.backend.verifyErr = errors.New("dial tcp: connection refused")
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)

	snap, err := h.widget.handler.OnSuccess(context.Background(), receipt1)

	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, OutcomeFailure, snap.Outcome)
	assert.Equal(t, "order_1", snap.Failure.OrderID)
}

func TestScenarioF_DismissBeforeCallback(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)

	snap, err := h.widget.handler.OnDismiss(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCancelled, snap.State)
	assert.Nil(t, snap.Failure)
	assert.True(t, snap.Enabled)
	_, _, verifies := h.backend.calls()
	assert.Zero(t, verifies)
	assert.Equal(t, "USER_CANCELLED", h.recorder.last().Reason)

	// re-trigger starts a new attempt from Idle
	snap, err = h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)
	assert.Equal(t, StateWidgetOpen, snap.State)
	assert.Equal(t, "attempt_2", snap.AttemptID)
}

func TestGatewayDeclined(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)

	snap, err := h.widget.handler.OnFailure(context.Background(), GatewayFailure{Code: "BAD_REQUEST_ERROR", Description: "Card declined"})

	assert.ErrorIs(t, err, ErrGatewayDeclined)
	assert.Equal(t, StateSettled, snap.State)
	assert.Equal(t, "Payment failed: Card declined", snap.Failure.Message)
	assert.True(t, snap.Enabled)
	_, _, verifies := h.backend.calls()
	assert.Zero(t, verifies)
}

func TestOrderRejectedSurfacesBackendMessage(t *testing.T) {
	h := newHarness(t)
	h.backend.orderErr = &client.BackendError{Op: "create order", StatusCode: 400, Message: "Vehicle is already sold"}
	h.backend.vehicle.Status = model.ListingSold

	snap, err := h.orch.Pay(context.Background(), intent())

	assert.ErrorIs(t, err, ErrOrderRejected)
	assert.Equal(t, "Vehicle is already sold", snap.Failure.Message)
	assert.Equal(t, model.ListingSold, snap.ListingStatus)
	assert.False(t, snap.Enabled)

	_, err = h.orch.Pay(context.Background(), intent())
	assert.ErrorIs(t, err, ErrListingSold)
	_, orders, _ := h.backend.calls()
	assert.Equal(t, 1, orders)
}

func TestOrderRejectedFallbackMessage(t *testing.T) {
	h := newHarness(t)
	h.backend.orderErr = errors.New("timeout")

	snap, err := h.orch.Pay(context.Background(), intent())

	assert.ErrorIs(t, err, ErrOrderRejected)
	assert.Equal(t, "Failed to create order", snap.Failure.Message)
	assert.True(t, snap.Enabled)
}

func TestSuccessRefreshesSoldListing(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)
	h.backend.vehicle.Status = model.ListingSold

	snap, err := h.widget.handler.OnSuccess(context.Background(), receipt1)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, snap.Outcome)
	assert.Equal(t, model.ListingSold, snap.ListingStatus)
	assert.False(t, snap.Enabled)
	assert.False(t, h.orch.Enabled())
}

func TestSoldIntentNeverContactsBackend(t *testing.T) {
	h := newHarness(t)
	in := intent()
	in.ListingStatus = model.ListingSold

	snap, err := h.orch.Pay(context.Background(), in)

	assert.ErrorIs(t, err, ErrListingSold)
	assert.False(t, snap.Enabled)
	keys, _, _ := h.backend.calls()
	assert.Zero(t, keys)
}

func TestSecondSuccessCallbackIsNoop(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)

	_, err = h.widget.handler.OnSuccess(context.Background(), receipt1)
	require.NoError(t, err)
	snap, err := h.widget.handler.OnSuccess(context.Background(), receipt1)
	require.NoError(t, err)

	_, _, verifies := h.backend.calls()
	assert.Equal(t, 1, verifies)
	assert.Equal(t, OutcomeSuccess, snap.Outcome)
}

func TestCallbacksAfterSettleAreIgnored(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)
	_, err = h.widget.handler.OnSuccess(context.Background(), receipt1)
	require.NoError(t, err)

	snap, err := h.widget.handler.OnFailure(context.Background(), GatewayFailure{Description: "late"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, snap.Outcome)

	snap, err = h.widget.handler.OnDismiss(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSettled, snap.State)
}

func TestReceiptAfterDeclineIsStillVerified(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)
	_, err = h.widget.handler.OnFailure(context.Background(), GatewayFailure{Description: "Card declined"})
	require.Error(t, err)

	snap, err := h.widget.handler.OnSuccess(context.Background(), receipt1)

	require.NoError(t, err)
	_, _, verifies := h.backend.calls()
	assert.Equal(t, 1, verifies)
	assert.Equal(t, OutcomeSuccess, snap.Outcome)
	assert.Nil(t, snap.Failure)
}

func TestRetriggerWhileInFlightIsNoop(t *testing.T) {
	h := newHarness(t)
	h.backend.keyGate = make(chan struct{})
	h.backend.keyHit = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Pay(context.Background(), intent())
		done <- err
	}()

	select {
	case <-h.backend.keyHit:
	case <-time.After(2 * time.Second):
		t.Fatal("key fetch never started")
	}

	snap, err := h.orch.Pay(context.Background(), intent())
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	assert.Equal(t, StateKeyFetching, snap.State)
	assert.False(t, snap.Enabled)

	close(h.backend.keyGate)
	require.NoError(t, <-done)

	keys, orders, _ := h.backend.calls()
	assert.Equal(t, 1, keys)
	assert.Equal(t, 1, orders)
	assert.Len(t, h.widget.cfgs, 1)
}

func TestRetriggerWhileWidgetOpenIsNoop(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)

	_, err = h.orch.Pay(context.Background(), intent())
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	_, orders, _ := h.backend.calls()
	assert.Equal(t, 1, orders)
}

func TestResultDiscardedAfterClose(t *testing.T) {
	h := newHarness(t)
	h.backend.keyGate = make(chan struct{})
	h.backend.keyHit = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Pay(context.Background(), intent())
		done <- err
	}()
	<-h.backend.keyHit

	h.orch.Close()
	close(h.backend.keyGate)

	assert.ErrorIs(t, <-done, ErrStaleAttempt)
	_, orders, _ := h.backend.calls()
	assert.Zero(t, orders)
	assert.Equal(t, StateKeyFetching, h.orch.Snapshot().State)
	assert.False(t, h.orch.Enabled())
}

func TestReceiptAfterCloseIsVerifiedButNotApplied(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)
	h.orch.Close()

	_, err = h.widget.handler.OnSuccess(context.Background(), receipt1)

	assert.ErrorIs(t, err, ErrStaleAttempt)
	_, _, verifies := h.backend.calls()
	assert.Equal(t, 1, verifies)
	assert.Equal(t, StateWidgetOpen, h.orch.Snapshot().State)
	assert.Equal(t, "SUCCESS", h.recorder.last().Outcome)
}

func TestWidgetOpenFailure(t *testing.T) {
	h := newHarness(t)
	h.widget.openErr = errors.New("checkout script failed to load")

	snap, err := h.orch.Pay(context.Background(), intent())

	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, StateSettled, snap.State)
	assert.Equal(t, "order_1", snap.Failure.OrderID)
	assert.True(t, snap.Enabled)
}

func TestDuplicateReceiptAcrossAttemptsIsNotReverified(t *testing.T) {
	h := newHarness(t)
	h.orch.deps.Receipts = &memGuard{seen: map[string]bool{"pay_1": true}}
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)

	snap, err := h.widget.handler.OnSuccess(context.Background(), receipt1)

	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, "order_1", snap.Failure.OrderID)
	_, _, verifies := h.backend.calls()
	assert.Zero(t, verifies)
}

func TestSuccessOnlyReachableThroughVerifying(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)
	_, err = h.widget.handler.OnSuccess(context.Background(), receipt1)
	require.NoError(t, err)

	var states []string
	for _, row := range h.recorder.rows {
		states = append(states, row.State)
	}
	assert.Equal(t, []string{"KEY_FETCHING", "ORDER_CREATING", "WIDGET_OPEN", "VERIFYING", "SETTLED"}, states)
}

func TestReceiptForAnotherOrderIsNotVerified(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)

	other := model.PaymentReceipt{OrderID: "order_OTHER", PaymentID: "pay_9", Signature: "sig_9"}
	snap, err := h.widget.handler.OnSuccess(context.Background(), other)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "order_1", cerr.OrderID)
	assert.Empty(t, h.backend.verifyCalls)

	assert.Equal(t, StateSettled, snap.State)
	assert.Equal(t, OutcomeFailure, snap.Outcome)
	require.NotNil(t, snap.Result)
	assert.False(t, snap.Result.Success)
	assert.True(t, snap.Enabled)
}

func TestBackendConfirmingDifferentOrderFailsVerification(t *testing.T) {
	h := newHarness(t)
	h.backend.confirmed = "order_OTHER"
	_, err := h.orch.Pay(context.Background(), intent())
	require.NoError(t, err)

	snap, err := h.widget.handler.OnSuccess(context.Background(), receipt1)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	require.Len(t, h.backend.verifyCalls, 1)
	assert.Equal(t, OutcomeFailure, snap.Outcome)
	require.NotNil(t, snap.Result)
	assert.False(t, snap.Result.Success)
	assert.Empty(t, snap.Result.ConfirmedOrderID)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, "order_1", snap.Failure.OrderID)
}
