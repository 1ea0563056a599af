package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"vehicle-checkout/internal/config"
	"vehicle-checkout/internal/dto"
	"vehicle-checkout/internal/model"
)

var (
	// ErrUnsuccessful is returned when the backend answers but reports success=false.
	ErrUnsuccessful = errors.New("backend reported failure")
	ErrMissingKey   = errors.New("backend returned no gateway key")
)

// BackendError keeps the backend's own message so callers can surface it verbatim.
type BackendError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status=%d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status=%d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *BackendError) Unwrap() error {
	return ErrUnsuccessful
}

type BackendClient interface {
	GetKey(ctx context.Context, token string) (string, error)
	CreateOrder(ctx context.Context, token, vehicleID string) (*model.OrderToken, error)
	VerifyPayment(ctx context.Context, token string, receipt model.PaymentReceipt) (string, error)
	GetVehicle(ctx context.Context, vehicleID string) (*model.Vehicle, error)
}

type backendClientImpl struct {
	httpClient *http.Client
	apiURL     string
}

func NewBackendClient(cfg *config.Backend) BackendClient {
	return &backendClientImpl{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
	}
}

func (c *backendClientImpl) GetKey(ctx context.Context, token string) (string, error) {
	var res dto.KeyResponse
	status, err := c.do(ctx, http.MethodGet, "/payments/key", token, nil, &res)
	if err != nil {
		return "", fmt.Errorf("get gateway key: %w", err)
	}
	if !res.Success {
		return "", &BackendError{Op: "get gateway key", StatusCode: status, Message: res.Message}
	}
	if res.Key == "" {
		return "", ErrMissingKey
	}

	return res.Key, nil
}

func (c *backendClientImpl) CreateOrder(ctx context.Context, token, vehicleID string) (*model.OrderToken, error) {
	var res dto.CreateOrderResponse
	status, err := c.do(ctx, http.MethodPost, "/payments/create-order", token,
		&dto.CreateOrderRequest{VehicleID: vehicleID}, &res)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if !res.Success || res.Data == nil || res.Data.ID == "" {
		return nil, &BackendError{Op: "create order", StatusCode: status, Message: res.Message}
	}

	return &model.OrderToken{
		OrderID:  res.Data.ID,
		Amount:   res.Data.Amount,
		Currency: res.Data.Currency,
	}, nil
}

func (c *backendClientImpl) VerifyPayment(ctx context.Context, token string, receipt model.PaymentReceipt) (string, error) {
	req := &dto.VerifyPaymentRequest{
		RazorpayOrderID:   receipt.OrderID,
		RazorpayPaymentID: receipt.PaymentID,
		RazorpaySignature: receipt.Signature,
	}

	var res dto.VerifyPaymentResponse
	status, err := c.do(ctx, http.MethodPost, "/payments/verify-payment", token, req, &res)
	if err != nil {
		return "", fmt.Errorf("verify payment: %w", err)
	}
	if !res.Success {
		return "", &BackendError{Op: "verify payment", StatusCode: status, Message: res.Message}
	}
	if res.Data == nil {
		return "", nil
	}

	return res.Data.OrderID, nil
}

func (c *backendClientImpl) GetVehicle(ctx context.Context, vehicleID string) (*model.Vehicle, error) {
	var res dto.VehicleResponse
	status, err := c.do(ctx, http.MethodGet, "/vehicles/"+url.PathEscape(vehicleID), "", nil, &res)
	if err != nil {
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	if !res.Success || res.Data == nil {
		return nil, &BackendError{Op: "get vehicle", StatusCode: status, Message: res.Message}
	}

	return &model.Vehicle{
		ID:     res.Data.ID,
		Title:  res.Data.Title,
		Brand:  res.Data.Brand,
		Model:  res.Data.Model,
		Price:  res.Data.Price,
		Status: model.ParseListingStatus(res.Data.Status),
	}, nil
}

// do sends one request and decodes the envelope. Non-2xx bodies are still
// decoded because the backend puts its user-facing message there.
func (c *backendClientImpl) do(ctx context.Context, method, path, token string, payload, out interface{}) (int, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp.StatusCode, &BackendError{Op: method + " " + path, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return resp.StatusCode, fmt.Errorf("decode backend response: %w", err)
	}

	return resp.StatusCode, nil
}
