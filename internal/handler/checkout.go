package handler

import (
	"errors"
	"fmt"
	"net/http"
	"vehicle-checkout/internal/checkout"
	"vehicle-checkout/internal/dto"
	"vehicle-checkout/internal/model"
	"vehicle-checkout/internal/service"
	"vehicle-checkout/internal/widget"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	scriptURL       string
}

func NewCheckoutHandler(checkoutService service.CheckoutService, scriptURL string) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		scriptURL:       scriptURL,
	}
}

func (h *CheckoutHandler) Pay(c echo.Context) error {
	ctx := c.Request().Context()
	vehicleID := c.Param("vehicleID")

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	resp, err := h.checkoutService.Pay(ctx, vehicleID, &req)
	return c.JSON(statusFor(err), resp)
}

func (h *CheckoutHandler) Status(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, h.checkoutService.Status(ctx, c.Param("vehicleID")))
}

// Release is called when the vehicle view goes away.
func (h *CheckoutHandler) Release(c echo.Context) error {
	h.checkoutService.Release(c.Param("vehicleID"))
	return c.NoContent(http.StatusNoContent)
}

func (h *CheckoutHandler) HandleSuccess(c echo.Context) error {
	ctx := c.Request().Context()

	var receipt model.PaymentReceipt
	if err := c.Bind(&receipt); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid receipt")
	}

	resp, err := h.checkoutService.WidgetSuccess(ctx, c.Param("attemptID"), receipt)
	return c.JSON(statusFor(err), resp)
}

func (h *CheckoutHandler) HandleFailure(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.GatewayFailureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid failure payload")
	}

	resp, err := h.checkoutService.WidgetFailure(ctx, c.Param("attemptID"), checkout.GatewayFailure{
		Code:        req.Error.Code,
		Description: req.Error.Description,
		Reason:      req.Error.Reason,
	})
	return c.JSON(statusFor(err), resp)
}

func (h *CheckoutHandler) HandleDismiss(c echo.Context) error {
	ctx := c.Request().Context()

	resp, err := h.checkoutService.WidgetDismiss(ctx, c.Param("attemptID"))
	return c.JSON(statusFor(err), resp)
}

func (h *CheckoutHandler) AttemptsByOrder(c echo.Context) error {
	ctx := c.Request().Context()

	attempts, err := h.checkoutService.AttemptsByOrder(ctx, c.Param("orderID"))
	if err != nil {
		return fmt.Errorf("attempts by order: %w", err)
	}

	return c.JSON(http.StatusOK, attempts)
}

func (h *CheckoutHandler) AttemptsByVehicle(c echo.Context) error {
	ctx := c.Request().Context()

	attempts, err := h.checkoutService.AttemptsByVehicle(ctx, c.Param("vehicleID"))
	if err != nil {
		return fmt.Errorf("attempts by vehicle: %w", err)
	}

	return c.JSON(http.StatusOK, attempts)
}

func (h *CheckoutHandler) Attempt(c echo.Context) error {
	ctx := c.Request().Context()

	attempt, err := h.checkoutService.Attempt(ctx, c.Param("attemptID"))
	if errors.Is(err, service.ErrAttemptNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return fmt.Errorf("attempt: %w", err)
	}

	return c.JSON(http.StatusOK, attempt)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, checkout.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrOrderRejected),
		errors.Is(err, checkout.ErrCheckoutInProgress),
		errors.Is(err, checkout.ErrListingSold):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrGatewayDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, checkout.ErrGatewayUnavailable),
		errors.Is(err, checkout.ErrVerificationFailed):
		return http.StatusBadGateway
	case errors.Is(err, checkout.ErrStaleAttempt), errors.Is(err, checkout.ErrClosed):
		return http.StatusGone
	case errors.Is(err, widget.ErrNoPendingCheckout):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
