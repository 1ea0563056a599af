package handler

import (
	"errors"
	"net/http"
	"vehicle-checkout/internal/dto"
	"vehicle-checkout/internal/service"
	"vehicle-checkout/internal/session"

	"github.com/labstack/echo/v4"
)

type SessionHandler struct {
	sessionService service.SessionService
}

func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

func (h *SessionHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	resp, err := h.sessionService.Login(ctx, &req)
	if err != nil {
		if errors.Is(err, session.ErrEmptyToken) {
			return echo.NewHTTPError(http.StatusBadRequest, "token is required")
		}
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.sessionService.Logout(ctx); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *SessionHandler) Current(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessionService.Current(c.Request().Context()))
}
