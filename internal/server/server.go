package server

import (
	"context"
	"net/http"
	"vehicle-checkout/internal/handler"
	"vehicle-checkout/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"
)

type Options struct {
	ScriptURL string
	RateLimit float64
	Metrics   http.Handler
}

type Server struct {
	echo            *echo.Echo
	checkoutHandler *handler.CheckoutHandler
	sessionHandler  *handler.SessionHandler
	metrics         http.Handler
	rateLimit       float64
}

func NewServer(checkoutService service.CheckoutService, sessionService service.SessionService, logger *log.Logger, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Logger = logger

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Infof("%s %s status=%d latency=%s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		checkoutHandler: handler.NewCheckoutHandler(checkoutService, opts.ScriptURL),
		sessionHandler:  handler.NewSessionHandler(sessionService),
		metrics:         opts.Metrics,
		rateLimit:       opts.RateLimit,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics))
	}

	// -------- session --------
	api.GET("/session", s.sessionHandler.Current)
	api.POST("/session", s.sessionHandler.Login)
	api.DELETE("/session", s.sessionHandler.Logout)

	// -------- checkout trigger --------
	vehicles := api.Group("/vehicles")
	if s.rateLimit > 0 {
		vehicles.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.rateLimit))))
	}
	vehicles.POST("/:vehicleID/checkout", s.checkoutHandler.Pay)
	vehicles.GET("/:vehicleID/checkout", s.checkoutHandler.Status)
	vehicles.DELETE("/:vehicleID/checkout", s.checkoutHandler.Release)

	// -------- widget page / callbacks --------
	s.echo.GET("/checkout/:attemptID", s.checkoutHandler.CheckoutPage)
	callbacks := api.Group("/checkout/:attemptID")
	callbacks.POST("/success", s.checkoutHandler.HandleSuccess)
	callbacks.POST("/failure", s.checkoutHandler.HandleFailure)
	callbacks.POST("/dismiss", s.checkoutHandler.HandleDismiss)

	// -------- support --------
	api.GET("/orders/:orderID/attempts", s.checkoutHandler.AttemptsByOrder)
	api.GET("/vehicles/:vehicleID/attempts", s.checkoutHandler.AttemptsByVehicle)
	api.GET("/attempts/:attemptID", s.checkoutHandler.Attempt)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
