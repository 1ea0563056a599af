package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"vehicle-checkout/internal/checkout"
	"vehicle-checkout/internal/client"
	"vehicle-checkout/internal/config"
	"vehicle-checkout/internal/logger"
	"vehicle-checkout/internal/metrics"
	"vehicle-checkout/internal/repository"
	"vehicle-checkout/internal/server"
	"vehicle-checkout/internal/service"
	"vehicle-checkout/internal/session"
	"vehicle-checkout/internal/widget"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log, "checkout")

	db, err := client.InitDBClient(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	backendClient := client.NewBackendClient(&cfg.Backend)

	sessionRepo := repository.NewSessionRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)

	store := session.NewStore(sessionRepo, log)
	if err := store.Restore(context.Background()); err != nil {
		log.Warnf("restore session: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)

	browser := widget.NewBrowser(log)
	registry := checkout.NewRegistry(checkout.Dependencies{
		Backend:  backendClient,
		Listings: backendClient,
		Session:  store,
		Widget:   browser,
		Display: checkout.Display{
			MerchantName: cfg.Checkout.MerchantName,
			LogoURL:      cfg.Checkout.LogoURL,
			ThemeColor:   cfg.Checkout.ThemeColor,
		},
		Recorder: attemptRepo,
		Receipts: receiptRepo,
		Observer: checkoutMetrics,
		Logger:   log,
	})

	checkoutService := service.NewCheckoutService(registry, browser, attemptRepo)
	sessionService := service.NewSessionService(store, registry)

	// Init HTTP server
	srv := server.NewServer(checkoutService, sessionService, log, server.Options{
		ScriptURL: cfg.Checkout.ScriptURL,
		RateLimit: cfg.Checkout.RateLimit,
		Metrics:   checkoutMetrics.Handler(),
	})

	serverAddr := cfg.Addr()
	log.Infof("Starting HTTP server on %s (env=%s, backend=%s)", serverAddr, cfg.Environment.Name, cfg.Backend.APIURL)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("Signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	registry.ReleaseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server shutdown error: %v", err)
	}
}
