package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gallery-checkout/internal/client"
	"gallery-checkout/internal/config"
	"gallery-checkout/internal/currency"
	"gallery-checkout/internal/logger"
	"gallery-checkout/internal/repository"
	"gallery-checkout/internal/server"
	"gallery-checkout/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
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

	log := logger.New(os.Stdout, cfg.Log)

	db, err := client.OpenDatabase(cfg.Database, log)
	if err != nil {
		log.Error("database init failed", "driver", cfg.Database.Driver, "err", err)
		os.Exit(1)
	}

	razorpayClient := client.NewRazorpayClient(&cfg.Razorpay)
	if !cfg.Razorpay.Configured() {
		// server still starts; checkout endpoints answer with a configuration error
		log.Error("razorpay credentials missing", "key_id", logger.MaskKey(cfg.Razorpay.KeyID))
	} else {
		log.Info("razorpay configured", "key_id", logger.MaskKey(cfg.Razorpay.KeyID))
	}

	converter, err := currency.NewConverter(
		cfg.Currency.Base,
		cfg.Currency.StaticRates,
		client.NewRatesClient(cfg.Currency.RatesURL),
		cfg.Currency.RatesTTL,
		log,
	)
	if err != nil {
		log.Error("currency converter init failed", "err", err)
		os.Exit(1)
	}

	orderRepo := repository.NewOrderRepository(db)
	paymentEventRepo := repository.NewPaymentEventRepository(db)
	artworkRepo := repository.NewArtworkRepository(db)

	paymentService := service.NewPaymentService(
		db,
		razorpayClient,
		converter.Base(),
		orderRepo,
		paymentEventRepo,
		log,
	)
	artworkService := service.NewArtworkService(artworkRepo, log)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(paymentService, artworkService, converter, cfg.RateLimit, log)

	log.Info("starting HTTP server", "addr", serverAddr, "environment", cfg.Environment.Name)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "err", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "err", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
