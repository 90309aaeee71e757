package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expirygenie/internal/amqp"
	"expirygenie/internal/auth"
	"expirygenie/internal/backend"
	"expirygenie/internal/cli"
	"expirygenie/internal/gemini"
	apphttp "expirygenie/internal/http"
	applog "expirygenie/internal/log"
	"expirygenie/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result, err := backend.NewFactory(logger.Logger).Create(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	// AMQP is optional: without it items simply aren't exported.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" && result.SQLite != nil {
		amqpClient := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue)
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPSyncQueue)
	} else {
		logger.Info("AMQP disabled - item export sync is off")
	}

	// Gemini is optional: without it the AI routes answer 503.
	var (
		extractor gemini.Extractor
		advisor   gemini.Advisor
	)
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		extractor, advisor = client, client
		logger.Info("Gemini client initialized", "model", cfg.GeminiModel)
	} else {
		logger.Info("Gemini disabled - no GEMINI_API_KEY provided")
	}

	itemService := services.NewItemService(result.Store, result.Predictor, publisher)
	sessions := auth.NewSessions(10000, cfg.SessionTTL)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:   sessions,
		Users:      result.Store,
		Items:      itemService,
		Extractor:  extractor,
		Advisor:    advisor,
		SoonWindow: cfg.SoonWindowDays,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting genie server",
		slog.String("port", cfg.Port), slog.String("backend", cfg.DataBackend))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
