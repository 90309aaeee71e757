package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expirygenie/internal/amqp"
	"expirygenie/internal/cli"
	applog "expirygenie/internal/log"
	"expirygenie/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentReminder)
	logger.Info("Starting genie-reminder")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required - reminders are delivered over the message bus")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPReminderQueue)
	defer amqpClient.Close()

	processor := services.NewReminderProcessor(repo, amqpClient, cfg.SoonWindowDays)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runScan := func() {
		scanCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		sent, err := processor.Run(scanCtx)
		if err != nil {
			logger.Error("Reminder scan failed", "error", err)
			return
		}
		logger.Info("Reminder scan complete", "reminders_sent", sent)
	}

	// Scan immediately on startup, then on the configured interval.
	runScan()

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Reminder daemon stopped")
			return
		case <-ticker.C:
			runScan()
		}
	}
}
