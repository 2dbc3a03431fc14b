package main

import (
	"context"
	"fmt"
	"locals-bot/contract"
	"locals-bot/conversation"
	"locals-bot/infrastructure/telegram"
	"locals-bot/infrastructure/webhook"
	"locals-bot/menu"
	"locals-bot/repositories"
	"locals-bot/runtime"
	"locals-bot/runtime/workers"
	"locals-bot/services"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Entity store (SQLite)
	sqlDB, err := repositories.OpenSQLite(config.DatabasePath)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Closing SQLite...")
		_ = sqlDB.Close()
	}()
	if err := repositories.Migrate(ctx, sqlDB); err != nil {
		return err
	}

	// 3. Session store (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 4. Conversation engine
	client, err := telegram.NewClient(config.TelegramAPIURL, config.TelegramToken, config.RequestTimeout, config.PollTimeout, log)
	if err != nil {
		return err
	}
	localService := services.NewLocalService(
		repositories.NewEntityRepository(sqlDB, log),
		services.Options{
			FirstOctet:           byte(config.AddressFirstOctet),
			MaxBlockAttempts:     config.MaxBlockAttempts,
			MaxAllocationRetries: config.MaxAllocationRetries,
		},
		log,
	)
	engine := conversation.NewEngine(
		repositories.NewSessionRepository(db, log),
		localService,
		menu.NewRenderer(client, log),
		services.DefaultRand,
		log,
	)

	orchestrator := runtime.NewOrchestrator(log, engine,
		config.NumberOfWorkers, config.BufferSize, config.HandlerTimeout, config.RestartInterval)

	// 5. Ingress
	ingress, err := newIngress(ctx, config, client, orchestrator.Dispatcher(), log.With("component", "ingress"))
	if err != nil {
		return err
	}
	orchestrator.Start(ctx, ingress)
	log.Info("Bot started", "webhook", config.WebhookMode(), "workers", config.NumberOfWorkers)

	// 6. Wait for a signal, then drain
	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	if err := orchestrator.Stop(config.ShutdownTimeout); err != nil {
		log.Warn("Shutdown incomplete", "error", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}

func newIngress(ctx context.Context, config Config, client *telegram.Client, dispatcher contract.Dispatcher, log *slog.Logger) (contract.Worker, error) {
	if config.WebhookMode() {
		if err := client.SetWebhook(ctx, config.WebhookURL, config.WebhookSecret); err != nil {
			return nil, fmt.Errorf("set webhook: %w", err)
		}
		return webhook.NewServer(config.WebhookAddr, config.WebhookSecret, dispatcher, config.ShutdownTimeout, log), nil
	}
	// getUpdates is refused while a webhook is registered.
	if err := client.DeleteWebhook(ctx); err != nil {
		return nil, fmt.Errorf("delete webhook: %w", err)
	}
	return workers.NewUpdatePoller(client, dispatcher, log), nil
}
