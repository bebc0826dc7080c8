// Command ecas-notifier performs one check of the IRCC eCAS case-status
// portal, emails a summary of the current status and case history, and
// persists the status for change detection on the next run. Scheduling is
// external: run it from cron or a Cloud Scheduler job.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"ecas-notifier/check"
	"ecas-notifier/config"
	"ecas-notifier/email"
	"ecas-notifier/scraper"
	"ecas-notifier/storage"
)

func main() {
	ctx := context.Background()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})).With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Configuration invalid", "error", err)
		os.Exit(1)
	}

	store, closeStore, err := initStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	portal, err := scraper.New(scraper.DefaultBaseURL, cfg.Credentials, logger)
	if err != nil {
		logger.Error("Failed to initialize portal client", "error", err)
		os.Exit(1)
	}

	provider, err := initProvider(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize email provider", "error", err)
		os.Exit(1)
	}
	sender := email.New(provider, cfg.Mail.To, logger)

	checker := check.New(portal, store, sender, logger)

	summary, err := checker.Run(ctx)
	if err != nil {
		logger.Error("Check failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("OK - emailed %s; status='%s'; changed=%t\n", cfg.Mail.To, summary.Status, summary.Changed)
}

// initStore builds the state store: a Cloud Storage bucket when configured,
// the local state directory otherwise.
func initStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.Store, func(), error) {
	if cfg.StorageBucket == "" {
		if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create state directory: %w", err)
		}
		logger.Info("Using local state directory", "path", cfg.StateDir)
		return storage.New(nil, "", cfg.StateDir, logger), func() {}, nil
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	logger.Info("Using Cloud Storage bucket", "bucket", cfg.StorageBucket)

	closeClient := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close storage client", "error", err)
		}
	}
	return storage.New(client, cfg.StorageBucket, "", logger), closeClient, nil
}

// initProvider selects the delivery provider: mock for local runs, Gmail API
// when a credential is supplied, authenticated SMTP otherwise.
func initProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (email.Provider, error) {
	if cfg.MockEmail {
		logger.Info("Mock email mode enabled")
		return email.NewMockProvider(logger), nil
	}

	if cfg.GoogleCredentialsJSON != "" {
		service, err := gmail.NewService(ctx, option.WithCredentialsJSON([]byte(cfg.GoogleCredentialsJSON)))
		if err != nil {
			return nil, fmt.Errorf("create gmail service: %w", err)
		}
		logger.Info("Using Gmail API provider")
		return email.NewGmailProvider(service, logger), nil
	}

	logger.Info("Using SMTP provider", "server", cfg.Mail.Server, "port", cfg.Mail.Port)
	return email.NewSMTPProvider(cfg.Mail.Server, cfg.Mail.Port, cfg.Mail.Sender, cfg.Mail.Password, cfg.Mail.Sender, logger), nil
}
