package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"LinkVault/internal/app"
	"LinkVault/internal/config"
	"LinkVault/internal/logging"
	"LinkVault/internal/usecase"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	command := "worker"
	args := os.Args[1:]
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "worker":
		err = application.RunWorker(ctx)
	case "submit":
		err = runSubmit(ctx, application, args)
	case "requeue":
		var count int
		if count, err = application.Retry.RequeueFailed(ctx); err == nil {
			logger.Info("requeue finished", "count", count)
		}
	case "embed-missing":
		fs := flag.NewFlagSet("embed-missing", flag.ExitOnError)
		limit := fs.Int("limit", 0, "maximum records to backfill")
		_ = fs.Parse(args)
		var count int
		if count, err = application.Retry.EmbedMissing(ctx, *limit); err == nil {
			logger.Info("embedding backfill finished", "count", count)
		}
	default:
		err = fmt.Errorf("unknown command %q (expected worker, submit, requeue, or embed-missing)", command)
	}

	if err != nil {
		logger.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func runSubmit(ctx context.Context, application *app.Application, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	rawURL := fs.String("url", "", "URL to capture")
	notes := fs.String("notes", "", "optional notes")
	userID := fs.String("user", "", "owning user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *rawURL == "" || *userID == "" {
		return fmt.Errorf("submit requires -url and -user")
	}

	result, err := application.Captures.Submit(ctx, usecase.SubmitRequest{
		URL:    *rawURL,
		Notes:  *notes,
		UserID: *userID,
	})
	if err != nil {
		return err
	}

	fmt.Printf("captured %s (%s) as %s\n", result.ID, result.SourceType, result.Status)
	return nil
}
