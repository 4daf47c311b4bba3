package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/migueandres1/ORS-SER-dashboard/internal/amqp"
	"github.com/migueandres1/ORS-SER-dashboard/internal/cli"
	"github.com/migueandres1/ORS-SER-dashboard/internal/config"
	applog "github.com/migueandres1/ORS-SER-dashboard/internal/log"
	"github.com/migueandres1/ORS-SER-dashboard/internal/sheets/google"
	"github.com/migueandres1/ORS-SER-dashboard/internal/worker"
)

func main() {
	logger := cli.SetupLogger().WithComponent(applog.ComponentWorker)
	cli.LoadEnvFile()

	cfg := cli.LoadConfig(logger, (*config.Config).ValidateMirror)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err, "url", cfg.AMQPURL)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mirror, err := google.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets mirror", "error", err)
		os.Exit(1)
	}

	w := worker.NewMirrorWorker(repo, mirror)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Consume(gctx, func(event amqp.BatchEvent) error {
			return w.HandleEvent(gctx, event)
		})
	})

	logger.Info("Mirror worker started",
		"queue", cfg.AMQPQueue,
		"spreadsheet_id", cfg.MirrorSpreadsheetID,
		"sheet", cfg.MirrorSheetName)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Mirror worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Mirror worker stopped gracefully")
}
