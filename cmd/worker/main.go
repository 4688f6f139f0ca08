package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"

	"github.com/mjansen/boekhouding/internal/config"
	"github.com/mjansen/boekhouding/internal/gcsuploader"
	infraBQ "github.com/mjansen/boekhouding/internal/infra/bigquery"
	"github.com/mjansen/boekhouding/internal/jobs/inmemory"
	"github.com/mjansen/boekhouding/internal/logger"
	"github.com/mjansen/boekhouding/internal/receipts"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storageClient.Close()
	fetcher := gcsuploader.NewService(storageClient, cfg.Bucket)

	// The in-memory queue only sees jobs published in this process. A
	// deployment wanting a standalone worker swaps in a shared queue
	// implementation such as Cloud Tasks behind the same interfaces.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	extractor := receipts.NewGeminiExtractor(cfg.GeminiModel, cfg.OracleTimeout)
	receiptService := receipts.NewService(repo, fetcher, extractor, repo, log)

	log.Info().Msg("Starting worker service")

	if err := jobQueue.Start(ctx, receiptService.ProcessJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
