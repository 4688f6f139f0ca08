package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/storage"

	"github.com/mjansen/boekhouding/internal/api/handlers"
	"github.com/mjansen/boekhouding/internal/api/middleware"
	"github.com/mjansen/boekhouding/internal/categorize"
	"github.com/mjansen/boekhouding/internal/config"
	"github.com/mjansen/boekhouding/internal/gcsuploader"
	"github.com/mjansen/boekhouding/internal/importer"
	infraBQ "github.com/mjansen/boekhouding/internal/infra/bigquery"
	"github.com/mjansen/boekhouding/internal/invoice"
	"github.com/mjansen/boekhouding/internal/jobs/inmemory"
	"github.com/mjansen/boekhouding/internal/logger"
	"github.com/mjansen/boekhouding/internal/receipts"
	"github.com/mjansen/boekhouding/internal/reports"
)

func main() {
	port := flag.String("port", "", "HTTP server port (overrides PORT env)")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}
	if cfg.Bucket == "" {
		log.Warn().Msg("No GCS bucket configured - receipt uploads will fail")
	}
	if len(cfg.APITokens) == 0 {
		log.Warn().Msg("No API tokens configured - running in development mode as user demo")
	}

	ctx := context.Background()

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
	uploader := gcsuploader.NewService(storageClient, cfg.Bucket)

	// Job infrastructure and the receipt extraction worker run in-process.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	extractor := receipts.NewGeminiExtractor(cfg.GeminiModel, cfg.OracleTimeout)
	receiptService := receipts.NewService(repo, uploader, extractor, repo, log)

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, receiptService.ProcessJob); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Domain services.
	oracle := categorize.NewGeminiOracle(cfg.GeminiModel, cfg.OracleTimeout)
	engine := categorize.NewEngine(oracle, repo, repo, log)
	committer := importer.NewCommitter(repo, log)
	btwEngine := reports.NewBTWEngine(repo, log)
	ibEngine := reports.NewIBEngine(repo, log)
	invoiceService := invoice.NewService(repo, log)

	// Handlers.
	importsHandler := handlers.NewImportsHandler(engine, committer, log)
	transactionsHandler := handlers.NewTransactionsHandler(repo, log)
	reportsHandler := handlers.NewReportsHandler(btwEngine, ibEngine, log)
	receiptsHandler := handlers.NewReceiptsHandler(repo, uploader, jobQueue, receiptService, log)
	invoicesHandler := handlers.NewInvoicesHandler(invoiceService, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	// Import wizard endpoints
	mux.HandleFunc("/api/v1/import/parse", postOnly(importsHandler.ParseStatement))
	mux.HandleFunc("/api/v1/import/categorize", postOnly(importsHandler.Categorize))
	mux.HandleFunc("/api/v1/import/commit", postOnly(importsHandler.Commit))

	// Transactions endpoints
	mux.HandleFunc("/api/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.List(w, r)
		case http.MethodPost:
			transactionsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})
	mux.HandleFunc("/api/v1/transactions/", func(w http.ResponseWriter, r *http.Request) {
		transactionID := strings.TrimPrefix(r.URL.Path, "/api/v1/transactions/")
		if transactionID == "" || strings.Contains(transactionID, "/") {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.Get(w, r, transactionID)
		case http.MethodPut:
			transactionsHandler.Update(w, r, transactionID)
		case http.MethodDelete:
			transactionsHandler.Delete(w, r, transactionID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Reports endpoints
	mux.HandleFunc("/api/v1/reports/btw", getOnly(reportsHandler.BTW))
	mux.HandleFunc("/api/v1/reports/ib", getOnly(reportsHandler.IB))

	// Receipts endpoints
	mux.HandleFunc("/api/v1/receipts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			receiptsHandler.List(w, r)
		case http.MethodPost:
			receiptsHandler.Upload(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})
	mux.HandleFunc("/api/v1/receipts/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/receipts/")
		switch {
		case strings.HasSuffix(rest, "/approve") && r.Method == http.MethodPost:
			receiptID := strings.TrimSuffix(rest, "/approve")
			if receiptID == "" || strings.Contains(receiptID, "/") {
				middleware.WriteError(w, http.StatusNotFound, "Not found")
				return
			}
			receiptsHandler.Approve(w, r, receiptID)
		case r.Method == http.MethodGet:
			if rest == "" || strings.Contains(rest, "/") {
				middleware.WriteError(w, http.StatusNotFound, "Not found")
				return
			}
			receiptsHandler.Get(w, r, rest)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Invoices endpoints
	mux.HandleFunc("/api/v1/invoices", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			invoicesHandler.List(w, r)
		case http.MethodPost:
			invoicesHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})
	mux.HandleFunc("/api/v1/invoices/", func(w http.ResponseWriter, r *http.Request) {
		invoiceID := strings.TrimPrefix(r.URL.Path, "/api/v1/invoices/")
		if invoiceID == "" || strings.Contains(invoiceID, "/") {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			invoicesHandler.Get(w, r, invoiceID)
		case http.MethodPut:
			invoicesHandler.UpdateStatus(w, r, invoiceID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/v1/jobs", getOnly(jobsHandler.ListJobs))
	mux.HandleFunc("/api/v1/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	// Health check endpoint
	mux.HandleFunc("/healthz", handlers.Health)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(cfg.APITokens)(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

func postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
