package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/gistify/internal/api/handlers"
	"github.com/cloo-solutions/gistify/internal/api/middleware"
	"github.com/cloo-solutions/gistify/internal/cli"
	"github.com/cloo-solutions/gistify/internal/config"
	"github.com/cloo-solutions/gistify/internal/database"
	"github.com/cloo-solutions/gistify/internal/jobs"
	"github.com/cloo-solutions/gistify/internal/logger"
	"github.com/cloo-solutions/gistify/internal/metrics"
	"github.com/cloo-solutions/gistify/internal/repository"
	"github.com/cloo-solutions/gistify/internal/server"
	"github.com/cloo-solutions/gistify/internal/service"
	"github.com/cloo-solutions/gistify/internal/storage"
	"github.com/cloo-solutions/gistify/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the gistify API server: document upload, summaries and question answering over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, version)
		},
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides GISTIFY_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", database.DefaultMigrationsSource, "Migration source URL")

	return cmd
}

func runServe(cmd *cobra.Command, version string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	if !cfg.HasDatabase() {
		return errors.New("GISTIFY_DATABASE_URL is required to serve")
	}

	log := cli.NewLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	// Full sampling outside production.
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}
	shutdownTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Warn("telemetry init failed, continuing without tracing", "error", err)
	} else {
		defer shutdownTelemetry()
	}

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		source, _ := cmd.Flags().GetString("migrations")
		if err := database.MigrateUp(ctx, cfg.DatabaseURL, source); err != nil {
			return err
		}
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info("connected to database")

	var objects service.StorageClientInterface
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Info("object storage ready", "bucket", cfg.S3Bucket)
		objects = s3Client
	} else {
		log.Warn("object storage not configured, originals will not be kept")
	}

	embedder, generator, err := cli.NewModels(cfg)
	if err != nil {
		return err
	}
	pipelineCfg, err := cli.NewPipelineConfig(cfg)
	if err != nil {
		return err
	}
	m := metrics.New()

	documents := repository.NewDocumentRepository(pool)
	summaries := repository.NewSummaryRepository(pool)
	pipeline := service.NewPipeline(embedder, repository.NewChunkRepository(pool), generator, documents, summaries, pipelineCfg, m)
	documentSvc := service.NewDocumentService(documents, summaries, objects, pipeline)

	if cfg.HasRetention() {
		sweeper := jobs.NewWorker("retention", jobs.NewRetentionSweeper(documentSvc, cfg.Retention), cfg.SweepInterval).RunOnStart()
		go sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	var auth middleware.AuthValidator
	if cfg.APIKey != "" {
		auth = service.NewStaticKeyAuth(cfg.APIKey)
	} else {
		log.Warn("GISTIFY_API_KEY not set, API is unauthenticated")
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.NewRouter(server.RouterConfig{
			AuthValidator:   auth,
			Logger:          log,
			MaxBodyBytes:    cfg.MaxUploadBytes,
			Metrics:         m.Handler(),
			DocumentHandler: handlers.NewDocumentHandler(documentSvc),
			PipelineHandler: handlers.NewPipelineHandler(pipeline, documentSvc),
			Version:         version,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.Port, "generator", cfg.Generator, "embedder", cfg.Embedder)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
