package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/pdf-service/internal/api"
	"github.com/yourorg/pdf-service/pkg/artifact"
	"github.com/yourorg/pdf-service/pkg/blobclient"
	"github.com/yourorg/pdf-service/pkg/config"
	"github.com/yourorg/pdf-service/pkg/convert"
	"github.com/yourorg/pdf-service/pkg/db"
	"github.com/yourorg/pdf-service/pkg/httpservice"
	"github.com/yourorg/pdf-service/pkg/jwt"
	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/ocr"
	"github.com/yourorg/pdf-service/pkg/ocr/tesseract"
	"github.com/yourorg/pdf-service/pkg/pdfcodec"
	"github.com/yourorg/pdf-service/pkg/pdfops"
	"github.com/yourorg/pdf-service/pkg/raster/mupdf"
	"github.com/yourorg/pdf-service/pkg/servicebusclient"
	"github.com/yourorg/pdf-service/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(logger)

	logger.Info("Starting PDF service",
		logging.NewField("version", cfg.AppVersion),
		logging.NewField("environment", cfg.Environment),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("Service stopped with error", logging.NewField("error", err))
		logging.Sync(logger)
		os.Exit(1)
	}
}

// loadConfig layers the environment over ENV_FILE (default .env, skipped
// when absent) over CONFIG_FILE when set.
func loadConfig() (*config.Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	return config.Load(os.Getenv("CONFIG_FILE"), envFile)
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Create blob client (in memory for local development)
	var blobClient blobclient.BlobClient
	if cfg.BlobStorageAccountName == "" {
		logger.Info("Using in-memory blob storage (no account name configured)")
		blobClient = blobclient.NewMemoryBlobClient()
	} else {
		azureBlob, err := blobclient.NewAzureBlobClient(
			cfg.BlobStorageAccountName,
			cfg.BlobStorageAccountKey,
			cfg.BlobAccessTier,
			logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create blob client: %w", err)
		}
		blobClient = azureBlob
	}

	// Create Service Bus client (in memory for local development)
	var busClient servicebusclient.ServiceBusClient
	if cfg.ServiceBusNamespace == "" {
		logger.Info("Using in-memory Service Bus (no namespace configured)")
		busClient = servicebusclient.NewMemoryServiceBusClient()
	} else {
		azureBus, err := servicebusclient.NewAzureServiceBusClient(
			cfg.ServiceBusNamespace,
			cfg.ServiceBusKeyName,
			cfg.ServiceBusKeyValue,
			false,
			logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create Service Bus client: %w", err)
		}
		busClient = azureBus
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := busClient.Close(closeCtx); err != nil {
			logger.Warn("Failed to close Service Bus client", logging.NewField("error", err))
		}
	}()

	// Artifact records live in Postgres when a DSN is configured
	var (
		repo  artifact.Repository
		ready func(ctx context.Context) error
	)
	if cfg.DatabaseDSN == "" {
		logger.Info("Using in-memory artifact records (no database configured)")
		repo = artifact.NewMemoryRepository()
	} else {
		database, err := db.NewPostgresDB(ctx, cfg.DatabaseDSN, cfg.DatabaseMaxOpenConns)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		pgRepo, err := artifact.NewPostgresRepository(ctx, database)
		if err != nil {
			return fmt.Errorf("failed to prepare artifact table: %w", err)
		}
		repo = pgRepo
		ready = database.Ping
	}

	// Telemetry
	newRelic, err := telemetry.NewNewRelicClient(telemetry.NewRelicConfig{
		LicenseKey:  cfg.NewRelicLicense,
		AppName:     cfg.AppName,
		ServiceName: cfg.AppName,
		Enabled:     cfg.NewRelicLicense != "",
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to start New Relic: %w", err)
	}
	defer newRelic.Shutdown(10 * time.Second)

	slack := telemetry.NewSlackClient(telemetry.SlackConfig{
		WebhookURL:  cfg.SlackWebhookURL,
		ServiceName: cfg.AppName,
		Enabled:     cfg.SlackWebhookURL != "",
	}, logger)

	// Events go to the topic when one is configured, the queue otherwise
	destination := cfg.ServiceBusQueue
	if cfg.ServiceBusTopic != "" {
		destination = cfg.ServiceBusTopic
	}
	store := artifact.NewStore(blobClient, cfg.BlobContainer, repo, logger,
		artifact.WithPublisher(artifact.NewPublisher(busClient, destination)),
		artifact.WithRetry(cfg.Retry()),
	)

	// PDF engines
	codec := pdfcodec.New(cfg.OwnerPasswordSuffix, logger)
	renderer := mupdf.NewRenderer(cfg.RasterSpillThreshold, cfg.TempDir)
	ocrEngine := ocr.NewEngine(renderer, tesseract.NewRecognizer(cfg.TessdataPrefix), logger)
	converter := convert.New(codec, cfg.ConversionWorkers, logger)

	service := pdfops.New(codec, renderer, ocrEngine, converter, store, newRelic, pdfops.Options{
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		OperationTimeout:  cfg.OperationTimeout(),
		OCRLanguage:       cfg.OCRLanguage,
		ImageJPEGQuality:  cfg.ImageJPEGQuality,
	}, logger)

	// Authentication is optional; without a secret every caller is anonymous
	var auth gin.HandlerFunc
	if cfg.JWTSecret != "" {
		tokens, err := jwt.NewJWTServiceFromConfig(jwt.Config{SecretKey: cfg.JWTSecret, Issuer: cfg.AppName}, logger)
		if err != nil {
			return fmt.Errorf("failed to create JWT service: %w", err)
		}
		auth = jwt.OptionalJWTMiddleware(tokens, logger)
	}

	serverCfg := httpservice.ServerConfig{
		ServiceName:    cfg.AppName,
		Port:           cfg.HTTPPort,
		ReadTimeout:    time.Duration(cfg.HTTPReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.HTTPWriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.HTTPIdleTimeout) * time.Second,
		Logger:         logger,
		RateLimitRPS:   float64(cfg.RateLimitPerSecond),
		RateLimitBurst: cfg.RateLimitPerSecond * 2,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodySize:    cfg.HTTPMaxBodyBytes,
		SlowRequestMs:  cfg.SlowRequestMs,
		Ready:          ready,
	}
	if newRelic.Enabled() {
		serverCfg.Telemetry = newRelic
		serverCfg.Middleware = append(serverCfg.Middleware, newRelic.Middleware())
	}
	if slack.Enabled() {
		serverCfg.Slack = slack
	}

	server, err := httpservice.NewServer(serverCfg, api.New(service, store, auth))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("Shutting down server", logging.NewField("signal", sig.String()))
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
