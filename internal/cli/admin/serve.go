package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/ihabbishara/RAGIncidentApp/internal/api/handlers"
	"github.com/ihabbishara/RAGIncidentApp/internal/config"
	"github.com/ihabbishara/RAGIncidentApp/internal/database"
	"github.com/ihabbishara/RAGIncidentApp/internal/generation"
	"github.com/ihabbishara/RAGIncidentApp/internal/jobs"
	"github.com/ihabbishara/RAGIncidentApp/internal/mail"
	"github.com/ihabbishara/RAGIncidentApp/internal/metrics"
	"github.com/ihabbishara/RAGIncidentApp/internal/notify/teams"
	"github.com/ihabbishara/RAGIncidentApp/internal/openai"
	"github.com/ihabbishara/RAGIncidentApp/internal/repository"
	"github.com/ihabbishara/RAGIncidentApp/internal/server"
	"github.com/ihabbishara/RAGIncidentApp/internal/service"
	"github.com/ihabbishara/RAGIncidentApp/internal/servicenow"
	"github.com/ihabbishara/RAGIncidentApp/internal/storage"
	"github.com/ihabbishara/RAGIncidentApp/internal/telemetry"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the incident intake server",
		Long:  "Start the HTTP server that accepts incident emails and processes them into tickets",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required for embeddings")
	}
	embedder := openai.NewClient(cfg.OpenAIAPIKey)

	chunkStore := repository.NewChunkStore(pool)
	retriever := service.NewRetrieverWithConfig(embedder, chunkStore, service.RetrieverConfig{
		TopK:                cfg.TopK,
		SimilarityThreshold: cfg.SimilarityThreshold,
		MaxContextLength:    cfg.MaxContextLength,
	})

	generator, err := generation.New(generation.Config{
		Provider:    cfg.LLMProvider,
		Model:       cfg.LLMModel,
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.OpenAIAPIKey,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     time.Duration(cfg.LLMTimeoutSecs) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create generation client: %w", err)
	}
	summarizer := generation.NewIncidentSummarizer(generator)

	if !cfg.HasServiceNow() {
		return fmt.Errorf("SERVICENOW_URL is required for ticket creation")
	}
	ticketing := servicenow.NewClient(servicenow.Config{
		BaseURL:  cfg.ServiceNowURL,
		Username: cfg.ServiceNowUsername,
		Password: cfg.ServiceNowPassword,
	})

	notifier := teams.NewClient(teams.Config{
		WebhookURL: cfg.TeamsWebhookURL,
		Enabled:    cfg.TeamsEnabled,
	})

	builder := service.NewTicketBuilder(service.TicketBuilderConfig{
		AssignmentGroup: cfg.DefaultAssignmentGroup,
		Category:        cfg.DefaultCategory,
		DefaultUrgency:  cfg.DefaultUrgency,
		DefaultImpact:   cfg.DefaultImpact,
	})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	orchestrator := service.NewWorkflowOrchestrator(retriever, summarizer, builder, ticketing, notifier, m)

	queue := jobs.NewQueue(ctx, orchestrator, jobs.QueueConfig{
		Workers:    cfg.QueueWorkers,
		BufferSize: cfg.QueueSize,
	}, m, uuid.NewString)

	var archive handlers.EmailArchiver
	if cfg.HasS3() {
		emailArchive, err := storage.NewEmailArchive(ctx, storage.ArchiveConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create email archive: %w", err)
		}
		if err := emailArchive.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure archive bucket: %w", err)
		}
		log.Printf("email archive bucket '%s' ready", cfg.S3Bucket)
		archive = emailArchive
	}

	validator := mail.NewTriggerValidator(cfg.AllowedSendersList())

	router := server.NewRouter(server.RouterConfig{
		IncidentHandler: handlers.NewIncidentHandler(queue, mail.NewParser(), validator, archive, m),
		HealthHandler:   handlers.NewHealthHandler(orchestrator),
		MetricsGatherer: reg,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	queue.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
