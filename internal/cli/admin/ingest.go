package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/ihabbishara/RAGIncidentApp/internal/config"
	"github.com/ihabbishara/RAGIncidentApp/internal/database"
	"github.com/ihabbishara/RAGIncidentApp/internal/ingestion"
	"github.com/ihabbishara/RAGIncidentApp/internal/openai"
	"github.com/ihabbishara/RAGIncidentApp/internal/repository"
	"github.com/ihabbishara/RAGIncidentApp/internal/service"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest Confluence pages into the knowledge base",
		Long:  "Fetch pages from the configured Confluence spaces and labels, chunk them, and index their embeddings",
		RunE:  runIngest,
	}

	cmd.Flags().StringSlice("space", nil, "Confluence space keys to ingest (overrides config)")
	cmd.Flags().StringSlice("label", nil, "Confluence labels to filter by (overrides config)")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasConfluence() {
		return fmt.Errorf("CONFLUENCE_URL is required for ingestion")
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required for embeddings")
	}

	spaces, _ := cmd.Flags().GetStringSlice("space")
	if len(spaces) == 0 {
		spaces = cfg.ConfluenceSpacesList()
	}
	labels, _ := cmd.Flags().GetStringSlice("label")
	if len(labels) == 0 {
		labels = cfg.ConfluenceLabelsList()
	}
	if len(spaces) == 0 && len(labels) == 0 {
		return fmt.Errorf("no Confluence spaces or labels configured")
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	confluence := ingestion.NewConfluenceClient(ingestion.ConfluenceConfig{
		BaseURL:  cfg.ConfluenceURL,
		Username: cfg.ConfluenceUsername,
		APIToken: cfg.ConfluenceAPIToken,
	})

	log.Printf("fetching pages (spaces=%v labels=%v)", spaces, labels)
	docs, err := confluence.FetchAll(ctx, spaces, labels)
	if err != nil {
		return fmt.Errorf("failed to fetch Confluence pages: %w", err)
	}
	log.Printf("fetched %d documents", len(docs))

	chunker := service.NewChunker(service.ChunkConfig{
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.ChunkOverlap,
	})
	svc := service.NewIngestionService(chunker, openai.NewClient(cfg.OpenAIAPIKey), repository.NewChunkStore(pool))

	report, err := svc.IngestDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingestion aborted: %w", err)
	}

	log.Printf("indexed %d documents (%d chunks), %d failures",
		report.DocumentsIndexed, report.ChunksIndexed, len(report.Failures))
	for _, f := range report.Failures {
		log.Printf("  failed: %s: %v", f.DocumentID, f.Err)
	}

	if len(report.Failures) > 0 {
		return fmt.Errorf("%d documents failed to index", len(report.Failures))
	}
	return nil
}
