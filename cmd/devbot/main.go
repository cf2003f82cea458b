// Package main provides the devbot CLI for inspecting the chunk cache.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/22yuto/devbot/internal/config"
	"github.com/22yuto/devbot/internal/embedding"
	"github.com/22yuto/devbot/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "devbot",
	Short: "Notion QA chunk cache inspection tool",
	Long: `CLI tool for inspecting and managing the Qdrant chunk cache.

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required by search)`,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show collection statistics",
	RunE:  runInfo,
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "List cached chunks with their metadata",
	RunE:  runDump,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a similarity search against the cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached chunk",
	RunE:  runClear,
}

var (
	dumpLimit   int
	searchLimit int
)

func init() {
	dumpCmd.Flags().IntVar(&dumpLimit, "limit", 50, "maximum chunks to list")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum results to show")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(clearCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func connect() (*storage.QdrantStorage, error) {
	cfg := config.Load()
	store, err := storage.NewQdrantStorage(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	return store, nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := connect()
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := store.CollectionInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to read collection info: %w", err)
	}

	fmt.Printf("Collection: %s\n", storage.CollectionName)
	fmt.Printf("  Chunks:   %d\n", info.PointsCount)
	fmt.Printf("  Has data: %v\n", info.HasData)
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := connect()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListChunks(ctx, dumpLimit)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("Cache is empty.")
		return nil
	}

	for _, record := range records {
		fmt.Printf("%s  [%d/%d]  %s\n", record.ID, record.ChunkIndex+1, record.ChunkTotal, record.Title)
		fmt.Printf("  page:   %s\n", record.PageID)
		fmt.Printf("  query:  %s\n", record.Query)
		fmt.Printf("  stored: %s\n", record.StoredAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  text:   %s\n", preview(record.ChunkText, 80))
		fmt.Println()
	}
	fmt.Printf("%d chunks listed\n", len(records))
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := args[0]

	store, err := connect()
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(client, "", 0)

	queryEmbedding, err := embedder.EmbedText(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := store.QueryChunks(ctx, queryEmbedding, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, result := range results {
		fmt.Printf("%d. similarity=%.4f  %s [%d/%d]\n",
			i+1, 1-result.Distance, result.Record.Title, result.Record.ChunkIndex+1, result.Record.ChunkTotal)
		fmt.Printf("   page:  %s\n", result.Record.PageID)
		fmt.Printf("   text:  %s\n", preview(result.Record.ChunkText, 80))
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := connect()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ClearCollection(ctx); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	fmt.Println("Collection cleared.")
	return nil
}

func preview(text string, limit int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
