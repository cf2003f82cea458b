// Package main provides the Notion QA server entry point.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/22yuto/devbot/internal/cache"
	"github.com/22yuto/devbot/internal/chat"
	"github.com/22yuto/devbot/internal/config"
	"github.com/22yuto/devbot/internal/embedding"
	"github.com/22yuto/devbot/internal/llm"
	mcpserver "github.com/22yuto/devbot/internal/mcp"
	"github.com/22yuto/devbot/internal/notion"
	"github.com/22yuto/devbot/internal/server"
	"github.com/22yuto/devbot/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, err := storage.NewQdrantStorage(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		logger.Error("failed to connect to Qdrant", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		logger.Error("failed to ensure collection", "error", err)
		os.Exit(1)
	}

	openaiClient, err := embedding.NewClient()
	if err != nil {
		logger.Error("failed to create OpenAI client", "error", err)
		os.Exit(1)
	}
	embedder := embedding.NewEmbedder(openaiClient, cfg.EmbeddingModel, 0)

	notionClient, err := notion.NewClient(cfg.NotionAPIKey, cfg.NotionDatabaseID)
	if err != nil {
		logger.Error("failed to create Notion client", "error", err)
		os.Exit(1)
	}
	searcher := notion.NewSearcher(notionClient, embedder, cfg.SearchCandidates, cfg.SearchMinScore, logger)

	cacheManager, err := cache.NewManager(store, embedder, cfg.ChunkSize, cfg.ChunkOverlap, cfg.MaxChunks, logger)
	if err != nil {
		logger.Error("invalid chunking configuration", "error", err)
		os.Exit(1)
	}

	completer := llm.NewClient(openaiClient.Client(), cfg.ChatModel, cfg.Temperature, cfg.LLMTimeout)

	service := chat.NewService(cacheManager, searcher, completer, cfg.MinSimilarity, cfg.MaxContentLength, logger)

	mcpSrv := mcpserver.NewServer(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/", server.NewLandingHandler())
	mux.HandleFunc("/health", server.NewHealthHandler(store))
	mux.HandleFunc("/api/chat/notion", server.NewChatHandler(service, logger))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(mcpSrv, nil))

	// Stdio mode runs the MCP server over stdin/stdout for local clients.
	if os.Getenv("MCP_STDIO") == "true" {
		logger.Info("starting MCP server (stdio mode)")
		if err := mcpSrv.Run(ctx); err != nil {
			logger.Error("MCP server error", "error", err)
			os.Exit(1)
		}
		return
	}

	addr := "0.0.0.0:" + cfg.Port
	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
