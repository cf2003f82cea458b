// Package cache manages the durable notion_info chunk cache: it decomposes
// fetched pages into embedded chunks and reassembles the best-matching page
// for later queries.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/22yuto/devbot/internal/chunk"
	"github.com/22yuto/devbot/internal/notion"
	"github.com/22yuto/devbot/internal/storage"
)

const (
	// DefaultMaxChunks caps how many chunks of one page are stored. Longer
	// pages lose their tail - a deliberate simplicity/cost tradeoff.
	DefaultMaxChunks = 20

	// topResults is how many nearest chunks a lookup retrieves before
	// grouping them by page.
	topResults = 20

	// derivedTitleLength bounds a title derived from the content's first
	// line when the page has no title of its own.
	derivedTitleLength = 50
)

// Embedder generates embeddings for cache writes and lookups.
// Satisfied by *embedding.Embedder.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore is the vector store surface the cache needs.
// Satisfied by *storage.QdrantStorage.
type ChunkStore interface {
	UpsertChunks(ctx context.Context, records []*storage.ChunkRecord) error
	QueryChunks(ctx context.Context, embedding []float32, limit int) ([]*storage.ScoredChunk, error)
	CollectionInfo(ctx context.Context) (*storage.CollectionInfo, error)
}

// Result is a cache hit: one page reassembled from its chunks, with the
// page's best per-chunk similarity and the query that originally stored it.
type Result struct {
	PageID     string
	Title      string
	Content    string
	URL        string
	Similarity float64
	Query      string
}

// Manager owns the notion_info collection.
type Manager struct {
	store     ChunkStore
	embedder  Embedder
	splitter  *chunk.Splitter
	maxChunks int
	logger    *slog.Logger
}

// NewManager creates a cache manager. chunkSize/chunkOverlap configure the
// splitter; an overlap >= size is a fatal configuration error. maxChunks <= 0
// falls back to DefaultMaxChunks.
func NewManager(store ChunkStore, embedder Embedder, chunkSize, chunkOverlap, maxChunks int, logger *slog.Logger) (*Manager, error) {
	splitter, err := chunk.NewSplitter(chunkSize, chunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("invalid chunking configuration: %w", err)
	}
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		embedder:  embedder,
		splitter:  splitter,
		maxChunks: maxChunks,
		logger:    logger,
	}, nil
}

// Store chunks a page, embeds each chunk combined with the query and title,
// and upserts all records as one batch. Returns the generated ids in chunk
// order. Any failure is logged and signalled as an empty list - callers
// treat that as "nothing cached", not an error to propagate.
func (m *Manager) Store(ctx context.Context, userQuery string, page *notion.PageContent) []string {
	title := page.Title
	if title == "" {
		title = deriveTitle(page.Content)
	}

	chunks := m.splitter.Split(page.Content)
	if len(chunks) > m.maxChunks {
		m.logger.Warn("truncating chunk set", "page_id", page.PageID, "chunks", len(chunks), "max", m.maxChunks)
		chunks = chunks[:m.maxChunks]
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = userQuery + "\n" + title + "\n" + c
	}

	embeddings, err := m.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		m.logger.Error("failed to embed chunks", "page_id", page.PageID, "error", err)
		return nil
	}

	now := time.Now().UTC()
	records := make([]*storage.ChunkRecord, len(chunks))
	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = uuid.New().String()
		records[i] = &storage.ChunkRecord{
			ID:         ids[i],
			Embedding:  embeddings[i],
			Document:   texts[i],
			Query:      userQuery,
			Title:      title,
			PageID:     page.PageID,
			URL:        page.URL,
			StoredAt:   now,
			ChunkIndex: i,
			ChunkTotal: len(chunks),
			ChunkText:  chunks[i],
		}
	}

	if err := m.store.UpsertChunks(ctx, records); err != nil {
		m.logger.Error("failed to upsert chunks", "page_id", page.PageID, "error", err)
		return nil
	}

	m.logger.Info("stored page chunks", "page_id", page.PageID, "title", title, "chunks", len(records))
	return ids
}

// FindSimilar looks the query up in the cache. It retrieves the nearest
// chunks, groups them by page id tracking each page's best similarity, picks
// the page with the highest best, and reassembles that page's content from
// its chunks in index order. Returns nil when the collection is empty or no
// usable group survives.
//
// Grouping before selection matters: a page's relevant chunk may rank below
// unrelated chunks of other pages, so a flat cutoff over raw neighbor order
// could discard a genuinely relevant page.
func (m *Manager) FindSimilar(ctx context.Context, userQuery string) (*Result, error) {
	info, err := m.store.CollectionInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe collection: %w", err)
	}
	if !info.HasData {
		return nil, nil
	}

	// Lookups use the raw query vector, not the combined write-side text.
	queryEmbedding, err := m.embedder.EmbedText(ctx, userQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := m.store.QueryChunks(ctx, queryEmbedding, topResults)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}

	groups := make(map[string][]*storage.ChunkRecord)
	bestByPage := make(map[string]float64)
	bestPage := ""
	bestSimilarity := 0.0

	for _, sc := range scored {
		pageID := sc.Record.PageID
		if pageID == "" {
			continue
		}

		similarity := 1 - sc.Distance
		groups[pageID] = append(groups[pageID], sc.Record)
		if prev, seen := bestByPage[pageID]; !seen || similarity > prev {
			bestByPage[pageID] = similarity
		}
		// Strict > keeps the first page found on ties.
		if bestByPage[pageID] > bestSimilarity || bestPage == "" {
			bestSimilarity = bestByPage[pageID]
			bestPage = pageID
		}
	}

	if bestPage == "" {
		return nil, nil
	}

	records := groups[bestPage]
	sort.Slice(records, func(i, j int) bool {
		return records[i].ChunkIndex < records[j].ChunkIndex
	})

	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = r.ChunkText
	}

	first := records[0]
	return &Result{
		PageID:     bestPage,
		Title:      first.Title,
		Content:    strings.Join(parts, "\n"),
		URL:        first.URL,
		Similarity: bestSimilarity,
		Query:      first.Query,
	}, nil
}

// deriveTitle takes the first line of content, capped at derivedTitleLength
// characters. The cap counts runes so a multibyte line is never cut
// mid-character.
func deriveTitle(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	if utf8.RuneCountInString(line) > derivedTitleLength {
		return string([]rune(line)[:derivedTitleLength])
	}
	return line
}
