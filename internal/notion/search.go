package notion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/22yuto/devbot/internal/embedding"
)

const (
	// DefaultMaxCandidates is the coarse-rank cut: how many preview-ranked
	// rows proceed to the full-content fine rank.
	DefaultMaxCandidates = 3

	// DefaultMinScore is the absolute floor on the fine-rank score. Below
	// it, an unmatched query is not force-fit to the least-bad page.
	DefaultMinScore = 0.3

	// minDetailedLength is the minimum combined title+content length, in
	// characters, worth re-embedding. Shorter pages carry too little signal.
	minDetailedLength = 20
)

// Source yields database rows and full page content. Satisfied by *Client.
type Source interface {
	QueryDatabase(ctx context.Context) ([]RowPreview, error)
	FetchPage(ctx context.Context, pageID string) (*PageContent, error)
}

// Embedder turns text into a vector. Satisfied by *embedding.Embedder.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Searcher finds the single best-matching page for a query by a three-stage
// funnel: fetch all rows, coarse-rank cheap previews, fine-rank the top
// candidates with their full nested content.
type Searcher struct {
	source        Source
	embedder      Embedder
	maxCandidates int
	minScore      float64
	logger        *slog.Logger
}

// NewSearcher creates a live search engine over the given source.
// maxCandidates <= 0 and minScore <= 0 fall back to the defaults.
func NewSearcher(source Source, embedder Embedder, maxCandidates int, minScore float64, logger *slog.Logger) *Searcher {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		source:        source,
		embedder:      embedder,
		maxCandidates: maxCandidates,
		minScore:      minScore,
		logger:        logger,
	}
}

type scoredPreview struct {
	preview RowPreview
	score   float64
}

// FindBestMatchingContent returns the page whose full content best matches
// the query, or nil when nothing clears the score floor.
func (s *Searcher) FindBestMatchingContent(ctx context.Context, userQuery string) (*PageContent, error) {
	queryEmbedding, err := s.embedder.EmbedText(ctx, userQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.source.QueryDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch database rows: %w", err)
	}
	s.logger.Info("fetched database rows", "count", len(rows))

	candidates := s.rankPreviews(ctx, queryEmbedding, rows)
	s.logger.Info("coarse-ranked candidates", "count", len(candidates))

	best := s.rankDetailed(ctx, queryEmbedding, candidates)
	if best == nil {
		s.logger.Info("no page cleared the score floor", "floor", s.minScore)
		return nil, nil
	}

	s.logger.Info("best matching page", "title", best.Title, "page_id", best.PageID)
	return best, nil
}

// rankPreviews embeds each row's cheap preview and keeps the top candidates
// by cosine similarity. Rows with no extractable text are skipped, as are
// rows whose embedding fails.
func (s *Searcher) rankPreviews(ctx context.Context, queryEmbedding []float32, rows []RowPreview) []scoredPreview {
	scored := make([]scoredPreview, 0, len(rows))

	for _, row := range rows {
		combined := strings.TrimSpace(row.Title + " " + row.Preview)
		if combined == "" {
			continue
		}

		rowEmbedding, err := s.embedder.EmbedText(ctx, combined)
		if err != nil {
			s.logger.Warn("failed to embed row preview", "page_id", row.PageID, "error", err)
			continue
		}

		scored = append(scored, scoredPreview{
			preview: row,
			score:   embedding.Cosine(queryEmbedding, rowEmbedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > s.maxCandidates {
		scored = scored[:s.maxCandidates]
	}
	return scored
}

// rankDetailed fetches each candidate's full content, re-embeds the combined
// title+content text, and keeps the single highest-scoring page. Candidates
// whose fetch fails or whose content is too short are skipped.
func (s *Searcher) rankDetailed(ctx context.Context, queryEmbedding []float32, candidates []scoredPreview) *PageContent {
	var best *PageContent
	bestScore := -1.0

	for _, candidate := range candidates {
		detailed, err := s.source.FetchPage(ctx, candidate.preview.PageID)
		if err != nil {
			s.logger.Warn("failed to fetch page content", "page_id", candidate.preview.PageID, "error", err)
			continue
		}

		if detailed.Title == "" {
			detailed.Title = candidate.preview.Title
		}

		combined := strings.TrimSpace(detailed.Title + " " + detailed.Content)
		if utf8.RuneCountInString(combined) <= minDetailedLength {
			s.logger.Info("page content too short, skipping", "title", detailed.Title)
			continue
		}

		pageEmbedding, err := s.embedder.EmbedText(ctx, combined)
		if err != nil {
			s.logger.Warn("failed to embed page content", "page_id", detailed.PageID, "error", err)
			continue
		}

		score := embedding.Cosine(queryEmbedding, pageEmbedding)
		s.logger.Debug("fine-rank score", "title", detailed.Title, "score", score)

		if score > bestScore {
			bestScore = score
			best = detailed
		}
	}

	if bestScore < s.minScore {
		return nil
	}
	return best
}
