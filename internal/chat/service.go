// Package chat orchestrates retrieval and answer generation: cache-first
// lookup, live Notion search fallback with write-through, and a grounded
// completion over whichever content won.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/22yuto/devbot/internal/cache"
	"github.com/22yuto/devbot/internal/notion"
)

const (
	// DefaultMinSimilarity is the floor a cache hit must exceed to be used
	// without falling back to live search.
	DefaultMinSimilarity = 0.2

	// DefaultMaxContentLength bounds how much page content goes into the
	// grounding prompt.
	DefaultMaxContentLength = 14000

	// truncationMarker is appended when content is cut at the length cap.
	truncationMarker = "...(truncated)"

	// detailedContentLength separates full page bodies from bare database
	// rows when labeling the prompt's reference material.
	detailedContentLength = 100

	// errorDetailLength caps how much of an internal error message is
	// embedded in a user-visible answer.
	errorDetailLength = 100

	// NoSourceLabel is the response source when no content matched.
	NoSourceLabel = "no information"
)

// Fixed fallback messages. The no-content and no-body paths are deterministic
// and never call the model.
const (
	msgNoContent  = "No relevant information was found. Could you ask a more specific question?"
	msgEmptyBody  = "The retrieved page has no body text, so an answer cannot be generated. Try changing your search terms."
	msgLLMFailure = "Something went wrong while generating the answer. Please try again in a moment."
)

const systemMessage = "You are a question answering system grounded in Notion content. " +
	"Answer concisely and only from the supplied reference material."

// Cache is the chunk cache surface the orchestrator needs.
// Satisfied by *cache.Manager.
type Cache interface {
	FindSimilar(ctx context.Context, userQuery string) (*cache.Result, error)
	Store(ctx context.Context, userQuery string, page *notion.PageContent) []string
}

// Searcher runs a live search against the Notion workspace.
// Satisfied by *notion.Searcher.
type Searcher interface {
	FindBestMatchingContent(ctx context.Context, userQuery string) (*notion.PageContent, error)
}

// Completer generates a completion for a system+user prompt pair.
// Satisfied by *llm.Client.
type Completer interface {
	Complete(ctx context.Context, systemMessage, prompt string) (string, error)
}

// Response is the structured answer for one query.
type Response struct {
	Message    string  `json:"message"`
	Source     string  `json:"source,omitempty"`
	URL        string  `json:"url,omitempty"`
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
	Similarity float64 `json:"similarity"`
}

// Service is the per-request retrieval orchestrator. It holds no request
// state; all fields are safe for concurrent use.
type Service struct {
	cache            Cache
	searcher         Searcher
	completer        Completer
	minSimilarity    float64
	maxContentLength int
	logger           *slog.Logger
}

// NewService wires the orchestrator. minSimilarity <= 0 and
// maxContentLength <= 0 fall back to the defaults.
func NewService(cache Cache, searcher Searcher, completer Completer, minSimilarity float64, maxContentLength int, logger *slog.Logger) *Service {
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:            cache,
		searcher:         searcher,
		completer:        completer,
		minSimilarity:    minSimilarity,
		maxContentLength: maxContentLength,
		logger:           logger,
	}
}

// Respond answers a user query: cached content if its similarity clears the
// floor, otherwise a live search whose result is written through to the
// cache. Collaborator failures degrade to "no content" rather than failing
// the request.
func (s *Service) Respond(ctx context.Context, userQuery string) *Response {
	var active *notion.PageContent
	similarity := 0.0

	result, err := s.cache.FindSimilar(ctx, userQuery)
	if err != nil {
		s.logger.Warn("cache lookup failed", "error", err)
	}
	if result != nil {
		if result.Similarity > s.minSimilarity {
			active = &notion.PageContent{
				PageID:  result.PageID,
				Title:   result.Title,
				Content: result.Content,
				URL:     result.URL,
			}
			similarity = result.Similarity
			s.logger.Info("cache hit", "title", result.Title, "similarity", result.Similarity)
		} else {
			s.logger.Info("cache result below floor, discarding",
				"similarity", result.Similarity, "floor", s.minSimilarity)
		}
	}

	if active == nil {
		page, err := s.searcher.FindBestMatchingContent(ctx, userQuery)
		if err != nil {
			s.logger.Warn("live search failed", "error", err)
		}
		if page != nil {
			active = page
			// Write-through; a failed store is logged inside the cache and
			// never surfaces to the response.
			ids := s.cache.Store(ctx, userQuery, page)
			s.logger.Info("stored live search result", "title", page.Title, "chunks", len(ids))
		} else {
			s.logger.Info("no matching content found", "query", userQuery)
		}
	}

	message := s.generateAnswer(ctx, userQuery, active)

	response := &Response{
		Message:    message,
		Source:     NoSourceLabel,
		Success:    true,
		Similarity: similarity,
	}
	if active != nil {
		response.Source = active.Title
		response.URL = active.URL
	}
	return response
}

// generateAnswer builds the grounded prompt and invokes the model. The
// no-content and empty-body paths return fixed messages without a model
// call; model failures embed at most errorDetailLength characters of the
// underlying error.
func (s *Service) generateAnswer(ctx context.Context, userQuery string, page *notion.PageContent) string {
	if page == nil {
		return msgNoContent
	}
	if page.Content == "" {
		s.logger.Warn("page content is empty", "title", page.Title)
		return msgEmptyBody
	}

	contentType := "database record"
	if utf8.RuneCountInString(page.Content) > detailedContentLength {
		contentType = "detailed page content"
	}

	// Length limits count characters, not bytes; content is often Japanese.
	content := page.Content
	if utf8.RuneCountInString(content) > s.maxContentLength {
		content = truncateRunes(content, s.maxContentLength) + truncationMarker
	}

	prompt := fmt.Sprintf(`User question: %s

Reference material (%s):
Title: %s
Content: %s

Answer the user's question using the reference material above. Keep the
answer simple, direct and faithful to the material. If the material does not
contain the information needed, say plainly that there is not enough
information to answer. Do not preface the answer with phrases like
"According to the Notion data".`, userQuery, contentType, page.Title, content)

	text, err := s.completer.Complete(ctx, systemMessage, prompt)
	if err != nil {
		s.logger.Error("answer generation failed", "error", err)
		return fmt.Sprintf("An error occurred while generating the answer: %s... Please try again later.",
			truncateError(err))
	}
	if text == "" {
		s.logger.Error("answer generation returned empty text")
		return msgLLMFailure
	}

	return text
}

// truncateError keeps the first errorDetailLength characters of an error's
// text so internals never leak wholesale into user-visible messages.
func truncateError(err error) string {
	return truncateRunes(err.Error(), errorDetailLength)
}

// truncateRunes cuts s to at most limit characters, never splitting a rune.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
