// Package storage wraps Qdrant as the durable vector store for cached
// Notion chunks.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(host string, port int) (*QdrantStorage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client: client,
		host:   host,
		port:   port,
	}

	ctx := context.Background()
	err = storage.healthCheckWithRetry(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		return s.Health(ctx)
	}

	return backoff.Retry(operation, exponentialBackoff)
}

// Health performs a single health check against Qdrant.
// Returns nil if Qdrant is healthy, error otherwise.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection ensures the notion_info collection exists with proper
// configuration (1536-dimension vectors, cosine distance, page_id payload
// index). Idempotent - safe to call multiple times.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Index page_id so the explorer can filter chunk groups cheaply.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: CollectionName,
		FieldName:      "page_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create page_id index: %w", err)
	}

	return nil
}

// ClearCollection deletes all points in the collection.
// Useful for re-seeding scenarios.
func (s *QdrantStorage) ClearCollection(ctx context.Context) error {
	err := s.client.DeleteCollection(ctx, CollectionName)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, exponentialBackoff)
}

// UpsertChunks stores chunk records with embeddings in Qdrant as one logical
// batch: the whole batch fails together or succeeds together. Chunks are
// sub-batched in groups of 100 for transport efficiency.
func (s *QdrantStorage) UpsertChunks(ctx context.Context, records []*ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	for i, record := range records {
		if len(record.Embedding) != VectorDimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(record.Embedding), VectorDimension)
		}
	}

	batchSize := 100
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))

		batch := records[i:end]
		points := make([]*qdrant.PointStruct, len(batch))

		for j, record := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(record.ID),
				Vectors: qdrant.NewVectors(record.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"document":    record.Document,
					"query":       record.Query,
					"title":       record.Title,
					"page_id":     record.PageID,
					"url":         record.URL,
					"stored_at":   record.StoredAt.Format(time.RFC3339),
					"chunk_index": record.ChunkIndex,
					"chunk_total": record.ChunkTotal,
					"chunk_text":  record.ChunkText,
				}),
			}
		}

		err := s.upsertWithRetry(ctx, points)
		if err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// QueryChunks performs vector similarity search over the cached chunks.
// Returns up to limit results with distances. Qdrant reports a cosine
// similarity score; it is exposed here as distance = 1 - score so callers
// apply the usual similarity = 1 - distance conversion. No thresholding is
// performed here - filtering is entirely the caller's responsibility.
func (s *QdrantStorage) QueryChunks(ctx context.Context, embedding []float32, limit int) ([]*ScoredChunk, error) {
	if len(embedding) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), VectorDimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}

	scored := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		scored = append(scored, &ScoredChunk{
			Record:   recordFromPayload(result.Id.GetUuid(), result.Payload),
			Distance: 1 - float64(result.Score),
		})
	}

	return scored, nil
}

// ListChunks scrolls through stored chunk records without a vector search.
// Used by the explorer CLI to dump the cache.
func (s *QdrantStorage) ListChunks(ctx context.Context, limit int) ([]*ChunkRecord, error) {
	var records []*ChunkRecord
	var offset *qdrant.PointId

	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll chunks: %w", err)
		}

		for _, result := range results {
			records = append(records, recordFromPayload(result.Id.GetUuid(), result.Payload))
			if limit > 0 && len(records) >= limit {
				return records, nil
			}
		}

		if uint32(len(results)) < batchSize {
			break
		}

		offset = results[len(results)-1].Id
	}

	return records, nil
}

// CollectionInfo retrieves the collection descriptor: point count and
// whether any data is present. Computed on demand, never persisted.
func (s *QdrantStorage) CollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	exists := false
	for _, name := range collections {
		if name == CollectionName {
			exists = true
			break
		}
	}
	if !exists {
		return &CollectionInfo{}, nil
	}

	collection, err := s.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	count := collection.GetPointsCount()
	return &CollectionInfo{
		PointsCount: count,
		HasData:     count > 0,
	}, nil
}

// recordFromPayload rebuilds a ChunkRecord from a Qdrant payload map.
// The embedding is not returned by queries and stays nil.
func recordFromPayload(id string, payload map[string]*qdrant.Value) *ChunkRecord {
	storedAt, err := time.Parse(time.RFC3339, payload["stored_at"].GetStringValue())
	if err != nil {
		storedAt = time.Time{}
	}

	return &ChunkRecord{
		ID:         id,
		Document:   payload["document"].GetStringValue(),
		Query:      payload["query"].GetStringValue(),
		Title:      payload["title"].GetStringValue(),
		PageID:     payload["page_id"].GetStringValue(),
		URL:        payload["url"].GetStringValue(),
		StoredAt:   storedAt,
		ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
		ChunkTotal: int(payload["chunk_total"].GetIntegerValue()),
		ChunkText:  payload["chunk_text"].GetStringValue(),
	}
}
