package storage

import "time"

// ChunkRecord is the unit stored in the notion_info collection. One record
// per chunk of a cached Notion page; all records from one page-storage event
// share the same page id, title, url and chunk total, with sequential
// zero-based indices.
type ChunkRecord struct {
	ID         string    // UUID, generated at write time
	Embedding  []float32 // vector of the combined query+title+chunk text
	Document   string    // the combined text itself, kept for introspection
	Query      string    // original user query that triggered the storage
	Title      string    // page title (or derived title)
	PageID     string    // stable Notion page id
	URL        string    // Notion page URL
	StoredAt   time.Time // write timestamp
	ChunkIndex int       // position within the page (0, 1, 2...)
	ChunkTotal int       // number of chunks stored for the page
	ChunkText  string    // raw chunk text, used for reassembly
}

// ScoredChunk is a query result: a chunk record (without its embedding) plus
// the store's distance. Distance grows with dissimilarity; similarity is
// derived by the caller as 1 - distance.
type ScoredChunk struct {
	Record   *ChunkRecord
	Distance float64
}

// CollectionInfo describes the cache collection on demand.
type CollectionInfo struct {
	PointsCount uint64
	HasData     bool
}

// CollectionName is the single Qdrant collection for cached Notion chunks.
const CollectionName = "notion_info"

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536
