package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/22yuto/devbot/internal/notion"
	"github.com/22yuto/devbot/internal/storage"
)

// fakeEmbedder returns a constant vector for every text and records inputs.
type fakeEmbedder struct {
	singleCalls []string
	batchCalls  [][]string
	err         error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.singleCalls = append(f.singleCalls, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls = append(f.batchCalls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// fakeStore captures upserts and serves canned query results.
type fakeStore struct {
	upserted     [][]*storage.ChunkRecord
	upsertErr    error
	queryResults []*storage.ScoredChunk
	queryErr     error
	queryCalls   int
	info         *storage.CollectionInfo
	infoErr      error
}

func (f *fakeStore) UpsertChunks(ctx context.Context, records []*storage.ChunkRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, records)
	return nil
}

func (f *fakeStore) QueryChunks(ctx context.Context, embedding []float32, limit int) ([]*storage.ScoredChunk, error) {
	f.queryCalls++
	return f.queryResults, f.queryErr
}

func (f *fakeStore) CollectionInfo(ctx context.Context) (*storage.CollectionInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	if f.info == nil {
		return &storage.CollectionInfo{PointsCount: 1, HasData: true}, nil
	}
	return f.info, nil
}

func newTestManager(t *testing.T, store ChunkStore, embedder Embedder) *Manager {
	t.Helper()
	m, err := NewManager(store, embedder, 300, 50, 20, nil)
	require.NoError(t, err)
	return m
}

func scoredChunk(pageID string, index int, distance float64, text string) *storage.ScoredChunk {
	return &storage.ScoredChunk{
		Record: &storage.ChunkRecord{
			PageID:     pageID,
			ChunkIndex: index,
			ChunkText:  text,
			Title:      "Title of " + pageID,
			URL:        "https://notion.so/" + pageID,
			Query:      "query for " + pageID,
		},
		Distance: distance,
	}
}

func TestNewManager_RejectsBadChunkConfig(t *testing.T) {
	_, err := NewManager(&fakeStore{}, &fakeEmbedder{}, 50, 50, 20, nil)
	assert.Error(t, err)
}

func TestStore_SingleChunkPage(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	m := newTestManager(t, store, embedder)

	page := &notion.PageContent{
		PageID:  "page-1",
		Title:   "Project X",
		Content: "Budget: $50k",
		URL:     "https://x",
	}

	ids := m.Store(context.Background(), "What is project X's budget?", page)
	require.Len(t, ids, 1)
	require.Len(t, store.upserted, 1)

	records := store.upserted[0]
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, ids[0], r.ID)
	assert.Equal(t, "What is project X's budget?\nProject X\nBudget: $50k", r.Document)
	assert.Equal(t, r.Document, embedder.batchCalls[0][0], "embedding input must be the combined text")
	assert.Equal(t, "What is project X's budget?", r.Query)
	assert.Equal(t, "Project X", r.Title)
	assert.Equal(t, "page-1", r.PageID)
	assert.Equal(t, "https://x", r.URL)
	assert.Equal(t, 0, r.ChunkIndex)
	assert.Equal(t, 1, r.ChunkTotal)
	assert.Equal(t, "Budget: $50k", r.ChunkText)
	assert.False(t, r.StoredAt.IsZero())
}

func TestStore_CapsChunkCount(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(t, store, &fakeEmbedder{})

	// 6300 chars with size=300/overlap=50 yields 25 windows; the cap keeps 20.
	page := &notion.PageContent{
		PageID:  "page-long",
		Title:   "Long Page",
		Content: strings.Repeat("a", 6300),
	}

	ids := m.Store(context.Background(), "long question", page)
	require.Len(t, ids, 20)

	records := store.upserted[0]
	require.Len(t, records, 20)
	for i, r := range records {
		assert.Equal(t, i, r.ChunkIndex)
		assert.Equal(t, 20, r.ChunkTotal)
	}
}

func TestStore_DerivesTitleFromContent(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(t, store, &fakeEmbedder{})

	firstLine := strings.Repeat("x", 80)
	page := &notion.PageContent{
		PageID:  "page-untitled",
		Content: firstLine + "\nsecond line",
	}

	ids := m.Store(context.Background(), "q", page)
	require.NotEmpty(t, ids)
	assert.Equal(t, firstLine[:50], store.upserted[0][0].Title)
}

func TestStore_DerivedTitleCountsCharacters(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(t, store, &fakeEmbedder{})

	firstLine := strings.Repeat("あ", 60)
	page := &notion.PageContent{
		PageID:  "page-untitled",
		Content: firstLine + "\nsecond line",
	}

	ids := m.Store(context.Background(), "q", page)
	require.NotEmpty(t, ids)

	title := store.upserted[0][0].Title
	assert.True(t, utf8.ValidString(title), "title must never end mid-rune")
	assert.Equal(t, strings.Repeat("あ", 50), title)
}

func TestStore_FailureReturnsEmpty(t *testing.T) {
	store := &fakeStore{upsertErr: errors.New("qdrant down")}
	m := newTestManager(t, store, &fakeEmbedder{})

	ids := m.Store(context.Background(), "q", &notion.PageContent{PageID: "p", Content: "c"})
	assert.Empty(t, ids, "upsert failure must signal an empty id list")

	embedFail := &fakeEmbedder{err: errors.New("rate limited")}
	m = newTestManager(t, &fakeStore{}, embedFail)
	ids = m.Store(context.Background(), "q", &notion.PageContent{PageID: "p", Content: "c"})
	assert.Empty(t, ids, "embedding failure must signal an empty id list")
}

func TestFindSimilar_EmptyCollection(t *testing.T) {
	store := &fakeStore{info: &storage.CollectionInfo{}}
	m := newTestManager(t, store, &fakeEmbedder{})

	result, err := m.FindSimilar(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Zero(t, store.queryCalls, "empty collection must fail fast without querying")
}

func TestFindSimilar_QueryEmbeddingUsesRawQuery(t *testing.T) {
	store := &fakeStore{queryResults: []*storage.ScoredChunk{
		scoredChunk("page-a", 0, 0.2, "content"),
	}}
	embedder := &fakeEmbedder{}
	m := newTestManager(t, store, embedder)

	_, err := m.FindSimilar(context.Background(), "raw query")
	require.NoError(t, err)
	require.Len(t, embedder.singleCalls, 1)
	assert.Equal(t, "raw query", embedder.singleCalls[0])
}

func TestFindSimilar_GroupsByBestPerPage(t *testing.T) {
	// Page B's top chunk beats page A's in raw order, but page A's maximum
	// is highest overall. The group-then-best selection must pick A.
	store := &fakeStore{queryResults: []*storage.ScoredChunk{
		scoredChunk("page-b", 0, 0.15, "b0"), // similarity 0.85
		scoredChunk("page-a", 1, 0.30, "a1"), // similarity 0.70
		scoredChunk("page-a", 0, 0.10, "a0"), // similarity 0.90, the max
		scoredChunk("page-b", 1, 0.40, "b1"), // similarity 0.60
	}}
	m := newTestManager(t, store, &fakeEmbedder{})

	result, err := m.FindSimilar(context.Background(), "q")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "page-a", result.PageID)
	assert.InDelta(t, 0.90, result.Similarity, 1e-9)
}

func TestFindSimilar_ReassemblesInIndexOrder(t *testing.T) {
	// Chunks arrive in retrieval order 2,0,1 and must be rejoined as 0,1,2.
	store := &fakeStore{queryResults: []*storage.ScoredChunk{
		scoredChunk("page-a", 2, 0.10, "third"),
		scoredChunk("page-a", 0, 0.20, "first"),
		scoredChunk("page-a", 1, 0.30, "second"),
	}}
	m := newTestManager(t, store, &fakeEmbedder{})

	result, err := m.FindSimilar(context.Background(), "q")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "first\nsecond\nthird", result.Content)
	assert.Equal(t, "Title of page-a", result.Title)
	assert.Equal(t, "https://notion.so/page-a", result.URL)
	assert.Equal(t, "query for page-a", result.Query)
}

func TestFindSimilar_DiscardsRecordsWithoutPageID(t *testing.T) {
	store := &fakeStore{queryResults: []*storage.ScoredChunk{
		scoredChunk("", 0, 0.05, "orphan"),
		scoredChunk("page-a", 0, 0.30, "kept"),
	}}
	m := newTestManager(t, store, &fakeEmbedder{})

	result, err := m.FindSimilar(context.Background(), "q")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "page-a", result.PageID)
}

func TestFindSimilar_AllRecordsOrphaned(t *testing.T) {
	store := &fakeStore{queryResults: []*storage.ScoredChunk{
		scoredChunk("", 0, 0.05, "orphan"),
	}}
	m := newTestManager(t, store, &fakeEmbedder{})

	result, err := m.FindSimilar(context.Background(), "q")
	require.NoError(t, err)
	assert.Nil(t, result)
}
