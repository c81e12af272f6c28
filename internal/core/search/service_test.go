package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/hansard-rag/internal/core/document"
)

// === テスト用モック ===

type mockSearchRepository struct {
	results      []*ScoredChunk
	searchErr    error
	adjacent     map[string][]*ContextChunk // documentID -> 前後チャンク
	adjacentErr  error
	lastLimit    int
	lastFilters  []Filter
	searchCalls  int
	contextCalls int
}

func (m *mockSearchRepository) SimilaritySearch(ctx context.Context, queryVector []float32, filters []Filter, limit int) ([]*ScoredChunk, error) {
	m.searchCalls++
	m.lastLimit = limit
	m.lastFilters = filters
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if len(m.results) > limit {
		return m.results[:limit], nil
	}
	return m.results, nil
}

func (m *mockSearchRepository) GetAdjacentChunks(ctx context.Context, documentID string, position, before, after int) ([]*ContextChunk, error) {
	m.contextCalls++
	if m.adjacentErr != nil {
		return nil, m.adjacentErr
	}
	return m.adjacent[documentID], nil
}

type mockQueryEmbedder struct {
	vector   []float32
	embedErr error
	calls    int
}

func (m *mockQueryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector, nil
}

// scored はテスト用の検索結果を作る
func scored(docID string, position int, score float64) *ScoredChunk {
	return &ScoredChunk{
		ChunkID:    uuid.New(),
		DocumentID: docID,
		Position:   position,
		Total:      position + 2,
		Content:    "chunk content",
		Speaker:    "Penny Wong",
		Party:      document.PartyALP,
		Chamber:    document.ChamberSenate,
		Date:       time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Title:      "Budget Estimates",
		Score:      score,
	}
}

// === テスト ===

func TestSearch_ChunkGranularity(t *testing.T) {
	repo := &mockSearchRepository{
		results: []*ScoredChunk{
			scored("doc-a", 0, 0.95),
			scored("doc-a", 3, 0.90),
			scored("doc-b", 1, 0.85),
		},
	}
	embedder := &mockQueryEmbedder{vector: make([]float32, 768)}
	service := NewService(repo, embedder)

	results, err := service.Search(context.Background(), Params{Query: "budget", Limit: 10})
	require.NoError(t, err)

	// チャンク粒度では同一ドキュメントの複数チャンクをそのまま返す
	require.Len(t, results, 3)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 10, repo.lastLimit)
}

func TestSearch_DocumentGranularityDeduplicates(t *testing.T) {
	// ドキュメント粒度では各ドキュメントの最高スコアのチャンクのみ残す
	repo := &mockSearchRepository{
		results: []*ScoredChunk{
			scored("doc-a", 0, 0.95),
			scored("doc-a", 3, 0.90),
			scored("doc-b", 1, 0.85),
			scored("doc-b", 2, 0.80),
			scored("doc-c", 0, 0.75),
		},
	}
	embedder := &mockQueryEmbedder{vector: make([]float32, 768)}
	service := NewService(repo, embedder)

	results, err := service.Search(context.Background(), Params{
		Query:       "budget",
		Limit:       2,
		Granularity: GranularityDocument,
	})
	require.NoError(t, err)

	// 重複排除のため多めに取得している
	assert.Equal(t, 8, repo.lastLimit)

	require.Len(t, results, 2)
	assert.Equal(t, "doc-a", results[0].DocumentID)
	assert.Equal(t, 0, results[0].Position) // スコア最高のチャンク
	assert.Equal(t, "doc-b", results[1].DocumentID)
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	repo := &mockSearchRepository{}
	embedder := &mockQueryEmbedder{vector: make([]float32, 768)}
	service := NewService(repo, embedder)

	_, err := service.Search(context.Background(), Params{Query: ""})
	assert.Error(t, err)
	assert.Zero(t, embedder.calls)
}

func TestSearch_InvalidFilterRejectedBeforeEmbedding(t *testing.T) {
	// 不正なフィルタはEmbedding生成・検索の前に拒否する
	repo := &mockSearchRepository{}
	embedder := &mockQueryEmbedder{vector: make([]float32, 768)}
	service := NewService(repo, embedder)

	_, err := service.Search(context.Background(), Params{
		Query:   "budget",
		Filters: []Filter{{Field: "electorate", Op: OpEq, Value: "Wentworth"}},
	})
	assert.Error(t, err)
	assert.Zero(t, embedder.calls)
	assert.Zero(t, repo.searchCalls)
}

func TestSearch_FiltersPassedThrough(t *testing.T) {
	repo := &mockSearchRepository{results: []*ScoredChunk{scored("doc-a", 0, 0.9)}}
	embedder := &mockQueryEmbedder{vector: make([]float32, 768)}
	service := NewService(repo, embedder)

	filters, err := ParseFilters([]string{"chamber=SENATE", "date>=2024-01-01"})
	require.NoError(t, err)

	_, err = service.Search(context.Background(), Params{Query: "budget", Filters: filters})
	require.NoError(t, err)
	assert.Equal(t, filters, repo.lastFilters)
}

func TestSearch_EmptyResults(t *testing.T) {
	// マッチ0件はエラーではなく空の結果
	repo := &mockSearchRepository{}
	embedder := &mockQueryEmbedder{vector: make([]float32, 768)}
	service := NewService(repo, embedder)

	results, err := service.Search(context.Background(), Params{Query: "nothing matches"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ContextExpansion(t *testing.T) {
	repo := &mockSearchRepository{
		results: []*ScoredChunk{scored("doc-a", 2, 0.9)},
		adjacent: map[string][]*ContextChunk{
			"doc-a": {
				{Position: 1, Content: "before"},
				{Position: 3, Content: "after"},
			},
		},
	}
	embedder := &mockQueryEmbedder{vector: make([]float32, 768)}
	service := NewService(repo, embedder)

	results, err := service.Search(context.Background(), Params{
		Query:       "budget",
		ContextSize: 1,
	})
	require.NoError(t, err)

	require.Len(t, results, 1)
	require.Len(t, results[0].Context, 2)
	assert.Equal(t, 1, results[0].Context[0].Position)
	assert.Equal(t, 3, results[0].Context[1].Position)
	assert.Equal(t, 1, repo.contextCalls)
}

func TestSearch_NoContextWithoutSize(t *testing.T) {
	repo := &mockSearchRepository{results: []*ScoredChunk{scored("doc-a", 0, 0.9)}}
	embedder := &mockQueryEmbedder{vector: make([]float32, 768)}
	service := NewService(repo, embedder)

	results, err := service.Search(context.Background(), Params{Query: "budget"})
	require.NoError(t, err)
	assert.Zero(t, repo.contextCalls)
	assert.Nil(t, results[0].Context)
}

func TestSearch_EmbedderErrorPropagated(t *testing.T) {
	repo := &mockSearchRepository{}
	embedder := &mockQueryEmbedder{embedErr: errors.New("rate limited")}
	service := NewService(repo, embedder)

	_, err := service.Search(context.Background(), Params{Query: "budget"})
	require.Error(t, err)
	assert.Zero(t, repo.searchCalls)
}

func TestSearch_RepositoryErrorPropagated(t *testing.T) {
	repo := &mockSearchRepository{searchErr: errors.New("connection refused")}
	embedder := &mockQueryEmbedder{vector: make([]float32, 768)}
	service := NewService(repo, embedder)

	_, err := service.Search(context.Background(), Params{Query: "budget"})
	assert.Error(t, err)
}

func TestSearch_DefaultLimit(t *testing.T) {
	repo := &mockSearchRepository{}
	embedder := &mockQueryEmbedder{vector: make([]float32, 768)}
	service := NewService(repo, embedder)

	_, err := service.Search(context.Background(), Params{Query: "budget"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, repo.lastLimit)
}
