package search

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	// DefaultLimit は件数未指定時のデフォルト
	DefaultLimit = 10
	// dedupeFetchFactor はドキュメント単位の重複排除時に余分に取得する係数
	dedupeFetchFactor = 4
)

// Service はハイブリッド検索（ベクトル類似度 + メタデータフィルタ）を提供する
type Service struct {
	repo     Repository
	embedder Embedder
	logger   *slog.Logger
}

type serviceOptions struct {
	logger *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService は新しいServiceを作成する
func NewService(repo Repository, embedder Embedder, opts ...ServiceOption) *Service {
	options := serviceOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Service{
		repo:     repo,
		embedder: embedder,
		logger:   options.logger,
	}
}

// Search はクエリに基づいてハイブリッド検索を実行する
// マッチ0件はエラーではなく空のスライスを返す
func (s *Service) Search(ctx context.Context, params Params) ([]*ScoredChunk, error) {
	// バリデーション（類似度検索の実行前にフィルタを検証する）
	if params.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	for _, f := range params.Filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	granularity := params.Granularity
	if granularity == "" {
		granularity = GranularityChunk
	}

	// クエリをEmbeddingに変換する
	// DB接続はこの呼び出しの完了後にのみ借りる（Embedding待ちの間は接続を保持しない）
	queryVector, err := s.embedder.Embed(ctx, params.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// ドキュメント単位の重複排除を行う場合は多めに取得する
	fetchLimit := limit
	if granularity == GranularityDocument {
		fetchLimit = limit * dedupeFetchFactor
	}

	results, err := s.repo.SimilaritySearch(ctx, queryVector, params.Filters, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	if granularity == GranularityDocument {
		results = dedupeByDocument(results)
	}
	if len(results) > limit {
		results = results[:limit]
	}

	// 前後コンテキストの付与
	if params.ContextSize > 0 {
		for _, result := range results {
			neighbors, err := s.repo.GetAdjacentChunks(ctx, result.DocumentID, result.Position, params.ContextSize, params.ContextSize)
			if err != nil {
				return nil, fmt.Errorf("failed to get adjacent chunks: %w", err)
			}
			result.Context = neighbors
		}
	}

	s.logger.Debug("検索を実行",
		"query", params.Query,
		"filters", len(params.Filters),
		"granularity", granularity,
		"results", len(results),
	)

	return results, nil
}

// dedupeByDocument はドキュメントごとに最高スコアのチャンクのみ残す
// 入力はスコア降順で整列済みであることを前提とし、相対順序を保つ
func dedupeByDocument(results []*ScoredChunk) []*ScoredChunk {
	seen := make(map[string]bool, len(results))
	deduped := make([]*ScoredChunk, 0, len(results))
	for _, r := range results {
		if seen[r.DocumentID] {
			continue
		}
		seen[r.DocumentID] = true
		deduped = append(deduped, r)
	}
	return deduped
}
