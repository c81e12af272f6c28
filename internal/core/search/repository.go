package search

import "context"

// Repository は永続化層への読み取り専用アクセス
type Repository interface {
	// SimilaritySearch はクエリベクトルとの類似度検索をフィルタ制約付きで実行する
	// 結果は スコア降順 → 演説日降順 → ドキュメントID昇順 で整列して返す
	SimilaritySearch(ctx context.Context, queryVector []float32, filters []Filter, limit int) ([]*ScoredChunk, error)

	// GetAdjacentChunks は同一ドキュメント内で position の前後にあるチャンクを取得する
	// （position自身は含まない）
	GetAdjacentChunks(ctx context.Context, documentID string, position, before, after int) ([]*ContextChunk, error)
}

// Embedder はクエリテキストのEmbedding生成インターフェース
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
