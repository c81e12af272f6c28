package search

import (
	"time"

	"github.com/google/uuid"
	"github.com/jinford/hansard-rag/internal/core/document"
)

// Granularity は検索結果の粒度
type Granularity string

const (
	// GranularityChunk はチャンク単位で結果を返す
	GranularityChunk Granularity = "chunk"
	// GranularityDocument はドキュメント単位で重複排除して返す
	// 各ドキュメントについて最高スコアのチャンクのみ残す
	GranularityDocument Granularity = "document"
)

// Params は検索パラメータ
type Params struct {
	Query       string
	Filters     []Filter
	Limit       int
	Granularity Granularity
	// ContextSize は各結果に付与する前後チャンク数（0なら付与しない）
	ContextSize int
}

// ScoredChunk はスコア付きの検索結果1件
type ScoredChunk struct {
	ChunkID    uuid.UUID
	DocumentID string
	Position   int
	Total      int
	Content    string
	Speaker    string
	Party      document.Party
	Chamber    document.Chamber
	Date       time.Time
	Title      string
	Score      float64 // コサイン類似度（1 - 距離）

	// Context は前後の隣接チャンク（ContextSize > 0 の場合のみ）
	Context []*ContextChunk
}

// ContextChunk は検索結果の前後コンテキストとなる隣接チャンク
type ContextChunk struct {
	Position int
	Content  string
}
