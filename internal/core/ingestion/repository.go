package ingestion

import (
	"context"

	"github.com/jinford/hansard-rag/internal/core/document"
)

// Repository はドキュメントとチャンクの永続化インターフェース
type Repository interface {
	// WriteDocument はドキュメント1件（ヘッダ + 本文 + 全チャンク）をアトミックに保存する
	// 識別子が衝突した場合はpolicyに従って skip / update / error の動作をとる
	WriteDocument(ctx context.Context, header *document.Header, body string, chunks []*Chunk, policy DuplicatePolicy) (*WriteResult, error)

	// GetDocument は識別子でドキュメントを取得する
	// 存在しない場合は *NotFoundError を返す
	GetDocument(ctx context.Context, id string) (*document.Document, error)

	// ListChunks はドキュメントのチャンクを位置範囲で取得する（ベクトルは含まない）
	ListChunks(ctx context.Context, documentID string, fromPosition, toPosition int) ([]*Chunk, error)

	// DeleteChunks はドキュメントの全チャンクを削除する
	DeleteChunks(ctx context.Context, documentID string) error

	// CountDocuments は保存済みドキュメント数を返す
	CountDocuments(ctx context.Context) (int64, error)

	// CountChunks は保存済みチャンク数を返す
	CountChunks(ctx context.Context) (int64, error)
}

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed は複数テキストのEmbeddingを入力順を保って生成する
	// プロバイダ上限を超える入力は内部でバッチに分割される
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension は生成されるベクトルの次元数を返す
	Dimension() int

	// MaxBatchSize は1リクエストあたりの最大テキスト数を返す
	MaxBatchSize() int
}

// Authorizer は書き込み操作の認可判定を外部の認証レイヤに委譲するインターフェース
// トークンの解析等はこのコアでは行わない
type Authorizer interface {
	IsAuthorized(caller string) bool
}
