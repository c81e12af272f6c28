package ingestion

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/hansard-rag/internal/core/document"
)

// DuplicatePolicy は識別子衝突時の動作を表す
type DuplicatePolicy string

const (
	// PolicySkip は既存ドキュメントをそのまま残し、書き込みを行わない
	PolicySkip DuplicatePolicy = "skip"
	// PolicyUpdate は既存チャンクを全削除して新しい内容で置き換える
	PolicyUpdate DuplicatePolicy = "update"
	// PolicyError は衝突時に書き込み前に失敗させる
	PolicyError DuplicatePolicy = "error"
)

// ParseDuplicatePolicy は文字列をDuplicatePolicyに変換する
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(s); p {
	case PolicySkip, PolicyUpdate, PolicyError:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy: %q", s)
	}
}

// Chunk は保存対象の1チャンク
// 検索時にJOINなしでフィルタ評価できるよう、親ヘッダのフィルタ対象フィールドを複製して持つ
type Chunk struct {
	ID         uuid.UUID
	DocumentID string
	Position   int // 0始まり、Position < Total
	Total      int // 同一ドキュメントの全チャンクで同じ値
	Content    string

	// 親ヘッダからの複製
	Speaker string
	Party   document.Party
	Chamber document.Chamber
	Date    time.Time

	// Embeddingベクトル（チャンクと同一トランザクションで保存される）
	Vector []float32
}

// WriteStatus は書き込み結果の種別
type WriteStatus string

const (
	WriteCreated WriteStatus = "created"
	WriteUpdated WriteStatus = "updated"
	WriteSkipped WriteStatus = "skipped"
)

// WriteResult はドキュメント1件の書き込み結果
type WriteResult struct {
	Status     WriteStatus
	ChunkCount int
}

// IngestResult はドキュメント1件のインジェスト結果
type IngestResult struct {
	DocumentID string
	Status     WriteStatus
	ChunkCount int
	Duration   time.Duration
}
