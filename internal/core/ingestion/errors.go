package ingestion

import (
	"errors"
	"fmt"

	"github.com/jinford/hansard-rag/internal/core/document"
)

// ErrUnauthorized は認可されていない呼び出し元による書き込み要求のエラー
var ErrUnauthorized = errors.New("caller is not authorized")

// DuplicateError は error ポリシー下での識別子衝突を表す
type DuplicateError struct {
	DocumentID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("document already exists: %s", e.DocumentID)
}

// StorageError はストレージ層のトランザクション失敗を表す
// 自動リトライは行わず、そのまま呼び出し元へ伝搬する
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NotFoundError は読み取り時にドキュメントが存在しないことを表す
type NotFoundError struct {
	DocumentID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s", e.DocumentID)
}

// EmbeddingError はリトライ上限まで試行しても失敗したEmbeddingバッチのエラー
// From/To は入力テキスト列のうち未処理となった範囲（half-open: [From, To)）
type EmbeddingError struct {
	From int
	To   int
	Err  error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("failed to embed texts [%d, %d): %v", e.From, e.To, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// ErrorCategory は一括ジョブの失敗レコードに記録するエラー分類
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryDuplicate  ErrorCategory = "duplicate"
	CategoryStorage    ErrorCategory = "storage"
	CategoryEmbedding  ErrorCategory = "embedding"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryUnknown    ErrorCategory = "unknown"
)

// Categorize はエラーをタクソノミに沿って分類する
func Categorize(err error) ErrorCategory {
	var (
		validationErr *document.ValidationError
		malformedErr  *document.MalformedHeaderError
		duplicateErr  *DuplicateError
		storageErr    *StorageError
		embeddingErr  *EmbeddingError
		notFoundErr   *NotFoundError
	)

	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &malformedErr),
		errors.Is(err, document.ErrMissingHeader),
		errors.Is(err, document.ErrEmptyBody):
		return CategoryValidation
	case errors.As(err, &duplicateErr):
		return CategoryDuplicate
	case errors.As(err, &embeddingErr):
		return CategoryEmbedding
	case errors.As(err, &storageErr):
		return CategoryStorage
	case errors.As(err, &notFoundErr):
		return CategoryNotFound
	default:
		return CategoryUnknown
	}
}
