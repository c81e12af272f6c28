package document

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingHeader はフロントマター区切り（---）が見つからない場合のエラー
	ErrMissingHeader = errors.New("document has no frontmatter header")

	// ErrEmptyBody はヘッダ以降の本文が空の場合のエラー
	ErrEmptyBody = errors.New("document body is empty")
)

// MalformedHeaderError はフロントマターのYAML構文エラーを表す
type MalformedHeaderError struct {
	Err error
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("malformed frontmatter header: %v", e.Err)
}

func (e *MalformedHeaderError) Unwrap() error {
	return e.Err
}

// ValidationError はヘッダフィールドのスキーマ違反を表す
// Field には違反したフィールド名が入る
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}
