package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// dimensionPlaceholder はschema.sql内のベクトル次元プレースホルダ
const dimensionPlaceholder = "__EMBEDDING_DIMENSION__"

// EnsureSchema はスキーマを冪等に適用する
// ベクトル次元はEmbedding設定と一致させる必要があるため、適用時に埋め込む
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dimension)
	}

	sql := strings.ReplaceAll(schemaSQL, dimensionPlaceholder, strconv.Itoa(dimension))

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	return nil
}
