package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/hansard-rag/internal/infra/postgres"
)

// InitAction はデータベーススキーマを適用するコマンドのアクション
// 冪等なので既存環境に対して繰り返し実行できる
func InitAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	dimension := appCtx.Config.OpenAI.EmbeddingDimension
	if err := postgres.EnsureSchema(ctx, appCtx.Database.Pool, dimension); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}

	fmt.Printf("✓ スキーマを適用しました (dimension=%d)\n", dimension)

	return nil
}
