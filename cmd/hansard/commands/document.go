package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/hansard-rag/internal/core/document"
)

// DocumentShowAction は登録済みドキュメントの詳細を表示するコマンドのアクション
func DocumentShowAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	id := cmd.String("id")
	showBody := cmd.Bool("body")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	doc, err := appCtx.Store.GetDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("ドキュメントの取得に失敗: %w", err)
	}

	renderDocumentDetail(doc, showBody)

	return nil
}

// StatsAction はストアの登録件数を表示するコマンドのアクション
func StatsAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	documents, err := appCtx.Store.CountDocuments(ctx)
	if err != nil {
		return fmt.Errorf("ドキュメント数の取得に失敗: %w", err)
	}

	chunks, err := appCtx.Store.CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("チャンク数の取得に失敗: %w", err)
	}

	fmt.Printf("ドキュメント: %d\n", documents)
	fmt.Printf("チャンク:     %d\n", chunks)

	return nil
}

// renderDocumentDetail はドキュメントの詳細を表示します
func renderDocumentDetail(doc *document.Document, showBody bool) {
	fmt.Printf("\n=== ドキュメント詳細 ===\n\n")
	fmt.Printf("ID:         %s\n", doc.Header.ID)
	fmt.Printf("Speaker:    %s\n", doc.Header.Speaker)
	fmt.Printf("Party:      %s\n", doc.Header.Party)
	fmt.Printf("Chamber:    %s\n", doc.Header.Chamber)
	fmt.Printf("Date:       %s\n", doc.Header.Date.Format(document.DateLayout))
	fmt.Printf("Title:      %s\n", doc.Header.Title)
	if doc.Header.State != nil {
		fmt.Printf("State:      %s\n", *doc.Header.State)
	}
	if doc.Header.SourceRef != nil {
		fmt.Printf("Source:     %s\n", *doc.Header.SourceRef)
	}
	fmt.Printf("Created At: %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated At: %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))

	if showBody {
		fmt.Printf("\n--- 本文 ---\n%s\n", doc.Body)
	}
}
