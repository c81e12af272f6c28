package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/hansard-rag/internal/core/ingestion"
)

// IngestFileAction は単一ドキュメントをインジェストするコマンドのアクション
func IngestFileAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	path := cmd.String("file")
	policyStr := cmd.String("policy")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	service, err := appCtx.NewIngestService(policyStr)
	if err != nil {
		return err
	}

	result, err := service.IngestFile(ctx, appCtx.Caller(), path)
	if err != nil {
		return fmt.Errorf("インジェストに失敗: %w", err)
	}

	switch result.Status {
	case ingestion.WriteSkipped:
		fmt.Printf("- スキップ: %s は既に登録済みです\n", result.DocumentID)
	default:
		fmt.Printf("✓ %s を登録しました (status=%s, chunks=%d, %.2fs)\n",
			result.DocumentID, result.Status, result.ChunkCount, result.Duration.Seconds())
	}

	slog.Info("ドキュメントをインジェスト",
		"documentID", result.DocumentID,
		"status", result.Status,
		"chunks", result.ChunkCount,
	)

	return nil
}

// IngestDirAction はディレクトリ配下の全ドキュメントを一括インジェストするコマンドのアクション
func IngestDirAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	dir := cmd.String("dir")
	policyStr := cmd.String("policy")
	workers := cmd.Int("workers")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	service, err := appCtx.NewIngestService(policyStr)
	if err != nil {
		return err
	}

	if workers <= 0 {
		workers = appCtx.Config.Ingest.Workers
	}

	bulk := ingestion.NewBulkService(service,
		ingestion.WithBulkWorkers(workers),
		ingestion.WithProgressSink(ConsoleProgressSink{}),
		ingestion.WithBulkLogger(appCtx.Logger),
	)

	job, err := bulk.IngestDir(ctx, appCtx.Caller(), dir)
	if err != nil {
		// キャンセル時も途中までの結果を表示する
		if job != nil {
			printJobSummary(job)
		}
		return fmt.Errorf("一括インジェストが中断されました: %w", err)
	}

	printJobSummary(job)

	if job.Status == ingestion.JobFailed {
		return fmt.Errorf("一括インジェストに失敗しました（成功0件）")
	}

	return nil
}

// printJobSummary は一括ジョブの最終結果を表示する
func printJobSummary(job *ingestion.Job) {
	fmt.Printf("\n=== 一括インジェスト結果 ===\n")
	fmt.Printf("ジョブID:   %s\n", job.ID)
	fmt.Printf("ステータス: %s\n", job.Status)
	fmt.Printf("成功:       %d / %d\n", job.Succeeded, job.Total())
	fmt.Printf("失敗:       %d\n", job.Failed)
	if job.Unattempted > 0 {
		fmt.Printf("未着手:     %d\n", job.Unattempted)
	}
	fmt.Printf("所要時間:   %.2fs\n", job.Duration().Seconds())

	if len(job.Failures) > 0 {
		fmt.Printf("\n--- 失敗の内訳 ---\n")
		for _, f := range job.Failures {
			fmt.Printf("  %s [%s]: %s\n", f.Ref, f.Category, f.Message)
		}
	}
}
