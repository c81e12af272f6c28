package ingestion

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBulkWorkerCount はデフォルトの並列ドキュメント数
	DefaultBulkWorkerCount = 4
)

// BulkService は複数ドキュメントの一括インジェストを調停する
// 各ドキュメントは独立に処理され、1件の失敗が他のドキュメントの処理を妨げることはない
type BulkService struct {
	ingest  *IngestService
	workers int
	sink    ProgressSink
	logger  *slog.Logger
}

type bulkServiceOptions struct {
	workers int
	sink    ProgressSink
	logger  *slog.Logger
}

// BulkServiceOption は BulkService のオプション設定
type BulkServiceOption func(*bulkServiceOptions)

// WithBulkWorkers は並列ドキュメント数を上書きする
func WithBulkWorkers(workers int) BulkServiceOption {
	return func(o *bulkServiceOptions) {
		o.workers = workers
	}
}

// WithProgressSink は進捗イベントの出力先を設定する
func WithProgressSink(sink ProgressSink) BulkServiceOption {
	return func(o *bulkServiceOptions) {
		o.sink = sink
	}
}

// WithBulkLogger は BulkService にロガーを設定する
func WithBulkLogger(logger *slog.Logger) BulkServiceOption {
	return func(o *bulkServiceOptions) {
		o.logger = logger
	}
}

// NewBulkService は新しいBulkServiceを作成する
func NewBulkService(ingest *IngestService, opts ...BulkServiceOption) *BulkService {
	options := bulkServiceOptions{
		workers: DefaultBulkWorkerCount,
		sink:    nopSink{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.workers <= 0 {
		options.workers = DefaultBulkWorkerCount
	}
	if options.sink == nil {
		options.sink = nopSink{}
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &BulkService{
		ingest:  ingest,
		workers: options.workers,
		sink:    options.sink,
		logger:  options.logger,
	}
}

// IngestDir はディレクトリ以下の演説ファイルを列挙して一括インジェストする
func (b *BulkService) IngestDir(ctx context.Context, caller string, dir string) (*Job, error) {
	paths, err := DiscoverDocuments(dir)
	if err != nil {
		return nil, err
	}
	return b.IngestFiles(ctx, caller, paths)
}

// IngestFiles はファイル群を一括インジェストし、ジョブサマリを返す
// 全件失敗してもサマリは必ず返す。キャンセル時は処理中のアイテム完了を待ってから
// 未着手分を残したままジョブを凍結し、ctx のエラーと共に返す
func (b *BulkService) IngestFiles(ctx context.Context, caller string, paths []string) (*Job, error) {
	job := newJob(JobKindBulk, paths)
	total := len(paths)

	b.logger.Info("一括インジェストを開始",
		"jobID", job.ID,
		"total", total,
		"workers", b.workers,
	)

	g := new(errgroup.Group)
	g.SetLimit(b.workers)

	// キャンセルで処理されなかった件数（未スケジュール分とワーカー内で見送った分）
	var skipped atomic.Int64
	scheduled := 0

	for _, path := range paths {
		// 新しいドキュメントを開始する前にキャンセルを確認する
		// コミット済みのドキュメントはロールバックしない
		if ctx.Err() != nil {
			break
		}
		scheduled++

		g.Go(func() error {
			if ctx.Err() != nil {
				skipped.Add(1)
				return nil
			}

			result, err := b.ingest.IngestFile(ctx, caller, path)
			if err != nil {
				done := job.recordFailure(path, err)
				b.logger.Warn("ドキュメントのインジェストに失敗",
					"jobID", job.ID,
					"path", path,
					"category", Categorize(err),
					"error", err,
				)
				b.sink.Publish(ProgressEvent{
					Index:  done,
					Total:  total,
					Ref:    path,
					Status: ProgressFailed,
					Err:    err,
				})
				return nil
			}

			done := job.recordSuccess()
			b.logger.Debug("ドキュメントをインジェスト",
				"jobID", job.ID,
				"path", path,
				"documentID", result.DocumentID,
				"status", result.Status,
			)
			b.sink.Publish(ProgressEvent{
				Index:  done,
				Total:  total,
				Ref:    path,
				Status: ProgressSucceeded,
			})
			return nil
		})
	}

	// ワーカーはエラーを返さない（失敗はジョブに記録する）ため Wait のエラーは無視できる
	_ = g.Wait()

	job.finalize(total - scheduled + int(skipped.Load()))

	b.logger.Info("一括インジェストが完了",
		"jobID", job.ID,
		"status", job.Status,
		"succeeded", job.Succeeded,
		"failed", job.Failed,
		"unattempted", job.Unattempted,
		"duration", job.Duration(),
	)

	if ctx.Err() != nil {
		return job, ctx.Err()
	}
	return job, nil
}
