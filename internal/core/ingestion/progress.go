package ingestion

// ProgressStatus は1件分の処理結果
type ProgressStatus string

const (
	ProgressSucceeded ProgressStatus = "succeeded"
	ProgressFailed    ProgressStatus = "failed"
)

// ProgressEvent は一括ジョブの進捗イベント
// Index は完了済み件数（1始まり）で、完了順に単調増加する
type ProgressEvent struct {
	Index  int
	Total  int
	Ref    string
	Status ProgressStatus
	Err    error // Status が failed の場合のみ非nil
}

// ProgressSink は進捗イベントの出力先
// オーケストレータは各アイテムの完了直後に同期的にPublishを呼ぶ
// 出力先のトランスポート（標準出力、チャネル等）はコアでは規定しない
type ProgressSink interface {
	Publish(event ProgressEvent)
}

// ProgressFunc は関数をProgressSinkとして使うためのアダプタ
type ProgressFunc func(event ProgressEvent)

func (f ProgressFunc) Publish(event ProgressEvent) {
	f(event)
}

// nopSink はイベントを破棄するSink
type nopSink struct{}

func (nopSink) Publish(ProgressEvent) {}
