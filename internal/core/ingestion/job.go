package ingestion

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobKind はジョブの種別
type JobKind string

const (
	JobKindSingle JobKind = "single"
	JobKindBulk   JobKind = "bulk"
)

// JobStatus はジョブの状態
type JobStatus string

const (
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed" // 全件成功
	JobPartial    JobStatus = "partial"   // 一部成功・一部失敗
	JobFailed     JobStatus = "failed"    // 1件も成功しなかった
	JobCancelled  JobStatus = "cancelled" // キャンセルで未着手の入力が残った
)

// Failure はジョブ内の1件分の失敗記録
type Failure struct {
	Ref      string // 入力の参照（ファイルパス等）
	Category ErrorCategory
	Message  string
	At       time.Time
}

// Job はオーケストレータの1回の実行を追跡する
// プロセス内のみで保持され、再起動をまたいで永続化はしない
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      JobStatus
	Inputs      []string
	Succeeded   int
	Failed      int
	Unattempted int // キャンセルで処理されなかった入力件数
	Failures    []Failure

	mu sync.Mutex
}

// newJob は実行中状態のジョブを作成する
func newJob(kind JobKind, inputs []string) *Job {
	return &Job{
		ID:        uuid.New(),
		Kind:      kind,
		StartedAt: time.Now(),
		Status:    JobInProgress,
		Inputs:    inputs,
	}
}

// recordSuccess は1件の成功を記録し、完了済み件数を返す
func (j *Job) recordSuccess() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Succeeded++
	return j.Succeeded + j.Failed
}

// recordFailure は1件の失敗を記録し、完了済み件数を返す
func (j *Job) recordFailure(ref string, err error) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Failed++
	j.Failures = append(j.Failures, Failure{
		Ref:      ref,
		Category: Categorize(err),
		Message:  err.Error(),
		At:       time.Now(),
	})
	return j.Succeeded + j.Failed
}

// finalize はジョブを終了状態に凍結する
// 終了後は succeeded + failed + unattempted == 入力件数 が成り立つ
func (j *Job) finalize(unattempted int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.FinishedAt = time.Now()
	j.Unattempted = unattempted

	switch {
	case unattempted > 0:
		j.Status = JobCancelled
	case j.Failed == 0:
		j.Status = JobCompleted
	case j.Succeeded == 0:
		j.Status = JobFailed
	default:
		j.Status = JobPartial
	}
}

// Total は入力件数を返す
func (j *Job) Total() int {
	return len(j.Inputs)
}

// Duration はジョブの所要時間を返す
func (j *Job) Duration() time.Duration {
	if j.FinishedAt.IsZero() {
		return time.Since(j.StartedAt)
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
