package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSpeechFile はテスト用の演説ファイルを作成する
func writeSpeechFile(t *testing.T, dir, name, id string) string {
	t.Helper()
	content := fmt.Sprintf(`---
id: %s
speaker: Penny Wong
party: ALP
chamber: SENATE
date: 2024-03-15
title: Budget Estimates
---
The budget before the chamber today represents a considered response.
`, id)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeInvalidFile はパースに失敗するファイルを作成する
func writeInvalidFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("no frontmatter\n"), 0o644))
	return path
}

func newTestBulkService(t *testing.T, repo *mockRepository, opts ...BulkServiceOption) *BulkService {
	t.Helper()
	service := newTestService(t, repo, &mockEmbedder{dimension: 768})
	return NewBulkService(service, opts...)
}

func TestIngestFiles_AllSucceed(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeSpeechFile(t, dir, "a.md", "doc-a"),
		writeSpeechFile(t, dir, "b.md", "doc-b"),
		writeSpeechFile(t, dir, "c.md", "doc-c"),
	}

	repo := &mockRepository{}
	bulk := newTestBulkService(t, repo, WithBulkWorkers(2))

	job, err := bulk.IngestFiles(context.Background(), "anyone", paths)
	require.NoError(t, err)

	assert.Equal(t, JobCompleted, job.Status)
	assert.Equal(t, 3, job.Succeeded)
	assert.Zero(t, job.Failed)
	assert.Equal(t, 3, job.Total())
	assert.False(t, job.FinishedAt.IsZero())
}

func TestIngestFiles_PartialFailure(t *testing.T) {
	// 1件の不正ドキュメントが残りの処理を止めない
	dir := t.TempDir()
	paths := []string{
		writeSpeechFile(t, dir, "a.md", "doc-a"),
		writeInvalidFile(t, dir, "broken.md"),
		writeSpeechFile(t, dir, "c.md", "doc-c"),
	}

	repo := &mockRepository{}
	bulk := newTestBulkService(t, repo, WithBulkWorkers(1))

	job, err := bulk.IngestFiles(context.Background(), "anyone", paths)
	require.NoError(t, err)

	assert.Equal(t, JobPartial, job.Status)
	assert.Equal(t, 2, job.Succeeded)
	assert.Equal(t, 1, job.Failed)

	require.Len(t, job.Failures, 1)
	failure := job.Failures[0]
	assert.Equal(t, paths[1], failure.Ref)
	assert.Equal(t, CategoryValidation, failure.Category)
	assert.NotEmpty(t, failure.Message)
	assert.False(t, failure.At.IsZero())
}

func TestIngestFiles_AllFail(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeInvalidFile(t, dir, "x.md"),
		writeInvalidFile(t, dir, "y.md"),
	}

	repo := &mockRepository{}
	bulk := newTestBulkService(t, repo)

	job, err := bulk.IngestFiles(context.Background(), "anyone", paths)
	require.NoError(t, err)

	assert.Equal(t, JobFailed, job.Status)
	assert.Zero(t, job.Succeeded)
	assert.Equal(t, 2, job.Failed)
	assert.Zero(t, repo.writeCalls)
}

func TestIngestFiles_ProgressEvents(t *testing.T) {
	// workers=1 なら進捗イベントは入力順かつ完了件数が単調増加する
	dir := t.TempDir()
	paths := []string{
		writeSpeechFile(t, dir, "a.md", "doc-a"),
		writeInvalidFile(t, dir, "broken.md"),
		writeSpeechFile(t, dir, "c.md", "doc-c"),
	}

	var events []ProgressEvent
	sink := ProgressFunc(func(event ProgressEvent) {
		events = append(events, event)
	})

	repo := &mockRepository{}
	bulk := newTestBulkService(t, repo, WithBulkWorkers(1), WithProgressSink(sink))

	_, err := bulk.IngestFiles(context.Background(), "anyone", paths)
	require.NoError(t, err)

	require.Len(t, events, 3)
	for i, event := range events {
		assert.Equal(t, i+1, event.Index)
		assert.Equal(t, 3, event.Total)
		assert.Equal(t, paths[i], event.Ref)
	}
	assert.Equal(t, ProgressSucceeded, events[0].Status)
	assert.Equal(t, ProgressFailed, events[1].Status)
	require.NotNil(t, events[1].Err)
	assert.Equal(t, ProgressSucceeded, events[2].Status)
}

func TestIngestFiles_CancelledContext(t *testing.T) {
	// キャンセル済みコンテキストでは新しいドキュメントを開始しない
	dir := t.TempDir()
	paths := []string{
		writeSpeechFile(t, dir, "a.md", "doc-a"),
		writeSpeechFile(t, dir, "b.md", "doc-b"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := &mockRepository{}
	bulk := newTestBulkService(t, repo, WithBulkWorkers(1))

	job, err := bulk.IngestFiles(ctx, "anyone", paths)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, job)
	assert.Zero(t, job.Succeeded)
	assert.Zero(t, repo.writeCalls)

	// 未着手分が計上され、終了状態でも件数の不変条件が成り立つ
	assert.Equal(t, JobCancelled, job.Status)
	assert.Equal(t, 2, job.Unattempted)
	assert.Equal(t, job.Total(), job.Succeeded+job.Failed+job.Unattempted)
}

func TestIngestDir_DiscoversMarkdownFiles(t *testing.T) {
	// ディレクトリ走査では .md のみを対象とし、無視パターンを尊重する
	dir := t.TempDir()
	writeSpeechFile(t, dir, "a.md", "doc-a")
	writeSpeechFile(t, dir, "drafts.md", "doc-draft")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a speech"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, IgnoreFileName), []byte("drafts.md\n"), 0o644))

	sub := filepath.Join(dir, "2024")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeSpeechFile(t, sub, "b.md", "doc-b")

	repo := &mockRepository{}
	bulk := newTestBulkService(t, repo)

	job, err := bulk.IngestDir(context.Background(), "anyone", dir)
	require.NoError(t, err)

	assert.Equal(t, JobCompleted, job.Status)
	assert.Equal(t, 2, job.Succeeded)
	assert.Equal(t, 2, repo.writeCalls)
}

func TestIngestDir_MissingDirectory(t *testing.T) {
	repo := &mockRepository{}
	bulk := newTestBulkService(t, repo)

	_, err := bulk.IngestDir(context.Background(), "anyone", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
