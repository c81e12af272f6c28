package commands

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/jinford/hansard-rag/internal/core/ingestion"
)

var (
	successMark = color.New(color.FgGreen).SprintFunc()
	failureMark = color.New(color.FgRed).SprintFunc()
)

// ConsoleProgressSink は一括インジェストの進捗を標準出力へ逐次表示する
type ConsoleProgressSink struct{}

// Publish は1件分の完了を表示する
func (ConsoleProgressSink) Publish(event ingestion.ProgressEvent) {
	switch event.Status {
	case ingestion.ProgressSucceeded:
		fmt.Printf("[%d/%d] %s %s\n", event.Index, event.Total, successMark("✓"), event.Ref)
	case ingestion.ProgressFailed:
		fmt.Printf("[%d/%d] %s %s: %v\n", event.Index, event.Total, failureMark("✗"), event.Ref, event.Err)
	}
}

var _ ingestion.ProgressSink = ConsoleProgressSink{}
