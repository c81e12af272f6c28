package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/hansard-rag/internal/core/document"
	"github.com/jinford/hansard-rag/internal/core/search"
)

// SearchAction は演説チャンクのハイブリッド検索コマンドのアクション
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	query := cmd.String("query")
	filterExprs := cmd.StringSlice("filter")
	limit := cmd.Int("limit")
	granularityStr := cmd.String("granularity")
	contextSize := cmd.Int("context")
	showContent := cmd.Bool("content")

	filters, err := search.ParseFilters(filterExprs)
	if err != nil {
		return err
	}

	granularity := search.GranularityChunk
	if granularityStr != "" {
		switch g := search.Granularity(granularityStr); g {
		case search.GranularityChunk, search.GranularityDocument:
			granularity = g
		default:
			return fmt.Errorf("不明な粒度: %q（chunk または document を指定してください）", granularityStr)
		}
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	service := appCtx.NewSearchService()

	results, err := service.Search(ctx, search.Params{
		Query:       query,
		Filters:     filters,
		Limit:       limit,
		Granularity: granularity,
		ContextSize: contextSize,
	})
	if err != nil {
		return fmt.Errorf("検索に失敗: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("該当する結果はありません")
		return nil
	}

	renderResultsTable(results)

	if showContent || contextSize > 0 {
		renderResultsDetail(results)
	}

	return nil
}

// renderResultsTable はテーブル形式で検索結果を表示します
func renderResultsTable(results []*search.ScoredChunk) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Score", "Document", "Pos", "Speaker", "Party", "Chamber", "Date", "Title")

	for _, r := range results {
		table.Append(
			fmt.Sprintf("%.4f", r.Score),
			r.DocumentID,
			fmt.Sprintf("%d/%d", r.Position+1, r.Total),
			r.Speaker,
			string(r.Party),
			string(r.Chamber),
			r.Date.Format(document.DateLayout),
			truncateString(r.Title, 40),
		)
	}

	table.Render()
}

// renderResultsDetail は各結果の本文と前後コンテキストを表示します
func renderResultsDetail(results []*search.ScoredChunk) {
	for i, r := range results {
		fmt.Printf("\n=== [%d] %s (%s, %s) score=%.4f ===\n", i+1, r.Title, r.Speaker, r.Date.Format(document.DateLayout), r.Score)

		for _, c := range r.Context {
			if c.Position < r.Position {
				fmt.Printf("  ... %s\n", truncateString(c.Content, 120))
			}
		}

		fmt.Printf("%s\n", r.Content)

		for _, c := range r.Context {
			if c.Position > r.Position {
				fmt.Printf("  ... %s\n", truncateString(c.Content, 120))
			}
		}
	}
}

// truncateString は表示用に文字列を指定長で切り詰めます
func truncateString(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
