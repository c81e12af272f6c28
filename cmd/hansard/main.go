package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinford/hansard-rag/cmd/hansard/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}

	app := &cli.Command{
		Name:  "hansard",
		Usage: "議会演説アーカイブの検索基盤（インジェストとセマンティック検索）",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "データベーススキーマを適用",
				Flags: []cli.Flag{
					envFlag,
				},
				Action: commands.InitAction,
			},
			{
				Name:  "ingest",
				Usage: "演説ドキュメントのインジェストコマンド",
				Commands: []*cli.Command{
					{
						Name:  "file",
						Usage: "単一ドキュメントをインジェスト",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:     "file",
								Usage:    "ドキュメントのファイルパス",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "policy",
								Usage: "識別子衝突時のポリシー (skip / update / error)",
							},
						},
						Action: commands.IngestFileAction,
					},
					{
						Name:  "dir",
						Usage: "ディレクトリ配下の全ドキュメントを一括インジェスト",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:     "dir",
								Usage:    "ドキュメントのルートディレクトリ",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "policy",
								Usage: "識別子衝突時のポリシー (skip / update / error)",
							},
							&cli.IntFlag{
								Name:  "workers",
								Usage: "並列ドキュメント数",
							},
						},
						Action: commands.IngestDirAction,
					},
				},
			},
			{
				Name:  "search",
				Usage: "演説チャンクのセマンティック検索",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:     "query",
						Usage:    "検索クエリ",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "filter",
						Usage: "メタデータフィルタ (例: party=ALP, date>=2024-01-01)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "最大件数",
						Value: 10,
					},
					&cli.StringFlag{
						Name:  "granularity",
						Usage: "結果の粒度 (chunk / document)",
						Value: "chunk",
					},
					&cli.IntFlag{
						Name:  "context",
						Usage: "各結果に付与する前後チャンク数",
					},
					&cli.BoolFlag{
						Name:  "content",
						Usage: "チャンク本文を表示",
					},
				},
				Action: commands.SearchAction,
			},
			{
				Name:  "document",
				Usage: "登録済みドキュメントの管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "show",
						Usage: "ドキュメント詳細を表示",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:     "id",
								Usage:    "ドキュメント識別子",
								Required: true,
							},
							&cli.BoolFlag{
								Name:  "body",
								Usage: "本文を表示",
							},
						},
						Action: commands.DocumentShowAction,
					},
				},
			},
			{
				Name:  "stats",
				Usage: "ストアの登録件数を表示",
				Flags: []cli.Flag{
					envFlag,
				},
				Action: commands.StatsAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatalf("エラー: %v", err)
	}
}
