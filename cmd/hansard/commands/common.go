package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/hansard-rag/internal/core/chunk"
	"github.com/jinford/hansard-rag/internal/core/document"
	"github.com/jinford/hansard-rag/internal/core/ingestion"
	"github.com/jinford/hansard-rag/internal/core/search"
	"github.com/jinford/hansard-rag/internal/infra/openai"
	"github.com/jinford/hansard-rag/internal/infra/postgres"
	"github.com/jinford/hansard-rag/internal/platform/logger"
	"github.com/jinford/hansard-rag/pkg/config"
	"github.com/jinford/hansard-rag/pkg/db"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config   *config.Config
	Logger   *slog.Logger
	Database *db.DB
	Embedder *openai.Embedder
	Store    *postgres.Store
}

// NewAppContext は設定を読み込み、DBに接続して AppContext を作成する
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	appLogger := logger.New(logger.DefaultConfig())

	database, err := db.New(ctx, db.ConnectionParams{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		DBName:         cfg.Database.DBName,
		SSLMode:        cfg.Database.SSLMode,
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	embedder, err := openai.NewEmbedder(cfg.OpenAI.APIKey,
		openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
		openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
		openai.WithRequestTimeout(cfg.OpenAI.RequestTimeout),
	)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("Embedderの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:   cfg,
		Logger:   appLogger,
		Database: database,
		Embedder: embedder,
		Store:    postgres.NewStore(database.Pool),
	}, nil
}

// Caller は書き込み操作に使う呼び出し元のクレデンシャルを返す
func (ac *AppContext) Caller() string {
	return ac.Config.APIToken
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Database != nil {
		ac.Database.Close()
	}
}

// NewIngestService は設定済みのインジェストサービスを組み立てる
func (ac *AppContext) NewIngestService(policyOverride string) (*ingestion.IngestService, error) {
	policyStr := ac.Config.Ingest.DuplicatePolicy
	if policyOverride != "" {
		policyStr = policyOverride
	}
	policy, err := ingestion.ParseDuplicatePolicy(policyStr)
	if err != nil {
		return nil, err
	}

	chunker, err := chunk.NewChunker(ac.Config.Chunking.Size, ac.Config.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("チャンカーの初期化に失敗: %w", err)
	}

	return ingestion.NewIngestService(
		ac.Store,
		ac.Embedder,
		document.NewParser(),
		chunker,
		ingestion.WithIngestLogger(ac.Logger),
		ingestion.WithDuplicatePolicy(policy),
		ingestion.WithTransactionTimeout(ac.Config.Ingest.TransactionTimeout),
		ingestion.WithAuthorizer(NewTokenAuthorizer(ac.Config.APIToken)),
	), nil
}

// NewSearchService は検索サービスを組み立てる
func (ac *AppContext) NewSearchService() *search.Service {
	return search.NewService(
		postgres.NewSearchRepository(ac.Database.Pool),
		ac.Embedder,
		search.WithLogger(ac.Logger),
	)
}

// TokenAuthorizer は設定済みトークンとの一致で書き込みを認可する
// トークン未設定の場合は認可チェックを行わない（ローカル利用想定）
type TokenAuthorizer struct {
	token string
}

// NewTokenAuthorizer は新しい TokenAuthorizer を作成する
func NewTokenAuthorizer(token string) *TokenAuthorizer {
	return &TokenAuthorizer{token: token}
}

// IsAuthorized は呼び出し元が書き込みを許可されているかを返す
func (a *TokenAuthorizer) IsAuthorized(caller string) bool {
	if a.token == "" {
		return true
	}
	return caller == a.token
}

var _ ingestion.Authorizer = (*TokenAuthorizer)(nil)
