package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/hansard-rag/internal/core/chunk"
	"github.com/jinford/hansard-rag/internal/core/document"
)

const (
	// DefaultTransactionTimeout はドキュメント1件のトランザクションのデフォルトタイムアウト
	DefaultTransactionTimeout = 10 * time.Second
)

// IngestService はドキュメント1件のインジェスト（パース → チャンク分割 → Embedding → 保存）を提供する
type IngestService struct {
	repository Repository
	embedder   Embedder
	parser     *document.Parser
	chunker    *chunk.Chunker
	authorizer Authorizer
	policy     DuplicatePolicy
	txTimeout  time.Duration
	logger     *slog.Logger
}

type ingestServiceOptions struct {
	authorizer Authorizer
	policy     DuplicatePolicy
	txTimeout  time.Duration
	logger     *slog.Logger
}

// IngestServiceOption は IngestService のオプション設定
type IngestServiceOption func(*ingestServiceOptions)

// WithIngestLogger は IngestService にロガーを設定する
func WithIngestLogger(logger *slog.Logger) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.logger = logger
	}
}

// WithDuplicatePolicy は識別子衝突時のポリシーを上書きする
func WithDuplicatePolicy(policy DuplicatePolicy) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.policy = policy
	}
}

// WithTransactionTimeout はトランザクションタイムアウトを上書きする
func WithTransactionTimeout(timeout time.Duration) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.txTimeout = timeout
	}
}

// WithAuthorizer は書き込み前の認可判定を設定する
func WithAuthorizer(authorizer Authorizer) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.authorizer = authorizer
	}
}

// NewIngestService は新しいIngestServiceを作成する
func NewIngestService(
	repo Repository,
	embedder Embedder,
	parser *document.Parser,
	chunker *chunk.Chunker,
	opts ...IngestServiceOption,
) *IngestService {
	options := ingestServiceOptions{
		policy:    PolicySkip,
		txTimeout: DefaultTransactionTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &IngestService{
		repository: repo,
		embedder:   embedder,
		parser:     parser,
		chunker:    chunker,
		authorizer: options.authorizer,
		policy:     options.policy,
		txTimeout:  options.txTimeout,
		logger:     options.logger,
	}
}

// IngestBytes はドキュメント1件分のバイト列をインジェストする
func (s *IngestService) IngestBytes(ctx context.Context, caller string, data []byte) (*IngestResult, error) {
	startTime := time.Now()

	// 書き込み前の認可判定（トークン解析は外部レイヤの責務）
	if s.authorizer != nil && !s.authorizer.IsAuthorized(caller) {
		return nil, ErrUnauthorized
	}

	header, body, err := s.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("ドキュメントのパースに失敗: %w", err)
	}

	spans, err := s.chunker.Split(body)
	if err != nil {
		return nil, fmt.Errorf("チャンク分割に失敗: %w", err)
	}

	texts := make([]string, 0, len(spans))
	for _, span := range spans {
		texts = append(texts, span.Text)
	}

	vectors, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding生成に失敗: %w", err)
	}
	if len(vectors) != len(spans) {
		return nil, fmt.Errorf("embeddingベクトル数が入力と一致しません: expected=%d actual=%d", len(spans), len(vectors))
	}

	chunks := make([]*Chunk, 0, len(spans))
	for i, span := range spans {
		if len(vectors[i]) != s.embedder.Dimension() {
			return nil, fmt.Errorf("embedding次元が設定と一致しません: expected=%d actual=%d", s.embedder.Dimension(), len(vectors[i]))
		}
		chunks = append(chunks, &Chunk{
			ID:         uuid.New(),
			DocumentID: header.ID,
			Position:   span.Position,
			Total:      span.Total,
			Content:    span.Text,
			Speaker:    header.Speaker,
			Party:      header.Party,
			Chamber:    header.Chamber,
			Date:       header.Date,
			Vector:     vectors[i],
		})
	}

	// トランザクションにはタイムアウトを設ける
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	result, err := s.repository.WriteDocument(txCtx, header, body, chunks, s.policy)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ドキュメントをインジェスト",
		"documentID", header.ID,
		"status", result.Status,
		"chunks", result.ChunkCount,
		"duration", time.Since(startTime),
	)

	return &IngestResult{
		DocumentID: header.ID,
		Status:     result.Status,
		ChunkCount: result.ChunkCount,
		Duration:   time.Since(startTime),
	}, nil
}

// IngestFile はファイルパスを指定して1件インジェストする
func (s *IngestService) IngestFile(ctx context.Context, caller string, path string) (*IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}
	return s.IngestBytes(ctx, caller, data)
}
