package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jinford/hansard-rag/internal/core/ingestion"
	"github.com/jinford/hansard-rag/internal/core/search"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimension はベクトル次元のデフォルト
	DefaultEmbeddingDimension = 768
	// DefaultRequestTimeout はAPI呼び出し1回あたりのタイムアウト
	DefaultRequestTimeout = 30 * time.Second
	// DefaultMaxAttempts は一時的エラー時の最大試行回数
	DefaultMaxAttempts = 3

	// maxBatchSize はOpenAI Embeddings APIの1リクエストあたりの上限
	maxBatchSize = 100
	// maxInputTokens は1テキストあたりの最大トークン数（超過分は切り詰める）
	maxInputTokens = 8192
	// tokenizerEncoding はトークン数計測に使うエンコーディング
	tokenizerEncoding = "cl100k_base"

	// baseBackoff はExponential Backoffの基底時間
	baseBackoff = 1 * time.Second
)

// Embedder は OpenAI API を使用してテキストをベクトルに変換する
type Embedder struct {
	client      openai.Client
	model       string
	dimension   int
	timeout     time.Duration
	maxAttempts int
	tokenizer   *tiktoken.Tiktoken
}

type embedderOptions struct {
	model       string
	dimension   int
	timeout     time.Duration
	maxAttempts int
	baseURL     string
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		o.model = model
	}
}

// WithEmbeddingDimension はベクトル次元を上書きする
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithRequestTimeout はAPI呼び出し1回あたりのタイムアウトを上書きする
func WithRequestTimeout(timeout time.Duration) EmbedderOption {
	return func(o *embedderOptions) {
		o.timeout = timeout
	}
}

// WithMaxAttempts は最大試行回数を上書きする
func WithMaxAttempts(attempts int) EmbedderOption {
	return func(o *embedderOptions) {
		o.maxAttempts = attempts
	}
}

// WithBaseURL はAPIのベースURLを上書きする（OpenAI互換エンドポイント用）
func WithBaseURL(url string) EmbedderOption {
	return func(o *embedderOptions) {
		o.baseURL = url
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(apiKey string, opts ...EmbedderOption) (*Embedder, error) {
	options := embedderOptions{
		model:       DefaultEmbeddingModel,
		dimension:   DefaultEmbeddingDimension,
		timeout:     DefaultRequestTimeout,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(&options)
	}

	tokenizer, err := tiktoken.GetEncoding(tokenizerEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// リトライはembedBatch側で一元管理する（SDK側の自動リトライは無効化）
		option.WithMaxRetries(0),
	}
	if options.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(options.baseURL))
	}

	return &Embedder{
		client: openai.NewClient(clientOpts...),
		model:       options.model,
		dimension:   options.dimension,
		timeout:     options.timeout,
		maxAttempts: options.maxAttempts,
		tokenizer:   tokenizer,
	}, nil
}

// Embed は単一テキストの Embedding を生成する
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings generated")
	}

	return embeddings[0], nil
}

// BatchEmbed は任意件数のテキストをAPI上限ごとのバッチに分割して Embedding を生成する
// 返り値の順序と件数は入力と一致する
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

	embeddings := make([][]float32, 0, len(texts))
	for from := 0; from < len(texts); from += maxBatchSize {
		to := min(from+maxBatchSize, len(texts))

		batch, err := e.embedBatch(ctx, texts[from:to])
		if err != nil {
			return nil, &ingestion.EmbeddingError{From: from, To: to, Err: err}
		}
		embeddings = append(embeddings, batch...)
	}

	return embeddings, nil
}

// embedBatch は1バッチ分のAPI呼び出しを一時的エラーのリトライ付きで行う
func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	inputs := make([]string, len(texts))
	for i, text := range texts {
		inputs[i] = e.truncate(text)
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}

	if len(inputs) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(inputs[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: inputs,
		}
	}

	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := backoffDelay(attempt)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := e.call(ctx, params)
		if err != nil {
			lastErr = err

			if isTransientError(err) && ctx.Err() == nil {
				continue
			}

			return nil, fmt.Errorf("OpenAI API call failed: %w", err)
		}

		if len(resp.Data) != len(inputs) {
			return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Data), len(inputs))
		}

		embeddings := make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vector := make([]float32, len(data.Embedding))
			for j, v := range data.Embedding {
				vector[j] = float32(v)
			}
			embeddings[i] = vector
		}

		return embeddings, nil
	}

	return nil, fmt.Errorf("retries exhausted after %d attempts: %w", e.maxAttempts, lastErr)
}

func (e *Embedder) call(ctx context.Context, params openai.EmbeddingNewParams) (*openai.CreateEmbeddingResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return e.client.Embeddings.New(ctx, params)
}

// truncate はトークン数が上限を超えるテキストを上限までに切り詰める
func (e *Embedder) truncate(text string) string {
	tokens := e.tokenizer.Encode(text, nil, nil)
	if len(tokens) <= maxInputTokens {
		return text
	}
	return e.tokenizer.Decode(tokens[:maxInputTokens])
}

// backoffDelay はattempt回目（1始まり）の再試行までの待機時間を返す
// 基底時間から2倍ずつ伸びるExponential Backoff
func backoffDelay(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
}

// isTransientError はリトライに値する一時的エラーかどうかを判定する
// レート制限（429）、サーバエラー（5xx）、タイムアウトが対象
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	return false
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension はベクトル次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// MaxBatchSize はバッチ処理の最大サイズを返す（OpenAI APIは最大100件）
func (e *Embedder) MaxBatchSize() int {
	return maxBatchSize
}

// インターフェース実装の確認
var (
	_ ingestion.Embedder = (*Embedder)(nil)
	_ search.Embedder    = (*Embedder)(nil)
)
