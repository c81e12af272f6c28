package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// API認証トークン（書き込み操作の認可に使用）
	APIToken string

	// OpenAI設定（Embeddings用）
	OpenAI OpenAIConfig

	// チャンク分割設定
	Chunking ChunkingConfig

	// インジェスト設定
	Ingest IngestConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConns       int           // プールの最大接続数
	ConnectTimeout time.Duration // 接続確立のタイムアウト
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
	RequestTimeout     time.Duration // Embedding API 1回あたりのタイムアウト
}

// ChunkingConfig はチャンク分割設定（文字数ベース）
type ChunkingConfig struct {
	Size    int // 目標チャンクサイズ（文字数）
	Overlap int // 前チャンクとのオーバーラップ（文字数）
}

// IngestConfig はインジェストパイプラインの設定
type IngestConfig struct {
	Workers            int           // 一括インジェストの並列ドキュメント数
	DuplicatePolicy    string        // "skip" / "update" / "error"
	TransactionTimeout time.Duration // ドキュメント1件のトランザクションタイムアウト
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("HANSARD_DB_HOST", "localhost"),
			Port:     getEnvAsInt("HANSARD_DB_PORT", 5432),
			User:     getEnv("HANSARD_DB_USER", "hansard"),
			Password: getEnv("HANSARD_DB_PASSWORD", ""),
			DBName:   getEnv("HANSARD_DB_NAME", "hansard"),
			SSLMode:  getEnv("HANSARD_DB_SSLMODE", "disable"),
			// プールの最大接続数は一括インジェストのワーカー数（デフォルト4）と揃える
			MaxConns:       getEnvAsInt("HANSARD_DB_MAX_CONNS", 4),
			ConnectTimeout: getEnvAsDuration("HANSARD_DB_CONNECT_TIMEOUT", 5*time.Second),
		},
		APIToken: getEnv("HANSARD_API_TOKEN", ""),
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 768),
			RequestTimeout:     getEnvAsDuration("OPENAI_REQUEST_TIMEOUT", 30*time.Second),
		},
		Chunking: ChunkingConfig{
			Size:    getEnvAsInt("HANSARD_CHUNK_SIZE", 1000),
			Overlap: getEnvAsInt("HANSARD_CHUNK_OVERLAP", 100),
		},
		Ingest: IngestConfig{
			Workers:            getEnvAsInt("HANSARD_INGEST_WORKERS", 4),
			DuplicatePolicy:    getEnv("HANSARD_INGEST_DUPLICATE_POLICY", "skip"),
			TransactionTimeout: getEnvAsDuration("HANSARD_INGEST_TX_TIMEOUT", 10*time.Second),
		},
	}

	if cfg.Chunking.Overlap >= cfg.Chunking.Size {
		return nil, fmt.Errorf("HANSARD_CHUNK_OVERLAP (%d) はHANSARD_CHUNK_SIZE (%d) 未満である必要があります",
			cfg.Chunking.Overlap, cfg.Chunking.Size)
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数をtime.Durationとして取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
