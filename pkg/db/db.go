package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB はデータベース接続プールを保持します
// プロセス起動時に1つだけ作成し、各コンポーネントへ注入して使います
type DB struct {
	Pool *pgxpool.Pool
}

// ConnectionParams はデータベース接続パラメータ
type ConnectionParams struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	// MaxConns はプールの最大接続数（0の場合はpgxのデフォルト）
	// 一括インジェストのワーカー数に合わせて設定する
	MaxConns int
	// ConnectTimeout は接続確立のタイムアウト（0の場合は無制限）
	ConnectTimeout time.Duration
}

// DSN はpgx向けの接続文字列を組み立てます
func (p ConnectionParams) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host,
		p.Port,
		p.User,
		p.Password,
		p.DBName,
		p.SSLMode,
	)
}

// PoolConfig はDSNとプール設定を反映したpgxpoolの設定を作ります
func (p ConnectionParams) PoolConfig() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(p.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	if p.MaxConns > 0 {
		poolConfig.MaxConns = int32(p.MaxConns)
	}
	if p.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = p.ConnectTimeout
	}
	return poolConfig, nil
}

// New は新しいデータベース接続を作成します
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	poolConfig, err := params.PoolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// 接続テスト
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close はデータベース接続を閉じます
func (db *DB) Close() {
	db.Pool.Close()
}
