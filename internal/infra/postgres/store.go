package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/hansard-rag/internal/core/document"
	"github.com/jinford/hansard-rag/internal/core/ingestion"
)

// Store は ingestion.Repository インターフェースを実装する PostgreSQL リポジトリです
type Store struct {
	pool *pgxpool.Pool
}

// NewStore は新しい Store を作成します
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// コンパイル時の型チェック
var _ ingestion.Repository = (*Store)(nil)

const insertChunkSQL = `
	INSERT INTO chunks (id, document_id, position, total, content, speaker, party, chamber, speech_date, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// WriteDocument はドキュメントと全チャンクを単一トランザクションで保存する
// 同一識別子への並行書き込みは行ロック（FOR UPDATE）で直列化する
func (s *Store) WriteDocument(ctx context.Context, header *document.Header, body string, chunks []*ingestion.Chunk, policy ingestion.DuplicatePolicy) (*ingestion.WriteResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, &ingestion.StorageError{Op: "begin transaction", Err: err}
	}
	defer tx.Rollback(ctx)

	var lockedID string
	err = tx.QueryRow(ctx, `SELECT id FROM documents WHERE id = $1 FOR UPDATE`, header.ID).Scan(&lockedID)
	exists := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, &ingestion.StorageError{Op: "lock document", Err: err}
	}

	status := ingestion.WriteCreated
	if exists {
		switch policy {
		case ingestion.PolicySkip:
			// 既存をそのまま残す（ロールバックで書き込みなし）
			return &ingestion.WriteResult{Status: ingestion.WriteSkipped}, nil
		case ingestion.PolicyError:
			return nil, &ingestion.DuplicateError{DocumentID: header.ID}
		case ingestion.PolicyUpdate:
			if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, header.ID); err != nil {
				return nil, &ingestion.StorageError{Op: "delete existing chunks", Err: err}
			}
			_, err := tx.Exec(ctx, `
				UPDATE documents
				SET speaker = $2, party = $3, chamber = $4, speech_date = $5,
				    title = $6, state = $7, source_ref = $8, body = $9, updated_at = now()
				WHERE id = $1`,
				header.ID, header.Speaker, string(header.Party), string(header.Chamber),
				DateToPgtype(header.Date), header.Title,
				StringPtrToPgtext(header.State), StringPtrToPgtext(header.SourceRef), body)
			if err != nil {
				return nil, &ingestion.StorageError{Op: "update document", Err: err}
			}
			status = ingestion.WriteUpdated
		default:
			return nil, fmt.Errorf("unknown duplicate policy: %q", policy)
		}
	} else {
		_, err := tx.Exec(ctx, `
			INSERT INTO documents (id, speaker, party, chamber, speech_date, title, state, source_ref, body)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			header.ID, header.Speaker, string(header.Party), string(header.Chamber),
			DateToPgtype(header.Date), header.Title,
			StringPtrToPgtext(header.State), StringPtrToPgtext(header.SourceRef), body)
		if err != nil {
			if IsUniqueViolation(err) {
				return nil, &ingestion.DuplicateError{DocumentID: header.ID}
			}
			return nil, &ingestion.StorageError{Op: "insert document", Err: err}
		}
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(insertChunkSQL,
			UUIDToPgtype(c.ID), c.DocumentID, int32(c.Position), int32(c.Total), c.Content,
			c.Speaker, string(c.Party), string(c.Chamber), DateToPgtype(c.Date),
			pgvector.NewVector(c.Vector))
	}

	results := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return nil, &ingestion.StorageError{Op: "insert chunks", Err: err}
		}
	}
	if err := results.Close(); err != nil {
		return nil, &ingestion.StorageError{Op: "insert chunks", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &ingestion.StorageError{Op: "commit transaction", Err: err}
	}

	return &ingestion.WriteResult{Status: status, ChunkCount: len(chunks)}, nil
}

// GetDocument は識別子でドキュメントを取得する
func (s *Store) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, speaker, party, chamber, speech_date, title, state, source_ref, body, created_at, updated_at
		FROM documents
		WHERE id = $1`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ingestion.NotFoundError{DocumentID: id}
		}
		return nil, &ingestion.StorageError{Op: "get document", Err: err}
	}

	return doc, nil
}

// ListChunks はドキュメントのチャンクを位置範囲で取得する
// ベクトル列は読み出さない
func (s *Store) ListChunks(ctx context.Context, documentID string, fromPosition, toPosition int) ([]*ingestion.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, position, total, content, speaker, party, chamber, speech_date
		FROM chunks
		WHERE document_id = $1 AND position >= $2 AND position <= $3
		ORDER BY position ASC`,
		documentID, int32(fromPosition), int32(toPosition))
	if err != nil {
		return nil, &ingestion.StorageError{Op: "list chunks", Err: err}
	}
	defer rows.Close()

	var chunks []*ingestion.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, &ingestion.StorageError{Op: "list chunks", Err: err}
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, &ingestion.StorageError{Op: "list chunks", Err: err}
	}

	return chunks, nil
}

// DeleteChunks はドキュメントの全チャンクを削除する
func (s *Store) DeleteChunks(ctx context.Context, documentID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return &ingestion.StorageError{Op: "delete chunks", Err: err}
	}
	return nil
}

// CountDocuments は保存済みドキュメント数を返す
func (s *Store) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count); err != nil {
		return 0, &ingestion.StorageError{Op: "count documents", Err: err}
	}
	return count, nil
}

// CountChunks は保存済みチャンク数を返す
func (s *Store) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&count); err != nil {
		return 0, &ingestion.StorageError{Op: "count chunks", Err: err}
	}
	return count, nil
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	var (
		doc                  document.Document
		party, chamber       string
		speechDate           pgtype.Date
		state, sourceRef     pgtype.Text
		createdAt, updatedAt pgtype.Timestamptz
	)

	err := row.Scan(&doc.Header.ID, &doc.Header.Speaker, &party, &chamber, &speechDate,
		&doc.Header.Title, &state, &sourceRef, &doc.Body, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	doc.Header.Party = document.Party(party)
	doc.Header.Chamber = document.Chamber(chamber)
	doc.Header.Date = PgdateToTime(speechDate)
	doc.Header.State = PgtextToStringPtr(state)
	doc.Header.SourceRef = PgtextToStringPtr(sourceRef)
	doc.CreatedAt = PgtypeToTime(createdAt)
	doc.UpdatedAt = PgtypeToTime(updatedAt)

	return &doc, nil
}

func scanChunk(row pgx.Row) (*ingestion.Chunk, error) {
	var (
		chunk           ingestion.Chunk
		id              pgtype.UUID
		position, total int32
		party, chamber  string
		speechDate      pgtype.Date
	)

	err := row.Scan(&id, &chunk.DocumentID, &position, &total, &chunk.Content,
		&chunk.Speaker, &party, &chamber, &speechDate)
	if err != nil {
		return nil, err
	}

	chunk.ID = PgtypeToUUID(id)
	chunk.Position = int(position)
	chunk.Total = int(total)
	chunk.Party = document.Party(party)
	chunk.Chamber = document.Chamber(chamber)
	chunk.Date = PgdateToTime(speechDate)

	return &chunk, nil
}
