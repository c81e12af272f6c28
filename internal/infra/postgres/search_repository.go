package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/hansard-rag/internal/core/document"
	"github.com/jinford/hansard-rag/internal/core/search"
)

// SearchRepository は core/search.Repository を実装する PostgreSQL リポジトリ。
type SearchRepository struct {
	pool *pgxpool.Pool
}

// NewSearchRepository は新しい SearchRepository を返す。
func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{pool: pool}
}

var _ search.Repository = (*SearchRepository)(nil)

// filterColumns はフィルタフィールドからSQL列への対応
// state のみドキュメント側の列を参照する
var filterColumns = map[search.Field]string{
	search.FieldSpeaker: "c.speaker",
	search.FieldParty:   "c.party",
	search.FieldChamber: "c.chamber",
	search.FieldDate:    "c.speech_date",
	search.FieldState:   "d.state",
}

// SimilaritySearch はコサイン類似度による検索をフィルタ制約付きで実行する
// スコアは 1 - コサイン距離 で、同値の場合は演説日降順、ドキュメントID昇順で安定化する
func (r *SearchRepository) SimilaritySearch(ctx context.Context, queryVector []float32, filters []search.Filter, limit int) ([]*search.ScoredChunk, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT c.id, c.document_id, c.position, c.total, c.content,
		       c.speaker, c.party, c.chamber, c.speech_date, d.title,
		       1 - (c.embedding <=> $1) AS score
		FROM chunks c
		JOIN documents d ON d.id = c.document_id`)

	args := []any{pgvector.NewVector(queryVector)}
	for i, f := range filters {
		if i == 0 {
			sb.WriteString("\n\t\tWHERE ")
		} else {
			sb.WriteString(" AND ")
		}

		column, ok := filterColumns[f.Field]
		if !ok {
			return nil, fmt.Errorf("unknown filter field: %q", f.Field)
		}

		if f.Field == search.FieldDate {
			date, err := f.DateValue()
			if err != nil {
				return nil, err
			}
			args = append(args, DateToPgtype(date))
		} else {
			args = append(args, f.Value)
		}
		fmt.Fprintf(&sb, "%s %s $%d", column, f.Op, len(args))
	}

	args = append(args, int32(limit))
	fmt.Fprintf(&sb, `
		ORDER BY c.embedding <=> $1 ASC, c.speech_date DESC, c.document_id ASC
		LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var results []*search.ScoredChunk
	for rows.Next() {
		var (
			sc              search.ScoredChunk
			id              pgtype.UUID
			position, total int32
			party, chamber  string
			speechDate      pgtype.Date
		)

		err := rows.Scan(&id, &sc.DocumentID, &position, &total, &sc.Content,
			&sc.Speaker, &party, &chamber, &speechDate, &sc.Title, &sc.Score)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}

		sc.ChunkID = PgtypeToUUID(id)
		sc.Position = int(position)
		sc.Total = int(total)
		sc.Party = document.Party(party)
		sc.Chamber = document.Chamber(chamber)
		sc.Date = PgdateToTime(speechDate)
		results = append(results, &sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	return results, nil
}

// GetAdjacentChunks は同一ドキュメント内で position の前後にあるチャンクを位置順で返す
// position 自身は含まない
func (r *SearchRepository) GetAdjacentChunks(ctx context.Context, documentID string, position, before, after int) ([]*search.ContextChunk, error) {
	minPosition := position - before
	if minPosition < 0 {
		minPosition = 0
	}
	maxPosition := position + after

	rows, err := r.pool.Query(ctx, `
		SELECT position, content
		FROM chunks
		WHERE document_id = $1 AND position BETWEEN $2 AND $3 AND position <> $4
		ORDER BY position ASC`,
		documentID, int32(minPosition), int32(maxPosition), int32(position))
	if err != nil {
		return nil, fmt.Errorf("failed to get adjacent chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*search.ContextChunk
	for rows.Next() {
		var (
			cc  search.ContextChunk
			pos int32
		)
		if err := rows.Scan(&pos, &cc.Content); err != nil {
			return nil, fmt.Errorf("failed to scan adjacent chunk: %w", err)
		}
		cc.Position = int(pos)
		chunks = append(chunks, &cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read adjacent chunks: %w", err)
	}

	return chunks, nil
}
