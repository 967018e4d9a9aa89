package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

const chunkTable = "knowledge_chunks"

var ErrSchemaMissing = errors.New("knowledge_chunks table does not exist; run migrations")

// ChunkRepository is the pgvector vector backend.
type ChunkRepository struct {
	pool *pgxpool.Pool
	db   dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool, db: pool}
}

func (r *ChunkRepository) Name() string { return "pgvector" }

// Prepare only checks that migrations created the table. The vector column is
// untyped, so any dimension fits until the first row fixes it.
func (r *ChunkRepository) Prepare(ctx context.Context, dimension int) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, chunkTable).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check schema: %w", err)
	}
	if !exists {
		return ErrSchemaMissing
	}
	return nil
}

// Upsert writes the whole batch in one transaction.
func (r *ChunkRepository) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, c := range chunks {
			createdAt := c.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO knowledge_chunks (id, text, source_tag, embedding, created_at)
				 VALUES ($1, $2, $3, $4, $5)
				 ON CONFLICT (id) DO UPDATE SET
					text = EXCLUDED.text,
					source_tag = EXCLUDED.source_tag,
					embedding = EXCLUDED.embedding,
					created_at = EXCLUDED.created_at`,
				c.ID, c.Text, c.SourceTag, pgvector.NewVector(c.Vector), createdAt,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert chunk %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// Search scores by cosine similarity so results compare with the other backends.
func (r *ChunkRepository) Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		return []domain.RetrievalResult{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, text, source_tag, created_at, 1.0 - (embedding <=> $1) AS score
		 FROM knowledge_chunks
		 ORDER BY embedding <=> $1, created_at DESC, id
		 LIMIT $2`,
		pgvector.NewVector(vector), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.RetrievalResult, 0, k)
	for rows.Next() {
		var res domain.RetrievalResult
		if err := rows.Scan(&res.Chunk.ID, &res.Chunk.Text, &res.Chunk.SourceTag, &res.Chunk.CreatedAt, &res.Score); err != nil {
			return nil, err
		}
		res.Chunk.CreatedAt = res.Chunk.CreatedAt.UTC()
		results = append(results, res)
	}

	return results, rows.Err()
}

func (r *ChunkRepository) Stats(ctx context.Context) (*domain.StoreStats, error) {
	stats := &domain.StoreStats{Collection: chunkTable, Status: "ok"}
	var oldest, newest *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT count(*), count(DISTINCT source_tag), min(created_at), max(created_at)
		 FROM knowledge_chunks`,
	).Scan(&stats.TotalChunks, &stats.TotalSources, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk stats: %w", err)
	}
	if oldest != nil {
		o, n := oldest.UTC(), newest.UTC()
		stats.OldestCapture = &o
		stats.NewestCapture = &n
	}

	dim, err := r.Dimension(ctx)
	if err != nil {
		return nil, err
	}
	stats.Dimension = dim
	return stats, nil
}

// Clear truncates the table. The dimension is fixed again by the next write.
func (r *ChunkRepository) Clear(ctx context.Context, dimension int) error {
	_, err := r.db.Exec(ctx, `TRUNCATE TABLE knowledge_chunks`)
	if err != nil {
		return fmt.Errorf("failed to truncate chunks: %w", err)
	}
	return nil
}

func (r *ChunkRepository) Dimension(ctx context.Context) (int, error) {
	var dim int
	err := r.db.QueryRow(ctx, `SELECT vector_dims(embedding) FROM knowledge_chunks LIMIT 1`).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read vector dimension: %w", err)
	}
	return dim, nil
}
