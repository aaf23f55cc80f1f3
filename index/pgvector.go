package index

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgVectorIndex keeps the vector rows in a Postgres pgvector table instead of
// process memory, for deployments that want the index to survive restarts.
// Rows are still append-only and keyed by corpus position; the chunk store
// remains the only authority for chunk content.
type PgVectorIndex struct {
	pool *pgxpool.Pool
	dim  int
}

func NewPgVectorIndex(ctx context.Context, connStr string, dim int) (*PgVectorIndex, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	idx := &PgVectorIndex{pool: pool, dim: dim}
	if err := idx.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (p *PgVectorIndex) init(ctx context.Context) error {
	query := fmt.Sprintf(`
    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS chunk_vectors (
        position  INT PRIMARY KEY,
        embedding vector(%d) NOT NULL
    );

	CREATE INDEX IF NOT EXISTS idx_chunk_vectors_embedding ON chunk_vectors
	USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
    `, p.dim)
	_, err := p.pool.Exec(ctx, query)
	return err
}

// Add appends one batch of vectors at the next free positions, in order, in
// a single transaction.
func (p *PgVectorIndex) Add(ctx context.Context, vectors [][]float32) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var next int
	if err := tx.QueryRow(ctx, "SELECT COALESCE(MAX(position)+1, 0) FROM chunk_vectors").Scan(&next); err != nil {
		return err
	}
	for i, v := range vectors {
		_, err := tx.Exec(ctx,
			"INSERT INTO chunk_vectors (position, embedding) VALUES ($1, $2)",
			next+i, pgvector.NewVector(v),
		)
		if err != nil {
			return fmt.Errorf("insert vector at position %d: %w", next+i, err)
		}
	}
	return tx.Commit(ctx)
}

// Search returns corpus positions ordered by cosine distance to the query.
func (p *PgVectorIndex) Search(ctx context.Context, vector []float32, k int) ([]int, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT position
		FROM chunk_vectors
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []int
	for rows.Next() {
		var pos int
		if err := rows.Scan(&pos); err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

func (p *PgVectorIndex) Rows(ctx context.Context) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunk_vectors").Scan(&n)
	return n, err
}

// Close closes the connection pool.
func (p *PgVectorIndex) Close() error {
	if p.pool != nil {
		p.pool.Close()
		log.Println("pgvector index pool closed")
	}
	return nil
}
