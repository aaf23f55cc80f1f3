package index

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"manualqa/types"
)

var kwTokenRe = regexp.MustCompile(`[\w가-힣]+`)

// FTSKeywordIndex is a BM25 keyword index over title+text, backed by an
// in-memory SQLite FTS5 table.
type FTSKeywordIndex struct {
	db *sql.DB
}

// NewFTSKeywordIndex creates the in-memory index. A single connection keeps
// the memory database alive for the process lifetime.
func NewFTSKeywordIndex() (*FTSKeywordIndex, error) {
	db, err := sql.Open("sqlite", "file:kwidx?mode=memory")
	if err != nil {
		return nil, fmt.Errorf("open keyword index: %w", err)
	}
	db.SetMaxOpenConns(1)

	const ddl = `CREATE VIRTUAL TABLE IF NOT EXISTS docs USING fts5(id UNINDEXED, title, text, tokenize='unicode61')`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create fts table: %w", err)
	}
	return &FTSKeywordIndex{db: db}, nil
}

// Add indexes one ingestion batch inside a transaction, so a failed batch
// leaves the index untouched.
func (x *FTSKeywordIndex) Add(ctx context.Context, chunks []types.Chunk) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO docs (id, title, text) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Title, c.Text); err != nil {
			return fmt.Errorf("index chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// Search runs a BM25-ranked match over title and text. SQLite reports bm25()
// as better-is-smaller, so scores are negated into positive relevance
// magnitudes before they leave the index.
func (x *FTSKeywordIndex) Search(ctx context.Context, query string, k int) ([]types.KeywordHit, error) {
	match := compileMatch(query)
	if match == "" {
		return nil, nil
	}

	rows, err := x.db.QueryContext(ctx,
		"SELECT id, bm25(docs) FROM docs WHERE docs MATCH ? ORDER BY bm25(docs) LIMIT ?",
		match, k,
	)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var hits []types.KeywordHit
	for rows.Next() {
		var h types.KeywordHit
		var rank float64
		if err := rows.Scan(&h.ID, &rank); err != nil {
			return nil, err
		}
		h.Score = -rank
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (x *FTSKeywordIndex) Close() error {
	return x.db.Close()
}

// compileMatch turns a free-form query into an FTS5 expression: an OR of
// prefix tokens. Prefix matching keeps agglutinated Korean forms reachable
// (query token 반품 matches 반품은).
func compileMatch(query string) string {
	tokens := kwTokenRe.FindAllString(query, -1)
	if len(tokens) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		parts = append(parts, fmt.Sprintf(`"%s"*`, t))
	}
	return strings.Join(parts, " OR ")
}
