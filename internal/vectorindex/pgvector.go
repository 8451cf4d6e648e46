package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
)

// PGVectorIndex keeps chunk embeddings in a postgres table with a
// pgvector column and an hnsw index over cosine distance.
type PGVectorIndex struct {
	db *sql.DB
	// offset is subtracted from the raw similarity before clamping,
	// letting deployments calibrate against their embedding model.
	offset float64
}

func NewPGVectorIndex(db *sql.DB, scoreOffset float64) *PGVectorIndex {
	return &PGVectorIndex{db: db, offset: scoreOffset}
}

func (idx *PGVectorIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	const query = `
		INSERT INTO chunk_embeddings (chunk_id, document_id, knowledge_base_id, agent_id, content, embedding, metadata, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (chunk_id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := time.Now().UnixMilli()
	for _, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encode chunk metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query,
			rec.ChunkID,
			rec.DocumentID,
			rec.KnowledgeBaseID,
			rec.AgentID,
			rec.Content,
			pgvector.NewVector(rec.Vector),
			meta,
			now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (idx *PGVectorIndex) Search(ctx context.Context, vector []float32, filter Filter, topK int, searchWidth int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	const query = `
		SELECT chunk_id, document_id, content, metadata,
		       1 - (embedding <=> $1) AS similarity
		FROM chunk_embeddings
		WHERE agent_id = $2 AND knowledge_base_id = $3
		ORDER BY embedding <=> $1
		LIMIT $4
	`
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if searchWidth > 0 {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", searchWidth)); err != nil {
			return nil, err
		}
	}
	rows, err := tx.QueryContext(ctx, query,
		pgvector.NewVector(vector), filter.AgentID, filter.KnowledgeBaseID, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var meta []byte
		if err := rows.Scan(&m.ChunkID, &m.DocumentID, &m.Content, &meta, &m.Score); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, fmt.Errorf("decode chunk metadata: %w", err)
			}
		}
		m.Score = clampScore(m.Score - idx.offset)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, tx.Commit()
}

func (idx *PGVectorIndex) Count(ctx context.Context, filter Filter) (int, error) {
	query := `SELECT COUNT(*) FROM chunk_embeddings WHERE agent_id = $1 AND knowledge_base_id = $2`
	args := []interface{}{filter.AgentID, filter.KnowledgeBaseID}
	if filter.DocumentID != "" {
		query += ` AND document_id = $3`
		args = append(args, filter.DocumentID)
	}
	var count int
	if err := idx.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (idx *PGVectorIndex) Delete(ctx context.Context, filter Filter) error {
	query := `DELETE FROM chunk_embeddings WHERE agent_id = $1 AND knowledge_base_id = $2`
	args := []interface{}{filter.AgentID, filter.KnowledgeBaseID}
	if filter.DocumentID != "" {
		query += ` AND document_id = $3`
		args = append(args, filter.DocumentID)
	}
	_, err := idx.db.ExecContext(ctx, query, args...)
	return err
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
