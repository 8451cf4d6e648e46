package repo

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const defaultEmbedDim = 1536

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// ApplyMigrations creates the schema. Statements are idempotent so the
// service can run them on every start. embedDim must match the embedding
// model's output dimension; the hnsw index serves cosine search.
func ApplyMigrations(db *sql.DB, embedDim int) error {
	if embedDim <= 0 {
		embedDim = defaultEmbedDim
	}
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS knowledge_bases (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			ctime BIGINT NOT NULL,
			mtime BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_knowledge_bases_agent ON knowledge_bases (agent_id)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			knowledge_base_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			content_type TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			chunk_count INT NOT NULL DEFAULT 0,
			ctime BIGINT NOT NULL,
			mtime BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_kb ON documents (agent_id, knowledge_base_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents (status, mtime)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunk_embeddings (
			chunk_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			knowledge_base_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			metadata JSONB,
			ctime BIGINT NOT NULL
		)`, embedDim),
		`CREATE INDEX IF NOT EXISTS idx_chunk_embeddings_kb ON chunk_embeddings (agent_id, knowledge_base_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_embeddings_doc ON chunk_embeddings (document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_embeddings_hnsw ON chunk_embeddings USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
