package model

import "fmt"

// DocumentChunk is the unit of embedding and retrieval. Immutable once
// produced by the chunker; downstream components reference it by ID.
type DocumentChunk struct {
	ID              string `json:"id"`
	DocumentID      string `json:"document_id"`
	KnowledgeBaseID string `json:"knowledge_base_id"`
	Content         string `json:"content"`
	Position        int    `json:"position"`
	TokenCount      int    `json:"token_count"`
}

// ChunkID builds the deterministic chunk id for a document position.
func ChunkID(documentID string, position int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, position)
}

// ChunkRef is the per-chunk entry recorded in IngestionMetadata.
type ChunkRef struct {
	ID         string            `json:"id"`
	Position   int               `json:"position"`
	TokenCount int               `json:"token_count"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// IngestionMetadata is written once per document after chunking and is
// the single source of truth for how many chunks should be indexed.
type IngestionMetadata struct {
	DocumentID      string     `json:"document_id"`
	KnowledgeBaseID string     `json:"knowledge_base_id"`
	AgentID         string     `json:"agent_id"`
	ChunkCount      int        `json:"chunk_count"`
	ChunkSize       int        `json:"chunk_size"`
	ChunkOverlap    int        `json:"chunk_overlap"`
	Chunks          []ChunkRef `json:"chunks"`
}

// ChunkBlobKey is the object-store path of one chunk's text blob.
func ChunkBlobKey(agentID, knowledgeBaseID, documentID, chunkID string) string {
	return fmt.Sprintf("%s/%s/%s/%s.txt", agentID, knowledgeBaseID, documentID, chunkID)
}

// MetadataBlobKey is the object-store path of a document's metadata.json.
func MetadataBlobKey(agentID, knowledgeBaseID, documentID string) string {
	return fmt.Sprintf("%s/%s/%s/metadata.json", agentID, knowledgeBaseID, documentID)
}

// SourceBlobKey is the object-store path of the uploaded raw document,
// kept so a document can be reingested without a second upload.
func SourceBlobKey(agentID, knowledgeBaseID, documentID string) string {
	return fmt.Sprintf("%s/%s/%s/source", agentID, knowledgeBaseID, documentID)
}
