package model

// ProcessingStatus tracks a document through the ingestion pipeline.
// Transitions only move forward, except Failed which is reachable from
// any state and absorbing. Vectorized is terminal success.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusProcessed  ProcessingStatus = "processed"
	StatusVectorized ProcessingStatus = "vectorized"
	StatusFailed     ProcessingStatus = "failed"
)

var statusOrder = map[ProcessingStatus]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusProcessed:  2,
	StatusVectorized: 3,
}

func (s ProcessingStatus) Valid() bool {
	if s == StatusFailed {
		return true
	}
	_, ok := statusOrder[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusVectorized || s == StatusFailed
}

// CanTransition reports whether moving from s to next is legal.
func (s ProcessingStatus) CanTransition(next ProcessingStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == StatusFailed {
		return false
	}
	if next == StatusFailed {
		return true
	}
	if s == StatusVectorized {
		return false
	}
	return statusOrder[next] > statusOrder[s]
}

type Document struct {
	ID              string           `json:"id"`
	KnowledgeBaseID string           `json:"knowledge_base_id"`
	AgentID         string           `json:"agent_id"`
	Filename        string           `json:"filename"`
	ContentType     string           `json:"content_type"`
	Status          ProcessingStatus `json:"status"`
	Error           string           `json:"error,omitempty"`
	ChunkCount      int              `json:"chunk_count"`
	Ctime           int64            `json:"ctime"`
	Mtime           int64            `json:"mtime"`
}

type KnowledgeBase struct {
	ID          string `json:"id"`
	AgentID     string `json:"agent_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Ctime       int64  `json:"ctime"`
	Mtime       int64  `json:"mtime"`
}
