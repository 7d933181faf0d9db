// Package knowledge exposes the retrieval collaborator consumed by
// knowledge nodes: ranked chunk search over a named knowledge base.
package knowledge

import (
	"context"
	"errors"
)

// ErrKnowledgeBaseNotFound marks a search against an unknown base.
var ErrKnowledgeBaseNotFound = errors.New("knowledge base not found")

// Chunk is one ranked retrieval hit.
type Chunk struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source,omitempty"`
}

// Searcher is the retrieval interface node executors depend on. Ingestion
// (chunking, embedding, upserting) lives with the store implementations.
type Searcher interface {
	Search(ctx context.Context, kbID, query string, topK int) ([]Chunk, error)
}
