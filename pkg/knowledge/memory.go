package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Fusion weights for the hybrid score. Semantic similarity dominates;
// exact keyword overlap breaks ties and rescues rare terms.
const (
	vectorWeight  = 0.7
	keywordWeight = 0.3
)

// MemoryStore is an in-process Searcher over term-frequency vectors. It
// ranks with a hybrid of cosine similarity and keyword overlap, deduplicated
// by chunk id.
type MemoryStore struct {
	mu    sync.RWMutex
	bases map[string][]storedChunk
}

type storedChunk struct {
	chunk Chunk
	terms map[string]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bases: make(map[string][]storedChunk)}
}

// AddChunk indexes one chunk under the named base, creating the base on
// first use.
func (s *MemoryStore) AddChunk(kbID string, chunk Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bases[kbID] = append(s.bases[kbID], storedChunk{
		chunk: chunk,
		terms: termFrequencies(chunk.Text),
	})
}

// Search implements Searcher.
func (s *MemoryStore) Search(ctx context.Context, kbID, query string, topK int) ([]Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	stored, ok := s.bases[kbID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("search %q: %w", kbID, ErrKnowledgeBaseNotFound)
	}

	queryTerms := termFrequencies(query)

	// Dedupe by chunk id, keeping the best fused score.
	best := make(map[string]Chunk)

	for _, sc := range stored {
		score := vectorWeight*cosine(queryTerms, sc.terms) + keywordWeight*overlap(queryTerms, sc.terms)
		if score <= 0 {
			continue
		}

		hit := sc.chunk
		hit.Score = score

		if prev, seen := best[hit.ID]; !seen || hit.Score > prev.Score {
			best[hit.ID] = hit
		}
	}

	ranked := make([]Chunk, 0, len(best))
	for _, hit := range best {
		ranked = append(ranked, hit)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	return ranked, nil
}

// termFrequencies lowercases and splits on non-alphanumeric runes.
func termFrequencies(text string) map[string]float64 {
	terms := make(map[string]float64)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, word := range words {
		terms[word]++
	}

	return terms
}

func cosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64

	for term, weight := range a {
		normA += weight * weight
		dot += weight * b[term]
	}

	for _, weight := range b {
		normB += weight * weight
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// overlap is the fraction of distinct query terms present in the chunk.
func overlap(query, chunk map[string]float64) float64 {
	if len(query) == 0 {
		return 0
	}

	var hits float64
	for term := range query {
		if chunk[term] > 0 {
			hits++
		}
	}

	return hits / float64(len(query))
}
