package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// storedRecord tracks the insertion sequence alongside the record so equal
// relevance scores order deterministically (first-inserted first).
type storedRecord struct {
	rec Record
	seq uint64
}

// MemoryStore is the in-process Store implementation: brute-force cosine
// similarity over every stored vector. Correct baseline, O(n) per query,
// no persistence. Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*storedRecord
	nextSeq     uint64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*storedRecord),
	}
}

// Upsert inserts or replaces the record keyed by (collection, externalID).
// A replaced record keeps its original insertion sequence so tie-break
// ordering stays stable across re-upserts.
func (s *MemoryStore) Upsert(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: upsert canceled: %v", ErrStore, err)
	}
	if rec.ExternalID == "" {
		return fmt.Errorf("%w: record has no external id", ErrStore)
	}
	if len(rec.Embedding) == 0 {
		return fmt.Errorf("%w: record %q has no embedding", ErrStore, rec.ExternalID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[rec.Collection]
	if !ok {
		coll = make(map[string]*storedRecord)
		s.collections[rec.Collection] = coll
	}

	if existing, ok := coll[rec.ExternalID]; ok {
		existing.rec = rec
		return nil
	}

	s.nextSeq++
	coll[rec.ExternalID] = &storedRecord{rec: rec, seq: s.nextSeq}
	return nil
}

// Search scores every record in the collection against queryEmbedding,
// drops scores below minRelevance, sorts descending and truncates to limit.
func (s *MemoryStore) Search(ctx context.Context, collection string, queryEmbedding []float32, limit int, minRelevance float64) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: search canceled: %v", ErrStore, err)
	}
	if limit <= 0 {
		return []SearchResult{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[collection]
	if len(coll) == 0 {
		return []SearchResult{}, nil
	}

	type scored struct {
		result SearchResult
		seq    uint64
	}

	candidates := make([]scored, 0, len(coll))
	for _, sr := range coll {
		relevance, err := CosineSimilarity(queryEmbedding, sr.rec.Embedding)
		if err != nil {
			return nil, fmt.Errorf("%w: score %q: %v", ErrStore, sr.rec.ExternalID, err)
		}
		if relevance < minRelevance {
			continue
		}
		candidates = append(candidates, scored{
			result: SearchResult{Record: sr.rec, Relevance: relevance},
			seq:    sr.seq,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].result.Relevance != candidates[j].result.Relevance {
			return candidates[i].result.Relevance > candidates[j].result.Relevance
		}
		return candidates[i].seq < candidates[j].seq
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = c.result
	}
	return results, nil
}

// Delete removes a record; no-op if absent.
func (s *MemoryStore) Delete(ctx context.Context, collection, externalID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: delete canceled: %v", ErrStore, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if coll, ok := s.collections[collection]; ok {
		delete(coll, externalID)
	}
	return nil
}

// Close releases nothing for the in-process store.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// Len reports how many records a collection holds.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// CosineSimilarity computes the cosine similarity of two equal-length
// vectors, mapped from [-1, 1] into [0, 1]. This matches the score Atlas
// reports for cosine vector search, so backends rank identically.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty vectors")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-magnitude vector")
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Clamp float error before mapping into [0, 1].
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return (cos + 1) / 2, nil
}
