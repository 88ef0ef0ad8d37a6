// Package memory defines the record model and the vector store contract
// shared by all store backends.
package memory

import "context"

// Record is a single memory entry within a collection.
// (Collection, ExternalID) is unique; re-upserting the same key replaces
// the prior record.
type Record struct {
	Collection         string    `json:"collection" bson:"collection,omitempty"`
	ExternalID         string    `json:"external_id" bson:"externalId"`
	Text               string    `json:"text" bson:"text"`
	Description        string    `json:"description" bson:"description"`
	SourceName         string    `json:"source_name" bson:"sourceName"`
	AdditionalMetadata string    `json:"additional_metadata,omitempty" bson:"additionalMetadata,omitempty"`
	Embedding          []float32 `json:"embedding,omitempty" bson:"embedding"`
}

// SearchResult pairs a stored record with its relevance to a query.
// Relevance is cosine similarity mapped into [0, 1].
type SearchResult struct {
	Record    Record  `json:"record"`
	Relevance float64 `json:"relevance"`
}

// Store persists records per collection and answers similarity queries.
//
// Implementations must honor the same caller-visible contract so backends
// can be swapped freely:
//   - Upsert replaces any existing record with the same (collection,
//     externalID) and auto-creates unknown collections.
//   - Search returns at most limit results, all scoring >= minRelevance,
//     sorted by relevance descending. Equal scores are ordered by insertion
//     (first-inserted first) where the backend can guarantee it.
//   - Delete is a no-op for absent records.
//
// Remote backends may be eventually consistent: a Search immediately after
// Upsert is not guaranteed to see the new record. MemoryStore has no such
// caveat.
type Store interface {
	Upsert(ctx context.Context, rec Record) error
	Search(ctx context.Context, collection string, queryEmbedding []float32, limit int, minRelevance float64) ([]SearchResult, error)
	Delete(ctx context.Context, collection, externalID string) error
	Close(ctx context.Context) error
}
