// Package atlas implements the vector store contract on MongoDB Atlas
// Vector Search.
//
// The similarity algorithm and index construction are Atlas's own; this
// package only shapes requests and responses to the Store contract. One
// backend-specific caveat: the search index updates asynchronously, so a
// search immediately after an upsert may not see the new record yet.
package atlas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mwilhelmy/recall/internal/memory"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store is the Atlas-backed memory.Store. Each logical collection maps to
// a Mongo collection in the configured database, all sharing one vector
// search index name.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	index  string
	log    *slog.Logger
}

var _ memory.Store = (*Store)(nil)

// Connect dials the cluster and verifies the connection.
func Connect(ctx context.Context, uri, database, index string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", memory.ErrStore, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: ping: %v", memory.ErrStore, err)
	}

	log.Info("connected to MongoDB", "database", database, "index", index)
	return &Store{
		client: client,
		db:     client.Database(database),
		index:  index,
		log:    log,
	}, nil
}

// Client exposes the underlying mongo client, e.g. for reading the
// sample_mflix source dataset.
func (s *Store) Client() *mongo.Client {
	return s.client
}

// Upsert inserts or replaces the record keyed by externalId. ReplaceOne
// with upsert is atomic per document, so a canceled call never leaves a
// half-written record.
func (s *Store) Upsert(ctx context.Context, rec memory.Record) error {
	if rec.ExternalID == "" {
		return fmt.Errorf("%w: record has no external id", memory.ErrStore)
	}

	doc := bson.D{
		{Key: "externalId", Value: rec.ExternalID},
		{Key: "text", Value: rec.Text},
		{Key: "description", Value: rec.Description},
		{Key: "sourceName", Value: rec.SourceName},
		{Key: "additionalMetadata", Value: rec.AdditionalMetadata},
		{Key: "embedding", Value: rec.Embedding},
	}

	_, err := s.db.Collection(rec.Collection).ReplaceOne(ctx,
		bson.D{{Key: "externalId", Value: rec.ExternalID}},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return storeError("upsert", err)
	}
	return nil
}

// searchDocument carries the record fields plus the index score.
type searchDocument struct {
	ExternalID         string    `bson:"externalId"`
	Text               string    `bson:"text"`
	Description        string    `bson:"description"`
	SourceName         string    `bson:"sourceName"`
	AdditionalMetadata string    `bson:"additionalMetadata"`
	Embedding          []float32 `bson:"embedding"`
	Score              float64   `bson:"score"`
}

// Search runs a $vectorSearch aggregation and applies the relevance
// threshold. Atlas reports cosine scores already mapped into [0, 1].
func (s *Store) Search(ctx context.Context, collection string, queryEmbedding []float32, limit int, minRelevance float64) ([]memory.SearchResult, error) {
	if limit <= 0 {
		return []memory.SearchResult{}, nil
	}

	numCandidates := limit * 10
	if numCandidates < 100 {
		numCandidates = 100
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: s.index},
			{Key: "path", Value: "embedding"},
			{Key: "queryVector", Value: queryEmbedding},
			{Key: "numCandidates", Value: numCandidates},
			{Key: "limit", Value: limit},
		}}},
		bson.D{{Key: "$addFields", Value: bson.D{
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}

	cursor, err := s.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, storeError("vector search", err)
	}
	defer cursor.Close(ctx)

	var docs []searchDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeError("decode results", err)
	}

	results := make([]memory.SearchResult, 0, len(docs))
	for _, doc := range docs {
		if doc.Score < minRelevance {
			continue
		}
		results = append(results, memory.SearchResult{
			Record: memory.Record{
				Collection:         collection,
				ExternalID:         doc.ExternalID,
				Text:               doc.Text,
				Description:        doc.Description,
				SourceName:         doc.SourceName,
				AdditionalMetadata: doc.AdditionalMetadata,
				Embedding:          doc.Embedding,
			},
			Relevance: doc.Score,
		})
	}

	// The index returns ranked results; re-sort stably so equal scores
	// keep the server's order and the contract holds regardless.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a record; no-op if absent.
func (s *Store) Delete(ctx context.Context, collection, externalID string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx,
		bson.D{{Key: "externalId", Value: externalID}})
	if err != nil {
		return storeError("delete", err)
	}
	return nil
}

// Close disconnects from the cluster.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func storeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", memory.ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", memory.ErrStore, op, err)
}
