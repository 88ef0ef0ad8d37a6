// Package surreal implements the vector store contract on SurrealDB with
// an HNSW cosine index and an auto-reconnecting WebSocket connection.
package surreal

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mwilhelmy/recall/internal/memory"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

func init() {
	// Force HTTP/1.1 for WSS connections. WebSocket upgrade requires
	// HTTP/1.1 semantics which fail under HTTP/2 ALPN negotiation.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// Config holds SurrealDB connection configuration.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string

	// Dimension sizes the HNSW index; must match the embedder.
	Dimension int
}

// Store is the SurrealDB-backed memory.Store. All records live in one
// table keyed by (collection, external id); the embedding column carries
// an HNSW cosine index.
type Store struct {
	conn *rews.Connection[*gorillaws.Connection]
	db   *surrealdb.DB
	log  logger.Logger
}

var _ memory.Store = (*Store)(nil)

// Connect dials SurrealDB over an auto-reconnecting WebSocket, signs in,
// selects the namespace/database and initializes the schema.
func Connect(ctx context.Context, cfg Config, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	sdkLogger := logger.New(log.Handler())

	// surrealcbor handles SurrealDB's custom CBOR tags.
	codec := surrealcbor.New()

	// gorillaws wants the base URL without /rpc; it appends it itself.
	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			ws := gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			})
			return ws, nil
		},
		5*time.Second,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: connect: %v", memory.ErrStore, err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("%w: from connection: %v", memory.ErrStore, err)
	}

	if _, err := db.SignIn(ctx, surrealdb.Auth{
		Username: cfg.Username,
		Password: cfg.Password,
	}); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("%w: signin: %v", memory.ErrStore, err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("%w: use %s/%s: %v", memory.ErrStore, cfg.Namespace, cfg.Database, err)
	}

	s := &Store{conn: conn, db: db, log: sdkLogger}
	if err := s.initSchema(ctx, cfg.Dimension); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}

	sdkLogger.Info("SurrealDB connection established", "url", cfg.URL)
	return s, nil
}

func (s *Store) initSchema(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive, got %d", memory.ErrStore, dimension)
	}
	if _, err := surrealdb.Query[any](ctx, s.db, fmt.Sprintf(schemaTemplate, dimension), nil); err != nil {
		return fmt.Errorf("%w: init schema: %v", memory.ErrStore, err)
	}
	return nil
}

// record is the table row. The created timestamp defaults at insert and
// survives re-upserts, giving a stable order for equal-relevance results.
type record struct {
	Collection         string    `json:"collection"`
	ExternalID         string    `json:"external_id"`
	Text               string    `json:"text"`
	Description        string    `json:"description"`
	SourceName         string    `json:"source_name"`
	AdditionalMetadata string    `json:"additional_metadata"`
	Embedding          []float32 `json:"embedding"`
	Created            time.Time `json:"created"`
}

type scoredRecord struct {
	record
	Score float64 `json:"score"`
}

// Upsert inserts or replaces the record at its deterministic id.
func (s *Store) Upsert(ctx context.Context, rec memory.Record) error {
	if rec.ExternalID == "" {
		return fmt.Errorf("%w: record has no external id", memory.ErrStore)
	}

	_, err := surrealdb.Query[any](ctx, s.db, `
		UPSERT type::thing("memory", [$collection, $external_id]) SET
			collection = $collection,
			external_id = $external_id,
			text = $text,
			description = $description,
			source_name = $source_name,
			additional_metadata = $additional_metadata,
			embedding = $embedding
	`, map[string]any{
		"collection":          rec.Collection,
		"external_id":         rec.ExternalID,
		"text":                rec.Text,
		"description":         rec.Description,
		"source_name":         rec.SourceName,
		"additional_metadata": rec.AdditionalMetadata,
		"embedding":           rec.Embedding,
	})
	if err != nil {
		return storeError("upsert", err)
	}
	return nil
}

// Search runs a knn query against the HNSW index and scores candidates
// with exact cosine similarity, mapped into [0, 1]. The knn operator
// ranks across the whole table, so it over-fetches before the collection
// filter narrows the candidates down.
func (s *Store) Search(ctx context.Context, collection string, queryEmbedding []float32, limit int, minRelevance float64) ([]memory.SearchResult, error) {
	if limit <= 0 {
		return []memory.SearchResult{}, nil
	}

	k := limit * 4
	sql := fmt.Sprintf(`
		SELECT collection, external_id, text, description, source_name,
		       additional_metadata, embedding, created,
		       vector::similarity::cosine(embedding, $emb) AS score
		FROM memory
		WHERE collection = $collection AND embedding <|%d,40|> $emb
		ORDER BY score DESC
	`, k)

	rows, err := surrealdb.Query[[]scoredRecord](ctx, s.db, sql, map[string]any{
		"collection": collection,
		"emb":        queryEmbedding,
	})
	if err != nil {
		return nil, storeError("vector search", err)
	}

	var candidates []scoredRecord
	if rows != nil && len(*rows) > 0 {
		candidates = (*rows)[0].Result
	}

	type ranked struct {
		result  memory.SearchResult
		created time.Time
	}
	kept := make([]ranked, 0, len(candidates))
	for _, c := range candidates {
		relevance := (c.Score + 1) / 2
		if relevance < minRelevance {
			continue
		}
		kept = append(kept, ranked{
			result: memory.SearchResult{
				Record: memory.Record{
					Collection:         c.Collection,
					ExternalID:         c.ExternalID,
					Text:               c.Text,
					Description:        c.Description,
					SourceName:         c.SourceName,
					AdditionalMetadata: c.AdditionalMetadata,
					Embedding:          c.Embedding,
				},
				Relevance: relevance,
			},
			created: c.Created,
		})
	}

	// Equal relevance resolves by insertion time, oldest first.
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].result.Relevance != kept[j].result.Relevance {
			return kept[i].result.Relevance > kept[j].result.Relevance
		}
		return kept[i].created.Before(kept[j].created)
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	results := make([]memory.SearchResult, len(kept))
	for i, r := range kept {
		results[i] = r.result
	}
	return results, nil
}

// Delete removes a record; no-op if absent.
func (s *Store) Delete(ctx context.Context, collection, externalID string) error {
	_, err := surrealdb.Query[any](ctx, s.db, `
		DELETE type::thing("memory", [$collection, $external_id])
	`, map[string]any{
		"collection":  collection,
		"external_id": externalID,
	})
	if err != nil {
		return storeError("delete", err)
	}
	return nil
}

// Close closes the WebSocket connection.
func (s *Store) Close(ctx context.Context) error {
	s.log.Info("closing SurrealDB connection")
	return s.conn.Close(ctx)
}

func storeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", memory.ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", memory.ErrStore, op, err)
}
