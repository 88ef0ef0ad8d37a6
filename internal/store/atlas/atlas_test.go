// Integration tests against a local Atlas container, which ships the
// mongot search process alongside mongod and supports $vectorSearch.
package atlas

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/mwilhelmy/recall/internal/memory"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var testStore *Store
var testContainer testcontainers.Container

const (
	testDatabase   = "recall_test"
	testCollection = "memories"
	testIndex      = "vector_index"
	testDimension  = 4
)

func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongodb/mongodb-atlas-local:8.0",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(120 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start Atlas container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "27017")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	uri := fmt.Sprintf("mongodb://%s:%s/?directConnection=true", host, mappedPort.Port())
	testStore, err = Connect(ctx, uri, testDatabase, testIndex, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := seedAndIndex(ctx); err != nil {
		log.Fatalf("Failed to prepare search index: %v", err)
	}

	code := m.Run()

	_ = testStore.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func testRecord(id string, embedding []float32) memory.Record {
	return memory.Record{
		Collection:  testCollection,
		ExternalID:  id,
		Text:        "text for " + id,
		Description: "description for " + id,
		SourceName:  "test",
		Embedding:   embedding,
	}
}

// seedAndIndex writes the fixture records, creates the vector search
// index and waits for it to become queryable. Index builds are async,
// so all search tests share one pre-built fixture set.
func seedAndIndex(ctx context.Context) error {
	fixtures := []memory.Record{
		testRecord("exact", []float32{1, 0, 0, 0}),
		testRecord("close", []float32{0.9, 0.1, 0, 0}),
		testRecord("orthogonal", []float32{0, 0, 1, 0}),
		testRecord("opposite", []float32{-1, 0, 0, 0}),
	}
	for _, rec := range fixtures {
		if err := testStore.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("seed %s: %w", rec.ExternalID, err)
		}
	}

	coll := testStore.Client().Database(testDatabase).Collection(testCollection)
	_, err := coll.SearchIndexes().CreateOne(ctx, mongo.SearchIndexModel{
		Definition: bson.D{{Key: "fields", Value: bson.A{
			bson.D{
				{Key: "type", Value: "vector"},
				{Key: "path", Value: "embedding"},
				{Key: "numDimensions", Value: testDimension},
				{Key: "similarity", Value: "cosine"},
			},
		}}},
		Options: options.SearchIndexes().SetName(testIndex).SetType("vectorSearch"),
	})
	if err != nil {
		return fmt.Errorf("create search index: %w", err)
	}

	deadline := time.Now().Add(2 * time.Minute)
	for time.Now().Before(deadline) {
		cursor, err := coll.SearchIndexes().List(ctx, options.SearchIndexes().SetName(testIndex))
		if err != nil {
			return fmt.Errorf("list search indexes: %w", err)
		}
		var indexes []bson.M
		if err := cursor.All(ctx, &indexes); err != nil {
			return fmt.Errorf("decode search indexes: %w", err)
		}
		for _, idx := range indexes {
			if queryable, _ := idx["queryable"].(bool); queryable {
				return nil
			}
		}
		time.Sleep(2 * time.Second)
	}
	return fmt.Errorf("search index %s never became queryable", testIndex)
}

func TestSearchRanked(t *testing.T) {
	ctx := context.Background()

	results, err := testStore.Search(ctx, testCollection, []float32{1, 0, 0, 0}, 3, 0.0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results from seeded collection")
	}
	if results[0].Record.ExternalID != "exact" {
		t.Errorf("closest record = %q, want exact", results[0].Record.ExternalID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Relevance > results[i-1].Relevance {
			t.Errorf("results out of order at %d: %v after %v", i, results[i].Relevance, results[i-1].Relevance)
		}
	}
	if results[0].Relevance < 0.99 {
		t.Errorf("identical vector should score ~1.0, got %v", results[0].Relevance)
	}
}

func TestSearchMinRelevance(t *testing.T) {
	ctx := context.Background()

	results, err := testStore.Search(ctx, testCollection, []float32{1, 0, 0, 0}, 10, 0.9)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Relevance < 0.9 {
			t.Errorf("result %q below threshold: %v", r.Record.ExternalID, r.Relevance)
		}
		if r.Record.ExternalID == "opposite" {
			t.Error("opposite vector survived the threshold")
		}
	}
}

func TestSearchLimit(t *testing.T) {
	ctx := context.Background()

	results, err := testStore.Search(ctx, testCollection, []float32{1, 0, 0, 0}, 2, 0.0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) > 2 {
		t.Errorf("got %d results, limit was 2", len(results))
	}
}

func TestUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	coll := testStore.Client().Database(testDatabase).Collection(testCollection)

	rec := testRecord("exact", []float32{1, 0, 0, 0})
	rec.Text = "rewritten"
	if err := testStore.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	t.Cleanup(func() {
		_ = testStore.Upsert(ctx, testRecord("exact", []float32{1, 0, 0, 0}))
	})

	count, err := coll.CountDocuments(ctx, bson.D{{Key: "externalId", Value: "exact"}})
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 1 {
		t.Errorf("upsert should replace, found %d documents", count)
	}

	var doc bson.M
	if err := coll.FindOne(ctx, bson.D{{Key: "externalId", Value: "exact"}}).Decode(&doc); err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if doc["text"] != "rewritten" {
		t.Errorf("text = %v, want rewritten", doc["text"])
	}
}

func TestUpsertRejectsUnkeyed(t *testing.T) {
	err := testStore.Upsert(context.Background(), testRecord("", []float32{1, 0, 0, 0}))
	if err == nil {
		t.Fatal("Upsert without external id should fail")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	coll := testStore.Client().Database(testDatabase).Collection(testCollection)

	if err := testStore.Upsert(ctx, testRecord("ephemeral", []float32{0, 1, 0, 0})); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := testStore.Delete(ctx, testCollection, "ephemeral"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	count, err := coll.CountDocuments(ctx, bson.D{{Key: "externalId", Value: "ephemeral"}})
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 0 {
		t.Error("record still present after delete")
	}

	// Deleting an absent record is a no-op.
	if err := testStore.Delete(ctx, testCollection, "never-existed"); err != nil {
		t.Errorf("Delete absent: %v", err)
	}
}
