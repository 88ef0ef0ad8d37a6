package movies

import (
	"context"
	"fmt"

	"github.com/mwilhelmy/recall/internal/memory"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// SampleDatabase and SampleCollection locate the Atlas demo dataset.
	SampleDatabase   = "sample_mflix"
	SampleCollection = "movies"
)

// Fetch reads up to limit movie documents from the given database.
func Fetch(ctx context.Context, db *mongo.Database, limit int) ([]Movie, error) {
	cursor, err := db.Collection(SampleCollection).Find(ctx, bson.D{},
		options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("%w: find movies: %v", memory.ErrStore, err)
	}
	defer cursor.Close(ctx)

	var docs []Movie
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode movies: %v", memory.ErrStore, err)
	}
	return docs, nil
}
