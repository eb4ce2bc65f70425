package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// counterDoc is one per-collection sequence document in _counters.
type counterDoc struct {
	Name string `bson:"_id"`
	Seq  int64  `bson:"seq"`
}

// nextID returns the next identity value for the named collection. The
// $inc upsert is atomic on the server, so concurrent callers always get
// distinct, strictly increasing values. Failed inserts may burn a value;
// IDs are never reused.
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("velocty/mongo: next id %s: %w", name, err)
	}
	return doc.Seq, nil
}
