// Package mongostore is an append-only document store for the event bus's
// trace collector and the performance monitor's replay store: each record
// (a published event, or a hook's ReplayRecord) is inserted once and never
// mutated, which maps naturally onto a Mongo collection with no update
// path, unlike the SQL/Redis backends that model mutable key-value state.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Record is one entry appended to the log: a replay record, a trace span,
// or any other JSON-shaped event the caller wants retained for later query.
type Record struct {
	ID        bson.ObjectID  `bson:"_id,omitempty"`
	Scope     string         `bson:"scope"` // e.g. "replay", "trace"
	Key       string         `bson:"key"`   // e.g. execution_id, span_id
	Timestamp time.Time      `bson:"timestamp"`
	Payload   map[string]any `bson:"payload"`
}

// EventLog appends Records and queries them back by scope/key/time range.
type EventLog struct {
	coll *mongo.Collection
}

// Open connects to uri and returns an EventLog backed by db.collection.
func Open(ctx context.Context, uri, db, collection string) (*EventLog, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("storage/mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("storage/mongostore: ping: %w", err)
	}
	return &EventLog{coll: client.Database(db).Collection(collection)}, nil
}

// NewWithCollection wraps an already-resolved collection handle.
func NewWithCollection(coll *mongo.Collection) *EventLog { return &EventLog{coll: coll} }

// Append inserts a record.
func (l *EventLog) Append(ctx context.Context, scope, key string, payload map[string]any) error {
	rec := Record{Scope: scope, Key: key, Timestamp: time.Now(), Payload: payload}
	if _, err := l.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("storage/mongostore: append: %w", err)
	}
	return nil
}

// ByKey returns all records for scope/key ordered by timestamp ascending,
// the shape the replay store's timeline navigation needs.
func (l *EventLog) ByKey(ctx context.Context, scope, key string) ([]Record, error) {
	cur, err := l.coll.Find(ctx,
		bson.M{"scope": scope, "key": key},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("storage/mongostore: find: %w", err)
	}
	defer cur.Close(ctx)

	var out []Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("storage/mongostore: decode: %w", err)
	}
	return out, nil
}

// Since returns records in scope at or after t, for bounded replay queries.
func (l *EventLog) Since(ctx context.Context, scope string, t time.Time) ([]Record, error) {
	cur, err := l.coll.Find(ctx,
		bson.M{"scope": scope, "timestamp": bson.M{"$gte": t}},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("storage/mongostore: find since: %w", err)
	}
	defer cur.Close(ctx)

	var out []Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("storage/mongostore: decode: %w", err)
	}
	return out, nil
}
