package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const snapshotCollection = "snapshots"

// MongoSink stores one document per snapshot and keeps the newest Keep.
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
	keep   int64
}

// NewMongoSink connects to uri. An empty database falls back to the one
// named in the URI path, then to "scrapbook".
func NewMongoSink(uri, database string, keep int) (*MongoSink, error) {
	if database == "" {
		database = databaseFromURI(uri)
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &MongoSink{
		client: client,
		coll:   client.Database(database).Collection(snapshotCollection),
		keep:   int64(keep),
	}, nil
}

func (m *MongoSink) Name() string { return "mongo:" + m.coll.Database().Name() }

func (m *MongoSink) Write(ctx context.Context, s Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	doc, err := snapshotDocument(s)
	if err != nil {
		return err
	}
	if _, err := m.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return m.prune(ctx)
}

func (m *MongoSink) prune(ctx context.Context) error {
	if m.keep <= 0 {
		return nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "takenAt", Value: -1}}).
		SetSkip(m.keep).
		SetProjection(bson.D{{Key: "_id", Value: 1}})
	cursor, err := m.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return fmt.Errorf("find old snapshots: %w", err)
	}
	var old []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &old); err != nil {
		return fmt.Errorf("read old snapshots: %w", err)
	}
	if len(old) == 0 {
		return nil
	}
	ids := make(bson.A, len(old))
	for i, o := range old {
		ids[i] = o.ID
	}
	if _, err := m.coll.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

func (m *MongoSink) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// snapshotDocument converts the snapshot through its JSON form so blocks
// keep their wire shape inside Mongo.
func snapshotDocument(s Snapshot) (bson.D, error) {
	raw, err := json.Marshal(struct {
		Albums any `json:"albums"`
	}{s.Albums})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	var body bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &body); err != nil {
		return nil, fmt.Errorf("convert snapshot: %w", err)
	}
	doc := bson.D{
		{Key: "_id", Value: s.ID},
		{Key: "takenAt", Value: s.TakenAt},
		{Key: "pageCount", Value: s.PageCount()},
	}
	return append(doc, body...), nil
}

// databaseFromURI returns the path segment of a mongodb:// or
// mongodb+srv:// URI.
func databaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if after, ok := strings.CutPrefix(rest, prefix); ok {
			rest = after
			break
		}
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	_, path, ok := strings.Cut(rest, "/")
	if !ok {
		return "scrapbook"
	}
	path, _, _ = strings.Cut(path, "?")
	if path == "" {
		return "scrapbook"
	}
	return path
}
