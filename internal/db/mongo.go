package db

import (
	"context"
	"fmt"
	"time"

	"nw_quizbot/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
}

// MongoCollection keeps one document per record with _id set to the record id.
type MongoCollection struct {
	name string
	coll *mongo.Collection
}

func NewMongoDB(cfg config.MongoConfig) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Connection))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	return &MongoDB{
		client:   client,
		database: client.Database(cfg.Database),
	}, nil
}

func NewMongoStorage(cfg config.MongoConfig) (*Storage, error) {
	d, err := NewMongoDB(cfg)
	if err != nil {
		return nil, &StorageError{Op: "open", Collection: "mongo", Err: err}
	}
	return &Storage{
		Teams:    d.Collection(CollectionTeams, cfg.Collections.Teams),
		Users:    d.Collection(CollectionUsers, cfg.Collections.Users),
		Channels: d.Collection(CollectionChannels, cfg.Collections.Channels),
		close:    d.Close,
	}, nil
}

func (d *MongoDB) Collection(name, mongoName string) *MongoCollection {
	return &MongoCollection{name: name, coll: d.database.Collection(mongoName)}
}

func (d *MongoDB) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

func (m *MongoCollection) Get(ctx context.Context, id string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc bson.M
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Collection: m.name, ID: id, Err: err}
	}
	return fromBSON(doc), nil
}

func (m *MongoCollection) Save(ctx context.Context, rec Record) error {
	id := rec.ID()
	if err := checkID(id); err != nil {
		return &StorageError{Op: "save", Collection: m.name, ID: id, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := bson.M{"_id": id}
	for k, v := range rec {
		if k == "id" {
			continue
		}
		doc[k] = v
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := m.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, opts); err != nil {
		return &StorageError{Op: "save", Collection: m.name, ID: id, Err: err}
	}
	return nil
}

// All walks a single cursor. Documents with a non-string _id or that fail to
// decode are reported per id.
func (m *MongoCollection) All(ctx context.Context) (map[string]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cursor, err := m.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, &StorageError{Op: "all", Collection: m.name, Err: err}
	}
	defer cursor.Close(ctx)

	out := make(map[string]Record)
	failed := make(map[string]error)
	for cursor.Next(ctx) {
		rawID := cursor.Current.Lookup("_id")
		id, ok := rawID.StringValueOK()
		if !ok {
			// written outside the adapter; records are keyed by string ids
			id = rawID.String()
			failed[id] = &StorageError{Op: "get", Collection: m.name, ID: id, Err: ErrInvalidID}
			continue
		}
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			failed[id] = &StorageError{Op: "get", Collection: m.name, ID: id, Err: err}
			continue
		}
		out[id] = fromBSON(doc)
	}

	if err := cursor.Err(); err != nil {
		return out, &StorageError{Op: "all", Collection: m.name, Err: err}
	}
	if len(failed) > 0 {
		return out, &PartialError{Collection: m.name, Failed: failed}
	}
	return out, nil
}

func fromBSON(doc bson.M) Record {
	rec := make(Record, len(doc))
	for k, v := range doc {
		if k == "_id" {
			rec["id"] = fmt.Sprint(v)
			continue
		}
		rec[k] = normalizeBSON(v)
	}
	return rec
}

func normalizeBSON(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = normalizeBSON(e)
		}
		return m
	case bson.A:
		a := make([]interface{}, len(t))
		for i, e := range t {
			a[i] = normalizeBSON(e)
		}
		return a
	case bson.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = normalizeBSON(e.Value)
		}
		return m
	default:
		return v
	}
}
